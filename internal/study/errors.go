package study

import (
	"errors"

	"github.com/hyperjump/benkyo/internal/materials"
	"github.com/hyperjump/benkyo/internal/storage"
)

func isDuplicate(err error) bool { return errors.Is(err, storage.ErrDuplicate) }

func isDuplicateMaterial(err error) bool { return errors.Is(err, materials.ErrDuplicateMaterial) }
