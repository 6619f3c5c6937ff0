package models

import "fmt"

// AllowedCounts are the bank sizes users can ask for.
var AllowedCounts = []int{5, 10, 20}

const (
	DefaultCount     = 10
	DefaultExamTotal = 10.0
	MinimumExamTotal = 1.0
)

// GenerateRequest asks for a quiz, flashcard deck, or exam for a chapter.
type GenerateRequest struct {
	Subject    string  `json:"subject"`
	Chapter    string  `json:"chapter"`
	Count      int     `json:"count,omitempty"`
	TotalScore float64 `json:"total_score,omitempty"`
}

// Validate checks the chapter selection and normalizes count and total score.
// A zero count becomes DefaultCount; any other value must be one of AllowedCounts.
func (r *GenerateRequest) Validate() error {
	if r.Subject == "" || r.Chapter == "" {
		return fmt.Errorf("subject and chapter are required")
	}
	if r.Count == 0 {
		r.Count = DefaultCount
	}
	allowed := false
	for _, c := range AllowedCounts {
		if r.Count == c {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("count must be one of %v, got %d", AllowedCounts, r.Count)
	}
	if r.TotalScore == 0 {
		r.TotalScore = DefaultExamTotal
	}
	if r.TotalScore < MinimumExamTotal {
		return fmt.Errorf("total score must be at least %v", MinimumExamTotal)
	}
	return nil
}
