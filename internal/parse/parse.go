// Package parse validates raw model output and turns it into study items.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/hyperjump/benkyo/internal/models"
)

// MindMapKeyword must open every mind map document.
const MindMapKeyword = "mindmap"

// QuizOptions is the number of choices every quiz question carries.
const QuizOptions = 4

// ScoreTolerance is the allowed gap between the exam's score sum and the requested total.
const ScoreTolerance = 1e-6

var (
	ErrNotArray      = errors.New("response is not a JSON array")
	ErrEmptyBank     = errors.New("response contains no items")
	ErrMissingField  = errors.New("entry is missing a required field")
	ErrNotMindMap    = errors.New("response does not start with " + MindMapKeyword)
	ErrOptionsShape  = errors.New("options must be a list of 4 strings")
	ErrCorrectAbsent = errors.New("correct_option is not among the options")
)

// ResponseParseError reports model output that did not match the expected grammar.
// Raw holds the output for diagnostics.
type ResponseParseError struct {
	Kind models.Task
	Raw  string
	Err  error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v", e.Kind, e.Err)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// ScoreParseError reports a grading reply that was not a bare number.
type ScoreParseError struct {
	Raw string
	Err error
}

func (e *ScoreParseError) Error() string {
	return fmt.Sprintf("grading reply %q is not a number: %v", e.Raw, e.Err)
}

func (e *ScoreParseError) Unwrap() error { return e.Err }

var fence = regexp.MustCompile("```[A-Za-z]*")

// StripFences removes markdown code fence markers, including a language tag
// such as ```json or ```mermaid, and trims the result.
func StripFences(s string) string {
	return strings.TrimSpace(fence.ReplaceAllString(s, ""))
}

// decodeEntries parses raw as a JSON array of objects.
func decodeEntries(kind models.Task, raw string) ([]map[string]json.RawMessage, error) {
	body := StripFences(raw)
	var top json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return nil, &ResponseParseError{Kind: kind, Raw: raw, Err: err}
	}
	trimmed := strings.TrimSpace(string(top))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, &ResponseParseError{Kind: kind, Raw: raw, Err: ErrNotArray}
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(top, &entries); err != nil {
		return nil, &ResponseParseError{Kind: kind, Raw: raw, Err: err}
	}
	if len(entries) == 0 {
		return nil, &ResponseParseError{Kind: kind, Raw: raw, Err: ErrEmptyBank}
	}
	return entries, nil
}

func stringField(entry map[string]json.RawMessage, key string) (string, error) {
	v, ok := entry[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("field %s: %w", key, err)
	}
	return s, nil
}

// Quiz parses a multiple-choice bank, then shuffles question order and, independently,
// each question's options with rng.
func Quiz(raw string, rng *rand.Rand) ([]models.QuizQuestion, error) {
	entries, err := decodeEntries(models.TaskQuiz, raw)
	if err != nil {
		return nil, err
	}
	bank := make([]models.QuizQuestion, 0, len(entries))
	for i, entry := range entries {
		q, err := quizQuestion(entry)
		if err != nil {
			return nil, &ResponseParseError{Kind: models.TaskQuiz, Raw: raw, Err: fmt.Errorf("question %d: %w", i+1, err)}
		}
		bank = append(bank, q)
	}
	rng.Shuffle(len(bank), func(i, j int) { bank[i], bank[j] = bank[j], bank[i] })
	for _, q := range bank {
		rng.Shuffle(len(q.Options), func(i, j int) { q.Options[i], q.Options[j] = q.Options[j], q.Options[i] })
	}
	return bank, nil
}

func quizQuestion(entry map[string]json.RawMessage) (models.QuizQuestion, error) {
	var q models.QuizQuestion
	var err error
	if q.Question, err = stringField(entry, "question"); err != nil {
		return q, err
	}
	if q.CorrectOption, err = stringField(entry, "correct_option"); err != nil {
		return q, err
	}
	opts, ok := entry["options"]
	if !ok {
		return q, fmt.Errorf("%w: options", ErrMissingField)
	}
	if err := json.Unmarshal(opts, &q.Options); err != nil {
		return q, ErrOptionsShape
	}
	if len(q.Options) != QuizOptions {
		return q, fmt.Errorf("%w: got %d", ErrOptionsShape, len(q.Options))
	}
	found := false
	for _, o := range q.Options {
		if o == q.CorrectOption {
			found = true
			break
		}
	}
	if !found {
		return q, ErrCorrectAbsent
	}
	return q, nil
}

// Flashcards parses a flashcard deck and shuffles its order with rng.
func Flashcards(raw string, rng *rand.Rand) ([]models.Flashcard, error) {
	entries, err := decodeEntries(models.TaskFlashcards, raw)
	if err != nil {
		return nil, err
	}
	deck := make([]models.Flashcard, 0, len(entries))
	for i, entry := range entries {
		var c models.Flashcard
		if c.Question, err = stringField(entry, "question"); err == nil {
			c.Answer, err = stringField(entry, "answer")
		}
		if err != nil {
			return nil, &ResponseParseError{Kind: models.TaskFlashcards, Raw: raw, Err: fmt.Errorf("card %d: %w", i+1, err)}
		}
		deck = append(deck, c)
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck, nil
}

// Exam parses an exam bank and shuffles its order with rng. When the question scores do
// not add up to total the bank is still returned, together with a warning describing the gap.
func Exam(raw string, total float64, rng *rand.Rand) ([]models.ExamQuestion, string, error) {
	entries, err := decodeEntries(models.TaskExam, raw)
	if err != nil {
		return nil, "", err
	}
	bank := make([]models.ExamQuestion, 0, len(entries))
	sum := 0.0
	for i, entry := range entries {
		q, err := examQuestion(entry)
		if err != nil {
			return nil, "", &ResponseParseError{Kind: models.TaskExam, Raw: raw, Err: fmt.Errorf("question %d: %w", i+1, err)}
		}
		sum += q.Score
		bank = append(bank, q)
	}
	rng.Shuffle(len(bank), func(i, j int) { bank[i], bank[j] = bank[j], bank[i] })

	var warning string
	if math.Abs(sum-total) > ScoreTolerance {
		warning = fmt.Sprintf("question scores add up to %s instead of the requested %s",
			strconv.FormatFloat(sum, 'f', -1, 64), strconv.FormatFloat(total, 'f', -1, 64))
	}
	return bank, warning, nil
}

func examQuestion(entry map[string]json.RawMessage) (models.ExamQuestion, error) {
	var q models.ExamQuestion
	var err error
	if q.Question, err = stringField(entry, "question"); err != nil {
		return q, err
	}
	if q.Answer, err = stringField(entry, "answer"); err != nil {
		return q, err
	}
	v, ok := entry["score"]
	if !ok {
		return q, fmt.Errorf("%w: score", ErrMissingField)
	}
	if err := json.Unmarshal(v, &q.Score); err != nil {
		// Some replies quote the number.
		var s string
		if json.Unmarshal(v, &s) != nil {
			return q, fmt.Errorf("field score: %w", err)
		}
		if q.Score, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return q, fmt.Errorf("field score: %w", err)
		}
	}
	if q.Score < 0 || math.IsNaN(q.Score) || math.IsInf(q.Score, 0) {
		return q, fmt.Errorf("field score: invalid value %v", q.Score)
	}
	return q, nil
}

// MindMap checks that raw is a mermaid mind map. Partial or malformed output is
// discarded rather than repaired.
func MindMap(raw string) (models.MindMap, error) {
	src := StripFences(raw)
	rest, ok := strings.CutPrefix(src, MindMapKeyword)
	if !ok || (rest != "" && !unicode.IsSpace(rune(rest[0]))) {
		return models.MindMap{}, &ResponseParseError{Kind: models.TaskMindMap, Raw: raw, Err: ErrNotMindMap}
	}
	return models.MindMap{Source: src}, nil
}

// decimal is a plain base-10 number, optionally signed and with an exponent.
var decimal = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Score parses a grading reply as a bare decimal float.
func Score(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if !decimal.MatchString(s) {
		return 0, &ScoreParseError{Raw: raw, Err: strconv.ErrSyntax}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ScoreParseError{Raw: raw, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ScoreParseError{Raw: raw, Err: strconv.ErrRange}
	}
	return f, nil
}
