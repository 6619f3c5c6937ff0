package parse

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/hyperjump/benkyo/internal/models"
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"```json\n[1]\n```", "[1]"},
		{"```\n[1]\n```", "[1]"},
		{"  [1]  ", "[1]"},
		{"```mermaid\nmindmap\n  root((A))\n```", "mindmap\n  root((A))"},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuiz_fencedSingleQuestion(t *testing.T) {
	raw := "```json\n[{\"question\":\"Q\",\"options\":[\"A\",\"B\",\"C\",\"D\"],\"correct_option\":\"B\"}]\n```"
	bank, err := Quiz(raw, seeded())
	if err != nil {
		t.Fatal(err)
	}
	if len(bank) != 1 {
		t.Fatalf("got %d questions, want 1", len(bank))
	}
	q := bank[0]
	if q.Question != "Q" || q.CorrectOption != "B" {
		t.Errorf("unexpected question: %+v", q)
	}
	got := slices.Clone(q.Options)
	slices.Sort(got)
	if !slices.Equal(got, []string{"A", "B", "C", "D"}) {
		t.Errorf("options multiset changed: %v", q.Options)
	}
}

func TestQuiz_shuffleIsDeterministicForSeed(t *testing.T) {
	raw := `[
		{"question":"1","options":["a","b","c","d"],"correct_option":"a"},
		{"question":"2","options":["a","b","c","d"],"correct_option":"b"},
		{"question":"3","options":["a","b","c","d"],"correct_option":"c"},
		{"question":"4","options":["a","b","c","d"],"correct_option":"d"}
	]`
	first, err := Quiz(raw, seeded())
	if err != nil {
		t.Fatal(err)
	}
	second, _ := Quiz(raw, seeded())
	for i := range first {
		if first[i].Question != second[i].Question || !slices.Equal(first[i].Options, second[i].Options) {
			t.Fatalf("same seed produced different orderings at %d", i)
		}
	}
	for _, q := range first {
		if !slices.Contains(q.Options, q.CorrectOption) {
			t.Errorf("question %s lost its correct option", q.Question)
		}
	}
}

func TestQuiz_invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"not json", "Sure! Here is your quiz", nil},
		{"object not array", `{"question":"Q"}`, ErrNotArray},
		{"empty array", `[]`, ErrEmptyBank},
		{"missing correct_option", `[{"question":"Q","options":["A","B"]}]`, ErrMissingField},
		{"missing options", `[{"question":"Q","correct_option":"A"}]`, ErrMissingField},
		{"options not list", `[{"question":"Q","options":"A,B","correct_option":"A"}]`, ErrOptionsShape},
		{"correct not an option", `[{"question":"Q","options":["A","B","D","E"],"correct_option":"C"}]`, ErrCorrectAbsent},
		{"two options", `[{"question":"Q","options":["A","B"],"correct_option":"A"}]`, ErrOptionsShape},
		{"five options", `[{"question":"Q","options":["A","B","C","D","E"],"correct_option":"A"}]`, ErrOptionsShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, err := Quiz(tt.raw, seeded())
			if bank != nil {
				t.Errorf("expected no bank, got %v", bank)
			}
			var pe *ResponseParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ResponseParseError, got %v", err)
			}
			if pe.Kind != models.TaskQuiz || pe.Raw != tt.raw {
				t.Errorf("unexpected error detail: %+v", pe)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error %v does not wrap %v", err, tt.wantErr)
			}
		})
	}
}

func TestFlashcards(t *testing.T) {
	raw := `[{"question":"a","answer":"1"},{"question":"b","answer":"2"},{"question":"c","answer":"3"}]`
	deck, err := Flashcards(raw, seeded())
	if err != nil {
		t.Fatal(err)
	}
	if len(deck) != 3 {
		t.Fatalf("got %d cards", len(deck))
	}
	pairs := map[string]string{"a": "1", "b": "2", "c": "3"}
	for _, c := range deck {
		if pairs[c.Question] != c.Answer {
			t.Errorf("card %q has answer %q", c.Question, c.Answer)
		}
	}

	if _, err := Flashcards(`[{"question":"a"}]`, seeded()); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected missing field error, got %v", err)
	}
}

func TestExam(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		total       float64
		wantWarning bool
	}{
		{"exact sum", `[{"question":"a","answer":"x","score":4},{"question":"b","answer":"y","score":6}]`, 10, false},
		{"fractional sum", `[{"question":"a","answer":"x","score":0.1},{"question":"b","answer":"y","score":0.2}]`, 0.3, false},
		{"quoted score", `[{"question":"a","answer":"x","score":"10"}]`, 10, false},
		{"mismatch warns", `[{"question":"a","answer":"x","score":3},{"question":"b","answer":"y","score":3}]`, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, warning, err := Exam(tt.raw, tt.total, seeded())
			if err != nil {
				t.Fatal(err)
			}
			if len(bank) == 0 {
				t.Fatal("empty bank")
			}
			if (warning != "") != tt.wantWarning {
				t.Errorf("warning = %q, wantWarning %v", warning, tt.wantWarning)
			}
		})
	}
}

func TestExam_invalid(t *testing.T) {
	for _, raw := range []string{
		`[{"question":"a","answer":"x"}]`,
		`[{"question":"a","answer":"x","score":"lots"}]`,
		`[{"question":"a","answer":"x","score":-1}]`,
		`"just text"`,
	} {
		bank, _, err := Exam(raw, 10, seeded())
		var pe *ResponseParseError
		if bank != nil || !errors.As(err, &pe) {
			t.Errorf("Exam(%s) = %v, %v; want ResponseParseError", raw, bank, err)
		}
	}
}

func TestMindMap(t *testing.T) {
	src := "mindmap\n  root((Cells))\n    (Organelles)"
	mm, err := MindMap("\n" + src + "\n")
	if err != nil {
		t.Fatal(err)
	}
	if mm.Source != src {
		t.Errorf("Source = %q", mm.Source)
	}

	if bare, err := MindMap("mindmap"); err != nil || bare.Source != "mindmap" {
		t.Errorf("keyword alone = %q, %v", bare.Source, err)
	}

	fenced, err := MindMap("```mermaid\n" + src + "\n```")
	if err != nil || fenced.Source != src {
		t.Errorf("fenced mind map = %q, %v", fenced.Source, err)
	}

	for _, raw := range []string{"graph TD\n A-->B", "Here is your mind map:\nmindmap", "", "mindmapper\n  root((A))"} {
		mm, err := MindMap(raw)
		if !errors.Is(err, ErrNotMindMap) {
			t.Errorf("MindMap(%q) error = %v", raw, err)
		}
		if mm.Source != "" {
			t.Errorf("partial output must be discarded, got %q", mm.Source)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"5.0", 5, false},
		{"  2.5\n", 2.5, false},
		{"0", 0, false},
		{"Score: 3", 0, true},
		{"three", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"0x1p1", 0, true},
		{"1_0", 0, true},
		{"-1.5e1", -15, false},
		{".5", 0.5, false},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := Score(tt.raw)
		if tt.wantErr {
			var se *ScoreParseError
			if !errors.As(err, &se) {
				t.Errorf("Score(%q) error = %v, want ScoreParseError", tt.raw, err)
			}
			if !strings.Contains(err.Error(), "not a number") {
				t.Errorf("unexpected message %q", err.Error())
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Score(%q) = %v, %v; want %v", tt.raw, got, err, tt.want)
		}
	}
}
