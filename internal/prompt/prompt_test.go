package prompt

import (
	"strings"
	"testing"
)

func TestRender_allTemplates(t *testing.T) {
	tests := []struct {
		name Name
		data any
		want []string
	}{
		{ChatAnswer, ChatData{Context: "ctx-1", Question: "why?"}, []string{"ctx-1", "why?"}},
		{QuizGenerate, QuizData{Context: "ctx-2", Count: 5}, []string{"ctx-2", "write 5 questions", "correct_option"}},
		{FlashcardGenerate, FlashcardData{Context: "ctx-3", Count: 10}, []string{"ctx-3", "write 10 flashcards"}},
		{MindMapGenerate, MindMapData{Context: "ctx-4"}, []string{"ctx-4", "mindmap"}},
		{ExamGenerate, ExamData{Context: "ctx-5", Count: 5, TotalScore: 10}, []string{"ctx-5", "worth 10 marks", "exactly 10."}},
		{ExamGrade, GradeData{ReferenceAnswer: "ref", UserAnswer: "mine", Marks: 2.5}, []string{"Reference answer: ref", "Student answer: mine", "Marks: 2.5"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			out, err := Render(tt.name, tt.data)
			if err != nil {
				t.Fatal(err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("rendered %s missing %q", tt.name, w)
				}
			}
			if strings.Contains(out, "{{") {
				t.Errorf("rendered %s has unexpanded placeholders", tt.name)
			}
		})
	}
}

func TestRender_valuesNotReExpanded(t *testing.T) {
	out, err := Chat("notes mention {{.Question}} literally", "q")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "notes mention {{.Question}} literally") {
		t.Error("template syntax inside a value must be inserted verbatim")
	}
}

func TestRender_unknown(t *testing.T) {
	if _, err := Render(Name("nope"), nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestHelpers(t *testing.T) {
	if out, _ := Quiz("c", 20); !strings.Contains(out, "write 20 questions") {
		t.Error("Quiz helper did not render count")
	}
	if out, _ := Exam("c", 5, 7.5); !strings.Contains(out, "7.5 marks") {
		t.Error("Exam helper did not render fractional total")
	}
	if out, _ := Grade("r", "a", 3); !strings.HasSuffix(out, "Score:") {
		t.Errorf("grade prompt should end with the score cue, got %q", out[len(out)-20:])
	}
}

func TestFormatNumber(t *testing.T) {
	for in, want := range map[float64]string{10: "10", 2.5: "2.5", 0: "0", 1.25: "1.25"} {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%v) = %s, want %s", in, got, want)
		}
	}
}
