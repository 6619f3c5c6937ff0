// Package prompt renders the fixed instructions sent to the chat model for each feature.
package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// Name identifies one of the prompt templates.
type Name string

const (
	ChatAnswer        Name = "chat-answer"
	QuizGenerate      Name = "quiz-generate"
	FlashcardGenerate Name = "flashcard-generate"
	MindMapGenerate   Name = "mindmap-generate"
	ExamGenerate      Name = "exam-generate"
	ExamGrade         Name = "exam-grade"
)

// ChatData fills ChatAnswer.
type ChatData struct {
	Context  string
	Question string
}

// QuizData fills QuizGenerate.
type QuizData struct {
	Context string
	Count   int
}

// FlashcardData fills FlashcardGenerate.
type FlashcardData struct {
	Context string
	Count   int
}

// MindMapData fills MindMapGenerate.
type MindMapData struct {
	Context string
}

// ExamData fills ExamGenerate.
type ExamData struct {
	Context    string
	Count      int
	TotalScore float64
}

// GradeData fills ExamGrade.
type GradeData struct {
	ReferenceAnswer string
	UserAnswer      string
	Marks           float64
}

var templates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"num": formatNumber,
}).Parse(definitions))

// Render executes the named template with data. Values are inserted verbatim and
// never re-expanded, so braces or template syntax inside retrieved text are harmless.
func Render(name Name, data any) (string, error) {
	t := templates.Lookup(string(name))
	if t == nil {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return b.String(), nil
}

// Chat renders the chapter-chat answer prompt.
func Chat(context, question string) (string, error) {
	return Render(ChatAnswer, ChatData{Context: context, Question: question})
}

// Quiz renders the multiple-choice generation prompt.
func Quiz(context string, count int) (string, error) {
	return Render(QuizGenerate, QuizData{Context: context, Count: count})
}

// Flashcards renders the flashcard generation prompt.
func Flashcards(context string, count int) (string, error) {
	return Render(FlashcardGenerate, FlashcardData{Context: context, Count: count})
}

// MindMap renders the mermaid mind map prompt.
func MindMap(context string) (string, error) {
	return Render(MindMapGenerate, MindMapData{Context: context})
}

// Exam renders the open-question exam prompt.
func Exam(context string, count int, total float64) (string, error) {
	return Render(ExamGenerate, ExamData{Context: context, Count: count, TotalScore: total})
}

// Grade renders the single-answer grading prompt.
func Grade(reference, answer string, marks float64) (string, error) {
	return Render(ExamGrade, GradeData{ReferenceAnswer: reference, UserAnswer: answer, Marks: marks})
}

// formatNumber prints whole numbers without a decimal part.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
