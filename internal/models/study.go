package models

// Chunk is a slice of chapter text used as the unit of embedding and retrieval.
type Chunk struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// QuizQuestion is a multiple-choice question. CorrectOption holds the option text, not its position.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correct_option"`
}

// Flashcard is a question/answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ExamQuestion is an open question with a reference answer and a point value.
type ExamQuestion struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// MindMap is a diagram document in mermaid mindmap syntax.
type MindMap struct {
	Source string `json:"source"`
}

// Task names a generation feature. Each task has its own retrieval queries and prompt.
type Task string

const (
	TaskQuiz       Task = "quiz"
	TaskFlashcards Task = "flashcards"
	TaskMindMap    Task = "mindmap"
	TaskExam       Task = "exam"
)
