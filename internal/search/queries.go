package search

import "github.com/hyperjump/benkyo/internal/models"

var intentQueries = map[models.Task][]string{
	models.TaskQuiz: {
		"Generate quiz questions about the key concepts and main ideas in the document.",
		"Create a quiz based on the important details and factual information presented.",
		"Formulate questions that test understanding of the document's primary topics.",
		"What are some potential multiple-choice questions from this text?",
		"Generate a quiz that covers the essential information from the document.",
	},
	models.TaskFlashcards: {
		"Generate flashcards about the key concepts and main ideas in the document.",
		"Create flashcards based on the important details and factual information presented.",
		"Formulate flashcards that test understanding of the document's primary topics.",
		"What are some potential flashcards from this text?",
		"Generate flashcards that cover the essential information from the document.",
	},
	models.TaskMindMap: {
		"Summarize the core topics and key concepts for a mind map.",
		"Extract the main ideas, their sub-points, and hierarchical relationships.",
		"Generate a structured outline of the document's primary themes.",
		"What are the most important concepts and how do they relate to each other?",
		"Create a high-level overview of the material, focusing on structure and key terms.",
	},
	models.TaskExam: {
		"Generate exam questions about the key concepts and main ideas in the document.",
		"Create an exam based on the important details and factual information presented.",
		"Formulate questions that test understanding of the document's primary topics.",
		"Generate an exam that covers the essential information from the document.",
		"What are some potential exam questions from this text?",
	},
}

// Queries returns the retrieval-intent queries for task, or nil for an unknown task.
func Queries(task models.Task) []string {
	return intentQueries[task]
}
