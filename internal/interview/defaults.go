package interview

import "github.com/swipehq/interview-backend/internal/model"

// defaultQuestions is the stand-in set used when the provider has not
// produced a batch yet and local state needs re-deriving.
var defaultQuestions = []model.Question{
	{ID: 1, Text: "Introduce yourself briefly.", Difficulty: model.DifficultyEasy},
	{ID: 2, Text: "Tell me about a challenging bug you fixed and how you approached it.", Difficulty: model.DifficultyEasy},
	{ID: 3, Text: "Explain the difference between var, let and const.", Difficulty: model.DifficultyMedium},
	{ID: 4, Text: "Describe how you would design a REST API for a blog platform.", Difficulty: model.DifficultyMedium},
	{ID: 5, Text: "Design a URL shortener and discuss scaling considerations.", Difficulty: model.DifficultyHard},
	{ID: 6, Text: "Explain how you would design an eventually-consistent distributed counter and trade-offs.", Difficulty: model.DifficultyHard},
}

// DefaultQuestions returns a fresh copy of the fallback question set.
func DefaultQuestions() []model.Question {
	out := make([]model.Question, len(defaultQuestions))
	for i, q := range defaultQuestions {
		out[i] = q.Clone()
	}
	return out
}
