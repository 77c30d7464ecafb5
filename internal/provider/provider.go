package provider

import (
	"context"

	"github.com/swipehq/interview-backend/internal/model"
)

// Provider produces interview questions and scores completed answers.
type Provider interface {
	// GenerateQuestions returns one question per difficulty, in order.
	GenerateQuestions(ctx context.Context, difficulties []model.Difficulty, topic string) ([]model.Question, error)

	// GenerateQuestion returns a single question text for the given difficulty.
	GenerateQuestion(ctx context.Context, difficulty model.Difficulty, topic string) (string, error)

	// EvaluateAnswers scores the submitted answers of the given questions.
	EvaluateAnswers(ctx context.Context, questions []model.Question) (*model.Evaluation, error)
}
