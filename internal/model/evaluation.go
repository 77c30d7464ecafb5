package model

// QuestionEvaluation is the provider's verdict for a single answer.
// Scores are on a 0-10 scale.
type QuestionEvaluation struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Evaluation is the session summary returned by the evaluation step.
// TotalScore is the raw sum of per-question scores as reported by the
// provider; OverallScore, when present, is already on the dashboard's
// 0-100 scale. A non-empty Error marks an error-shaped summary written
// when evaluation failed terminally but the session was completed
// anyway.
type Evaluation struct {
	Evaluations    []QuestionEvaluation `json:"evaluations,omitempty"`
	OverallSummary string               `json:"overall_summary,omitempty"`
	TotalScore     *float64             `json:"total_score,omitempty"`
	OverallScore   *float64             `json:"overall_score,omitempty"`
	Error          string               `json:"error,omitempty"`
}
