package model

import "time"

// Difficulty grades a question and determines its default time limit.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// TimeLimitSeconds returns the per-question countdown for a difficulty.
// Unknown difficulties fall back to 30 seconds.
func (d Difficulty) TimeLimitSeconds() int {
	switch d {
	case DifficultyEasy:
		return 20
	case DifficultyMedium:
		return 60
	case DifficultyHard:
		return 120
	default:
		return 30
	}
}

// Normalize maps arbitrary-cased difficulty strings ("easy", "HARD")
// onto the canonical values. Unrecognized input defaults to Easy.
func NormalizeDifficulty(raw string) Difficulty {
	switch Difficulty(raw) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(raw)
	}
	switch {
	case len(raw) > 0 && (raw[0] == 'm' || raw[0] == 'M'):
		return DifficultyMedium
	case len(raw) > 0 && (raw[0] == 'h' || raw[0] == 'H'):
		return DifficultyHard
	default:
		return DifficultyEasy
	}
}

// Answer is created exactly once per question on submission. Score and
// feedback are patched in later by the evaluation step; Text may be
// updated live through the question draft while composing.
type Answer struct {
	Text        string     `json:"text"`
	Score       *float64   `json:"score,omitempty"`
	Feedback    string     `json:"feedback,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// Question is one timed interview question within a session.
type Question struct {
	ID         int        `json:"id"`
	Text       string     `json:"text"`
	Difficulty Difficulty `json:"difficulty"`
	// TimeLimit is the total countdown in seconds.
	TimeLimit int `json:"time_limit"`
	// RemainingTime is the seconds left on the countdown, nil until the
	// question has been started at least once.
	RemainingTime *int       `json:"remaining_time,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	// Draft holds typed-but-unsubmitted answer text so it survives a
	// snapshot/restore cycle.
	Draft  string  `json:"draft,omitempty"`
	Answer *Answer `json:"answer,omitempty"`
}

// Answered reports whether the question holds a submitted answer.
func (q *Question) Answered() bool {
	return q.Answer != nil && q.Answer.SubmittedAt != nil
}
