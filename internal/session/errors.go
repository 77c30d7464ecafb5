package session

import "errors"

// Domain errors. Callers treat ErrSessionActive, ErrAlreadySubmitted
// and ErrSubmissionInFlight as benign no-ops: they signal that another
// path already performed the transition.
var (
	ErrNoCurrentSession    = errors.New("no current session")
	ErrSessionActive       = errors.New("a session is already in progress")
	ErrSessionCompleted    = errors.New("session is already completed")
	ErrSessionNotPaused    = errors.New("session is not paused")
	ErrQuestionNotFound    = errors.New("question does not exist")
	ErrAlreadySubmitted    = errors.New("question already has a submitted answer")
	ErrSubmissionInFlight  = errors.New("a submission is already in flight")
	ErrEvaluationInFlight  = errors.New("evaluation is already in progress")
	ErrGenerationInFlight  = errors.New("question generation is already in progress")
	ErrNotAllAnswered      = errors.New("not all questions have submitted answers")
	ErrUnsupportedSnapshot = errors.New("unsupported snapshot version")
)
