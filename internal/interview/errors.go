package interview

import "errors"

var (
	// ErrProviderNotResponding is the recoverable generation failure
	// surfaced to the client as "AI is not responding". Session state is
	// left untouched so a manual retry can succeed.
	ErrProviderNotResponding = errors.New("AI is not responding")

	// ErrEvaluationRetry means scoring failed transiently; the session
	// stays in progress and the caller may submit again.
	ErrEvaluationRetry = errors.New("evaluation failed, try again")
)
