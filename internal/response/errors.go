package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrReviewerAccessOnly ErrCode = "REVIEWER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Interview-specific ────────────────────────────────────────────
	ErrNoCurrentSession    ErrCode = "NO_CURRENT_SESSION"
	ErrSessionActive       ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionCompleted    ErrCode = "SESSION_COMPLETED"
	ErrSessionNotPaused    ErrCode = "SESSION_NOT_PAUSED"
	ErrSubmissionInFlight  ErrCode = "SUBMISSION_IN_FLIGHT"
	ErrAlreadySubmitted    ErrCode = "ALREADY_SUBMITTED"
	ErrEvaluationInFlight  ErrCode = "EVALUATION_IN_FLIGHT"
	ErrEvaluationRetryable ErrCode = "EVALUATION_RETRY"
	ErrNotAllAnswered      ErrCode = "NOT_ALL_ANSWERED"
	ErrQuestionNotFound    ErrCode = "QUESTION_NOT_FOUND"
	ErrGenerationInFlight  ErrCode = "GENERATION_IN_FLIGHT"
	ErrProviderUnavailable ErrCode = "PROVIDER_UNAVAILABLE"
	ErrSnapshotVersion     ErrCode = "SNAPSHOT_VERSION_UNSUPPORTED"
	ErrNoSnapshot          ErrCode = "NO_SNAPSHOT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrReviewerAccessOnly:
		return "This resource is restricted to reviewers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "One or more fields failed validation."
	case ErrInvalidID:
		return "The given ID is not valid."
	case ErrInvalidPayload:
		return "The request payload could not be parsed."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The request conflicts with the current state."

	// ─── Interview-specific ────────────────────────────────────────────
	case ErrNoCurrentSession:
		return "There is no interview session in progress."
	case ErrSessionActive:
		return "An interview session is already in progress."
	case ErrSessionCompleted:
		return "The interview session has already been completed."
	case ErrSessionNotPaused:
		return "The interview session is not paused."
	case ErrSubmissionInFlight:
		return "An answer submission is already in flight."
	case ErrAlreadySubmitted:
		return "This question already has a submitted answer."
	case ErrEvaluationInFlight:
		return "The interview is already being evaluated."
	case ErrEvaluationRetryable:
		return "Evaluation failed. Please try again."
	case ErrNotAllAnswered:
		return "Not every question has been answered yet."
	case ErrQuestionNotFound:
		return "The requested question does not exist."
	case ErrGenerationInFlight:
		return "Questions have already been generated for this session."
	case ErrProviderUnavailable:
		return "AI is not responding"
	case ErrSnapshotVersion:
		return "The saved session uses an unsupported format."
	case ErrNoSnapshot:
		return "There is no saved session to restore."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please slow down."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An unexpected error occurred."
	default:
		return "Unknown error."
	}
}
