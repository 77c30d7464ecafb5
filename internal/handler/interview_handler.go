package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/swipehq/interview-backend/internal/interview"
	"github.com/swipehq/interview-backend/internal/model"
	"github.com/swipehq/interview-backend/internal/response"
	"github.com/swipehq/interview-backend/internal/session"
	"github.com/swipehq/interview-backend/internal/snapshot"
	"github.com/swipehq/interview-backend/internal/validator"
)

// InterviewHandler drives the candidate-facing interview endpoints.
type InterviewHandler struct {
	runner  *interview.Runner
	machine *session.Machine
	saver   *snapshot.Saver
}

// NewInterviewHandler creates a new InterviewHandler.
func NewInterviewHandler(runner *interview.Runner, machine *session.Machine, saver *snapshot.Saver) *InterviewHandler {
	return &InterviewHandler{runner: runner, machine: machine, saver: saver}
}

// Start godoc
// POST /api/v1/interview/start
// Registers the candidate and opens a session for them.
func (h *InterviewHandler) Start(c *gin.Context) {
	var req model.AddCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	sess, err := h.runner.Start(&model.Candidate{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Topic: req.Topic,
	})
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": sess})
}

type generateRequest struct {
	Topic string `json:"topic" binding:"omitempty,max=120"`
}

// Generate godoc
// POST /api/v1/interview/questions
// Generates the session's question batch. Runs at most once per
// session.
func (h *InterviewHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	if err := h.runner.Generate(c.Request.Context(), req.Topic); err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": h.machine.Current()})
}

// UseDefaults godoc
// POST /api/v1/interview/questions/default
// Installs the fallback question set when the provider is unavailable.
func (h *InterviewHandler) UseDefaults(c *gin.Context) {
	if err := h.runner.UseDefaultQuestions(); err != nil {
		failDomain(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": h.machine.Current()})
}

// Regenerate godoc
// POST /api/v1/interview/questions/:index/regenerate
// Replaces one question with a fresh one of the same difficulty.
func (h *InterviewHandler) Regenerate(c *gin.Context) {
	index, ok := questionIndex(c)
	if !ok {
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	if err := h.runner.RegenerateQuestion(c.Request.Context(), index, req.Topic); err != nil {
		failDomain(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": h.machine.Current()})
}

type answerRequest struct {
	Text string `json:"text"`
}

// Draft godoc
// PUT /api/v1/interview/questions/:index/draft
// Stores live-typed answer text so it survives snapshots.
func (h *InterviewHandler) Draft(c *gin.Context) {
	index, ok := questionIndex(c)
	if !ok {
		return
	}

	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := h.runner.Draft(index, req.Text); err != nil {
		failDomain(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Submit godoc
// POST /api/v1/interview/questions/:index/submit
// Submits the answer for one question. When the last answer lands the
// evaluation runs before the call returns.
func (h *InterviewHandler) Submit(c *gin.Context) {
	index, ok := questionIndex(c)
	if !ok {
		return
	}

	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := h.runner.Submit(c.Request.Context(), index, req.Text); err != nil {
		failDomain(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": h.machine.Current()})
}

// Evaluate godoc
// POST /api/v1/interview/evaluate
// Retries evaluation after a transient scoring failure.
func (h *InterviewHandler) Evaluate(c *gin.Context) {
	if err := h.runner.Complete(c.Request.Context()); err != nil {
		failDomain(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": h.machine.Current()})
}

// Current godoc
// GET /api/v1/interview
// Returns the current session.
func (h *InterviewHandler) Current(c *gin.Context) {
	cur := h.machine.Current()
	if cur == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoCurrentSession)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": cur})
}

// Pause godoc
// POST /api/v1/interview/pause
func (h *InterviewHandler) Pause(c *gin.Context) {
	if err := h.runner.Pause(c.Request.Context()); err != nil {
		failDomain(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": h.machine.Current()})
}

// Resume godoc
// POST /api/v1/interview/resume
func (h *InterviewHandler) Resume(c *gin.Context) {
	if err := h.runner.Resume(); err != nil {
		failDomain(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": h.machine.Current()})
}

// Discard godoc
// DELETE /api/v1/interview
// Abandons the current session and deletes its saved snapshot.
func (h *InterviewHandler) Discard(c *gin.Context) {
	if err := h.runner.Discard(c.Request.Context()); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Snapshot godoc
// GET /api/v1/interview/snapshot
// Returns the persisted incomplete-session snapshot, if any. Clients
// use it for the resume-or-discard choice on startup.
func (h *InterviewHandler) Snapshot(c *gin.Context) {
	snap, err := h.saver.Load(c.Request.Context())
	if err != nil {
		if errors.Is(err, snapshot.ErrUnsupportedVersion) {
			response.Fail(c, http.StatusConflict, response.ErrSnapshotVersion)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if snap == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoSnapshot)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}

// Restore godoc
// POST /api/v1/interview/restore
// Rehydrates the saved snapshot as the paused current session.
func (h *InterviewHandler) Restore(c *gin.Context) {
	ok, err := h.runner.RestoreFromSaved(c.Request.Context())
	if err != nil {
		failDomain(c, err)
		return
	}
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrNoSnapshot)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": h.machine.Current()})
}

func questionIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return index, true
}

// failDomain maps domain errors onto the response envelope.
func failDomain(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNoCurrentSession):
		response.Fail(c, http.StatusNotFound, response.ErrNoCurrentSession)
	case errors.Is(err, session.ErrSessionActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionActive)
	case errors.Is(err, session.ErrSessionCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	case errors.Is(err, session.ErrSessionNotPaused):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotPaused)
	case errors.Is(err, session.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)
	case errors.Is(err, session.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, session.ErrSubmissionInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmissionInFlight)
	case errors.Is(err, session.ErrEvaluationInFlight):
		response.Fail(c, http.StatusConflict, response.ErrEvaluationInFlight)
	case errors.Is(err, session.ErrGenerationInFlight):
		response.Fail(c, http.StatusConflict, response.ErrGenerationInFlight)
	case errors.Is(err, session.ErrNotAllAnswered):
		response.Fail(c, http.StatusConflict, response.ErrNotAllAnswered)
	case errors.Is(err, session.ErrUnsupportedSnapshot):
		response.Fail(c, http.StatusConflict, response.ErrSnapshotVersion)
	case errors.Is(err, interview.ErrProviderNotResponding):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrProviderUnavailable)
	case errors.Is(err, interview.ErrEvaluationRetry):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrEvaluationRetryable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
