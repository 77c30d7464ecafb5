package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swipehq/interview-backend/internal/model"
	"github.com/swipehq/interview-backend/internal/response"
	"github.com/swipehq/interview-backend/internal/session"
	"github.com/swipehq/interview-backend/internal/validator"
)

// CandidateHandler handles candidate intake.
type CandidateHandler struct {
	machine *session.Machine
}

// NewCandidateHandler creates a new CandidateHandler.
func NewCandidateHandler(machine *session.Machine) *CandidateHandler {
	return &CandidateHandler{machine: machine}
}

// Add godoc
// POST /api/v1/candidates
// Registers a candidate, merging with any existing record that shares
// the email address.
func (h *CandidateHandler) Add(c *gin.Context) {
	var req model.AddCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	cand := h.machine.AddCandidate(&model.Candidate{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Topic: req.Topic,
	})

	response.Success(c, http.StatusCreated, gin.H{"candidate": cand.Summary()})
}
