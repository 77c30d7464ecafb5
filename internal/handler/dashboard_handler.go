package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swipehq/interview-backend/internal/archive"
	"github.com/swipehq/interview-backend/internal/repository"
	"github.com/swipehq/interview-backend/internal/response"
	"github.com/swipehq/interview-backend/internal/session"
)

// DashboardHandler serves the reviewer dashboard.
type DashboardHandler struct {
	machine   *session.Machine
	snapshots *repository.SnapshotRepository
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(machine *session.Machine, snapshots *repository.SnapshotRepository) *DashboardHandler {
	return &DashboardHandler{machine: machine, snapshots: snapshots}
}

// Candidates godoc
// GET /api/v1/dashboard/candidates?q=
// Lists candidates with their latest session and aggregate score,
// sorted by score descending with unscored candidates last.
func (h *DashboardHandler) Candidates(c *gin.Context) {
	st := h.machine.State()
	rows := archive.Overview(&st, c.Query("q"))
	response.Success(c, http.StatusOK, gin.H{"candidates": rows})
}

// CandidateDetail godoc
// GET /api/v1/dashboard/candidates/:id
// Returns one candidate's full record and session history.
func (h *DashboardHandler) CandidateDetail(c *gin.Context) {
	st := h.machine.State()
	detail := archive.Detail(&st, c.Param("id"))
	if detail == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// Session godoc
// GET /api/v1/dashboard/sessions/:id
// Returns one archived session with its full Q/A transcript. Falls
// back to the durable archive when the snapshot is not in memory.
func (h *DashboardHandler) Session(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	st := h.machine.State()
	for i := range st.Sessions {
		if st.Sessions[i].ID == id {
			response.Success(c, http.StatusOK, gin.H{"session": st.Sessions[i]})
			return
		}
	}

	if h.snapshots != nil {
		snap, err := h.snapshots.GetByID(c.Request.Context(), id)
		if err == nil {
			response.Success(c, http.StatusOK, gin.H{"session": snap})
			return
		}
	}

	response.Fail(c, http.StatusNotFound, response.ErrNotFound)
}
