// Package archive aggregates completed interviews for the reviewer
// dashboard and merges lifecycle broadcasts from other contexts into
// the local state.
package archive

import (
	"sort"
	"strings"
	"time"

	"github.com/swipehq/interview-backend/internal/model"
	"github.com/swipehq/interview-backend/internal/session"
)

// CandidateRow is one dashboard overview entry.
type CandidateRow struct {
	Candidate  model.CandidateSummary  `json:"candidate"`
	Latest     *model.SessionSnapshot  `json:"latestSession,omitempty"`
	Score      *float64                `json:"score,omitempty"`
	InProgress bool                    `json:"inProgress"`
}

// CandidateDetail is the dashboard drill-down payload.
type CandidateDetail struct {
	Candidate model.Candidate         `json:"candidate"`
	Sessions  []model.SessionSnapshot `json:"sessions"`
}

// AggregateScore derives a 0-100 display score from a session
// snapshot. Preference order: the provider's overall score verbatim,
// the average of all available per-question scores scaled to 100, the
// raw total normalized by question count. Returns nil when nothing is
// scored.
func AggregateScore(snap *model.SessionSnapshot) *float64 {
	if snap == nil {
		return nil
	}

	if snap.Summary != nil && snap.Summary.OverallScore != nil {
		v := *snap.Summary.OverallScore
		return &v
	}

	sum := 0.0
	scored := 0
	for i := range snap.Questions {
		a := snap.Questions[i].Answer
		if a != nil && a.Score != nil {
			sum += *a.Score
			scored++
		}
	}
	if scored > 0 {
		v := sum / float64(scored) * 10
		return &v
	}

	if snap.Summary != nil && snap.Summary.TotalScore != nil && len(snap.Questions) > 0 {
		v := *snap.Summary.TotalScore / (float64(len(snap.Questions)) * 10) * 100
		return &v
	}

	return nil
}

// completionTime orders archived sessions. Abandoned snapshots carry no
// CompletedAt, so the save time stands in.
func completionTime(s *model.SessionSnapshot) time.Time {
	if s.CompletedAt != nil {
		return *s.CompletedAt
	}
	return s.SavedAt
}

// latestSession picks the candidate's most relevant session: the live
// current session when they own it, otherwise the most recently
// completed archived one.
func latestSession(state *session.State, cand *model.Candidate) (*model.SessionSnapshot, bool) {
	if cur := state.Current; cur != nil && cur.CandidateID == cand.ID && cur.Status != model.SessionStatusCompleted {
		snap := &model.SessionSnapshot{
			Version: model.SnapshotVersion,
			Session: *cur.Clone(),
		}
		snap.Candidate = cand.Summary()
		return snap, true
	}

	var latest *model.SessionSnapshot
	for i := range cand.Sessions {
		s := &cand.Sessions[i]
		if latest == nil || completionTime(s).After(completionTime(latest)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, false
	}
	return latest.Clone(), false
}

// Overview builds the dashboard candidate list. The query filters by
// case-insensitive substring match on name or email. Rows sort by
// score descending with unscored candidates last.
func Overview(state *session.State, query string) []CandidateRow {
	query = strings.ToLower(strings.TrimSpace(query))

	rows := make([]CandidateRow, 0, len(state.Candidates))
	for i := range state.Candidates {
		cand := &state.Candidates[i]
		if query != "" &&
			!strings.Contains(strings.ToLower(cand.Name), query) &&
			!strings.Contains(strings.ToLower(cand.Email), query) {
			continue
		}

		row := CandidateRow{Candidate: *cand.Summary()}
		latest, inProgress := latestSession(state, cand)
		row.Latest = latest
		row.InProgress = inProgress
		if !inProgress {
			row.Score = AggregateScore(latest)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Score, rows[j].Score
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})

	return rows
}

// Detail returns the full record of one candidate, or nil when the ID
// is unknown.
func Detail(state *session.State, candidateID string) *CandidateDetail {
	for i := range state.Candidates {
		cand := &state.Candidates[i]
		if cand.ID != candidateID {
			continue
		}
		c := cand.Clone()
		detail := &CandidateDetail{Candidate: *c, Sessions: c.Sessions}
		if detail.Sessions == nil {
			detail.Sessions = []model.SessionSnapshot{}
		}
		return detail
	}
	return nil
}
