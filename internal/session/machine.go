// Package session owns the authoritative state of one in-progress or
// completed interview. All transitions run under a single mutex, so
// concurrent callers (HTTP handlers, the timer loop, bus consumers)
// observe a serialized sequence of state changes.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/swipehq/interview-backend/internal/model"
)

// State is the machine's full observable state: the candidate roster,
// the single current session, and the append-only archive of completed
// session snapshots.
type State struct {
	Candidates []model.Candidate
	Current    *model.Session
	Sessions   []model.SessionSnapshot
}

// Machine is the session state machine. The in-memory state is a cache
// of the durable store that may lag by up to one save interval;
// reconciliation across processes happens through snapshots and the
// broadcast bus.
type Machine struct {
	mu    sync.Mutex
	state State
	log   zerolog.Logger

	nowFn func() time.Time

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates an empty Machine.
func New(log zerolog.Logger) *Machine {
	return &Machine{
		subs:  make(map[int]func(Event)),
		log:   log.With().Str("component", "session_machine").Logger(),
		nowFn: time.Now,
	}
}

func (m *Machine) lock()      { m.mu.Lock() }
func (m *Machine) unlock()    { m.mu.Unlock() }
func (m *Machine) subLock()   { m.subMu.Lock() }
func (m *Machine) subUnlock() { m.subMu.Unlock() }

// Subscribe registers fn for lifecycle events. The returned function
// removes the subscription. Events are delivered synchronously after
// the transition that produced them has committed.
func (m *Machine) Subscribe(fn func(Event)) func() {
	m.subLock()
	defer m.subUnlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.subLock()
		defer m.subUnlock()
		delete(m.subs, id)
	}
}

func (m *Machine) emit(events ...Event) {
	m.subLock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subUnlock()
	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// State returns a deep copy of the full machine state.
func (m *Machine) State() State {
	m.lock()
	defer m.unlock()
	return m.copyStateLocked()
}

func (m *Machine) copyStateLocked() State {
	out := State{Current: m.state.Current.Clone()}
	out.Candidates = make([]model.Candidate, len(m.state.Candidates))
	for i := range m.state.Candidates {
		out.Candidates[i] = *m.state.Candidates[i].Clone()
	}
	out.Sessions = make([]model.SessionSnapshot, len(m.state.Sessions))
	for i := range m.state.Sessions {
		out.Sessions[i] = *m.state.Sessions[i].Clone()
	}
	return out
}

// Current returns a deep copy of the current session, or nil.
func (m *Machine) Current() *model.Session {
	m.lock()
	defer m.unlock()
	return m.state.Current.Clone()
}

// ─── Candidates ─────────────────────────────────────────────────────

func (m *Machine) candidateByIDLocked(id string) *model.Candidate {
	if id == "" {
		return nil
	}
	for i := range m.state.Candidates {
		if m.state.Candidates[i].ID == id {
			return &m.state.Candidates[i]
		}
	}
	return nil
}

func (m *Machine) candidateByEmailLocked(email string) *model.Candidate {
	if email == "" {
		return nil
	}
	for i := range m.state.Candidates {
		if m.state.Candidates[i].Email == email {
			return &m.state.Candidates[i]
		}
	}
	return nil
}

// AddCandidate upserts a candidate. Matching is by email when present;
// non-empty incoming fields overwrite the existing record. A missing ID
// or CreatedAt is assigned here.
func (m *Machine) AddCandidate(in *model.Candidate) *model.Candidate {
	out := m.upsertCandidate(in)
	if out == nil {
		return nil
	}
	m.emit(Event{Type: EventCandidateAdded, Candidate: out.Clone()})
	return out
}

// ImportCandidate merges a candidate received over the broadcast bus
// without re-emitting EventCandidateAdded. Consumers and publishers
// share the bus, so an emitting import would echo every consumed
// candidate:added back out indefinitely.
func (m *Machine) ImportCandidate(in *model.Candidate) *model.Candidate {
	return m.upsertCandidate(in)
}

func (m *Machine) upsertCandidate(in *model.Candidate) *model.Candidate {
	if in == nil {
		return nil
	}
	m.lock()
	defer m.unlock()
	c := in.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.nowFn()
	}
	existing := m.candidateByEmailLocked(c.Email)
	if existing == nil {
		m.state.Candidates = append(m.state.Candidates, *c)
		existing = &m.state.Candidates[len(m.state.Candidates)-1]
	} else {
		existing.Merge(c)
	}
	return existing.Clone()
}

// ─── Session lifecycle ──────────────────────────────────────────────

// StartSession creates a fresh current session for candidateID. It is a
// no-op (ErrSessionActive) while a non-completed session is current;
// the caller must discard that session first.
func (m *Machine) StartSession(candidateID string) (*model.Session, error) {
	m.lock()
	if cur := m.state.Current; cur != nil && cur.Status != model.SessionStatusCompleted {
		m.unlock()
		return nil, ErrSessionActive
	}
	if candidateID == "" {
		candidateID = uuid.NewString()
	}
	sess := &model.Session{
		ID:          uuid.New(),
		CandidateID: candidateID,
		StartedAt:   m.nowFn(),
		Status:      model.SessionStatusInProgress,
	}
	m.state.Current = sess
	out := sess.Clone()
	snap := m.snapshotOfCurrentLocked()
	m.unlock()

	m.log.Info().Str("session_id", out.ID.String()).Str("candidate_id", candidateID).Msg("Session started")
	m.emit(Event{Type: EventSessionStarted, Snapshot: snap})
	return out, nil
}

// BeginGeneration marks the one-shot question-generation call as in
// flight. It fails if generation already ran or is running, or if the
// session already has questions.
func (m *Machine) BeginGeneration() error {
	m.lock()
	defer m.unlock()
	cur := m.state.Current
	if cur == nil {
		return ErrNoCurrentSession
	}
	if cur.GeneratingQuestions {
		return ErrGenerationInFlight
	}
	if len(cur.Questions) > 0 {
		return ErrGenerationInFlight
	}
	cur.GeneratingQuestions = true
	return nil
}

// EndGeneration clears the generation flag regardless of outcome.
func (m *Machine) EndGeneration() {
	m.lock()
	defer m.unlock()
	if m.state.Current != nil {
		m.state.Current.GeneratingQuestions = false
	}
}

// SetQuestions installs the generated question batch, normalizing every
// entry: remaining time starts at the time limit, no question is
// active, no answers exist. QuestionIndex resets to 0.
func (m *Machine) SetQuestions(qs []model.Question) error {
	m.lock()
	cur := m.state.Current
	if cur == nil {
		m.unlock()
		return ErrNoCurrentSession
	}
	normalized := make([]model.Question, len(qs))
	for i, q := range qs {
		if q.ID == 0 {
			q.ID = i + 1
		}
		if q.Difficulty == "" {
			q.Difficulty = model.DifficultyEasy
		}
		if q.TimeLimit <= 0 {
			q.TimeLimit = q.Difficulty.TimeLimitSeconds()
		}
		rem := q.TimeLimit
		q.RemainingTime = &rem
		q.StartedAt = nil
		q.Answer = nil
		normalized[i] = q
	}
	cur.Questions = normalized
	cur.QuestionIndex = 0
	snap := m.snapshotOfCurrentLocked()
	m.unlock()

	m.emit(Event{Type: EventSessionUpdated, Snapshot: snap})
	return nil
}

// StartQuestion marks questions[index] as the active question. It is
// idempotent: a question that already has StartedAt keeps its running
// timer. Any other active question is deactivated so at most one
// question is running at a time.
func (m *Machine) StartQuestion(index int, startedAt time.Time, remaining int) error {
	m.lock()
	defer m.unlock()
	cur := m.state.Current
	if cur == nil {
		return ErrNoCurrentSession
	}
	if index < 0 || index >= len(cur.Questions) {
		return ErrQuestionNotFound
	}
	q := &cur.Questions[index]
	if q.StartedAt != nil {
		return nil
	}
	for i := range cur.Questions {
		if i != index {
			cur.Questions[i].StartedAt = nil
		}
	}
	if startedAt.IsZero() {
		startedAt = m.nowFn()
	}
	if remaining <= 0 {
		if q.RemainingTime != nil {
			remaining = *q.RemainingTime
		} else {
			remaining = q.TimeLimit
		}
	}
	q.StartedAt = &startedAt
	q.RemainingTime = &remaining
	return nil
}

// Tick advances the countdown of questions[index] by one second,
// floored at zero, and returns the remaining time. It is the sole
// time-advancing operation and no-ops unless the session is
// in-progress with generation settled.
func (m *Machine) Tick(index int) (int, error) {
	m.lock()
	defer m.unlock()
	cur := m.state.Current
	if cur == nil {
		return 0, ErrNoCurrentSession
	}
	if index < 0 || index >= len(cur.Questions) {
		return 0, ErrQuestionNotFound
	}
	q := &cur.Questions[index]
	rem := q.TimeLimit
	if q.RemainingTime != nil {
		rem = *q.RemainingTime
	}
	if cur.Status != model.SessionStatusInProgress || cur.GeneratingQuestions {
		return rem, nil
	}
	if rem > 0 {
		rem--
	}
	q.RemainingTime = &rem
	return rem, nil
}

// UpdateQuestion applies an arbitrary patch to questions[index]. No
// validation is performed; callers own the patch shape.
func (m *Machine) UpdateQuestion(index int, patch func(*model.Question)) error {
	m.lock()
	defer m.unlock()
	cur := m.state.Current
	if cur == nil {
		return ErrNoCurrentSession
	}
	if index < 0 || index >= len(cur.Questions) {
		return ErrQuestionNotFound
	}
	patch(&cur.Questions[index])
	return nil
}

// UpdateDraft stores live-typed answer text so it survives snapshots.
func (m *Machine) UpdateDraft(index int, text string) error {
	return m.UpdateQuestion(index, func(q *model.Question) {
		q.Draft = text
	})
}

// ─── Submission ─────────────────────────────────────────────────────

// BeginSubmission claims the single submission-in-flight slot for
// questions[index]. Manual submits and timer-expiry auto-submits both
// funnel through here; whichever transitions first wins and the loser
// receives ErrSubmissionInFlight or ErrAlreadySubmitted.
func (m *Machine) BeginSubmission(index int) error {
	m.lock()
	defer m.unlock()
	cur := m.state.Current
	if cur == nil {
		return ErrNoCurrentSession
	}
	if cur.Status == model.SessionStatusCompleted {
		return ErrSessionCompleted
	}
	if cur.Submitting {
		return ErrSubmissionInFlight
	}
	if cur.Evaluating {
		return ErrEvaluationInFlight
	}
	if index < 0 || index >= len(cur.Questions) {
		return ErrQuestionNotFound
	}
	if cur.Questions[index].Answered() {
		return ErrAlreadySubmitted
	}
	cur.Submitting = true
	return nil
}

// FinishSubmission writes the answer for questions[index], deactivates
// the question, advances QuestionIndex, and releases the submission
// slot. It reports whether every question now holds a submitted answer.
func (m *Machine) FinishSubmission(index int, text string) (bool, error) {
	m.lock()
	cur := m.state.Current
	if cur == nil {
		m.unlock()
		return false, ErrNoCurrentSession
	}
	if index < 0 || index >= len(cur.Questions) {
		cur.Submitting = false
		m.unlock()
		return false, ErrQuestionNotFound
	}
	q := &cur.Questions[index]
	if q.Answered() {
		cur.Submitting = false
		m.unlock()
		return false, ErrAlreadySubmitted
	}
	now := m.nowFn()
	q.Answer = &model.Answer{Text: text, SubmittedAt: &now}
	q.StartedAt = nil
	q.Draft = ""
	if next := index + 1; next < len(cur.Questions) {
		cur.QuestionIndex = next
	} else {
		cur.QuestionIndex = len(cur.Questions) - 1
	}
	cur.Submitting = false
	all := cur.AllAnswered()
	snap := m.snapshotOfCurrentLocked()
	m.unlock()

	m.emit(Event{Type: EventSessionUpdated, Snapshot: snap})
	return all, nil
}

// AbortSubmission releases the submission slot without writing an
// answer. Used when the caller bails out after BeginSubmission.
func (m *Machine) AbortSubmission() {
	m.lock()
	defer m.unlock()
	if m.state.Current != nil {
		m.state.Current.Submitting = false
	}
}

// ─── Evaluation ─────────────────────────────────────────────────────

// BeginEvaluation claims the evaluation slot. It requires every
// question to hold a submitted answer and fails if evaluation is
// already running, which guarantees at most one completion per session
// under concurrent submit races.
func (m *Machine) BeginEvaluation() error {
	m.lock()
	defer m.unlock()
	cur := m.state.Current
	if cur == nil {
		return ErrNoCurrentSession
	}
	if cur.Status == model.SessionStatusCompleted {
		return ErrSessionCompleted
	}
	if cur.Evaluating {
		return ErrEvaluationInFlight
	}
	if !cur.AllAnswered() {
		return ErrNotAllAnswered
	}
	cur.Evaluating = true
	return nil
}

// EndEvaluation releases the evaluation slot. Called on both success
// and failure paths.
func (m *Machine) EndEvaluation() {
	m.lock()
	defer m.unlock()
	if m.state.Current != nil {
		m.state.Current.Evaluating = false
	}
}

// ApplyEvaluation patches per-question scores and feedback from the
// provider's verdicts. Extra verdicts beyond the question count are
// ignored; missing verdicts leave the answer unscored.
func (m *Machine) ApplyEvaluation(evals []model.QuestionEvaluation) error {
	m.lock()
	defer m.unlock()
	cur := m.state.Current
	if cur == nil {
		return ErrNoCurrentSession
	}
	for i := range cur.Questions {
		if i >= len(evals) {
			break
		}
		q := &cur.Questions[i]
		if q.Answer == nil {
			continue
		}
		score := evals[i].Score
		q.Answer.Score = &score
		q.Answer.Feedback = evals[i].Feedback
	}
	return nil
}

// CompleteSession is the terminal transition: it marks the session
// completed, attaches the summary, resolves or creates the owning
// candidate (by ID, then email, then a new record), and appends an
// immutable snapshot to the global archive and the candidate's
// history. The snapshot is returned for broadcasting and persistence.
func (m *Machine) CompleteSession(summary *model.Evaluation, cand *model.Candidate) (*model.SessionSnapshot, error) {
	m.lock()
	cur := m.state.Current
	if cur == nil {
		m.unlock()
		return nil, ErrNoCurrentSession
	}
	now := m.nowFn()
	cur.Status = model.SessionStatusCompleted
	cur.CompletedAt = &now
	cur.Evaluating = false
	cur.Submitting = false
	if summary != nil {
		cur.Summary = summary.Clone()
	}

	owner := m.candidateByIDLocked(cur.CandidateID)
	if owner == nil && cand != nil {
		owner = m.candidateByEmailLocked(cand.Email)
	}
	if owner == nil && cand != nil {
		fresh := cand.Clone()
		if fresh.ID == "" {
			fresh.ID = cur.CandidateID
		}
		if fresh.ID == "" {
			fresh.ID = uuid.NewString()
		}
		if fresh.CreatedAt.IsZero() {
			fresh.CreatedAt = now
		}
		m.state.Candidates = append(m.state.Candidates, *fresh)
		owner = &m.state.Candidates[len(m.state.Candidates)-1]
	} else if owner != nil && cand != nil {
		owner.Merge(cand)
	}

	snap := model.SessionSnapshot{
		Version: model.SnapshotVersion,
		Session: *cur.Clone(),
		SavedAt: now,
	}
	if owner != nil {
		snap.Candidate = owner.Summary()
	} else if cand != nil {
		snap.Candidate = cand.Summary()
	}

	m.state.Sessions = append(m.state.Sessions, *snap.Clone())
	if owner != nil {
		owner.Sessions = append(owner.Sessions, *snap.Clone())
	}
	out := snap.Clone()
	m.unlock()

	m.log.Info().
		Str("session_id", out.ID.String()).
		Int("questions", len(out.Questions)).
		Msg("Session completed and archived")
	m.emit(Event{Type: EventSessionCompleted, Snapshot: out.Clone()})
	return out, nil
}

// ─── Restore / resume / discard ─────────────────────────────────────

// RestoreSession rehydrates the current session from a persisted
// snapshot. The session always lands in paused state with the restored
// tag set; an explicit ResumeSession releases the timers. Every
// question is normalized: time limit and remaining time fall back to
// difficulty defaults, and StartedAt is cleared so no stale timer
// races the restore. QuestionIndex is recomputed as the first
// unanswered question. Applying the same snapshot twice yields an
// identical state.
func (m *Machine) RestoreSession(snap *model.SessionSnapshot) error {
	if snap == nil {
		return ErrUnsupportedSnapshot
	}
	if snap.Version != model.SnapshotVersion {
		return ErrUnsupportedSnapshot
	}
	m.lock()
	sess := snap.Session.Clone()
	sess.Status = model.SessionStatusPaused
	sess.Restored = true
	sess.GeneratingQuestions = false
	sess.Evaluating = false
	sess.Submitting = false
	for i := range sess.Questions {
		q := &sess.Questions[i]
		if q.Difficulty == "" {
			q.Difficulty = model.DifficultyEasy
		}
		if q.TimeLimit <= 0 {
			q.TimeLimit = q.Difficulty.TimeLimitSeconds()
		}
		if q.RemainingTime == nil {
			rem := q.TimeLimit
			q.RemainingTime = &rem
		}
		q.StartedAt = nil
	}
	sess.QuestionIndex = sess.FirstUnanswered()
	m.state.Current = sess
	m.unlock()

	m.log.Info().
		Str("session_id", sess.ID.String()).
		Int("question_index", sess.QuestionIndex).
		Msg("Session restored from snapshot")
	return nil
}

// ResumeSession transitions paused → in-progress and clears the
// restored tag, releasing the timers.
func (m *Machine) ResumeSession() error {
	m.lock()
	defer m.unlock()
	cur := m.state.Current
	if cur == nil {
		return ErrNoCurrentSession
	}
	if cur.Status != model.SessionStatusPaused {
		return ErrSessionNotPaused
	}
	cur.Status = model.SessionStatusInProgress
	cur.Restored = false
	return nil
}

// PauseSession transitions in-progress → paused. Ticks stop while
// paused.
func (m *Machine) PauseSession() error {
	m.lock()
	defer m.unlock()
	cur := m.state.Current
	if cur == nil {
		return ErrNoCurrentSession
	}
	if cur.Status != model.SessionStatusInProgress {
		return ErrSessionCompleted
	}
	cur.Status = model.SessionStatusPaused
	return nil
}

// DiscardCurrentSession drops the current session without archiving
// it. Discarding when no session exists is a no-op.
func (m *Machine) DiscardCurrentSession() {
	m.lock()
	m.state.Current = nil
	m.unlock()
}

// ─── Archive imports (broadcast consumption) ────────────────────────

// ImportArchivedSession merges a completed snapshot received from
// another context into the archive. The merge is idempotent by session
// ID and upserts the denormalized candidate. It reports whether the
// snapshot was newly added.
func (m *Machine) ImportArchivedSession(snap *model.SessionSnapshot) bool {
	if snap == nil || snap.ID == uuid.Nil {
		return false
	}
	m.lock()
	for i := range m.state.Sessions {
		if m.state.Sessions[i].ID == snap.ID {
			m.unlock()
			return false
		}
	}
	m.state.Sessions = append(m.state.Sessions, *snap.Clone())

	if snap.Candidate != nil && snap.Candidate.ID != "" {
		cand := m.candidateByIDLocked(snap.Candidate.ID)
		if cand == nil {
			m.state.Candidates = append(m.state.Candidates, model.Candidate{
				ID:        snap.Candidate.ID,
				Name:      snap.Candidate.Name,
				Email:     snap.Candidate.Email,
				Phone:     snap.Candidate.Phone,
				CreatedAt: m.nowFn(),
			})
			cand = &m.state.Candidates[len(m.state.Candidates)-1]
		} else {
			cand.Merge(&model.Candidate{
				Name:  snap.Candidate.Name,
				Email: snap.Candidate.Email,
				Phone: snap.Candidate.Phone,
			})
		}
		found := false
		for i := range cand.Sessions {
			if cand.Sessions[i].ID == snap.ID {
				found = true
				break
			}
		}
		if !found {
			cand.Sessions = append(cand.Sessions, *snap.Clone())
		}
	}

	// A completed snapshot for the current session supersedes our local
	// in-progress copy; drop it so a stale tab cannot resurrect it.
	if cur := m.state.Current; cur != nil && cur.ID == snap.ID && snap.Status == model.SessionStatusCompleted {
		m.state.Current = nil
	}
	m.unlock()
	return true
}

// snapshotOfCurrentLocked builds an event payload for the current
// session with the candidate denormalized. Callers hold the lock.
func (m *Machine) snapshotOfCurrentLocked() *model.SessionSnapshot {
	cur := m.state.Current
	if cur == nil {
		return nil
	}
	snap := &model.SessionSnapshot{
		Version: model.SnapshotVersion,
		Session: *cur.Clone(),
		SavedAt: m.nowFn(),
	}
	if cand := m.candidateByIDLocked(cur.CandidateID); cand != nil {
		snap.Candidate = cand.Summary()
	}
	return snap
}
