package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/swipehq/interview-backend/internal/model"
)

func newTestMachine() *Machine {
	return New(zerolog.Nop())
}

func sixQuestions() []model.Question {
	return []model.Question{
		{Text: "q1", Difficulty: model.DifficultyEasy},
		{Text: "q2", Difficulty: model.DifficultyEasy},
		{Text: "q3", Difficulty: model.DifficultyMedium},
		{Text: "q4", Difficulty: model.DifficultyMedium},
		{Text: "q5", Difficulty: model.DifficultyHard},
		{Text: "q6", Difficulty: model.DifficultyHard},
	}
}

func startWithQuestions(t *testing.T, m *Machine) *model.Session {
	t.Helper()
	sess, err := m.StartSession("cand-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := m.SetQuestions(sixQuestions()); err != nil {
		t.Fatalf("SetQuestions: %v", err)
	}
	return sess
}

func submit(t *testing.T, m *Machine, index int, text string) bool {
	t.Helper()
	if err := m.BeginSubmission(index); err != nil {
		t.Fatalf("BeginSubmission(%d): %v", index, err)
	}
	all, err := m.FinishSubmission(index, text)
	if err != nil {
		t.Fatalf("FinishSubmission(%d): %v", index, err)
	}
	return all
}

func TestStartSessionNoOpWhileActive(t *testing.T) {
	m := newTestMachine()
	first, err := m.StartSession("cand-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := m.StartSession("cand-2"); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	cur := m.Current()
	if cur == nil || cur.ID != first.ID {
		t.Fatal("second StartSession must not replace the current session")
	}
}

func TestSetQuestionsNormalizes(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)
	cur := m.Current()
	if len(cur.Questions) != 6 {
		t.Fatalf("expected 6 questions, got %d", len(cur.Questions))
	}
	wantLimits := []int{20, 20, 60, 60, 120, 120}
	for i, q := range cur.Questions {
		if q.TimeLimit != wantLimits[i] {
			t.Errorf("question %d: time limit = %d, want %d", i, q.TimeLimit, wantLimits[i])
		}
		if q.RemainingTime == nil || *q.RemainingTime != q.TimeLimit {
			t.Errorf("question %d: remaining time not initialized to limit", i)
		}
		if q.StartedAt != nil || q.Answer != nil {
			t.Errorf("question %d: must start inactive and unanswered", i)
		}
		if q.ID != i+1 {
			t.Errorf("question %d: id = %d, want %d", i, q.ID, i+1)
		}
	}
	if cur.QuestionIndex != 0 {
		t.Fatalf("question index = %d, want 0", cur.QuestionIndex)
	}
}

func TestAtMostOneActiveQuestion(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)

	if err := m.StartQuestion(0, time.Now(), 20); err != nil {
		t.Fatalf("StartQuestion(0): %v", err)
	}
	if err := m.StartQuestion(2, time.Now(), 60); err != nil {
		t.Fatalf("StartQuestion(2): %v", err)
	}
	cur := m.Current()
	active := 0
	for _, q := range cur.Questions {
		if q.StartedAt != nil {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("active questions = %d, want exactly 1", active)
	}
	if cur.ActiveQuestionIndex() != 2 {
		t.Fatalf("active index = %d, want 2", cur.ActiveQuestionIndex())
	}
}

func TestStartQuestionIdempotent(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)

	first := time.Now().Add(-10 * time.Second)
	if err := m.StartQuestion(0, first, 15); err != nil {
		t.Fatalf("StartQuestion: %v", err)
	}
	// Re-render analog: a second start must not reset the running timer.
	if err := m.StartQuestion(0, time.Now(), 20); err != nil {
		t.Fatalf("repeat StartQuestion: %v", err)
	}
	q := m.Current().Questions[0]
	if q.RemainingTime == nil || *q.RemainingTime != 15 {
		t.Fatalf("remaining = %v, want 15 (unchanged)", q.RemainingTime)
	}
	if !q.StartedAt.Equal(first) {
		t.Fatal("StartedAt was reset by repeated start")
	}

	if err := m.StartQuestion(99, time.Now(), 20); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestTickOnlyWhileInProgress(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)
	if err := m.StartQuestion(0, time.Now(), 20); err != nil {
		t.Fatalf("StartQuestion: %v", err)
	}

	if rem, err := m.Tick(0); err != nil || rem != 19 {
		t.Fatalf("Tick = (%d, %v), want (19, nil)", rem, err)
	}

	if err := m.PauseSession(); err != nil {
		t.Fatalf("PauseSession: %v", err)
	}
	for i := 0; i < 5; i++ {
		if rem, err := m.Tick(0); err != nil || rem != 19 {
			t.Fatalf("paused Tick = (%d, %v), want (19, nil)", rem, err)
		}
	}

	if err := m.ResumeSession(); err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if rem, _ := m.Tick(0); rem != 18 {
		t.Fatalf("post-resume remaining = %d, want 18", rem)
	}
}

func TestTickFloorsAtZero(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)
	if err := m.StartQuestion(0, time.Now(), 2); err != nil {
		t.Fatalf("StartQuestion: %v", err)
	}
	for i := 0; i < 10; i++ {
		if rem, _ := m.Tick(0); rem < 0 {
			t.Fatalf("remaining went negative: %d", rem)
		}
	}
	if q := m.Current().Questions[0]; *q.RemainingTime != 0 {
		t.Fatalf("remaining = %d, want 0", *q.RemainingTime)
	}
}

func TestMonotonicProgression(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)

	lastIndex := 0
	for i := 0; i < 6; i++ {
		submit(t, m, i, "answer")
		cur := m.Current()
		if cur.QuestionIndex < lastIndex {
			t.Fatalf("question index decreased: %d -> %d", lastIndex, cur.QuestionIndex)
		}
		lastIndex = cur.QuestionIndex
		for j := 0; j <= i; j++ {
			if !cur.Questions[j].Answered() {
				t.Fatalf("question %d lost its submitted answer", j)
			}
		}
	}
	if lastIndex != 5 {
		t.Fatalf("final index = %d, want 5 (clamped to last)", lastIndex)
	}
}

func TestResubmissionRejected(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)
	submit(t, m, 0, "first")

	if err := m.BeginSubmission(0); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	if m.Current().Questions[0].Answer.Text != "first" {
		t.Fatal("answer text changed after rejected resubmission")
	}
}

func TestConcurrentSubmitRace(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)
	for i := 0; i < 5; i++ {
		submit(t, m, i, "a")
	}

	// Simulate manual submit and timer-expiry auto-submit firing
	// together on the last question: exactly one BeginSubmission and
	// exactly one BeginEvaluation may win.
	var wg sync.WaitGroup
	wins := make(chan struct{}, 2)
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.BeginSubmission(5); err != nil {
				return
			}
			if _, err := m.FinishSubmission(5, "last"); err != nil {
				return
			}
			if err := m.BeginEvaluation(); err != nil {
				return
			}
			wins <- struct{}{}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("evaluation slot claimed %d times, want exactly 1", won)
	}
}

func TestCompleteSessionArchives(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)
	for i := 0; i < 6; i++ {
		submit(t, m, i, "a")
	}
	if err := m.BeginEvaluation(); err != nil {
		t.Fatalf("BeginEvaluation: %v", err)
	}
	total := 48.0
	snap, err := m.CompleteSession(
		&model.Evaluation{TotalScore: &total, OverallSummary: "solid"},
		&model.Candidate{Name: "Ada", Email: "ada@example.com"},
	)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	if snap.Status != model.SessionStatusCompleted || snap.CompletedAt == nil {
		t.Fatal("snapshot not marked completed")
	}
	if snap.Candidate == nil || snap.Candidate.Email != "ada@example.com" {
		t.Fatal("candidate not denormalized into snapshot")
	}
	if snap.Summary == nil || snap.Summary.TotalScore == nil || *snap.Summary.TotalScore != 48 {
		t.Fatal("summary total score missing")
	}

	st := m.State()
	if len(st.Sessions) != 1 {
		t.Fatalf("archive entries = %d, want 1", len(st.Sessions))
	}
	if len(st.Candidates) != 1 || len(st.Candidates[0].Sessions) != 1 {
		t.Fatal("candidate history not updated")
	}
}

func TestRestoreIdempotent(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)
	submit(t, m, 0, "a1")
	submit(t, m, 1, "a2")
	if err := m.StartQuestion(2, time.Now(), 45); err != nil {
		t.Fatalf("StartQuestion: %v", err)
	}
	if err := m.UpdateDraft(2, "half-typed"); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}

	cur := m.Current()
	snap := &model.SessionSnapshot{
		Version: model.SnapshotVersion,
		Session: *cur,
		SavedAt: time.Now(),
	}

	if err := m.RestoreSession(snap); err != nil {
		t.Fatalf("RestoreSession: %v", err)
	}
	first := m.Current()

	if err := m.RestoreSession(snap); err != nil {
		t.Fatalf("second RestoreSession: %v", err)
	}
	second := m.Current()

	if first.Status != model.SessionStatusPaused || second.Status != model.SessionStatusPaused {
		t.Fatal("restored session must be paused")
	}
	if first.QuestionIndex != 2 || second.QuestionIndex != 2 {
		t.Fatalf("restored index = %d/%d, want 2 (first unanswered)", first.QuestionIndex, second.QuestionIndex)
	}
	if !first.Restored || !second.Restored {
		t.Fatal("restored tag not set")
	}
	if first.Questions[2].Draft != "half-typed" || second.Questions[2].Draft != "half-typed" {
		t.Fatal("draft text lost on restore")
	}
	for i := range first.Questions {
		if first.Questions[i].StartedAt != nil || second.Questions[i].StartedAt != nil {
			t.Fatalf("question %d: StartedAt must be cleared on restore", i)
		}
	}
}

func TestRestoreRejectsUnknownVersion(t *testing.T) {
	m := newTestMachine()
	snap := &model.SessionSnapshot{Version: 99}
	if err := m.RestoreSession(snap); !errors.Is(err, ErrUnsupportedSnapshot) {
		t.Fatalf("expected ErrUnsupportedSnapshot, got %v", err)
	}
}

func TestResumeClearsRestoredTag(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)
	cur := m.Current()
	snap := &model.SessionSnapshot{Version: model.SnapshotVersion, Session: *cur, SavedAt: time.Now()}
	if err := m.RestoreSession(snap); err != nil {
		t.Fatalf("RestoreSession: %v", err)
	}
	if err := m.ResumeSession(); err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	got := m.Current()
	if got.Status != model.SessionStatusInProgress || got.Restored {
		t.Fatalf("resume left status=%s restored=%v", got.Status, got.Restored)
	}
	// Resuming twice is not valid: the session is no longer paused.
	if err := m.ResumeSession(); !errors.Is(err, ErrSessionNotPaused) {
		t.Fatalf("expected ErrSessionNotPaused, got %v", err)
	}
}

func TestDiscardCurrentSession(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)
	m.DiscardCurrentSession()
	if m.Current() != nil {
		t.Fatal("current session survived discard")
	}
	// Discarding again is a harmless no-op.
	m.DiscardCurrentSession()
}

func TestAddCandidateMergesByEmail(t *testing.T) {
	m := newTestMachine()
	first := m.AddCandidate(&model.Candidate{Name: "Ada", Email: "ada@example.com"})
	second := m.AddCandidate(&model.Candidate{Name: "Ada Lovelace", Email: "ada@example.com", Phone: "555"})

	if first.ID != second.ID {
		t.Fatal("same email produced two candidate IDs")
	}
	st := m.State()
	if len(st.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(st.Candidates))
	}
	got := st.Candidates[0]
	if got.Name != "Ada Lovelace" || got.Phone != "555" {
		t.Fatalf("merge did not overwrite non-empty fields: %+v", got)
	}
}

func TestImportCandidateDoesNotEmit(t *testing.T) {
	m := newTestMachine()
	var added int
	unsubscribe := m.Subscribe(func(ev Event) {
		if ev.Type == EventCandidateAdded {
			added++
		}
	})
	defer unsubscribe()

	m.AddCandidate(&model.Candidate{Name: "Ada", Email: "ada@example.com"})
	if added != 1 {
		t.Fatalf("AddCandidate emitted %d events, want 1", added)
	}

	imported := m.ImportCandidate(&model.Candidate{Name: "Ada Lovelace", Email: "ada@example.com"})
	if imported == nil || imported.Name != "Ada Lovelace" {
		t.Fatalf("import did not merge: %+v", imported)
	}
	if added != 1 {
		t.Fatalf("ImportCandidate emitted events: %d total, want 1", added)
	}
	if got := len(m.State().Candidates); got != 1 {
		t.Fatalf("candidates = %d, want 1", got)
	}
}

func TestImportArchivedSessionIdempotent(t *testing.T) {
	m := newTestMachine()
	startWithQuestions(t, m)
	cur := m.Current()
	now := time.Now()
	snap := &model.SessionSnapshot{
		Version: model.SnapshotVersion,
		Session: *cur,
		SavedAt: now,
		Candidate: &model.CandidateSummary{
			ID: "remote-1", Name: "Remote", Email: "remote@example.com",
		},
	}
	snap.Status = model.SessionStatusCompleted
	snap.CompletedAt = &now

	if !m.ImportArchivedSession(snap) {
		t.Fatal("first import should add the snapshot")
	}
	if m.ImportArchivedSession(snap) {
		t.Fatal("duplicate import should be a no-op")
	}

	st := m.State()
	if len(st.Sessions) != 1 {
		t.Fatalf("archive entries = %d, want 1", len(st.Sessions))
	}
	if st.Current != nil {
		t.Fatal("completed import must clear the matching local current session")
	}
}

func TestSubscribeReceivesCompletion(t *testing.T) {
	m := newTestMachine()
	events := make([]EventType, 0, 8)
	unsub := m.Subscribe(func(ev Event) {
		events = append(events, ev.Type)
	})
	defer unsub()

	startWithQuestions(t, m)
	for i := 0; i < 6; i++ {
		submit(t, m, i, "a")
	}
	if _, err := m.CompleteSession(&model.Evaluation{}, &model.Candidate{Email: "x@y.z"}); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	var sawStarted, sawCompleted bool
	for _, e := range events {
		switch e {
		case EventSessionStarted:
			sawStarted = true
		case EventSessionCompleted:
			sawCompleted = true
		}
	}
	if !sawStarted || !sawCompleted {
		t.Fatalf("events = %v, want started and completed", events)
	}
}
