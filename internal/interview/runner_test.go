package interview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/swipehq/interview-backend/internal/bus"
	"github.com/swipehq/interview-backend/internal/model"
	"github.com/swipehq/interview-backend/internal/provider"
	"github.com/swipehq/interview-backend/internal/session"
	"github.com/swipehq/interview-backend/internal/snapshot"
	"github.com/swipehq/interview-backend/internal/store"
)

type fakeProvider struct {
	mu         sync.Mutex
	questions  []model.Question
	genErr     error
	genCalls   int
	singleText string
	singleErr  error
	eval       *model.Evaluation
	evalErr    error
	evalCtxErr error
}

func (f *fakeProvider) GenerateQuestions(_ context.Context, difficulties []model.Difficulty, _ string) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	if f.questions != nil {
		return f.questions, nil
	}
	out := make([]model.Question, len(difficulties))
	for i, d := range difficulties {
		out[i] = model.Question{Text: "generated question", Difficulty: d}
	}
	return out, nil
}

func (f *fakeProvider) GenerateQuestion(_ context.Context, _ model.Difficulty, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.singleErr != nil {
		return "", f.singleErr
	}
	return f.singleText, nil
}

func (f *fakeProvider) EvaluateAnswers(ctx context.Context, _ []model.Question) (*model.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalCtxErr = ctx.Err()
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	return f.eval, nil
}

func (f *fakeProvider) setEvalErr(err error) {
	f.mu.Lock()
	f.evalErr = err
	f.mu.Unlock()
}

var testPlan = []model.Difficulty{
	model.DifficultyEasy, model.DifficultyEasy,
	model.DifficultyMedium, model.DifficultyMedium,
	model.DifficultyHard, model.DifficultyHard,
}

func scoredEvaluation() *model.Evaluation {
	total := 36.0
	return &model.Evaluation{
		Evaluations: []model.QuestionEvaluation{
			{Score: 6, Feedback: "ok"}, {Score: 6, Feedback: "ok"},
			{Score: 6, Feedback: "ok"}, {Score: 6, Feedback: "ok"},
			{Score: 6, Feedback: "ok"}, {Score: 6, Feedback: "ok"},
		},
		OverallSummary: "average",
		TotalScore:     &total,
	}
}

func newTestRunner(t *testing.T, p *fakeProvider) (*Runner, *session.Machine, store.KV) {
	t.Helper()
	log := zerolog.Nop()
	machine := session.New(log)
	kv := store.NewMemoryKV()
	saver := snapshot.NewSaver(kv, machine, 0, log)
	b := bus.NewStoreBus(kv, 0, log)
	return NewRunner(machine, p, saver, b, testPlan, log), machine, kv
}

func startInterview(t *testing.T, r *Runner) {
	t.Helper()
	if _, err := r.Start(&model.Candidate{Name: "Dana", Email: "dana@example.com"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Generate(context.Background(), ""); err != nil {
		t.Fatalf("generate: %v", err)
	}
}

func answerAllButLast(t *testing.T, r *Runner, m *session.Machine) {
	t.Helper()
	cur := m.Current()
	for i := 0; i < len(cur.Questions)-1; i++ {
		if err := r.Submit(context.Background(), i, "answer"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
}

func TestGenerateFailureLeavesStateUntouched(t *testing.T) {
	p := &fakeProvider{genErr: &provider.Error{Op: "test", Retryable: true, Err: provider.ErrEmptyResponse}}
	r, m, _ := newTestRunner(t, p)

	if _, err := r.Start(&model.Candidate{Name: "Dana", Email: "dana@example.com"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Generate(context.Background(), ""); !errors.Is(err, ErrProviderNotResponding) {
		t.Fatalf("want ErrProviderNotResponding, got %v", err)
	}

	cur := m.Current()
	if len(cur.Questions) != 0 || cur.GeneratingQuestions {
		t.Fatalf("session was mutated by failed generation: %+v", cur)
	}

	// The one-shot guard must release on failure so a retry can succeed.
	p.mu.Lock()
	p.genErr = nil
	p.mu.Unlock()
	if err := r.Generate(context.Background(), ""); err != nil {
		t.Fatalf("retry generate: %v", err)
	}
	if got := len(m.Current().Questions); got != 6 {
		t.Fatalf("questions = %d, want 6", got)
	}
}

func TestGenerateRunsOncePerSession(t *testing.T) {
	p := &fakeProvider{}
	r, _, _ := newTestRunner(t, p)
	startInterview(t, r)

	if err := r.Generate(context.Background(), ""); !errors.Is(err, session.ErrGenerationInFlight) {
		t.Fatalf("want ErrGenerationInFlight, got %v", err)
	}
	if p.genCalls != 1 {
		t.Fatalf("provider called %d times, want 1", p.genCalls)
	}
}

func TestGenerateStartsQuestionZero(t *testing.T) {
	p := &fakeProvider{}
	r, m, _ := newTestRunner(t, p)
	startInterview(t, r)

	cur := m.Current()
	if cur.QuestionIndex != 0 {
		t.Fatalf("question index = %d, want 0", cur.QuestionIndex)
	}
	if cur.Questions[0].StartedAt == nil {
		t.Fatal("question 0 was not started")
	}
}

func TestSubmitAdvancesToNextQuestion(t *testing.T) {
	p := &fakeProvider{eval: scoredEvaluation()}
	r, m, _ := newTestRunner(t, p)
	startInterview(t, r)

	if err := r.Submit(context.Background(), 0, "my answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	cur := m.Current()
	if cur.QuestionIndex != 1 {
		t.Fatalf("question index = %d, want 1", cur.QuestionIndex)
	}
	if cur.Questions[1].StartedAt == nil {
		t.Fatal("next question was not started")
	}
	if cur.Questions[0].Answer == nil || cur.Questions[0].Answer.Text != "my answer" {
		t.Fatalf("answer not recorded: %+v", cur.Questions[0].Answer)
	}
}

func TestFinalSubmitEvaluatesAndCompletes(t *testing.T) {
	p := &fakeProvider{eval: scoredEvaluation()}
	r, m, kv := newTestRunner(t, p)
	startInterview(t, r)
	answerAllButLast(t, r, m)

	if err := r.Submit(context.Background(), 5, "last answer"); err != nil {
		t.Fatalf("final submit: %v", err)
	}

	cur := m.Current()
	if cur.Status != model.SessionStatusCompleted {
		t.Fatalf("status = %s, want completed", cur.Status)
	}
	if cur.Summary == nil || cur.Summary.TotalScore == nil || *cur.Summary.TotalScore != 36 {
		t.Fatalf("summary not applied: %+v", cur.Summary)
	}
	if cur.Questions[0].Answer.Score == nil || *cur.Questions[0].Answer.Score != 6 {
		t.Fatal("per-question score not applied")
	}

	state := m.State()
	if len(state.Sessions) != 1 {
		t.Fatalf("archive has %d sessions, want 1", len(state.Sessions))
	}

	// Completed sessions leave no resumable snapshot behind.
	if _, err := kv.Get(context.Background(), "session:incomplete_snapshot"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("snapshot still present after completion: %v", err)
	}
}

func TestAutoSubmitCompletesFinalQuestion(t *testing.T) {
	p := &fakeProvider{eval: scoredEvaluation()}
	r, m, kv := newTestRunner(t, p)
	startInterview(t, r)
	answerAllButLast(t, r, m)

	if err := r.Draft(5, "ran out of time"); err != nil {
		t.Fatalf("draft: %v", err)
	}
	r.autoSubmit(5)

	cur := m.Current()
	if cur.Status != model.SessionStatusCompleted {
		t.Fatalf("status = %s, want completed", cur.Status)
	}
	if cur.Questions[5].Answer == nil || cur.Questions[5].Answer.Text != "ran out of time" {
		t.Fatalf("draft not submitted: %+v", cur.Questions[5].Answer)
	}

	// Stopping the ticker cancels the tick context; the evaluation call
	// must not inherit that cancellation.
	p.mu.Lock()
	ctxErr := p.evalCtxErr
	p.mu.Unlock()
	if ctxErr != nil {
		t.Fatalf("evaluation saw a cancelled context: %v", ctxErr)
	}

	if _, err := kv.Get(context.Background(), "session:incomplete_snapshot"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("snapshot still present after completion: %v", err)
	}
}

func TestTimerExpiryCompletesSession(t *testing.T) {
	p := &fakeProvider{eval: scoredEvaluation()}
	r, m, _ := newTestRunner(t, p)
	startInterview(t, r)
	answerAllButLast(t, r, m)

	if err := r.Draft(5, "time pressure"); err != nil {
		t.Fatalf("draft: %v", err)
	}
	one := 1
	if err := m.UpdateQuestion(5, func(q *model.Question) {
		q.RemainingTime = &one
	}); err != nil {
		t.Fatalf("shorten countdown: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for m.Current().Status != model.SessionStatusCompleted {
		if time.Now().After(deadline) {
			t.Fatal("session did not complete after the countdown expired")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cur := m.Current()
	if cur.Questions[5].Answer == nil || cur.Questions[5].Answer.Text != "time pressure" {
		t.Fatalf("expiry did not submit the draft: %+v", cur.Questions[5].Answer)
	}
	if cur.Summary == nil || cur.Summary.TotalScore == nil {
		t.Fatalf("summary not applied: %+v", cur.Summary)
	}
}

func TestEvaluationRetryableLeavesSessionInProgress(t *testing.T) {
	p := &fakeProvider{evalErr: &provider.Error{Op: "test", Retryable: true, Err: errors.New("rate limited")}}
	r, m, _ := newTestRunner(t, p)
	startInterview(t, r)
	answerAllButLast(t, r, m)

	if err := r.Submit(context.Background(), 5, "last"); !errors.Is(err, ErrEvaluationRetry) {
		t.Fatalf("want ErrEvaluationRetry, got %v", err)
	}

	cur := m.Current()
	if cur.Status != model.SessionStatusInProgress {
		t.Fatalf("status = %s, want in-progress", cur.Status)
	}
	if cur.Evaluating {
		t.Fatal("evaluation slot not released")
	}

	p.setEvalErr(nil)
	p.mu.Lock()
	p.eval = scoredEvaluation()
	p.mu.Unlock()
	if err := r.Complete(context.Background()); err != nil {
		t.Fatalf("complete retry: %v", err)
	}
	if m.Current().Status != model.SessionStatusCompleted {
		t.Fatal("session did not complete after retry")
	}
}

func TestEvaluationTerminalCompletesWithErrorSummary(t *testing.T) {
	p := &fakeProvider{evalErr: &provider.Error{Op: "test", Retryable: false, Err: provider.ErrUnparseable}}
	r, m, _ := newTestRunner(t, p)
	startInterview(t, r)
	answerAllButLast(t, r, m)

	if err := r.Submit(context.Background(), 5, "last"); err != nil {
		t.Fatalf("final submit: %v", err)
	}

	cur := m.Current()
	if cur.Status != model.SessionStatusCompleted {
		t.Fatalf("status = %s, want completed", cur.Status)
	}
	if cur.Summary == nil || cur.Summary.Error == "" {
		t.Fatalf("error summary missing: %+v", cur.Summary)
	}
}

func TestRegenerateQuestionResetsTimer(t *testing.T) {
	p := &fakeProvider{singleText: "fresh question"}
	r, m, _ := newTestRunner(t, p)
	startInterview(t, r)

	if err := r.Draft(0, "half typed"); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if err := r.RegenerateQuestion(context.Background(), 0, ""); err != nil {
		t.Fatalf("regenerate: %v", err)
	}

	q := m.Current().Questions[0]
	if q.Text != "fresh question" {
		t.Fatalf("text = %q", q.Text)
	}
	if q.Draft != "" || q.Answer != nil || q.StartedAt != nil {
		t.Fatalf("question not reset: %+v", q)
	}
	if q.RemainingTime == nil || *q.RemainingTime != q.Difficulty.TimeLimitSeconds() {
		t.Fatalf("remaining time not reset: %+v", q.RemainingTime)
	}
}

func TestUseDefaultQuestions(t *testing.T) {
	p := &fakeProvider{genErr: &provider.Error{Op: "test", Retryable: true, Err: provider.ErrEmptyResponse}}
	r, m, _ := newTestRunner(t, p)

	if _, err := r.Start(&model.Candidate{Name: "Dana", Email: "dana@example.com"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.UseDefaultQuestions(); err != nil {
		t.Fatalf("use defaults: %v", err)
	}

	cur := m.Current()
	if len(cur.Questions) != 6 {
		t.Fatalf("questions = %d, want 6", len(cur.Questions))
	}
	if cur.Questions[0].Text != "Introduce yourself briefly." {
		t.Fatalf("unexpected first question: %q", cur.Questions[0].Text)
	}
}

func TestPauseFlushesSnapshotAndResumeRestarts(t *testing.T) {
	p := &fakeProvider{}
	r, m, kv := newTestRunner(t, p)
	startInterview(t, r)

	if err := r.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if m.Current().Status != model.SessionStatusPaused {
		t.Fatal("session not paused")
	}
	if _, err := kv.Get(context.Background(), "session:incomplete_snapshot"); err != nil {
		t.Fatalf("snapshot not flushed on pause: %v", err)
	}

	if err := r.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	cur := m.Current()
	if cur.Status != model.SessionStatusInProgress {
		t.Fatal("session not resumed")
	}
	if cur.Questions[cur.QuestionIndex].StartedAt == nil {
		t.Fatal("active question not restarted on resume")
	}
}

func TestRestoreFromSavedThenDiscard(t *testing.T) {
	p := &fakeProvider{}
	r, m, kv := newTestRunner(t, p)
	startInterview(t, r)
	if err := r.Draft(0, "work in progress"); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if err := r.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// Fresh process over the same storage.
	log := zerolog.Nop()
	machine2 := session.New(log)
	saver2 := snapshot.NewSaver(kv, machine2, 0, log)
	r2 := NewRunner(machine2, p, saver2, bus.NewStoreBus(kv, 0, log), testPlan, log)

	ok, err := r2.RestoreFromSaved(context.Background())
	if err != nil || !ok {
		t.Fatalf("restore: ok=%v err=%v", ok, err)
	}

	cur := machine2.Current()
	if cur.Status != model.SessionStatusPaused || !cur.Restored {
		t.Fatalf("restored session in wrong state: %+v", cur)
	}
	if cur.ID != m.Current().ID {
		t.Fatal("restored a different session")
	}
	if cur.Questions[0].Draft != "work in progress" {
		t.Fatalf("draft lost across restore: %q", cur.Questions[0].Draft)
	}

	if err := r2.Discard(context.Background()); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if machine2.Current() != nil {
		t.Fatal("current session survived discard")
	}
	ok, err = r2.RestoreFromSaved(context.Background())
	if err != nil || ok {
		t.Fatalf("snapshot survived discard: ok=%v err=%v", ok, err)
	}
}
