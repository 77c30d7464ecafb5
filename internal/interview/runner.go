package interview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/swipehq/interview-backend/internal/bus"
	"github.com/swipehq/interview-backend/internal/metrics"
	"github.com/swipehq/interview-backend/internal/model"
	"github.com/swipehq/interview-backend/internal/provider"
	"github.com/swipehq/interview-backend/internal/session"
	"github.com/swipehq/interview-backend/internal/snapshot"
)

// Runner drives an interview end to end: question generation, the
// one-second countdown, auto-submit on expiry, and the evaluation
// sub-protocol. All state lives in the session machine; the runner owns
// only the timer goroutine and the provider calls.
type Runner struct {
	machine  *session.Machine
	provider provider.Provider
	saver    *snapshot.Saver
	bus      bus.Bus
	plan     []model.Difficulty
	log      zerolog.Logger

	mu         sync.Mutex
	cancelTick context.CancelFunc
	generated  map[string]bool
}

func NewRunner(machine *session.Machine, p provider.Provider, saver *snapshot.Saver, b bus.Bus, plan []model.Difficulty, log zerolog.Logger) *Runner {
	return &Runner{
		machine:   machine,
		provider:  p,
		saver:     saver,
		bus:       b,
		plan:      plan,
		log:       log.With().Str("component", "interview_runner").Logger(),
		generated: make(map[string]bool),
	}
}

// Run relays machine events onto the broadcast bus until ctx is
// cancelled. Call it once from main.
func (r *Runner) Run(ctx context.Context) {
	unsubscribe := r.machine.Subscribe(func(ev session.Event) {
		var payload any
		switch {
		case ev.Snapshot != nil:
			payload = ev.Snapshot
		case ev.Candidate != nil:
			payload = ev.Candidate
		}
		if err := r.bus.Publish(ctx, string(ev.Type), payload); err != nil {
			r.log.Warn().Err(err).Str("event", string(ev.Type)).Msg("Broadcast publish failed")
			return
		}
		metrics.BroadcastsPublished.WithLabelValues(string(ev.Type)).Inc()
	})
	<-ctx.Done()
	unsubscribe()
	r.stopTicker()
}

// Start registers the candidate and opens a fresh session for them.
// Question generation is a separate step so a provider outage never
// blocks intake.
func (r *Runner) Start(cand *model.Candidate) (*model.Session, error) {
	stored := r.machine.AddCandidate(cand)
	sess, err := r.machine.StartSession(stored.ID)
	if err != nil {
		return nil, err
	}
	metrics.SessionsStarted.Inc()
	return sess, nil
}

// Generate asks the provider for the session's question batch, exactly
// once per session, and starts question zero on success. Any provider
// failure or blank result leaves the session untouched and returns
// ErrProviderNotResponding so the client can retry manually.
func (r *Runner) Generate(ctx context.Context, topic string) error {
	if r.provider == nil {
		return ErrProviderNotResponding
	}
	cur := r.machine.Current()
	if cur == nil {
		return session.ErrNoCurrentSession
	}

	r.mu.Lock()
	if r.generated[cur.ID.String()] {
		r.mu.Unlock()
		return session.ErrGenerationInFlight
	}
	r.generated[cur.ID.String()] = true
	r.mu.Unlock()

	if err := r.machine.BeginGeneration(); err != nil {
		return err
	}

	questions, err := r.provider.GenerateQuestions(ctx, r.plan, topic)
	if err != nil || len(questions) == 0 {
		metrics.ProviderCalls.WithLabelValues("generate", "error").Inc()
		r.machine.EndGeneration()
		r.mu.Lock()
		delete(r.generated, cur.ID.String())
		r.mu.Unlock()
		r.log.Warn().Err(err).Msg("Question generation failed")
		return ErrProviderNotResponding
	}
	metrics.ProviderCalls.WithLabelValues("generate", "ok").Inc()

	if err := r.machine.SetQuestions(questions); err != nil {
		r.machine.EndGeneration()
		return err
	}
	r.machine.EndGeneration()

	if err := r.machine.StartQuestion(0, time.Time{}, 0); err != nil {
		return err
	}
	r.startTicker(0)
	return nil
}

// UseDefaultQuestions installs the fallback question set. Used when
// local state is inconsistent or the provider keeps failing and the
// interview must proceed anyway.
func (r *Runner) UseDefaultQuestions() error {
	if err := r.machine.SetQuestions(DefaultQuestions()); err != nil {
		return err
	}
	if err := r.machine.StartQuestion(0, time.Time{}, 0); err != nil {
		return err
	}
	r.startTicker(0)
	return nil
}

// RegenerateQuestion replaces the text of a single question with a
// fresh one of the same difficulty and resets its timer.
func (r *Runner) RegenerateQuestion(ctx context.Context, index int, topic string) error {
	if r.provider == nil {
		return ErrProviderNotResponding
	}
	cur := r.machine.Current()
	if cur == nil {
		return session.ErrNoCurrentSession
	}
	if index < 0 || index >= len(cur.Questions) {
		return session.ErrQuestionNotFound
	}

	text, err := r.provider.GenerateQuestion(ctx, cur.Questions[index].Difficulty, topic)
	if err != nil {
		r.log.Warn().Err(err).Int("question", index).Msg("Question regeneration failed")
		return ErrProviderNotResponding
	}

	return r.machine.UpdateQuestion(index, func(q *model.Question) {
		limit := q.Difficulty.TimeLimitSeconds()
		q.Text = text
		q.TimeLimit = limit
		q.RemainingTime = &limit
		q.StartedAt = nil
		q.Draft = ""
		q.Answer = nil
	})
}

// Draft stores live-typed answer text for questions[index].
func (r *Runner) Draft(index int, text string) error {
	return r.machine.UpdateDraft(index, text)
}

// Submit records the answer for questions[index]. Manual submits and
// timer auto-submits both land here; the machine's submission slot
// decides the winner when they race. When the last answer lands the
// evaluation sub-protocol runs before Submit returns.
func (r *Runner) Submit(ctx context.Context, index int, text string) error {
	return r.submit(ctx, index, text, "manual")
}

func (r *Runner) submit(ctx context.Context, index int, text, trigger string) error {
	if err := r.machine.BeginSubmission(index); err != nil {
		return err
	}

	all, err := r.machine.FinishSubmission(index, text)
	if err != nil {
		return err
	}
	metrics.AnswersSubmitted.WithLabelValues(trigger).Inc()

	if !all {
		cur := r.machine.Current()
		if cur != nil {
			next := cur.QuestionIndex
			if err := r.machine.StartQuestion(next, time.Time{}, 0); err == nil {
				r.startTicker(next)
			}
		}
		return nil
	}

	r.stopTicker()
	return r.evaluate(ctx)
}

// Complete retries the evaluation sub-protocol after a retryable
// scoring failure. It requires every question to be answered already.
func (r *Runner) Complete(ctx context.Context) error {
	return r.evaluate(ctx)
}

// evaluate runs the terminal scoring pass. Retryable provider failures
// release the evaluation slot and leave the session in progress so the
// client may try again; terminal failures complete the session with an
// error summary so the interview still ends deterministically.
func (r *Runner) evaluate(ctx context.Context) error {
	if err := r.machine.BeginEvaluation(); err != nil {
		if errors.Is(err, session.ErrEvaluationInFlight) {
			return nil
		}
		return err
	}

	cur := r.machine.Current()
	if cur == nil {
		r.machine.EndEvaluation()
		return session.ErrNoCurrentSession
	}

	if r.provider == nil {
		r.machine.EndEvaluation()
		return ErrEvaluationRetry
	}

	eval, err := r.provider.EvaluateAnswers(ctx, cur.Questions)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("evaluate", "error").Inc()
		if provider.IsRetryable(err) {
			r.machine.EndEvaluation()
			r.log.Warn().Err(err).Msg("Evaluation failed, leaving session in progress")
			return ErrEvaluationRetry
		}
		r.log.Error().Err(err).Msg("Evaluation failed terminally, completing with error summary")
		metrics.SessionsCompleted.WithLabelValues("error").Inc()
		return r.complete(ctx, &model.Evaluation{Error: err.Error()})
	}
	metrics.ProviderCalls.WithLabelValues("evaluate", "ok").Inc()

	if err := r.machine.ApplyEvaluation(eval.Evaluations); err != nil {
		r.machine.EndEvaluation()
		return err
	}
	metrics.SessionsCompleted.WithLabelValues("scored").Inc()
	return r.complete(ctx, eval)
}

func (r *Runner) complete(ctx context.Context, summary *model.Evaluation) error {
	if _, err := r.machine.CompleteSession(summary, nil); err != nil {
		r.machine.EndEvaluation()
		return err
	}
	r.stopTicker()
	if err := r.saver.Discard(ctx); err != nil {
		r.log.Warn().Err(err).Msg("Failed to discard completed-session snapshot")
	}
	return nil
}

// Pause freezes the countdown and flushes a snapshot so nothing is lost
// if the process dies while paused.
func (r *Runner) Pause(ctx context.Context) error {
	if err := r.machine.PauseSession(); err != nil {
		return err
	}
	r.stopTicker()
	if err := r.saver.Flush(ctx); err != nil {
		r.log.Warn().Err(err).Msg("Snapshot flush on pause failed")
	}
	return nil
}

// Resume releases a paused session back to in-progress and restarts
// the countdown on the active question.
func (r *Runner) Resume() error {
	if err := r.machine.ResumeSession(); err != nil {
		return err
	}
	cur := r.machine.Current()
	if cur != nil && len(cur.Questions) > 0 {
		idx := cur.QuestionIndex
		if err := r.machine.StartQuestion(idx, time.Time{}, 0); err == nil {
			r.startTicker(idx)
		}
	}
	return nil
}

// RestoreFromSaved loads the persisted snapshot, if any, and rehydrates
// it as the paused current session. Returns false when no usable
// snapshot exists.
func (r *Runner) RestoreFromSaved(ctx context.Context) (bool, error) {
	snap, err := r.saver.Load(ctx)
	if err != nil {
		return false, err
	}
	if snap == nil {
		return false, nil
	}
	if err := r.machine.RestoreSession(snap); err != nil {
		return false, err
	}
	return true, nil
}

// Discard abandons the current session and deletes its persisted
// snapshot. Idempotent.
func (r *Runner) Discard(ctx context.Context) error {
	r.stopTicker()
	r.machine.DiscardCurrentSession()
	return r.saver.Discard(ctx)
}

// Shutdown stops timers and flushes a final snapshot.
func (r *Runner) Shutdown(ctx context.Context) {
	r.stopTicker()
	if err := r.saver.Flush(ctx); err != nil {
		r.log.Warn().Err(err).Msg("Final snapshot flush failed")
	}
}

// ─── Timer loop ─────────────────────────────────────────────────────

// startTicker replaces any running countdown with one for
// questions[index]. The old loop is always cancelled first so a
// superseded question can never receive stale ticks.
func (r *Runner) startTicker(index int) {
	r.mu.Lock()
	if r.cancelTick != nil {
		r.cancelTick()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancelTick = cancel
	r.mu.Unlock()

	go r.tickLoop(ctx, index)
}

func (r *Runner) stopTicker() {
	r.mu.Lock()
	if r.cancelTick != nil {
		r.cancelTick()
		r.cancelTick = nil
	}
	r.mu.Unlock()
}

func (r *Runner) tickLoop(ctx context.Context, index int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining, err := r.machine.Tick(index)
			if err != nil {
				return
			}
			if remaining > 0 {
				continue
			}
			r.autoSubmit(index)
			return
		}
	}
}

// autoSubmit forces submission of questions[index] with whatever draft
// text exists. It runs on a fresh context rather than the tick context:
// submitting the final answer stops the ticker, which cancels the tick
// context, and the evaluation call must survive that cancellation.
func (r *Runner) autoSubmit(index int) {
	cur := r.machine.Current()
	if cur == nil || cur.Status != model.SessionStatusInProgress {
		return
	}
	draft := ""
	if index < len(cur.Questions) {
		if cur.Questions[index].Answered() {
			return
		}
		draft = cur.Questions[index].Draft
	}

	err := r.submit(context.Background(), index, draft, "auto")
	if err != nil && !errors.Is(err, session.ErrSubmissionInFlight) && !errors.Is(err, session.ErrAlreadySubmitted) {
		r.log.Warn().Err(err).Int("question", index).Msg("Auto-submit failed")
	}
}
