package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"weekly-trivia/internal/domain"
	"weekly-trivia/internal/metrics"

	"github.com/rs/zerolog"
)

// Controller runs the round lifecycle: start, per-type submission, countdown
// and expiry. All state lives in the Store; the controller only turns user
// actions and backend replies into events.
type Controller struct {
	ctx       context.Context
	backend   Backend
	store     *Store
	session   *Gate
	panels    *Refresher
	journal   ResultJournal
	profile   string
	newTicker func(time.Duration) Ticker
	metrics   *metrics.Metrics
	log       zerolog.Logger

	mu        sync.Mutex
	countdown *countdown
	wg        sync.WaitGroup
}

// Start requests a new round. It is the entry action of idle and the "Next
// Question" action of result.
func (c *Controller) Start(ctx context.Context) (domain.Round, error) {
	prev, next := c.store.Apply(RoundRequested{})
	if !next.Pending || prev.Pending {
		switch {
		case !prev.Authenticated:
			return domain.Round{}, domain.ErrUnauthorized
		case prev.Phase == PhasePlaying:
			return domain.Round{}, domain.ErrRoundNotPlaying
		default:
			return domain.Round{}, domain.ErrSubmissionPending
		}
	}
	epoch := next.Epoch

	round, err := c.backend.StartRound(ctx)
	if err != nil {
		if c.session.checkUnauthorized(ctx, err, epoch) {
			return domain.Round{}, err
		}
		c.store.Apply(RoundStartFailed{Epoch: epoch, Notice: "Failed to start round. Please try again."})
		c.log.Error().Err(err).Msg("start round")
		return domain.Round{}, err
	}

	_, after := c.store.Apply(RoundStarted{Epoch: epoch, Round: round})
	if after.Token() != round.Token {
		return domain.Round{}, domain.ErrStaleRound
	}
	c.session.roundServed()
	c.metrics.RoundStarted(string(round.Type()))
	c.log.Info().
		Str("qid", round.QID).
		Str("type", string(round.Type())).
		Int("time_limit_sec", round.TimeLimitSec).
		Msg("round started")
	return round, nil
}

// Next leaves the result phase by starting a fresh round.
func (c *Controller) Next(ctx context.Context) (domain.Round, error) {
	if s := c.store.Snapshot(); s.Phase != PhaseResult {
		return domain.Round{}, domain.ErrRoundNotPlaying
	}
	return c.Start(ctx)
}

// Select picks a multiple choice option.
func (c *Controller) Select(index int) error {
	s := c.store.Snapshot()
	if s.Phase != PhasePlaying {
		return domain.ErrRoundNotPlaying
	}
	if s.Pending {
		return domain.ErrSubmissionPending
	}
	_, next := c.store.Apply(OptionSelected{Token: s.Token(), Index: index})
	if next.Selected != index {
		return domain.ErrInvalidOption
	}
	return nil
}

// SetText updates the text answer draft.
func (c *Controller) SetText(text string) error {
	s := c.store.Snapshot()
	if s.Phase != PhasePlaying {
		return domain.ErrRoundNotPlaying
	}
	if s.InputDisabled {
		return domain.ErrInputDisabled
	}
	c.store.Apply(DraftChanged{Token: s.Token(), Text: text})
	return nil
}

// Submit sends the current selection or draft. For multi-answer rounds the
// reply may be intermediate; once all answers are in, the round is finalized.
func (c *Controller) Submit(ctx context.Context) (domain.Outcome, error) {
	s := c.store.Snapshot()
	if s.Phase != PhasePlaying || s.Round == nil {
		return domain.Outcome{}, submitBlocked(s, s.Token())
	}
	if _, err := buildSubmission(s); err != nil {
		return domain.Outcome{}, err
	}
	return c.submit(ctx, s.Token())
}

// Finalize settles a multi-answer round without a new answer.
func (c *Controller) Finalize(ctx context.Context) (domain.Result, error) {
	s := c.store.Snapshot()
	if s.Round == nil {
		return domain.Result{}, domain.ErrNoActiveRound
	}
	if !acceptsIntermediate(s.Round.Question) {
		return domain.Result{}, domain.ErrNotMultiAnswer
	}
	return c.finalize(ctx, s.Token())
}

func (c *Controller) submit(ctx context.Context, token string) (domain.Outcome, error) {
	prev, next := c.store.Apply(SubmissionSent{Token: token})
	if !next.Pending || prev.Pending {
		return domain.Outcome{}, submitBlocked(prev, token)
	}
	sub, err := buildSubmission(prev)
	if err != nil {
		c.store.Apply(SubmissionFailed{Token: token})
		return domain.Outcome{}, err
	}

	outcome, err := c.backend.SubmitRound(ctx, sub)
	if err != nil {
		if c.session.checkUnauthorized(ctx, err, prev.Epoch) {
			return domain.Outcome{}, err
		}
		c.store.Apply(SubmissionFailed{Token: token, Notice: "Failed to submit answer. Please try again."})
		c.log.Error().Err(err).Str("qid", sub.QID).Msg("submit answer")
		return domain.Outcome{}, err
	}

	if outcome.Intermediate != nil && acceptsIntermediate(prev.Round.Question) {
		_, after := c.store.Apply(AnswerAccepted{Token: token, Answer: *sub.TextAnswer, Record: *outcome.Intermediate})
		if !after.playing(token) {
			return outcome, domain.ErrStaleRound
		}
		c.metrics.AnswerAccepted(outcome.Intermediate.Correct)
		c.log.Debug().
			Str("qid", sub.QID).
			Bool("correct", outcome.Intermediate.Correct).
			Int("submitted", outcome.Intermediate.SubmittedCount).
			Int("total", outcome.Intermediate.TotalAnswers).
			Msg("answer accepted")
		if after.InputDisabled || after.Remaining == 0 {
			res, err := c.finalize(ctx, token)
			if err != nil {
				return outcome, err
			}
			return domain.Outcome{Result: &res}, nil
		}
		return outcome, nil
	}
	if outcome.Result == nil {
		c.store.Apply(SubmissionFailed{Token: token, Notice: "Unexpected reply from server."})
		return outcome, errors.New("submit reply carried neither a result nor an intermediate record")
	}
	if err := c.finish(prev, token, *outcome.Result); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (c *Controller) finalize(ctx context.Context, token string) (domain.Result, error) {
	prev, next := c.store.Apply(SubmissionSent{Token: token, Finalize: true})
	if !next.Pending || prev.Pending {
		return domain.Result{}, submitBlocked(prev, token)
	}

	res, err := c.backend.FinalizeRound(ctx, prev.Round.QID)
	if err != nil {
		if c.session.checkUnauthorized(ctx, err, prev.Epoch) {
			return domain.Result{}, err
		}
		c.store.Apply(SubmissionFailed{Token: token, Notice: "Failed to finish round. Please try again."})
		c.log.Warn().Err(err).Str("qid", prev.Round.QID).Msg("finalize round")
		return domain.Result{}, err
	}
	if err := c.finish(prev, token, res); err != nil {
		return domain.Result{}, err
	}
	return res, nil
}

// finish applies a terminal result and fires the best-effort side effects.
func (c *Controller) finish(prev State, token string, res domain.Result) error {
	_, after := c.store.Apply(RoundFinished{Token: token, Result: res})
	if after.Phase != PhaseResult || after.Token() != token {
		return domain.ErrStaleRound
	}

	round := *prev.Round
	c.metrics.RoundFinished(string(round.Type()), res.Correct)
	c.log.Info().
		Str("qid", round.QID).
		Bool("correct", res.Correct).
		Int("points", res.Points).
		Int("response_ms", res.ResponseMS).
		Msg("round finished")

	entry := journalEntry(round, after.Submitted, prev.Draft, prev.Selected, res)
	c.background(func(ctx context.Context) {
		if c.journal == nil {
			return
		}
		entry.FinishedAt = time.Now().UTC()
		if err := c.journal.Record(ctx, c.profile, entry); err != nil {
			c.log.Warn().Err(err).Str("qid", entry.QID).Msg("record result")
		}
	})
	c.panels.RefreshAsync()
	return nil
}

// expire runs when the countdown reaches zero.
func (c *Controller) expire(ctx context.Context, token string) {
	s := c.store.Snapshot()
	if !s.playing(token) || s.Pending {
		// an in-flight submission settles the round on its own
		return
	}
	c.log.Info().Str("qid", s.Round.QID).Msg("time expired")

	var err error
	switch expiryFor(s.Round.Question) {
	case expiryFinalize:
		_, err = c.finalize(ctx, token)
	default:
		_, err = c.submit(ctx, token)
	}
	if err != nil && !errors.Is(err, domain.ErrStaleRound) {
		c.log.Warn().Err(err).Msg("settle expired round")
	}
}

func (c *Controller) onTick(token string) {
	_, next := c.store.Apply(TimerTicked{Token: token})
	if !next.playing(token) || next.Remaining > 0 {
		return
	}
	c.mu.Lock()
	if c.countdown != nil && c.countdown.token == token {
		c.countdown.stop()
	}
	c.mu.Unlock()
	c.background(func(ctx context.Context) { c.expire(ctx, token) })
}

// reconcile keeps exactly one countdown alive, bound to the playing round.
// Observers of concurrent Applies may arrive in any order, so the state is
// read again under c.mu and the argument only signals that it changed.
func (c *Controller) reconcile(State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.store.Snapshot()

	if s.Phase != PhasePlaying || s.Round == nil {
		if c.countdown != nil {
			c.countdown.stop()
			c.countdown = nil
		}
		return
	}
	if c.countdown != nil && c.countdown.token == s.Round.Token {
		return
	}
	c.countdown.stop()
	c.countdown = startCountdown(c.ctx, s.Round.Token, c.newTicker(time.Second), c.onTick)
}

func (c *Controller) background(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

func (c *Controller) close() {
	c.mu.Lock()
	c.countdown.stop()
	c.countdown = nil
	c.mu.Unlock()
	c.wg.Wait()
}
