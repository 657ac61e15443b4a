package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"weekly-trivia/internal/api"
	"weekly-trivia/internal/app"
	"weekly-trivia/internal/domain"
	"weekly-trivia/internal/infra/memory"
	"weekly-trivia/internal/triviatest"

	"github.com/stretchr/testify/require"
)

// manualClock hands out tickers that only fire when the test says so.
type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.once.Do(func() { close(t.stopped) }) }

func (c *manualClock) New(time.Duration) app.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *manualClock) latest(t *testing.T) *manualTicker {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.tickers, "no countdown was started")
	return c.tickers[len(c.tickers)-1]
}

func (c *manualClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// tick advances the running countdown by n seconds. Each send returns once
// the countdown goroutine has taken it.
func (c *manualClock) tick(t *testing.T, n int) {
	t.Helper()
	ticker := c.latest(t)
	for i := 0; i < n; i++ {
		select {
		case ticker.ch <- time.Now():
		case <-time.After(2 * time.Second):
			t.Fatalf("countdown did not take tick %d", i+1)
		}
	}
}

type harness struct {
	srv     *triviatest.Server
	client  *api.Client
	game    *app.Game
	clock   *manualClock
	journal *memory.Journal
	cache   *memory.PanelCache
	creds   *memory.CredentialStore
}

func newHarness(t *testing.T, guest bool, bank ...triviatest.Question) *harness {
	t.Helper()
	srv := triviatest.New(t, bank...)
	srv.GuestMode = guest

	creds := memory.NewCredentialStore()
	client, err := api.New(srv.BaseURL(), api.WithCredentialStore(creds, "default"))
	require.NoError(t, err)

	h := &harness{
		srv:     srv,
		client:  client,
		clock:   &manualClock{},
		journal: memory.NewJournal(),
		cache:   memory.NewPanelCache(0),
		creds:   creds,
	}
	h.game = app.NewGame(client,
		app.WithGuestMode(guest),
		app.WithTicker(h.clock.New),
		app.WithJournal(h.journal),
		app.WithPanelCache(h.cache),
	)
	t.Cleanup(h.game.Close)
	return h
}

func (h *harness) login(t *testing.T, username string) {
	t.Helper()
	_, err := h.game.Session.Login(context.Background(), username, "1234")
	require.NoError(t, err)
	require.True(t, h.game.Store.Snapshot().Authenticated)
}

func (h *harness) eventuallyPhase(t *testing.T, phase app.Phase) app.State {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.game.Store.Snapshot().Phase == phase
	}, 2*time.Second, 5*time.Millisecond)
	return h.game.Store.Snapshot()
}

func multipleChoice(qid string, limit int) triviatest.Question {
	return triviatest.Question{
		QID:          qid,
		Type:         domain.MultipleChoice,
		Stem:         "Which planet is known as the red planet?",
		TimeLimitSec: limit,
		Choices:      []string{"Venus", "Jupiter", "Mars", "Saturn"},
		CorrectIndex: 2,
	}
}

func fillBlankSingle(qid string, limit int) triviatest.Question {
	return triviatest.Question{
		QID:          qid,
		Type:         domain.FillBlankSingle,
		Stem:         "The capital of France is ____.",
		TimeLimitSec: limit,
		Answers:      []string{"Paris"},
	}
}

func fillBlankMultiple(qid string, limit, maxAnswers int) triviatest.Question {
	return triviatest.Question{
		QID:          qid,
		Type:         domain.FillBlankMultiple,
		Stem:         "Name the primary colors of light.",
		TimeLimitSec: limit,
		Answers:      []string{"red", "green", "blue"},
		MaxAnswers:   maxAnswers,
	}
}

func imageIdentify(qid string, limit int) triviatest.Question {
	return triviatest.Question{
		QID:           qid,
		Type:          domain.ImageIdentify,
		Stem:          "What animal is this?",
		TimeLimitSec:  limit,
		Answers:       []string{"otter"},
		ImageFilename: "otter.jpg",
	}
}

// newGameOn starts a second client against h's server sharing its stored
// credentials, as a second process on the same profile would.
func newGameOn(t *testing.T, h *harness) *harness {
	t.Helper()
	client, err := api.New(h.srv.BaseURL(), api.WithCredentialStore(h.creds, "default"))
	require.NoError(t, err)

	other := &harness{
		srv:     h.srv,
		client:  client,
		clock:   &manualClock{},
		journal: memory.NewJournal(),
		cache:   memory.NewPanelCache(0),
		creds:   h.creds,
	}
	other.game = app.NewGame(client, app.WithTicker(other.clock.New), app.WithPanelCache(other.cache))
	t.Cleanup(other.game.Close)
	return other
}
