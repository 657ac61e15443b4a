package app

import (
	"context"
	"time"

	"weekly-trivia/internal/metrics"

	"github.com/rs/zerolog"
)

// Game wires the state store, session gate, round controller and panel
// refresher around one backend.
type Game struct {
	Store   *Store
	Session *Gate
	Rounds  *Controller
	Panels  *Refresher

	cancel context.CancelFunc
}

type options struct {
	profile   string
	guest     bool
	window    string
	limit     int
	cache     PanelCache
	journal   ResultJournal
	newTicker func(time.Duration) Ticker
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

type Option func(*options)

// WithProfile keys cached panels and journal entries.
func WithProfile(profile string) Option { return func(o *options) { o.profile = profile } }

// WithGuestMode plays under a guest identity instead of an account.
func WithGuestMode(guest bool) Option { return func(o *options) { o.guest = guest } }

// WithLeaderboard sets the leaderboard window and size.
func WithLeaderboard(window string, limit int) Option {
	return func(o *options) {
		o.window = window
		o.limit = limit
	}
}

func WithPanelCache(cache PanelCache) Option { return func(o *options) { o.cache = cache } }

func WithJournal(journal ResultJournal) Option { return func(o *options) { o.journal = journal } }

// WithTicker replaces the one-second countdown ticker; tests drive it by hand.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(o *options) { o.newTicker = newTicker }
}

func WithMetrics(m *metrics.Metrics) Option { return func(o *options) { o.metrics = m } }

func WithLogger(log zerolog.Logger) Option { return func(o *options) { o.log = log } }

func NewGame(backend Backend, opts ...Option) *Game {
	o := options{
		profile:   "default",
		window:    "week",
		limit:     10,
		newTicker: NewRealTicker,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	store := NewStore()
	gate := &Gate{
		backend: backend,
		store:   store,
		guest:   o.guest,
		metrics: o.metrics,
		log:     o.log.With().Str("component", "session").Logger(),
	}
	refresher := &Refresher{
		ctx:     ctx,
		backend: backend,
		store:   store,
		session: gate,
		cache:   o.cache,
		profile: o.profile,
		window:  o.window,
		limit:   o.limit,
		guest:   o.guest,
		metrics: o.metrics,
		log:     o.log.With().Str("component", "panels").Logger(),
	}
	gate.panels = refresher
	controller := &Controller{
		ctx:       ctx,
		backend:   backend,
		store:     store,
		session:   gate,
		panels:    refresher,
		journal:   o.journal,
		profile:   o.profile,
		newTicker: o.newTicker,
		metrics:   o.metrics,
		log:       o.log.With().Str("component", "round").Logger(),
	}
	store.Observe(controller.reconcile)

	return &Game{
		Store:   store,
		Session: gate,
		Rounds:  controller,
		Panels:  refresher,
		cancel:  cancel,
	}
}

// Close stops the countdown and waits for background work to finish.
func (g *Game) Close() {
	g.cancel()
	g.Rounds.close()
	g.Panels.wait()
}
