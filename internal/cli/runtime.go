package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"weekly-trivia/internal/api"
	"weekly-trivia/internal/app"
	"weekly-trivia/internal/config"
	"weekly-trivia/internal/infra/memory"
	"weekly-trivia/internal/infra/postgres"
	infraredis "weekly-trivia/internal/infra/redis"
	"weekly-trivia/internal/metrics"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// runtime is everything a command needs, built from config in one place.
type runtime struct {
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics
	client  *api.Client
	game    *app.Game
	journal app.ResultJournal

	closers []func()
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if profile != "" {
		cfg.Profile = profile
	}
	if guest {
		cfg.API.Mode = config.ModeGuest
	}
	return cfg, nil
}

func newLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var w io.Writer = out
	if cfg.Log.Format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// newRuntime wires the client, stores and game. Redis, when configured, holds
// credentials and panels so that separate invocations share one login;
// Postgres, when configured, holds the result journal.
func newRuntime(ctx context.Context, logOut io.Writer) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: newLogger(cfg, logOut), metrics: metrics.New()}

	var (
		creds   api.CredentialStore = memory.NewCredentialStore()
		cache   app.PanelCache      = memory.NewPanelCache(0)
		journal app.ResultJournal   = memory.NewJournal()
	)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		ttl := config.TTLDuration(cfg.Redis.TTL, 7*24*time.Hour)
		creds = infraredis.NewCredentialStore(client, ttl)
		cache = infraredis.NewPanelCache(client, ttl)
		journal = infraredis.NewJournal(client, 0)
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		journal = postgres.NewJournal(pool)
	}
	rt.journal = journal

	rt.client, err = api.New(cfg.API.BaseURL,
		api.WithCredentialStore(creds, cfg.Profile),
		api.WithTimeout(config.TTLDuration(cfg.API.Timeout, 0)),
		api.WithMetrics(rt.metrics),
		api.WithLogger(rt.log.With().Str("component", "api").Logger()),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if _, err := rt.client.Restore(ctx); err != nil {
		rt.log.Warn().Err(err).Msg("restore session")
	}

	rt.game = app.NewGame(rt.client,
		app.WithProfile(cfg.Profile),
		app.WithGuestMode(cfg.API.Mode == config.ModeGuest),
		app.WithLeaderboard(cfg.Leaderboard.Window, cfg.Leaderboard.Limit),
		app.WithPanelCache(cache),
		app.WithJournal(journal),
		app.WithMetrics(rt.metrics),
		app.WithLogger(rt.log),
	)
	return rt, nil
}

// connect runs the session check and seeds the panels from the cache.
func (rt *runtime) connect(ctx context.Context) (bool, error) {
	status, err := rt.game.Session.Check(ctx)
	if err != nil {
		return false, err
	}
	if status.Authenticated {
		_ = rt.game.Panels.Seed(ctx)
	}
	return status.Authenticated, nil
}

func (rt *runtime) Close() {
	if rt.game != nil {
		rt.game.Close()
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}
