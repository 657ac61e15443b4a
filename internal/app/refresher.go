package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"weekly-trivia/internal/domain"
	"weekly-trivia/internal/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Refresher keeps the leaderboard and stats panels current. Refreshes are
// best effort: failures are logged, never surfaced, and the panels keep their
// last-known contents.
type Refresher struct {
	ctx     context.Context
	backend Backend
	store   *Store
	session *Gate
	cache   PanelCache
	profile string
	window  string
	limit   int
	guest   bool
	metrics *metrics.Metrics
	log     zerolog.Logger

	sf singleflight.Group
	wg sync.WaitGroup

	// requested and served order refresh calls against flights, so a caller
	// never settles for a flight that started before it asked.
	mu        sync.Mutex
	requested uint64
	served    uint64
}

// Refresh fetches both panels in parallel and applies whatever succeeded.
// Concurrent calls share one round trip.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.requested++
	want := r.requested
	r.mu.Unlock()

	for {
		_, err, _ := r.sf.Do("panels", func() (interface{}, error) {
			r.mu.Lock()
			gen := r.requested
			r.mu.Unlock()

			err := r.refresh(ctx)

			r.mu.Lock()
			if gen > r.served {
				r.served = gen
			}
			r.mu.Unlock()
			return nil, err
		})

		r.mu.Lock()
		done := r.served >= want
		r.mu.Unlock()
		if done {
			return err
		}
	}
}

// RefreshAsync runs Refresh in the background.
func (r *Refresher) RefreshAsync() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.Refresh(r.ctx)
	}()
}

func (r *Refresher) refresh(ctx context.Context) error {
	start := r.store.Snapshot()
	if !start.Authenticated {
		return domain.ErrUnauthorized
	}

	var (
		leaderboard []domain.LeaderboardEntry
		stats       *domain.Stats
		lbErr       error
		statsErr    error
		g           errgroup.Group
	)
	g.Go(func() error {
		leaderboard, lbErr = r.backend.Leaderboard(ctx, r.window, r.limit)
		if lbErr != nil {
			leaderboard = nil
			r.metrics.RefreshFailed("leaderboard")
			r.log.Warn().Err(lbErr).Msg("refresh leaderboard")
		}
		return nil
	})
	g.Go(func() error {
		fetch := r.backend.UserStats
		if r.guest {
			if !r.session.guestIdentified() {
				return nil
			}
			fetch = r.backend.GuestStats
		}
		st, err := fetch(ctx)
		if err != nil {
			statsErr = err
			r.metrics.RefreshFailed("stats")
			r.log.Warn().Err(err).Msg("refresh stats")
			return nil
		}
		stats = &st
		return nil
	})
	_ = g.Wait()

	err := errors.Join(lbErr, statsErr)
	if r.session.checkUnauthorized(ctx, err, start.Epoch) {
		return err
	}

	if leaderboard == nil && stats == nil {
		return err
	}
	_, next := r.store.Apply(PanelsRefreshed{Epoch: start.Epoch, Leaderboard: leaderboard, Stats: stats})
	if next.Epoch != start.Epoch {
		return domain.ErrStaleRound
	}
	r.save(ctx, next)
	return err
}

// Seed shows the last-known panels from the cache until a refresh lands.
func (r *Refresher) Seed(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	panels, err := r.cache.LoadPanels(ctx, r.profile)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		r.log.Warn().Err(err).Msg("load cached panels")
		return err
	}
	s := r.store.Snapshot()
	if s.Stats != nil || len(s.Leaderboard) > 0 {
		// a live refresh already landed
		return nil
	}
	r.store.Apply(PanelsRefreshed{Epoch: s.Epoch, Leaderboard: panels.Leaderboard, Stats: panels.Stats})
	return nil
}

func (r *Refresher) save(ctx context.Context, s State) {
	if r.cache == nil {
		return
	}
	panels := domain.Panels{Leaderboard: s.Leaderboard, Stats: s.Stats, UpdatedAt: time.Now().UTC()}
	if err := r.cache.SavePanels(ctx, r.profile, panels); err != nil {
		r.log.Warn().Err(err).Msg("save panels")
	}
}

func (r *Refresher) wait() {
	r.wg.Wait()
}
