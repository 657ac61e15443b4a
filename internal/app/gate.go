package app

import (
	"context"
	"errors"
	"sync/atomic"

	"weekly-trivia/internal/domain"
	"weekly-trivia/internal/metrics"

	"github.com/rs/zerolog"
)

// Gate is the session capability check. It decides when the client counts as
// authenticated and collapses all state when the backend says otherwise.
type Gate struct {
	backend Backend
	store   *Store
	panels  *Refresher
	guest   bool
	metrics *metrics.Metrics
	log     zerolog.Logger

	// identified is set once the backend has confirmed the guest cookie,
	// either by serving a round or by answering the guest endpoints.
	identified atomic.Bool
}

const guestName = "guest"

// Check asks the backend whether the carried credential is still good. In
// guest mode a guest without an identity yet still counts as authenticated:
// the backend issues one with the first round.
func (g *Gate) Check(ctx context.Context) (domain.AuthStatus, error) {
	if g.guest {
		return g.checkGuest(ctx)
	}

	epoch := g.store.Snapshot().Epoch
	status, err := g.backend.CheckAuth(ctx)
	if err != nil {
		if g.checkUnauthorized(ctx, err, epoch) {
			return domain.AuthStatus{}, nil
		}
		g.log.Error().Err(err).Msg("auth check")
		return domain.AuthStatus{}, err
	}
	if !status.Authenticated {
		if g.store.Snapshot().Authenticated {
			g.Invalidate(ctx)
		}
		return status, nil
	}
	g.establish(status.Username)
	return status, nil
}

func (g *Gate) checkGuest(ctx context.Context) (domain.AuthStatus, error) {
	epoch := g.store.Snapshot().Epoch
	stats, err := g.backend.GuestStats(ctx)
	switch {
	case err == nil:
		g.identified.Store(true)
		name := guestName
		if stats.DisplayName != "" {
			name = stats.DisplayName
		}
		if g.store.Snapshot().Authenticated {
			g.store.Apply(DisplayNameChanged{Name: name})
			g.panels.RefreshAsync()
		} else {
			g.establish(name)
		}
	case errors.Is(err, domain.ErrUnauthorized) && g.identified.Load():
		g.checkUnauthorized(ctx, err, epoch)
	default:
		if !errors.Is(err, domain.ErrUnauthorized) {
			g.log.Warn().Err(err).Msg("guest check")
		}
		if !g.store.Snapshot().Authenticated {
			g.establish(guestName)
		}
	}
	s := g.store.Snapshot()
	return domain.AuthStatus{Authenticated: s.Authenticated, Username: s.Username}, nil
}

// Login validates the form locally, then authenticates with the backend. A
// validation failure never reaches the network.
func (g *Gate) Login(ctx context.Context, username, pin string) (domain.AuthStatus, error) {
	username = NormalizeUsername(username)
	if err := ValidateCredentials(username, pin); err != nil {
		return domain.AuthStatus{}, err
	}
	status, err := g.backend.Login(ctx, domain.Credentials{Username: username, PIN: pin})
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			g.log.Error().Err(err).Str("username", username).Msg("login")
		}
		return domain.AuthStatus{}, err
	}
	g.log.Info().Str("username", status.Username).Msg("logged in")
	g.establish(status.Username)
	return status, nil
}

// Logout ends the session on the backend and locally. A failed call other
// than 401 leaves the session as it was.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.backend.Logout(ctx); err != nil && !errors.Is(err, domain.ErrUnauthorized) {
		g.log.Error().Err(err).Msg("logout")
		return err
	}
	g.reset(ctx)
	g.log.Info().Msg("logged out")
	return nil
}

// SetGuestName renames the guest identity.
func (g *Gate) SetGuestName(ctx context.Context, name string) error {
	if err := ValidateDisplayName(name); err != nil {
		return err
	}
	epoch := g.store.Snapshot().Epoch
	if err := g.backend.SetGuestName(ctx, name); err != nil {
		g.checkUnauthorized(ctx, err, epoch)
		return err
	}
	if g.guest {
		g.identified.Store(true)
		g.store.Apply(DisplayNameChanged{Name: name})
		g.panels.RefreshAsync()
	}
	return nil
}

// Invalidate collapses the client to the unauthenticated view and drops the
// carried credential.
func (g *Gate) Invalidate(ctx context.Context) {
	g.metrics.SessionInvalidated()
	g.log.Warn().Msg("session invalidated")
	g.reset(ctx)
}

// checkUnauthorized reports whether err is a 401. It invalidates the session
// only if the request was made under the current one, so a late reply for an
// abandoned session cannot end a newer session. A guest is then given a
// fresh identity, which the backend issues with the next round.
func (g *Gate) checkUnauthorized(ctx context.Context, err error, epoch int) bool {
	if !errors.Is(err, domain.ErrUnauthorized) {
		return false
	}
	if g.store.Snapshot().Epoch == epoch {
		g.Invalidate(ctx)
		if g.guest {
			g.establish(guestName)
		}
	}
	return true
}

// roundServed records that the backend handed the current identity a round.
func (g *Gate) roundServed() {
	if g.guest {
		g.identified.Store(true)
	}
}

// guestIdentified reports whether guest endpoints can be asked about the
// current guest. Before the first round they would only answer 401.
func (g *Gate) guestIdentified() bool {
	return g.identified.Load()
}

func (g *Gate) establish(username string) {
	_, next := g.store.Apply(SessionEstablished{Username: username})
	if next.Authenticated {
		g.panels.RefreshAsync()
	}
}

func (g *Gate) reset(ctx context.Context) {
	g.identified.Store(false)
	g.store.Apply(SessionInvalidated{})
	if err := g.backend.ForgetSession(ctx); err != nil {
		g.log.Warn().Err(err).Msg("forget session")
	}
}
