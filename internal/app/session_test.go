package app_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"weekly-trivia/internal/app"
	"weekly-trivia/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestLoginValidationNeverReachesBackend(t *testing.T) {
	h := newHarness(t, false)
	// a request that got through would surface as a RequestError
	h.srv.Fail("/auth", http.StatusInternalServerError)

	_, err := h.game.Session.Login(context.Background(), "a!", "12")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	require.Contains(t, verr.Fields, "username")
	require.Contains(t, verr.Fields, "pin")
	require.False(t, h.game.Store.Snapshot().Authenticated)
}

func TestLoginNormalizesUsername(t *testing.T) {
	h := newHarness(t, false)

	status, err := h.game.Session.Login(context.Background(), "  Alice ", "1234")
	require.NoError(t, err)
	require.Equal(t, "alice", status.Username)
	require.Equal(t, "alice", h.game.Store.Snapshot().Username)
}

func TestLoginWrongPIN(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.login(t, "alice")
	require.NoError(t, h.game.Session.Logout(ctx))

	_, err := h.game.Session.Login(ctx, "alice", "9999")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	require.Contains(t, err.Error(), "Incorrect PIN")
	require.False(t, h.game.Store.Snapshot().Authenticated)
}

func TestCheckRestoresPersistedSession(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.login(t, "alice")

	// a second process on the same profile picks the cookie up
	other := newGameOn(t, h)
	found, err := other.client.Restore(ctx)
	require.NoError(t, err)
	require.True(t, found)

	status, err := other.game.Session.Check(ctx)
	require.NoError(t, err)
	require.True(t, status.Authenticated)
	require.Equal(t, "alice", other.game.Store.Snapshot().Username)
}

func TestCheckInvalidatesExpiredSession(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.login(t, "alice")

	h.srv.ExpireSessions()
	status, err := h.game.Session.Check(ctx)
	require.NoError(t, err)
	require.False(t, status.Authenticated)
	require.False(t, h.game.Store.Snapshot().Authenticated)

	_, err = h.creds.Load(ctx, "default")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLogoutFailureKeepsSession(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.login(t, "alice")

	h.srv.Fail("/logout", http.StatusBadGateway)
	require.Error(t, h.game.Session.Logout(ctx))
	require.True(t, h.game.Store.Snapshot().Authenticated)

	h.srv.Fail("/logout", 0)
	require.NoError(t, h.game.Session.Logout(ctx))
	require.False(t, h.game.Store.Snapshot().Authenticated)
}

func TestGuestModePlaysAndRenames(t *testing.T) {
	h := newHarness(t, true, multipleChoice("q-mc", 10))
	ctx := context.Background()

	status, err := h.game.Session.Check(ctx)
	require.NoError(t, err)
	require.True(t, status.Authenticated)

	_, err = h.game.Rounds.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, h.game.Rounds.Select(2))
	outcome, err := h.game.Rounds.Submit(ctx)
	require.NoError(t, err)
	require.True(t, outcome.Result.Correct)

	require.NoError(t, h.game.Session.SetGuestName(ctx, "Otter"))
	require.Equal(t, "Otter", h.game.Store.Snapshot().Username)
	require.Equal(t, app.PhaseResult, h.game.Store.Snapshot().Phase, "renaming keeps the round view")

	require.Eventually(t, func() bool {
		s := h.game.Store.Snapshot()
		return s.Stats != nil && s.Stats.DisplayName == "Otter" &&
			len(s.Leaderboard) == 1 && s.Leaderboard[0].Name() == "Otter"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSetGuestNameValidates(t *testing.T) {
	h := newHarness(t, true)

	err := h.game.Session.SetGuestName(context.Background(), "   ")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Contains(t, verr.Fields, "display_name")
}
