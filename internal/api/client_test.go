package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"weekly-trivia/internal/api"
	"weekly-trivia/internal/domain"
	"weekly-trivia/internal/infra/memory"
	"weekly-trivia/internal/triviatest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMapsStatusCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		switch r.URL.Path {
		case "/api/user/stats":
			w.WriteHeader(http.StatusUnauthorized)
		case "/api/trivia/round/start":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"No more questions available"}`))
		default:
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}
	}))
	defer srv.Close()

	client, err := api.New(srv.URL + "/api/")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.UserStats(ctx)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = client.StartRound(ctx)
	var reqErr *domain.RequestError
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, http.StatusBadRequest, reqErr.Status)
	require.Equal(t, "No more questions available", reqErr.Message)

	_, err = client.GuestStats(ctx)
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, "short and stout", reqErr.Message)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := api.New("/api")
	require.Error(t, err)
}

func TestLeaderboardIsAnonymous(t *testing.T) {
	var leaderboardCookie, statsCookie bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := r.Cookie("session")
		switch r.URL.Path {
		case "/api/auth":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			_, _ = w.Write([]byte(`{"success":true,"username":"alice"}`))
		case "/api/leaderboard":
			leaderboardCookie = err == nil
			assert.Equal(t, "day", r.URL.Query().Get("window"))
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`[{"username":"alice","total_points":150,"correct_count":1,"avg_response_ms":900}]`))
		case "/api/user/stats":
			statsCookie = err == nil
			_, _ = w.Write([]byte(`{"answered":1,"total_available":7,"total_points":150}`))
		}
	}))
	defer srv.Close()

	client, err := api.New(srv.URL + "/api")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Login(ctx, domain.Credentials{Username: "alice", PIN: "1234"})
	require.NoError(t, err)

	entries, err := client.Leaderboard(ctx, "day", 5)
	require.NoError(t, err)
	require.Equal(t, []domain.LeaderboardEntry{{Username: "alice", TotalPoints: 150, CorrectCount: 1, AvgResponseMS: 900}}, entries)

	stats, err := client.UserStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 150, stats.TotalPoints)

	require.False(t, leaderboardCookie, "leaderboard must not carry the session")
	require.True(t, statsCookie, "stats must carry the session")
}

func TestSessionCookiePersistsAndClears(t *testing.T) {
	srv := triviatest.New(t)
	creds := memory.NewCredentialStore()
	client, err := api.New(srv.BaseURL(), api.WithCredentialStore(creds, "work"))
	require.NoError(t, err)
	ctx := context.Background()

	status, err := client.Login(ctx, domain.Credentials{Username: "alice", PIN: "1234"})
	require.NoError(t, err)
	require.True(t, status.Authenticated)

	saved, err := creds.Load(ctx, "work")
	require.NoError(t, err)
	require.NotEmpty(t, saved)

	restored, err := api.New(srv.BaseURL(), api.WithCredentialStore(creds, "work"))
	require.NoError(t, err)
	found, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.True(t, found)

	check, err := restored.CheckAuth(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.AuthStatus{Authenticated: true, Username: "alice"}, check)

	require.NoError(t, restored.ForgetSession(ctx))
	_, err = creds.Load(ctx, "work")
	require.ErrorIs(t, err, domain.ErrNotFound)

	check, err = restored.CheckAuth(ctx)
	require.NoError(t, err)
	require.False(t, check.Authenticated)
}

func TestSubmitRoundNeedsExactlyOneAnswer(t *testing.T) {
	client, err := api.New("http://127.0.0.1:1")
	require.NoError(t, err)

	idx, text := 1, "x"
	_, err = client.SubmitRound(context.Background(), domain.Submission{QID: "q", RoundToken: "t"})
	require.Error(t, err)
	_, err = client.SubmitRound(context.Background(), domain.Submission{QID: "q", RoundToken: "t", SelectedIndex: &idx, TextAnswer: &text})
	require.Error(t, err)
}

func TestWrongPINReportsBackendMessage(t *testing.T) {
	srv := triviatest.New(t)
	client, err := api.New(srv.BaseURL())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Login(ctx, domain.Credentials{Username: "alice", PIN: "1234"})
	require.NoError(t, err)
	_, err = client.Login(ctx, domain.Credentials{Username: "alice", PIN: "0000"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	require.Contains(t, err.Error(), "Incorrect PIN")
}
