package app

import (
	"context"

	"weekly-trivia/internal/domain"
)

// Backend is the trivia HTTP API as seen by the game. *api.Client satisfies it.
type Backend interface {
	CheckAuth(ctx context.Context) (domain.AuthStatus, error)
	Login(ctx context.Context, creds domain.Credentials) (domain.AuthStatus, error)
	Logout(ctx context.Context) error
	ForgetSession(ctx context.Context) error
	Leaderboard(ctx context.Context, window string, limit int) ([]domain.LeaderboardEntry, error)
	UserStats(ctx context.Context) (domain.Stats, error)
	GuestStats(ctx context.Context) (domain.Stats, error)
	SetGuestName(ctx context.Context, name string) error
	StartRound(ctx context.Context) (domain.Round, error)
	SubmitRound(ctx context.Context, sub domain.Submission) (domain.Outcome, error)
	FinalizeRound(ctx context.Context, qid string) (domain.Result, error)
}

// PanelCache keeps the last-known leaderboard and stats per profile.
type PanelCache interface {
	LoadPanels(ctx context.Context, profile string) (domain.Panels, error)
	SavePanels(ctx context.Context, profile string, panels domain.Panels) error
}

// ResultJournal records finished rounds per profile.
type ResultJournal interface {
	Record(ctx context.Context, profile string, entry domain.JournalEntry) error
	Recent(ctx context.Context, profile string, limit int) ([]domain.JournalEntry, error)
}
