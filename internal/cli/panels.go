package cli

import (
	"context"
	"errors"
	"os"

	"weekly-trivia/internal/config"
	"weekly-trivia/internal/domain"

	"github.com/spf13/cobra"
)

func newLeaderboardCmd() *cobra.Command {
	var (
		window string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if window == "" {
				window = rt.cfg.Leaderboard.Window
			}
			if limit <= 0 {
				limit = rt.cfg.Leaderboard.Limit
			}
			entries, err := rt.client.Leaderboard(cmd.Context(), window, limit)
			if err != nil {
				return err
			}
			renderLeaderboard(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&window, "window", "", "day, week or all")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of rows")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show your progress this week",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			ok, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("not signed in; run trivia login first")
			}
			stats, err := fetchStats(cmd.Context(), rt)
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), &stats)
			return nil
		},
	}
}

func fetchStats(ctx context.Context, rt *runtime) (domain.Stats, error) {
	if rt.cfg.API.Mode == config.ModeGuest {
		return rt.client.GuestStats(ctx)
	}
	return rt.client.UserStats(ctx)
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently finished rounds on this profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			entries, err := rt.journal.Recent(cmd.Context(), rt.cfg.Profile, limit)
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of rounds")
	return cmd
}
