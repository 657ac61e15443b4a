package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	profile    string
	guest      bool
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "trivia",
		Short:        "Weekly trivia client",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&profile, "profile", "", "credential profile (overrides config)")
	cmd.PersistentFlags().BoolVar(&guest, "guest", false, "play as a guest instead of an account")

	cmd.AddCommand(newPlayCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newGuestNameCmd())
	cmd.AddCommand(newLeaderboardCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}
