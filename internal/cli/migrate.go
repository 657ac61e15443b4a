package cli

import (
	"os"

	"weekly-trivia/internal/infra/postgres"

	"github.com/spf13/cobra"
)

// newMigrateCmd applies the result journal schema.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, os.Stderr)
			applied, err := postgres.Migrate(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			log.Info().Strs("applied", applied).Msg("migrations applied")
			return nil
		},
	}
}
