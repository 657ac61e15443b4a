package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weekly-trivia/internal/infra/postgres"
	"weekly-trivia/internal/transport/ws"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the game to a local websocket front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}
	cmd.Flags().StringVar(&port, "port", os.Getenv("PORT"), "port to listen on (defaults to bridge.port)")
	return cmd
}

func runServe(ctx context.Context, portFlag string) error {
	rt, err := newRuntime(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.cfg.Postgres.URL != "" {
		if _, err := postgres.Migrate(ctx, rt.cfg.Postgres.URL); err != nil {
			return err
		}
	}
	if _, err := rt.connect(ctx); err != nil {
		rt.log.Warn().Err(err).Msg("initial session check")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = rt.cfg.Bridge.Port
	}

	bridge := ws.NewBridge(rt.game, rt.log.With().Str("component", "bridge").Logger())
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           bridge.Handler(rt.metrics.Registry),
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info().Str("port", finalPort).Msg("starting trivia bridge")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		rt.log.Info().Msg("shutting down bridge")
	case <-ctx.Done():
		rt.log.Info().Msg("context canceled, shutting down bridge")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
