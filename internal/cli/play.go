package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"weekly-trivia/internal/app"
	"weekly-trivia/internal/domain"

	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play rounds in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			t := &terminal{game: rt.game, in: bufio.NewScanner(cmd.InOrStdin()), out: cmd.OutOrStdout()}
			return t.run(ctx, rt)
		},
	}
}

// terminal is a line-based front end. A background goroutine prints state
// changes the player did not cause, such as the countdown and expiry.
type terminal struct {
	game *app.Game
	in   *bufio.Scanner
	out  io.Writer
}

func (t *terminal) run(ctx context.Context, rt *runtime) error {
	ok, err := rt.connect(ctx)
	if err != nil {
		return err
	}
	for !ok {
		if ok, err = t.login(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintf(t.out, "Hello %s. Press Enter to start, q to quit.\n", t.game.Store.Snapshot().Username)

	updates, cancel := t.game.Store.Subscribe()
	defer cancel()
	go t.watch(updates)

	for t.in.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(t.in.Text())
		if line == "q" || line == "quit" {
			return nil
		}
		if err := t.handle(ctx, line); err != nil {
			t.report(err)
		}
		if !t.game.Store.Snapshot().Authenticated && t.game.Store.Snapshot().Phase == app.PhaseIdle {
			fmt.Fprintln(t.out, "Your session ended. Please sign in again.")
			for {
				ok, err := t.login(ctx)
				if err != nil {
					return err
				}
				if ok {
					break
				}
			}
		}
	}
	return t.in.Err()
}

func (t *terminal) handle(ctx context.Context, line string) error {
	s := t.game.Store.Snapshot()
	switch {
	case line == "lb":
		renderLeaderboard(t.out, s.Leaderboard)
		return nil
	case line == "stats":
		renderStats(t.out, s.Stats)
		return nil
	case s.Phase == app.PhaseIdle:
		return t.start(ctx, t.game.Rounds.Start)
	case s.Phase == app.PhaseResult:
		return t.start(ctx, t.game.Rounds.Next)
	}

	switch q := s.Round.Question.(type) {
	case domain.MultipleChoiceQuestion:
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(q.Choices) {
			return fmt.Errorf("pick a number between 1 and %d", len(q.Choices))
		}
		if err := t.game.Rounds.Select(n - 1); err != nil {
			return err
		}
	case domain.FillBlankMultipleQuestion:
		if line == "" {
			_, err := t.game.Rounds.Finalize(ctx)
			return err
		}
		if err := t.game.Rounds.SetText(line); err != nil {
			return err
		}
	default:
		if err := t.game.Rounds.SetText(line); err != nil {
			return err
		}
	}

	outcome, err := t.game.Rounds.Submit(ctx)
	if err != nil {
		return err
	}
	if outcome.Intermediate != nil {
		renderIntermediate(t.out, t.game.Store.Snapshot(), *outcome.Intermediate)
	}
	return nil
}

func (t *terminal) start(ctx context.Context, start func(context.Context) (domain.Round, error)) error {
	round, err := start(ctx)
	if err != nil {
		return err
	}
	renderRound(t.out, round)
	return nil
}

// watch prints results and the last seconds of the countdown.
func (t *terminal) watch(updates <-chan app.State) {
	var (
		lastToken     string
		lastRemaining int
		lastNotice    string
	)
	for s := range updates {
		if s.Notice != lastNotice {
			renderNotice(t.out, s.Notice)
			lastNotice = s.Notice
		}
		if s.Phase == app.PhasePlaying && s.Token() == lastToken && s.Remaining != lastRemaining && s.Remaining <= 5 {
			fmt.Fprintf(t.out, "  %ds left\n", s.Remaining)
		}
		if s.Phase == app.PhaseResult && s.Result != nil && s.Token() == lastToken {
			renderResult(t.out, *s.Result)
			lastToken = ""
			continue
		}
		if s.Phase == app.PhasePlaying {
			lastToken = s.Token()
			lastRemaining = s.Remaining
		}
	}
}

func (t *terminal) login(ctx context.Context) (bool, error) {
	username, ok := t.prompt("Username: ")
	if !ok {
		return false, io.EOF
	}
	pin, ok := t.prompt("PIN: ")
	if !ok {
		return false, io.EOF
	}
	if _, err := t.game.Session.Login(ctx, username, pin); err != nil {
		t.report(err)
		return false, nil
	}
	return true, nil
}

func (t *terminal) prompt(label string) (string, bool) {
	fmt.Fprint(t.out, label)
	if !t.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(t.in.Text()), true
}

func (t *terminal) report(err error) {
	var verr *domain.ValidationError
	var reqErr *domain.RequestError
	switch {
	case errors.As(err, &verr):
		fmt.Fprintf(t.out, "! %s\n", verr.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		fmt.Fprintln(t.out, "! Username or PIN is incorrect.")
	case errors.As(err, &reqErr) && reqErr.Message != "":
		fmt.Fprintf(t.out, "! %s\n", reqErr.Message)
	case errors.Is(err, domain.ErrUnauthorized):
	default:
		fmt.Fprintf(t.out, "! %v\n", err)
	}
}
