package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"weekly-trivia/internal/config"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var username, pin string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in (or register) and keep the session for this profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				username = readLine(cmd, in, "Username: ")
			}
			if pin == "" {
				pin = readLine(cmd, in, "PIN: ")
			}
			status, err := rt.game.Session.Login(cmd.Context(), username, pin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (profile %s).\n", status.Username, rt.cfg.Profile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVar(&pin, "pin", "", "4-digit PIN")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session for this profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.game.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newGuestNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guest-name NAME",
		Short: "Set the display name of the guest identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guest = true
			rt, err := newRuntime(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.cfg.API.Mode != config.ModeGuest {
				return errors.New("guest-name needs guest mode")
			}
			if _, err := rt.connect(cmd.Context()); err != nil {
				return err
			}
			if err := rt.game.Session.SetGuestName(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Display name set to %s.\n", args[0])
			return nil
		},
	}
}

func readLine(cmd *cobra.Command, in *bufio.Reader, label string) string {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
