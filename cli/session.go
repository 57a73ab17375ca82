package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jlynch25/eventreg/session"
	"github.com/spf13/cobra"
)

var (
	sessionToken string
	sessionName  string
	sessionEmail string
	sessionID    string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or change the local client session",
}

var sessionSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a token and profile obtained elsewhere",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session.Open(sessionPath, clientLogger())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Save(sessionToken, session.Profile{ID: sessionID, Name: sessionName, Email: sessionEmail}); err != nil {
			return err
		}
		printState(cmd.OutOrStdout(), s.State())
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show whether a user is logged in",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session.Open(sessionPath, clientLogger())
		if err != nil {
			return err
		}
		defer s.Close()

		printState(cmd.OutOrStdout(), s.State())
		return nil
	},
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token and profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session.Open(sessionPath, clientLogger())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Logout(); err != nil {
			return err
		}
		printState(cmd.OutOrStdout(), s.State())
		return nil
	},
}

var sessionWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the session state whenever another process changes it",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session.Open(sessionPath, clientLogger())
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		printState(out, s.State())
		s.Subscribe(func(st session.State) { printState(out, st) })
		if err := s.Watch(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	},
}

func init() {
	sessionSetCmd.Flags().StringVar(&sessionToken, "token", "", "bearer token")
	sessionSetCmd.Flags().StringVar(&sessionName, "name", "", "display name")
	sessionSetCmd.Flags().StringVar(&sessionEmail, "email", "", "email address")
	sessionSetCmd.Flags().StringVar(&sessionID, "id", "", "user id")
	_ = sessionSetCmd.MarkFlagRequired("token")

	sessionCmd.AddCommand(sessionSetCmd, sessionShowCmd, sessionLogoutCmd, sessionWatchCmd)
}

func printState(w io.Writer, st session.State) {
	if !st.LoggedIn {
		fmt.Fprintln(w, "logged out")
		return
	}
	fmt.Fprintf(w, "[%s] logged in as %s\n", st.Initial(), st.DisplayName)
}
