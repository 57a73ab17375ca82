package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jlynch25/eventreg/client"
	model "github.com/jlynch25/eventreg/models"
	"github.com/jlynch25/eventreg/session"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Browse and join events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all events",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeSession, err := newClient()
		if err != nil {
			return err
		}
		defer closeSession()

		events, err := c.ListEvents(cmd.Context())
		if err != nil {
			return err
		}
		return printEvents(cmd.OutOrStdout(), events)
	},
}

var eventsRegisterCmd = &cobra.Command{
	Use:   "register <event-id>",
	Short: "Register the session user for an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeSession, err := newClient()
		if err != nil {
			return err
		}
		defer closeSession()

		res, err := c.Register(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d events)\n", res.Msg, len(res.RegisteredEvents))
		return nil
	},
}

var eventsRegisteredCmd = &cobra.Command{
	Use:   "registered",
	Short: "List the events the session user registered for",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeSession, err := newClient()
		if err != nil {
			return err
		}
		defer closeSession()

		events, err := c.RegisteredEvents(cmd.Context())
		if err != nil {
			return err
		}
		return printEvents(cmd.OutOrStdout(), events)
	},
}

func init() {
	eventsCmd.AddCommand(eventsListCmd, eventsRegisterCmd, eventsRegisteredCmd)
}

func newClient() (*client.Client, func() error, error) {
	s, err := session.Open(sessionPath, clientLogger())
	if err != nil {
		return nil, nil, err
	}
	return client.New(apiURL, s), s.Close, nil
}

func printEvents(w io.Writer, events []model.Event) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE\tLOCATION\tPARTICIPANTS")
	for _, e := range events {
		date := "-"
		if !e.Date.IsZero() {
			date = e.Date.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", e.ID.Hex(), date, e.Title, e.Location, len(e.Participants))
	}
	return tw.Flush()
}
