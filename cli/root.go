// Package cli implements the eventreg command line.
package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jlynch25/eventreg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath  string
	sessionPath string
	apiURL      string
)

var rootCmd = &cobra.Command{
	Use:   "eventreg",
	Short: "Event registration service and client",
	Long: `eventreg runs the event registration API backed by MongoDB and offers
client commands that use a locally stored session to browse and join events.`,
	SilenceUsage: true,
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("EVENTREG_CONFIG"), "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", defaultSessionPath(), "path to the client session file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("EVENTREG_API", "http://localhost:8080"), "base URL of the API")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(eventsCmd)
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "eventreg", "session.json")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// clientLogger is used by the client commands, which only report problems.
func clientLogger() *zap.Logger {
	log, err := logger.New(logger.Options{Development: true, Level: "warn"})
	if err != nil {
		return zap.NewNop()
	}
	return log
}
