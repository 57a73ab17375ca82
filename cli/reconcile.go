package cli

import (
	"encoding/json"

	"github.com/jlynch25/eventreg/config"
	"github.com/jlynch25/eventreg/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dryRun bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair user/event references left one-sided by partial writes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx := cmd.Context()
		st, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer st.Close(ctx)

		report, err := service.New(st, log).Reconcile(ctx, dryRun)
		if err != nil {
			return err
		}
		log.Info("reconciliation finished",
			zap.Int("repairs", report.Repairs()),
			zap.Int("dangling", report.Dangling),
			zap.Bool("dry_run", report.DryRun))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report repairs without writing them")
}
