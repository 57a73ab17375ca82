package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/jlynch25/eventreg/api"
	"github.com/jlynch25/eventreg/auth"
	"github.com/jlynch25/eventreg/config"
	"github.com/jlynch25/eventreg/health"
	"github.com/jlynch25/eventreg/logger"
	"github.com/jlynch25/eventreg/service"
	"github.com/jlynch25/eventreg/store"
	"github.com/jlynch25/eventreg/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var storeOverride string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API and the gRPC health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if storeOverride != "" {
			cfg.Store = storeOverride
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&storeOverride, "store", "", "override the configured store (mongo or memory)")
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint, log)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	svc := service.New(st, log)
	srv := api.NewServer(svc, auth.NewVerifier(cfg.Auth.Secret), st.Ping, log, api.Options{
		ServiceName: cfg.Telemetry.ServiceName,
		Metrics:     cfg.Telemetry.Metrics,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, cfg.HTTP.Addr, cfg.HTTP.ShutdownTimeout)
	})

	if cfg.GRPC.Addr != "" {
		hs, err := health.NewServer(st.Ping, health.Options{
			Interval: cfg.GRPC.HealthInterval,
			CertFile: cfg.GRPC.CertFile,
			KeyFile:  cfg.GRPC.KeyFile,
		}, log)
		if err != nil {
			return err
		}
		listener, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("unable to listen on %s: %w", cfg.GRPC.Addr, err)
		}
		g.Go(func() error {
			return hs.Serve(ctx, listener)
		})
	}

	err = g.Wait()
	log.Info("server stopped")
	return err
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Options{
		Development: cfg.Development(),
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
	})
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.Store == "memory" {
		log.Warn("using the in-memory store, data is lost on exit")
		return store.NewMemoryStore(), nil
	}
	return store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Transactions, log)
}
