package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/hecto/internal/config"
	"github.com/dyluth/hecto/internal/logging"
	"github.com/dyluth/hecto/internal/printer"
)

const (
	defaultConfigPath = "hecto.yml"
	shutdownTimeout   = 30 * time.Second
)

var (
	serveConfigPath string
	serveAddr       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the duel HTTP service",
	Long: `Run the duel service: match lifecycle endpoints, puzzle generation and
checking, profiles and health.

Configuration comes from hecto.yml (if present), then .env, then HECTO_*
environment variables.

Examples:
  hecto serve
  hecto serve --config prod.yml --addr :9000
  HECTO_TRANSPORT=redis HECTO_REDIS_URL=redis://localhost:6379 hecto serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", defaultConfigPath, "Path to hecto.yml")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	path := serveConfigPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), []string{"Check hecto.yml and HECTO_* environment variables"})
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger, err := logging.New(cfg.Logging.Level, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return printer.ErrorWithContext(
			"failed to start",
			err.Error(),
			map[string]string{
				"Transport": cfg.Transport.Kind,
				"Store":     cfg.Store.Kind,
				"Storage":   cfg.Storage.Driver,
			},
			[]string{"Check that Redis and the database are reachable"},
		)
	}
	defer rt.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- rt.server.ListenAndServe(cfg.Server.Addr) }()

	logger.Info("service_started",
		"addr", cfg.Server.Addr,
		"transport", rt.transport.Name(),
		"store", cfg.Store.Kind,
		"namespace", cfg.Transport.Namespace,
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("service_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return <-errCh
}
