package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/datagrid/app"
	"github.com/kilianp07/datagrid/config"
	"github.com/kilianp07/datagrid/infra/logger"
	"github.com/kilianp07/datagrid/infra/metrics"
)

var (
	cfgPath     string
	dumpMetrics bool
)

var rootCmd = &cobra.Command{
	Use:           "datagrid",
	Short:         "Resolve grid configurations and manage their entities",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "print collected metrics to stderr on exit")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// withService loads the configuration, builds the service and hands it to fn.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *app.Service) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	runErr := fn(ctx, svc)
	if dumpMetrics {
		if err := metrics.WriteText(cmd.ErrOrStderr(), metrics.Registry); err != nil {
			logger.New("main").Errorf("write metrics: %v", err)
		}
	}
	return runErr
}
