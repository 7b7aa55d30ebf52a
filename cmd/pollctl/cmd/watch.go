package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LeonPucin/dash-core/duration"
	"github.com/LeonPucin/dash-core/fileio"
	"github.com/LeonPucin/dash-core/logger"
)

var (
	watchURL string
	watchFor string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the target until interrupted",
	Example: `  pollctl watch --config base.yaml --config prod.yaml
  pollctl watch --url http://localhost:8080 --for 10m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runWatch(ctx, cmd, fileio.NewOS())
	},
}

func runWatch(ctx context.Context, cmd *cobra.Command, fs *fileio.FS) error {
	cfg, err := loadConfig(fs, configFiles, envPrefix)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("url") {
		cfg.Target.URL = watchURL
	}
	if cmd.Flags().Changed("for") {
		d, err := duration.Parse(watchFor)
		if err != nil {
			return err
		}
		cfg.Watch.For = d
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	if cfg.Log.Output == nil {
		cfg.Log.Output = cmd.ErrOrStderr()
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(*cfg, log)
	if err != nil {
		return log.Error("failed to start", logger.Err(err))
	}

	log.Info("watching target",
		logger.String("url", cfg.Target.URL+cfg.Target.Path),
		logger.Duration("initial_delay", a.poller.Config().InitialDelay),
		logger.Duration("max_delay", a.poller.Config().MaxDelay),
	)
	return a.run(ctx)
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "", "target base URL, overrides target.url")
	watchCmd.Flags().StringVar(&watchFor, "for", "", "stop after this long, e.g. 90s or 1d")
	rootCmd.AddCommand(watchCmd)
}
