package cmd

import (
	"github.com/spf13/cobra"
)

const defaultEnvPrefix = "POLLCTL"

var (
	configFiles []string
	envPrefix   string
)

var rootCmd = &cobra.Command{
	Use:   "pollctl",
	Short: "Adaptive health poller for HTTP endpoints",
	Long: `pollctl polls an HTTP endpoint with an adaptive delay: failures back
the delay off up to a ceiling, and a failure-free stretch lets it shrink back.

Configuration is merged from every --config file in order, then from
environment variables (POLLCTL_TARGET_URL, POLLCTL_POLLER_MAX_DELAY, ...).`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "config file, may be repeated; later files win")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", defaultEnvPrefix, "prefix of environment overrides")
}
