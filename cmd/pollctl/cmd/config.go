package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/LeonPucin/dash-core/cfgmng"
	"github.com/LeonPucin/dash-core/duration"
	"github.com/LeonPucin/dash-core/fileio"
	"github.com/LeonPucin/dash-core/httpx/policy"
	"github.com/LeonPucin/dash-core/logger"
	"github.com/LeonPucin/dash-core/poller"
)

// Config is the pollctl configuration file layout.
type Config struct {
	Log     logger.Config      `mapstructure:"log"`
	Target  TargetConfig       `mapstructure:"target"`
	Poller  poller.Config      `mapstructure:"poller"`
	Retry   policy.RetryConfig `mapstructure:"retry"`
	Metrics MetricsConfig      `mapstructure:"metrics"`
	Events  EventsConfig       `mapstructure:"events"`
	Watch   WatchConfig        `mapstructure:"watch"`
}

type TargetConfig struct {
	// URL is the base URL of the polled service.
	URL string `mapstructure:"url"`

	// Path is requested with GET on every cycle.
	Path string `mapstructure:"path"`

	// Timeout bounds one cycle, retries included.
	Timeout time.Duration `mapstructure:"timeout"`

	// RequestsPerMinute caps outgoing attempts. Zero disables the limit.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type MetricsConfig struct {
	// Addr serves /metrics and /healthz. Empty disables the server.
	Addr string `mapstructure:"addr"`
}

type EventsConfig struct {
	Topic string `mapstructure:"topic"`

	// NatsURL publishes events to NATS instead of the in-process bus.
	NatsURL string `mapstructure:"nats_url"`
}

type WatchConfig struct {
	// For stops the watch after this long, e.g. "90s" or "1d". Zero runs
	// until interrupted.
	For duration.Duration `mapstructure:"for"`
}

var configDefaults = map[string]any{
	"log.level":      "info",
	"log.encoding":   logger.EncodingJSON,
	"target.path":    "/",
	"target.timeout": "10s",
	"metrics.addr":   ":9090",
	"events.topic":   "pollctl.events",

	"poller.reset_period": poller.DefaultResetPeriod.String(),
}

// loadConfig merges files, then environment variables under prefix.
//
// poller.reset_period always has a default here, so a zero after merging was
// written explicitly and means "decay on every success". poller.Config itself
// reads zero as "use the default", hence the translation to NoQuietPeriod.
func loadConfig(fs *fileio.FS, files []string, prefix string) (*Config, error) {
	cfg, err := cfgmng.Merge[Config](files,
		cfgmng.WithFs(fs),
		cfgmng.WithDefaults(configDefaults),
		cfgmng.WithEnv(prefix),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Poller.ResetPeriod == 0 {
		cfg.Poller.ResetPeriod = poller.NoQuietPeriod
	}
	return cfg, nil
}

// validate runs after flag overrides have been applied. Poller and retry
// settings are checked by their constructors.
func (c *Config) validate() error {
	var errs []error
	if c.Target.URL == "" {
		errs = append(errs, errors.New("target.url is required"))
	}
	if c.Target.Timeout < 0 {
		errs = append(errs, fmt.Errorf("target.timeout must not be negative, got %s", c.Target.Timeout))
	}
	if c.Target.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("target.requests_per_minute must not be negative, got %d", c.Target.RequestsPerMinute))
	}
	if c.Events.Topic == "" {
		errs = append(errs, errors.New("events.topic is required"))
	}
	return errors.Join(errs...)
}
