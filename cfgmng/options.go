package cfgmng

import (
	"github.com/LeonPucin/dash-core/fileio"
	"github.com/LeonPucin/dash-core/logger"
)

type options struct {
	fs         *fileio.FS
	log        *logger.Logger
	defaults   map[string]any
	configType string
	required   bool
	env        bool
	envPrefix  string
}

type Option func(*options)

// WithFs reads config files from fs instead of the OS filesystem.
func WithFs(fs *fileio.FS) Option {
	return func(o *options) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithLogger sets the logger used to trace merged and skipped files.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithDefaults sets values used when no file or variable provides a key.
// Keys are dotted paths such as "poller.max_delay".
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		o.defaults = defaults
	}
}

// WithConfigType forces the format of every file (yaml, json, toml, ...).
func WithConfigType(typ string) Option {
	return func(o *options) {
		o.configType = typ
	}
}

// WithRequired turns a missing file into an error.
func WithRequired() Option {
	return func(o *options) {
		o.required = true
	}
}

// WithEnv lets environment variables override file values. A key such as
// poller.max_delay is read from PREFIX_POLLER_MAX_DELAY, or POLLER_MAX_DELAY
// with an empty prefix.
func WithEnv(prefix string) Option {
	return func(o *options) {
		o.env = true
		o.envPrefix = prefix
	}
}
