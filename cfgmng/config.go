// Package cfgmng loads typed configuration from one or more files merged in
// order, with environment overrides and defaults, on top of viper.
package cfgmng

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/LeonPucin/dash-core/duration"
	"github.com/LeonPucin/dash-core/fileio"
	"github.com/LeonPucin/dash-core/logger"
)

// ErrUnsupportedType is returned for files whose format cannot be inferred.
var ErrUnsupportedType = errors.New("unsupported config type")

// Validator is implemented by config types that check themselves after
// decoding.
type Validator interface {
	Validate() error
}

// LoadConfig reads <path>/<filename>.yaml and applies environment overrides
// for every key of T.
func LoadConfig[T any](path string, filename string) (*T, error) {
	return Merge[T]([]string{filepath.Join(path, filename+".yaml")}, WithRequired(), WithEnv(""))
}

// Merge reads files in order, each one overriding keys set by the previous,
// and decodes the result into T. Missing files are skipped unless
// WithRequired is given.
func Merge[T any](files []string, opts ...Option) (*T, error) {
	o := options{fs: fileio.NewOS(), log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.Named("cfgmng")

	v := viper.New()
	for k, val := range o.defaults {
		v.SetDefault(k, val)
	}

	for _, file := range files {
		typ, err := configType(file, o.configType)
		if err != nil {
			return nil, err
		}

		data, err := o.fs.ReadBytes(file)
		if errors.Is(err, fileio.ErrNotFound) && !o.required {
			log.Debug("config file not found, skipping", logger.String("file", file))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cfgmng: %w", err)
		}

		v.SetConfigType(typ)
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("cfgmng: parse %s: %w", file, err)
		}
		log.Debug("config file merged", logger.String("file", file))
	}

	var cfg T
	if o.env {
		if o.envPrefix != "" {
			v.SetEnvPrefix(o.envPrefix)
		}
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		for _, key := range structKeys(reflect.TypeOf(cfg), "") {
			if err := v.BindEnv(key); err != nil {
				return nil, fmt.Errorf("cfgmng: bind env %s: %w", key, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("cfgmng: decode: %w", err)
	}

	if val, ok := any(&cfg).(Validator); ok {
		if err := val.Validate(); err != nil {
			return nil, fmt.Errorf("cfgmng: invalid config: %w", err)
		}
	}

	return &cfg, nil
}

func configType(file, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	switch ext {
	case "yaml", "yml":
		return "yaml", nil
	case "json", "toml", "env", "properties":
		return ext, nil
	}
	return "", fmt.Errorf("cfgmng: %s: %w", file, ErrUnsupportedType)
}

var durationType = reflect.TypeOf(duration.Duration{})

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		func(_ reflect.Type, to reflect.Type, data any) (any, error) {
			if to != durationType {
				return data, nil
			}
			return duration.FromAny(data)
		},
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// structKeys lists the dotted mapstructure keys of every leaf field of t.
func structKeys(t reflect.Type, prefix string) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct || t == durationType {
		return nil
	}

	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name, squash := fieldKey(f)
		if name == "-" {
			continue
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		switch {
		case squash:
			keys = append(keys, structKeys(ft, prefix)...)
		case ft.Kind() == reflect.Struct && ft != durationType:
			keys = append(keys, structKeys(ft, prefix+name+".")...)
		default:
			keys = append(keys, prefix+name)
		}
	}
	return keys
}

func fieldKey(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("mapstructure")
	name, rest, _ := strings.Cut(tag, ",")
	if name == "" {
		name = strings.ToLower(f.Name)
	}
	return name, strings.Contains(rest, "squash")
}
