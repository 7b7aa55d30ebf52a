package cfgmng

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonPucin/dash-core/duration"
	"github.com/LeonPucin/dash-core/fileio"
)

type pollerSection struct {
	InitialDelay time.Duration     `mapstructure:"initial_delay"`
	MaxDelay     time.Duration     `mapstructure:"max_delay"`
	ResetPeriod  duration.Duration `mapstructure:"reset_period"`
	Factor       float64           `mapstructure:"factor"`
}

type appConfig struct {
	Name     string        `mapstructure:"name"`
	URL      string        `mapstructure:"url"`
	Services []string      `mapstructure:"services"`
	Poller   pollerSection `mapstructure:"poller"`
}

type checkedConfig struct {
	Name string `mapstructure:"name"`
}

func (c *checkedConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func memFS(t *testing.T, files map[string]string) *fileio.FS {
	t.Helper()
	fs := fileio.NewMem()
	for name, content := range files {
		require.NoError(t, fs.WriteText(name, content))
	}
	return fs
}

func TestMerge_LaterFilesWin(t *testing.T) {
	fs := memFS(t, map[string]string{
		"base.yaml": `
name: base
url: http://localhost:8080/health
poller:
  initial_delay: 1s
  max_delay: 1m
  factor: 1.5
`,
		"override.json": `{"name": "prod", "poller": {"max_delay": "5m", "reset_period": "1d"}}`,
	})

	cfg, err := Merge[appConfig]([]string{"base.yaml", "override.json"}, WithFs(fs))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Name)
	assert.Equal(t, "http://localhost:8080/health", cfg.URL)
	assert.Equal(t, time.Second, cfg.Poller.InitialDelay)
	assert.Equal(t, 5*time.Minute, cfg.Poller.MaxDelay)
	assert.Equal(t, 1.5, cfg.Poller.Factor)
	assert.Equal(t, 24*time.Hour, cfg.Poller.ResetPeriod.Std())
}

func TestMerge_MissingFiles(t *testing.T) {
	fs := memFS(t, map[string]string{"a.yaml": "name: a\n"})

	cfg, err := Merge[appConfig]([]string{"a.yaml", "missing.yaml"}, WithFs(fs))
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Name)

	_, err = Merge[appConfig]([]string{"a.yaml", "missing.yaml"}, WithFs(fs), WithRequired())
	assert.ErrorIs(t, err, fileio.ErrNotFound)
}

func TestMerge_Defaults(t *testing.T) {
	fs := memFS(t, map[string]string{"a.yaml": "poller:\n  factor: 3\n"})

	cfg, err := Merge[appConfig]([]string{"a.yaml"}, WithFs(fs), WithDefaults(map[string]any{
		"name":             "fallback",
		"poller.max_delay": "30s",
		"poller.factor":    2.0,
	}))
	require.NoError(t, err)

	assert.Equal(t, "fallback", cfg.Name)
	assert.Equal(t, 30*time.Second, cfg.Poller.MaxDelay)
	assert.Equal(t, 3.0, cfg.Poller.Factor)
}

func TestMerge_EnvOverrides(t *testing.T) {
	fs := memFS(t, map[string]string{"a.yaml": "name: file\npoller:\n  max_delay: 1m\n"})

	t.Setenv("DASH_NAME", "env")
	t.Setenv("DASH_POLLER_MAX_DELAY", "2m")
	t.Setenv("DASH_POLLER_RESET_PERIOD", "90s")
	t.Setenv("DASH_SERVICES", "poller,retry")

	cfg, err := Merge[appConfig]([]string{"a.yaml"}, WithFs(fs), WithEnv("DASH"))
	require.NoError(t, err)

	assert.Equal(t, "env", cfg.Name)
	assert.Equal(t, 2*time.Minute, cfg.Poller.MaxDelay)
	assert.Equal(t, 90*time.Second, cfg.Poller.ResetPeriod.Std())
	assert.Equal(t, []string{"poller", "retry"}, cfg.Services)
}

func TestMerge_EnvIgnoredWithoutOption(t *testing.T) {
	fs := memFS(t, map[string]string{"a.yaml": "name: file\n"})
	t.Setenv("NAME", "env")

	cfg, err := Merge[appConfig]([]string{"a.yaml"}, WithFs(fs))
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Name)
}

func TestMerge_ConfigType(t *testing.T) {
	fs := memFS(t, map[string]string{"settings.conf": "name: forced\n"})

	_, err := Merge[appConfig]([]string{"settings.conf"}, WithFs(fs))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	cfg, err := Merge[appConfig]([]string{"settings.conf"}, WithFs(fs), WithConfigType("yaml"))
	require.NoError(t, err)
	assert.Equal(t, "forced", cfg.Name)
}

func TestMerge_InvalidContent(t *testing.T) {
	fs := memFS(t, map[string]string{
		"bad.yaml":     "name: [unterminated\n",
		"badtype.yaml": "poller:\n  reset_period: soon\n",
	})

	_, err := Merge[appConfig]([]string{"bad.yaml"}, WithFs(fs))
	assert.ErrorContains(t, err, "parse bad.yaml")

	_, err = Merge[appConfig]([]string{"badtype.yaml"}, WithFs(fs))
	assert.ErrorContains(t, err, "decode")
}

func TestMerge_Validator(t *testing.T) {
	fs := memFS(t, map[string]string{"empty.yaml": "other: 1\n", "ok.yaml": "name: x\n"})

	_, err := Merge[checkedConfig]([]string{"empty.yaml"}, WithFs(fs))
	assert.ErrorContains(t, err, "name is required")

	cfg, err := Merge[checkedConfig]([]string{"ok.yaml"}, WithFs(fs))
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Name)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte("name: disk\nurl: http://x\n"), 0o644))
	t.Setenv("URL", "http://from-env")
	t.Setenv("NAME", "")

	cfg, err := LoadConfig[appConfig](dir, "app")
	require.NoError(t, err)

	assert.Equal(t, "disk", cfg.Name)
	assert.Equal(t, "http://from-env", cfg.URL)

	_, err = LoadConfig[appConfig](dir, "missing")
	assert.ErrorIs(t, err, fileio.ErrNotFound)
}

func TestStructKeys(t *testing.T) {
	keys := structKeys(reflect.TypeOf(appConfig{}), "")

	assert.ElementsMatch(t, []string{
		"name", "url", "services",
		"poller.initial_delay", "poller.max_delay", "poller.reset_period", "poller.factor",
	}, keys)
}
