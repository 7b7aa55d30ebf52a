package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonPucin/dash-core/httpx/httpxtest"
)

// resetFlags restores every flag of c and its parents to its default, since
// commands and flag variables are package globals.
func resetFlags(t *testing.T, c *cobra.Command) {
	t.Helper()

	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			require.NoError(t, sv.Replace(nil))
		} else {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.Root().PersistentFlags().VisitAll(reset)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t, watchCmd)
	t.Cleanup(func() { resetFlags(t, watchCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestWatchCommand_RequiresURL(t *testing.T) {
	_, err := execute(t, "watch", "--env-prefix", "PCTL_EMPTY", "--for", "10ms")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.url is required")
}

func TestWatchCommand_InvalidFor(t *testing.T) {
	_, err := execute(t, "watch", "--url", "http://127.0.0.1:1", "--for", "soon")

	assert.Error(t, err)
}

func TestWatchCommand_Runs(t *testing.T) {
	server := httpxtest.NewTestServerWithOptions()
	defer server.Close()

	path := filepath.Join(t.TempDir(), "pollctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
target:
  path: /healthz
poller:
  initial_delay: 5ms
  max_delay: 20ms
metrics:
  addr: 127.0.0.1:0
`), 0o600))

	out, err := execute(t, "watch",
		"--config", path,
		"--url", server.URL,
		"--for", "50ms",
		"--env-prefix", "PCTL_RUN",
	)

	require.NoError(t, err)
	assert.Contains(t, out, "watching target")
	assert.Contains(t, out, "poller stopped")
	assert.Positive(t, server.RequestCount())
}
