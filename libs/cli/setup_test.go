package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCmd(t *testing.T, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test", RunE: run}
	cmd.Flags().String("name", "default", "a setting")
	return PrepareBaseCmd(cmd, "TMQTEST", t.TempDir())
}

func TestSetupConfigPrecedence(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "config"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(home, "config", "config.toml"),
		[]byte("name = \"from-file\"\nother = \"file-only\"\n"), 0600))

	testCases := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"config file", []string{"--home", home}, nil, "from-file"},
		{"flag beats file", []string{"--home", home, "--name", "from-flag"}, nil, "from-flag"},
		{"env beats file", []string{"--home", home}, map[string]string{"TMQTEST_NAME": "from-env"}, "from-env"},
		{"unprefixed env", []string{"--home", home}, map[string]string{"TMQTESTNAME": "from-env2"}, "from-env2"},
		{"no config", []string{"--home", t.TempDir()}, nil, "default"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TMQTEST_NAME", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			var got string
			cmd := newTestCmd(t, func(cmd *cobra.Command, args []string) error {
				got = viper.GetString("name")
				return nil
			})
			cmd.SetArgs(tc.args)
			require.NoError(t, cmd.Execute())
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBadConfigFile(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte("name = "), 0600))

	cmd := newTestCmd(t, func(*cobra.Command, []string) error { return nil })
	cmd.SetArgs([]string{"--home", home})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestExecuteTrace(t *testing.T) {
	ctx := context.Background()
	fail := func(*cobra.Command, []string) error { return pkgerrors.New("broken") }

	var buf bytes.Buffer
	cmd := newTestCmd(t, fail)
	cmd.SetArgs([]string{})
	assert.Equal(t, 1, Execute(ctx, cmd, &buf))
	assert.Equal(t, "ERROR: broken\n", buf.String())

	buf.Reset()
	cmd = newTestCmd(t, fail)
	cmd.SetArgs([]string{"--trace"})
	assert.Equal(t, 1, Execute(ctx, cmd, &buf))
	assert.Contains(t, buf.String(), "TestExecuteTrace")

	cmd = newTestCmd(t, func(*cobra.Command, []string) error { return nil })
	cmd.SetArgs([]string{})
	assert.Equal(t, 0, Execute(ctx, cmd, &buf))
}

func TestExecuteContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	cmd := newTestCmd(t, func(cmd *cobra.Command, _ []string) error { return cmd.Context().Err() })
	cmd.SetArgs([]string{})
	assert.Equal(t, 1, Execute(ctx, cmd, &buf))
	assert.Equal(t, "ERROR: context canceled\n", buf.String())
}
