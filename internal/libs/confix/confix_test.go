package confix_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/tmquery/config"
	"github.com/tendermint/tmquery/internal/libs/confix"
)

const oldConfig = `# An older config file.
log_level = "debug"
db_backend = "memdb"
db_dir = "records"

[parser]
max_depth = 32

[pubsub]
buffer_size = 8

[instrumentation]
prometheus = false
max_open_connections = 3
`

func writeFile(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0600))
	return path
}

func TestUpgrade(t *testing.T) {
	var logs bytes.Buffer
	ctx := confix.WithLogWriter(context.Background(), &logs)

	in := writeFile(t, oldConfig)
	out := filepath.Join(t.TempDir(), "upgraded.toml")
	require.NoError(t, confix.Upgrade(ctx, in, out))

	v := viper.New()
	v.SetConfigFile(out)
	require.NoError(t, v.ReadInConfig())

	cfg := config.DefaultConfig()
	require.NoError(t, v.Unmarshal(cfg))
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "plain", cfg.LogFormat)
	assert.Equal(t, "memdb", cfg.Store.DBBackend)
	assert.Equal(t, "records", cfg.Store.DBPath)
	assert.Equal(t, 32, cfg.Parser.MaxDepth)
	assert.Equal(t, 65536, cfg.Parser.MaxLength)
	assert.Equal(t, 8, cfg.PubSub.BufferCapacity)
	assert.Equal(t, 1000, cfg.PubSub.SubscriptionLimit)

	assert.False(t, v.IsSet("db-backend"))
	assert.False(t, v.IsSet("instrumentation.max-open-connections"))

	// Upgrading an upgraded file changes nothing.
	first, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, confix.Upgrade(ctx, out, out))
	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestUpgradeCurrentConfig(t *testing.T) {
	dir := t.TempDir()
	config.EnsureRoot(dir)
	require.NoError(t, config.WriteDefaultConfigFileIfNone(dir))

	out := filepath.Join(dir, "out.toml")
	require.NoError(t, confix.Upgrade(context.Background(), config.ConfigFile(dir), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, confix.CheckValid(data))
}

func TestUpgradeInvalid(t *testing.T) {
	in := writeFile(t, strings.Replace(oldConfig, `"debug"`, `"loud"`, 1))
	out := filepath.Join(t.TempDir(), "upgraded.toml")

	err := confix.Upgrade(context.Background(), in, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updated config is invalid")
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, confix.Upgrade(context.Background(), "", out))
	assert.Error(t, confix.Upgrade(context.Background(), filepath.Join(t.TempDir(), "missing.toml"), out))
}

func TestCheckValid(t *testing.T) {
	assert.NoError(t, confix.CheckValid([]byte(`log-level = "info"`)))
	assert.Error(t, confix.CheckValid([]byte(`log-format = "xml"`)))
	assert.Error(t, confix.CheckValid([]byte(`log-level = `)))
}
