package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ensureFiles(t *testing.T, rootDir string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := rootify(f, rootDir)
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestEnsureRoot(t *testing.T) {
	tmpDir := t.TempDir()

	// create root dir
	EnsureRoot(tmpDir)
	require.NoError(t, WriteDefaultConfigFileIfNone(tmpDir))

	// make sure config is set properly
	data, err := os.ReadFile(filepath.Join(tmpDir, defaultConfigFilePath))
	require.NoError(t, err)
	checkConfig(t, string(data))

	ensureFiles(t, tmpDir, "config", "data")
}

func TestWriteDefaultConfigFileIfNone(t *testing.T) {
	tmpDir := t.TempDir()
	EnsureRoot(tmpDir)

	path := ConfigFile(tmpDir)
	require.NoError(t, os.WriteFile(path, []byte("log-level = \"error\"\n"), 0600))
	require.NoError(t, WriteDefaultConfigFileIfNone(tmpDir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log-level = \"error\"\n", string(data))
}

func TestTemplateDecodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.DBPath = `C:\data\"records"`
	cfg.Instrumentation.Prometheus = true

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, cfg.WriteToTemplate(path))

	var raw map[string]interface{}
	_, err := toml.DecodeFile(path, &raw)
	require.NoError(t, err)

	store, ok := raw["store"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, cfg.Store.DBPath, store["db-dir"])
	assert.Equal(t, "goleveldb", store["db-backend"])

	inst, ok := raw["instrumentation"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, inst["prometheus"])
}

func TestTemplateRoundTrip(t *testing.T) {
	want := DefaultConfig()
	want.LogFormat = "json"
	want.Parser.MaxDepth = 8
	want.PubSub.BufferCapacity = 16
	want.Instrumentation.Namespace = "records"

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, want.WriteToTemplate(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	got := DefaultConfig()
	require.NoError(t, v.Unmarshal(got))
	assert.Equal(t, want, got)
	assert.NoError(t, got.ValidateBasic())
}

func checkConfig(t *testing.T, configFile string) {
	t.Helper()
	// list of words we expect in the config
	var elems = []string{
		"log-level",
		"log-format",
		"parser",
		"max-depth",
		"max-length",
		"store",
		"db-backend",
		"db-dir",
		"pubsub",
		"buffer-capacity",
		"subscription-limit",
		"instrumentation",
		"prometheus-listen-addr",
		"namespace",
	}
	for _, e := range elems {
		if !strings.Contains(configFile, e) {
			t.Errorf("config file was expected to contain %s but did not", e)
		}
	}
}
