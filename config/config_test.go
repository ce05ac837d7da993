package config

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	// set up some defaults
	cfg := DefaultConfig()
	assert.NotNil(cfg.Parser)
	assert.NotNil(cfg.Store)
	assert.NotNil(cfg.PubSub)

	// check the root dir stuff...
	cfg.SetRoot("/foo")
	assert.Equal("/foo/data", cfg.Store.DBDir())

	cfg.Store.DBPath = "/opt/data"
	assert.Equal("/opt/data", cfg.Store.DBDir())
}

func TestConfigValidateBasic(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.ValidateBasic())

	// tamper with the parser limits
	cfg.Parser.MaxDepth = 0
	err := cfg.ValidateBasic()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[parser]")
}

func TestBaseConfigValidateBasic(t *testing.T) {
	cfg := TestBaseConfig()
	assert.NoError(t, cfg.ValidateBasic())

	// tamper with log format
	cfg.LogFormat = "invalid"
	assert.Error(t, cfg.ValidateBasic())

	cfg = TestBaseConfig()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.ValidateBasic())
}

func TestSectionsValidateBasic(t *testing.T) {
	testCases := []struct {
		name   string
		cfg    interface{ ValidateBasic() error }
		field  string
		value  interface{}
		errMsg string
	}{
		{"parser depth", TestParserConfig(), "MaxDepth", -1, "max-depth"},
		{"parser length", TestParserConfig(), "MaxLength", 0, "max-length"},
		{"store backend", TestStoreConfig(), "DBBackend", "", "db-backend"},
		{"pubsub capacity", TestPubSubConfig(), "BufferCapacity", -1, "buffer-capacity"},
		{"pubsub limit", TestPubSubConfig(), "SubscriptionLimit", 0, "subscription-limit"},
		{"prometheus addr", &InstrumentationConfig{Prometheus: true}, "PrometheusListenAddr", "", "prometheus-listen-addr"},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			reflect.ValueOf(tc.cfg).Elem().FieldByName(tc.field).Set(reflect.ValueOf(tc.value))
			err := tc.cfg.ValidateBasic()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
