package config

import (
	"errors"
	"fmt"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"

	"github.com/tendermint/tmquery/libs/log"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
// NOTE: libs/cli must know to look in the config dir!
var (
	DefaultTMQueryDir = ".tmquery"
	defaultConfigDir  = "config"
	defaultDataDir    = "data"

	defaultConfigFileName = "config.toml"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
)

// Config defines the top level configuration for tmquery
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	Parser          *ParserConfig          `mapstructure:"parser"`
	Store           *StoreConfig           `mapstructure:"store"`
	PubSub          *PubSubConfig          `mapstructure:"pubsub"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Parser:          DefaultParserConfig(),
		Store:           DefaultStoreConfig(),
		PubSub:          DefaultPubSubConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Parser:          TestParserConfig(),
		Store:           TestStoreConfig(),
		PubSub:          TestPubSubConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	cfg.Store.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Parser.ValidateBasic(); err != nil {
		return pkgerrors.Wrap(err, "error in [parser] section")
	}
	if err := cfg.Store.ValidateBasic(); err != nil {
		return pkgerrors.Wrap(err, "error in [store] section")
	}
	if err := cfg.PubSub.ValidateBasic(); err != nil {
		return pkgerrors.Wrap(err, "error in [pubsub] section")
	}
	return pkgerrors.Wrap(
		cfg.Instrumentation.ValidateBasic(),
		"error in [instrumentation] section",
	)
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for tmquery
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format"`
}

// DefaultBaseConfig returns a default base configuration
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		LogLevel:  DefaultLogLevel,
		LogFormat: log.LogFormatPlain,
	}
}

// TestBaseConfig returns a base configuration for testing
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.LogLevel = log.LogLevelDebug
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case log.LogFormatPlain, log.LogFormatText, log.LogFormatJSON:
	default:
		return errors.New("unknown log-format (must be 'plain', 'text' or 'json')")
	}
	switch cfg.LogLevel {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("unknown log-level %q", cfg.LogLevel)
	}
	return nil
}

// DefaultLogLevel is the log level used unless configured otherwise.
const DefaultLogLevel = log.LogLevelInfo

//-----------------------------------------------------------------------------
// ParserConfig

// ParserConfig bounds the queries accepted by the parser.
type ParserConfig struct {
	// Maximum number of nested groups and negations in a query.
	MaxDepth int `mapstructure:"max-depth"`

	// Maximum length of a query in bytes.
	MaxLength int `mapstructure:"max-length"`
}

// DefaultParserConfig returns the default parser limits.
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		MaxDepth:  64,
		MaxLength: 64 << 10,
	}
}

// TestParserConfig returns a parser configuration for testing.
func TestParserConfig() *ParserConfig {
	return DefaultParserConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *ParserConfig) ValidateBasic() error {
	if cfg.MaxDepth <= 0 {
		return errors.New("max-depth must be positive")
	}
	if cfg.MaxLength <= 0 {
		return errors.New("max-length must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// StoreConfig

// StoreConfig defines where records are kept.
type StoreConfig struct {
	RootDir string `mapstructure:"home"`

	// Database backend: goleveldb | cleveldb | boltdb | rocksdb | badgerdb | memdb
	// * goleveldb (github.com/syndtr/goleveldb - most popular implementation)
	//   - pure go
	//   - stable
	// * memdb
	//   - records are lost on exit
	// The remaining backends require build tags, see tm-db.
	DBBackend string `mapstructure:"db-backend"`

	// Database directory
	DBPath string `mapstructure:"db-dir"`
}

// DefaultStoreConfig returns a default store configuration.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		DBBackend: "goleveldb",
		DBPath:    defaultDataDir,
	}
}

// TestStoreConfig returns a store configuration for testing.
func TestStoreConfig() *StoreConfig {
	cfg := DefaultStoreConfig()
	cfg.DBBackend = "memdb"
	return cfg
}

// DBDir returns the full path to the database directory
func (cfg *StoreConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *StoreConfig) ValidateBasic() error {
	if cfg.DBBackend == "" {
		return errors.New("db-backend can't be empty")
	}
	return nil
}

//-----------------------------------------------------------------------------
// PubSubConfig

// PubSubConfig defines the configuration of the record pubsub server.
type PubSubConfig struct {
	// Capacity of the server's publish queue. 0 means publishing waits for
	// the server to take each record.
	BufferCapacity int `mapstructure:"buffer-capacity"`

	// Number of undelivered records a subscription can hold before it is
	// terminated.
	SubscriptionLimit int `mapstructure:"subscription-limit"`
}

// DefaultPubSubConfig returns a default pubsub configuration.
func DefaultPubSubConfig() *PubSubConfig {
	return &PubSubConfig{
		BufferCapacity:    0,
		SubscriptionLimit: 1000,
	}
}

// TestPubSubConfig returns a pubsub configuration for testing.
func TestPubSubConfig() *PubSubConfig {
	return DefaultPubSubConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *PubSubConfig) ValidateBasic() error {
	if cfg.BufferCapacity < 0 {
		return errors.New("buffer-capacity can't be negative")
	}
	if cfg.SubscriptionLimit <= 0 {
		return errors.New("subscription-limit must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus-listen-addr"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "tmquery",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Prometheus && cfg.PrometheusListenAddr == "" {
		return errors.New("prometheus-listen-addr can't be empty when prometheus is enabled")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
