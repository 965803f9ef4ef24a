package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vuquang23/steamauto/automation"
	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/storage"
)

const (
	fileName  = ".steamauto"
	envPrefix = "STEAMAUTO"

	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	Accounts   []AccountConfig  `mapstructure:"accounts" yaml:"accounts"`
	Automation AutomationConfig `mapstructure:"automation" yaml:"automation"`
	Network    NetworkConfig    `mapstructure:"network" yaml:"network"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Notify     NotifyConfig     `mapstructure:"notify" yaml:"notify"`
	Status     StatusConfig     `mapstructure:"status" yaml:"status"`
	Log        logger.Config    `mapstructure:"log" yaml:"log"`
}

// AccountConfig is one managed account. RefreshToken seeds the session
// manager until a stored session exists.
type AccountConfig struct {
	automation.Account `mapstructure:",squash" yaml:",inline"`
	RefreshToken       string `mapstructure:"refresh_token" yaml:"refresh_token,omitempty"`
	APIKey             string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// AutomationConfig holds the policy new accounts start from.
type AutomationConfig struct {
	Interval            time.Duration `mapstructure:"interval" yaml:"interval"`
	AutoAcceptGifts     bool          `mapstructure:"auto_accept_gifts" yaml:"auto_accept_gifts"`
	AutoAcceptExchanges bool          `mapstructure:"auto_accept_exchanges" yaml:"auto_accept_exchanges"`
	AutoConfirmTrades   bool          `mapstructure:"auto_confirm_trades" yaml:"auto_confirm_trades"`
	AutoConfirmMarket   bool          `mapstructure:"auto_confirm_market" yaml:"auto_confirm_market"`
	// MaxErrors suspends an account after that many consecutive failed
	// cycles; 0 disables it.
	MaxErrors           int           `mapstructure:"max_errors" yaml:"max_errors"`
	NotifyAfter         int           `mapstructure:"notify_after" yaml:"notify_after"`
}

type NetworkConfig struct {
	MinRequestDelay time.Duration `mapstructure:"min_request_delay" yaml:"min_request_delay"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type StorageConfig struct {
	Backend       string      `mapstructure:"backend" yaml:"backend"`
	Dir           string      `mapstructure:"dir" yaml:"dir"`
	EncryptionKey string      `mapstructure:"encryption_key" yaml:"encryption_key,omitempty"`
	ProxiesFile   string      `mapstructure:"proxies_file" yaml:"proxies_file,omitempty"`
	Redis         RedisConfig `mapstructure:"redis" yaml:"redis"`
	PostgresDSN   string      `mapstructure:"postgres_dsn" yaml:"postgres_dsn,omitempty"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type NotifyConfig struct {
	Telegram bool   `mapstructure:"telegram" yaml:"telegram"`
	EnvFile  string `mapstructure:"env_file" yaml:"env_file"`
}

type StatusConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// Default returns the configuration written for a fresh install.
func Default() Config {
	return Config{
		Accounts: []AccountConfig{},
		Automation: AutomationConfig{
			Interval:    automation.DefaultInterval,
			NotifyAfter: 3,
		},
		Network: NetworkConfig{
			MinRequestDelay: time.Second,
			Timeout:         30 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Dir:     "data",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Notify: NotifyConfig{EnvFile: ".env"},
		Status: StatusConfig{Listen: "127.0.0.1:8089"},
		Log:    logger.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("automation.interval", d.Automation.Interval)
	v.SetDefault("automation.max_errors", d.Automation.MaxErrors)
	v.SetDefault("automation.notify_after", d.Automation.NotifyAfter)
	v.SetDefault("network.min_request_delay", d.Network.MinRequestDelay)
	v.SetDefault("network.timeout", d.Network.Timeout)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("storage.encryption_key", "")
	v.SetDefault("storage.proxies_file", "")
	v.SetDefault("storage.redis.addr", d.Storage.Redis.Addr)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("notify.telegram", false)
	v.SetDefault("notify.env_file", d.Notify.EnvFile)
	v.SetDefault("status.listen", d.Status.Listen)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.environment", d.Log.Environment)
}

// DefaultPath is $HOME/.steamauto.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	return filepath.Join(home, fileName+".yaml"), nil
}

// Load reads configFile, or $HOME/.steamauto.yaml when it is empty, and
// applies STEAMAUTO_* environment overrides. A missing default file is not an
// error; a missing explicit file is.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not get home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(fileName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if err := storage.ValidateAccount(a.Name); err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
		if seen[a.Name] {
			return fmt.Errorf("accounts[%d]: duplicate account %q", i, a.Name)
		}
		seen[a.Name] = true
		if a.GuardPath == "" {
			return fmt.Errorf("accounts[%d]: guard_path is required", i)
		}
	}
	if c.Automation.MaxErrors < 0 {
		return fmt.Errorf("automation.max_errors must not be negative")
	}
	if err := c.Automation.Policy().Validate(); err != nil {
		return fmt.Errorf("automation: %w", err)
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the file backend")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Account returns the configured account called name.
func (c *Config) Account(name string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return AccountConfig{}, false
}

// Policy converts the defaults into the policy a new account starts with.
func (a AutomationConfig) Policy() automation.Policy {
	p := automation.DefaultPolicy()
	if a.Interval != 0 {
		p.Interval = a.Interval
	}
	p.AutoAcceptGifts = a.AutoAcceptGifts
	p.AutoAcceptExchanges = a.AutoAcceptExchanges
	p.AutoConfirmTrades = a.AutoConfirmTrades
	p.AutoConfirmMarket = a.AutoConfirmMarket
	return p
}

// WriteDefault writes the default configuration to path, refusing to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
