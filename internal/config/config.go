package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// EnvPrefix prefixes every environment override, e.g. CONTACTDESK_MYSQL_DSN.
const EnvPrefix = "CONTACTDESK"

// ---- Root ----

type Config struct {
	Version    string           `mapstructure:"version"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Log        LogConfig        `mapstructure:"log"`
	MySQL      DatabaseConfig   `mapstructure:"mysql"`
	ClickHouse DatabaseConfig   `mapstructure:"clickhouse"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Store      StoreConfig      `mapstructure:"store"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Mail       MailConfig       `mapstructure:"mail"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Relay      RelayConfig      `mapstructure:"relay"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	BodyLimit      string   `mapstructure:"body_limit"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

// StoreConfig bounds every call made against the contacts store.
type StoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	ContactMax int           `mapstructure:"contact_max"`
	APIMax     int           `mapstructure:"api_max"`
	Window     time.Duration `mapstructure:"window"`
}

type AdminConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

type NotifierConfig struct {
	From         string `mapstructure:"from"`
	Operator     string `mapstructure:"operator"`
	Brand        string `mapstructure:"brand"`
	SupportPhone string `mapstructure:"support_phone"`
	SupportEmail string `mapstructure:"support_email"`
	Website      string `mapstructure:"website"`
	Timezone     string `mapstructure:"timezone"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type MailConfig struct {
	HTTP HTTPMailConfig `mapstructure:"http"`
	SMTP SMTPMailConfig `mapstructure:"smtp"`
}

type HTTPMailConfig struct {
	Name      string        `mapstructure:"name"`
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	SendPath  string        `mapstructure:"send_path"`
	APIKey    string        `mapstructure:"api_key"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

type SMTPMailConfig struct {
	Name     string        `mapstructure:"name"`
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

type DispatcherConfig struct {
	WorkerCount      int              `mapstructure:"worker_count"`
	BatchSize        int              `mapstructure:"batch_size"`
	BatchWait        time.Duration    `mapstructure:"batch_wait"`
	MaxRetryAttempts MaxRetryAttempts `mapstructure:"max_retry_attempts"`
}

type MaxRetryAttempts struct {
	Standard int `mapstructure:"standard"`
	Priority int `mapstructure:"priority"`
}

type RelayConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

// Load reads embedded defaults, merges user YAML (if provided), loads the dotenv
// file (if provided) and applies env overrides (CONTACTDESK_*).
func Load(path string, envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if strings.TrimSpace(f) == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("merge config %s: %w", path, err)
		}
	}

	// env override (CONTACTDESK_*), nested keys joined by underscores
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
