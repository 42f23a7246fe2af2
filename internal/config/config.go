package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	MySQL     DatabaseConfig  `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
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

// DedupConfig controls the once-per-day SMS guard.
// Store is "redis" or "memory". Timezone fixes the calendar-day boundary so
// dedup keys do not depend on the server clock's zone.
type DedupConfig struct {
	Store     string        `mapstructure:"store"`
	Timezone  string        `mapstructure:"timezone"`
	Retention time.Duration `mapstructure:"retention"`
}

type BreakerConfig struct {
	FailThreshold int           `mapstructure:"fail_threshold"`
	OpenFor       time.Duration `mapstructure:"open_for"`
}

type GatewayConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Originator  string        `mapstructure:"originator"`
	PatternCode string        `mapstructure:"pattern_code"`
	Enabled     bool          `mapstructure:"enabled"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
}

type SMSConfig struct {
	// DefaultCodeText replaces the pattern "code" variable when the event
	// carries no actor id.
	DefaultCodeText string `mapstructure:"default_code_text"`
}

type PipelineConfig struct {
	ExtractFromMessages  bool `mapstructure:"extract_from_messages"`
	ExtractFromAutoforms bool `mapstructure:"extract_from_autoforms"`
}

type AdminConfig struct {
	ID   int64  `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type TelegramConfig struct {
	Token         string        `mapstructure:"token"`
	OwnerID       int64         `mapstructure:"owner_id"`
	Admins        []AdminConfig `mapstructure:"admins"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (LEADRELAY_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (LEADRELAY_*)
	v.SetEnvPrefix("LEADRELAY")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
