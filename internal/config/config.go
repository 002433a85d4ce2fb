package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cron     CronConfig     `mapstructure:"cron"`
	Serving  ServingConfig  `mapstructure:"serving"`
	Earnings EarningsConfig `mapstructure:"earnings"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Accrual  string `mapstructure:"accrual"`
	Unfreeze string `mapstructure:"unfreeze"`
}

// ServingConfig tunes the hot request path: mediation backoff and the
// per-session antifraud throttle.
type ServingConfig struct {
	NoFillLimit     int           `mapstructure:"nofill_limit"`
	DuplicateWindow time.Duration `mapstructure:"duplicate_window"`
}

type EarningsConfig struct {
	Revshare   float64 `mapstructure:"revshare"`
	FreezeDays int     `mapstructure:"freeze_days"`
}

type NotifyConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	// Accrual runs shortly after UTC midnight for the previous day;
	// unfreeze sweeps hourly.
	v.SetDefault("cron.accrual", "0 10 0 * * *")
	v.SetDefault("cron.unfreeze", "0 0 * * * *")
	v.SetDefault("serving.nofill_limit", 3)
	v.SetDefault("serving.duplicate_window", "30s")
	v.SetDefault("earnings.revshare", 0.7)
	v.SetDefault("earnings.freeze_days", 5)
	v.SetDefault("notify.buffer_size", 256)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
