package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	Reviews   ReviewsConfig   `mapstructure:"reviews"`
	BoxOffice BoxOfficeConfig `mapstructure:"box_office"`

	AutoResolve AutoResolveConfig `mapstructure:"auto_resolve"`
	TasteMatch  TasteMatchConfig  `mapstructure:"taste_match"`
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
	Enabled        bool   `mapstructure:"enabled"`
	AutoResolve    string `mapstructure:"auto_resolve"`
	LifecycleSweep string `mapstructure:"lifecycle_sweep"`
}

// ReviewsConfig points at the critic-score provider.
type ReviewsConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BoxOfficeConfig points at the opening-weekend gross provider.
type BoxOfficeConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AutoResolveConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Days after film release before a market becomes auto-resolvable.
	CriticScoreDelayDays int `mapstructure:"critic_score_delay_days"`
	BoxOfficeDelayDays   int `mapstructure:"box_office_delay_days"`
	// Minimum review count before a critic score is trusted.
	MinReviewCount int `mapstructure:"min_review_count"`
	BatchSize      int `mapstructure:"batch_size"`
}

type TasteMatchConfig struct {
	MinScore         float64 `mapstructure:"min_score"`
	MinMarketsShared int     `mapstructure:"min_markets_shared"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RM")
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
	v.SetDefault("cron.auto_resolve", "@every 1h")
	v.SetDefault("cron.lifecycle_sweep", "@every 1m")
	v.SetDefault("reviews.base_url", "https://reviews.reelmarket.internal")
	v.SetDefault("reviews.timeout", "15s")
	v.SetDefault("box_office.base_url", "https://boxoffice.reelmarket.internal")
	v.SetDefault("box_office.timeout", "15s")
	v.SetDefault("auto_resolve.enabled", true)
	v.SetDefault("auto_resolve.critic_score_delay_days", 14)
	v.SetDefault("auto_resolve.box_office_delay_days", 3)
	v.SetDefault("auto_resolve.min_review_count", 20)
	v.SetDefault("auto_resolve.batch_size", 100)
	v.SetDefault("taste_match.min_score", 0.6)
	v.SetDefault("taste_match.min_markets_shared", 3)

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
