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
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Judgment JudgmentConfig `mapstructure:"judgment"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Cron     CronConfig     `mapstructure:"cron"`
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

// SheetsConfig points the engine at the two tabular sources. CurrentRange and
// HistoricalRange are named ranges understood by the upstream range API.
type SheetsConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	APIKeyEnv          string        `mapstructure:"api_key_env"`
	Timeout            time.Duration `mapstructure:"timeout"`
	CurrentSourceID    string        `mapstructure:"current_source_id"`
	CurrentRange       string        `mapstructure:"current_range"`
	HistoricalSourceID string        `mapstructure:"historical_source_id"`
	HistoricalRange    string        `mapstructure:"historical_range"`
	Timezone           string        `mapstructure:"timezone"`
}

// ColumnMapConfig is the position-based column contract for one source.
// Header rows in the upstream sheets are decorative, so parsing is strictly
// index-driven and validated at startup.
type ColumnMapConfig struct {
	FirstDataRow     int `mapstructure:"first_data_row"`
	Date             int `mapstructure:"date"`
	CampaignName     int `mapstructure:"campaign_name"`
	MediaName        int `mapstructure:"media_name"`
	Cost             int `mapstructure:"cost"`
	Clicks           int `mapstructure:"clicks"`
	Conversions      int `mapstructure:"conversions"`
	MicroConversions int `mapstructure:"micro_conversions"`
	Revenue          int `mapstructure:"revenue"`
	UnitPrice        int `mapstructure:"unit_price"`
}

type PipelineConfig struct {
	LookbackDays      int             `mapstructure:"lookback_days"`
	DepartmentPrefix  string          `mapstructure:"department_prefix"`
	CurrentColumns    ColumnMapConfig `mapstructure:"current_columns"`
	HistoricalColumns ColumnMapConfig `mapstructure:"historical_columns"`
}

type JudgmentConfig struct {
	MinSpend      float64 `mapstructure:"min_spend"`
	ROASFloor     float64 `mapstructure:"roas_floor"`
	MinSampleDays int     `mapstructure:"min_sample_days"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type NotifyConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	PreloadSpec string `mapstructure:"preload_spec"`
	NotifySpec  string `mapstructure:"notify_spec"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ADJ")
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
	v.SetDefault("sheets.base_url", "")
	v.SetDefault("sheets.api_key_env", "ADJ_SHEETS_API_KEY")
	v.SetDefault("sheets.timeout", "15s")
	v.SetDefault("sheets.current_source_id", "current")
	v.SetDefault("sheets.current_range", "Daily!A:J")
	v.SetDefault("sheets.historical_source_id", "historical")
	v.SetDefault("sheets.historical_range", "History!A:J")
	v.SetDefault("sheets.timezone", "Asia/Tokyo")
	v.SetDefault("pipeline.lookback_days", 7)
	v.SetDefault("pipeline.department_prefix", "Dept")
	v.SetDefault("pipeline.current_columns.first_data_row", 1)
	v.SetDefault("pipeline.current_columns.date", 0)
	v.SetDefault("pipeline.current_columns.campaign_name", 1)
	v.SetDefault("pipeline.current_columns.media_name", 2)
	v.SetDefault("pipeline.current_columns.cost", 3)
	v.SetDefault("pipeline.current_columns.clicks", 4)
	v.SetDefault("pipeline.current_columns.conversions", 5)
	v.SetDefault("pipeline.current_columns.micro_conversions", 6)
	v.SetDefault("pipeline.current_columns.revenue", 7)
	v.SetDefault("pipeline.current_columns.unit_price", 8)
	v.SetDefault("pipeline.historical_columns.first_data_row", 1)
	v.SetDefault("pipeline.historical_columns.date", 0)
	v.SetDefault("pipeline.historical_columns.campaign_name", 1)
	v.SetDefault("pipeline.historical_columns.media_name", 2)
	v.SetDefault("pipeline.historical_columns.cost", 3)
	v.SetDefault("pipeline.historical_columns.clicks", 4)
	v.SetDefault("pipeline.historical_columns.conversions", 5)
	v.SetDefault("pipeline.historical_columns.micro_conversions", 6)
	v.SetDefault("pipeline.historical_columns.revenue", 7)
	v.SetDefault("pipeline.historical_columns.unit_price", 8)
	v.SetDefault("judgment.min_spend", 500)
	v.SetDefault("judgment.roas_floor", 1.0)
	v.SetDefault("judgment.min_sample_days", 3)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.preload_spec", "@every 4m")
	v.SetDefault("cron.notify_spec", "0 0 9 * * *")

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
