// README: Config loader; viper-backed defaults, optional config file, RIDERHUB_* env overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type FeedConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	Probability float64       `mapstructure:"probability"`
	TimeLimit   int           `mapstructure:"time_limit"`
	AvgSpeedKmh float64       `mapstructure:"avg_speed_kmh"`
}

type OffersConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	HighPayMin   int64         `mapstructure:"high_pay_min"`
	NearbyMaxKm  float64       `mapstructure:"nearby_max_km"`
	UrgentWithin int           `mapstructure:"urgent_within"`
	ClaimTTL     time.Duration `mapstructure:"claim_ttl"`
	Feed         FeedConfig    `mapstructure:"feed"`
}

type DeliveryConfig struct {
	CodeLength  int    `mapstructure:"code_length"`
	UrgentBonus int64  `mapstructure:"urgent_bonus"`
	Currency    string `mapstructure:"currency"`
}

// VerificationConfig drives the random identity re-check prompt shown to online drivers.
type VerificationConfig struct {
	Probability   float64       `mapstructure:"probability"`
	MinCompleted  int           `mapstructure:"min_completed"`
	After         time.Duration `mapstructure:"after"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

type Config struct {
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	Redis struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"redis"`
	Maps struct {
		APIKey string `mapstructure:"api_key"`
		Region string `mapstructure:"region"`
	} `mapstructure:"maps"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Offers       OffersConfig       `mapstructure:"offers"`
	Delivery     DeliveryConfig     `mapstructure:"delivery"`
	Verification VerificationConfig `mapstructure:"verification"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Load reads defaults, then the optional file at path, then RIDERHUB_* environment
// variables (RIDERHUB_OFFERS_TICK_INTERVAL overrides offers.tick_interval).
func Load(path string) (Config, error) {
	var cfg Config

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("RIDERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("db.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("maps.api_key", "")
	v.SetDefault("maps.region", "IN")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "riderhub.events")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("offers.tick_interval", "1s")
	v.SetDefault("offers.high_pay_min", 80)
	v.SetDefault("offers.nearby_max_km", 3.0)
	v.SetDefault("offers.urgent_within", 60)
	v.SetDefault("offers.claim_ttl", "10m")
	v.SetDefault("offers.feed.enabled", true)
	v.SetDefault("offers.feed.interval", "15s")
	v.SetDefault("offers.feed.probability", 0.3)
	v.SetDefault("offers.feed.time_limit", 60)
	v.SetDefault("offers.feed.avg_speed_kmh", 20.0)

	v.SetDefault("delivery.code_length", 4)
	v.SetDefault("delivery.urgent_bonus", 10)
	v.SetDefault("delivery.currency", "INR")

	v.SetDefault("verification.probability", 0.15)
	v.SetDefault("verification.min_completed", 5)
	v.SetDefault("verification.after", "45s")
	v.SetDefault("verification.check_interval", "5s")
}

func (c Config) Validate() error {
	switch {
	case c.Offers.TickInterval <= 0:
		return fmt.Errorf("%w: offers.tick_interval must be positive", ErrInvalidConfig)
	case c.Offers.HighPayMin < 0:
		return fmt.Errorf("%w: offers.high_pay_min must not be negative", ErrInvalidConfig)
	case c.Offers.NearbyMaxKm <= 0:
		return fmt.Errorf("%w: offers.nearby_max_km must be positive", ErrInvalidConfig)
	case c.Offers.Feed.Probability < 0 || c.Offers.Feed.Probability > 1:
		return fmt.Errorf("%w: offers.feed.probability must be within [0,1]", ErrInvalidConfig)
	case c.Offers.Feed.Enabled && c.Offers.Feed.Interval <= 0:
		return fmt.Errorf("%w: offers.feed.interval must be positive", ErrInvalidConfig)
	case c.Offers.Feed.TimeLimit <= 0:
		return fmt.Errorf("%w: offers.feed.time_limit must be positive", ErrInvalidConfig)
	case c.Delivery.CodeLength < 4:
		return fmt.Errorf("%w: delivery.code_length must be at least 4", ErrInvalidConfig)
	case c.Delivery.UrgentBonus < 0:
		return fmt.Errorf("%w: delivery.urgent_bonus must not be negative", ErrInvalidConfig)
	case c.Verification.Probability < 0 || c.Verification.Probability > 1:
		return fmt.Errorf("%w: verification.probability must be within [0,1]", ErrInvalidConfig)
	case c.Verification.CheckInterval <= 0:
		return fmt.Errorf("%w: verification.check_interval must be positive", ErrInvalidConfig)
	case c.Offers.ClaimTTL <= 0:
		return fmt.Errorf("%w: offers.claim_ttl must be positive", ErrInvalidConfig)
	}
	return nil
}
