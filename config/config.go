package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config contains all configuration of the dispatch service. Values come
// from the YAML file; secrets may be overridden through the environment.
type (
	Config struct {
		LogLevel string `yaml:"log_level"`

		HTTP       HTTPConfig       `yaml:"http"`
		Database   DatabaseConfig   `yaml:"database"`
		Redis      RedisConfig      `yaml:"redis"`
		RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
		Auth       AuthConfig       `yaml:"auth"`
		Tariffs    TariffsConfig    `yaml:"tariffs"`
		Dispatch   DispatchConfig   `yaml:"dispatch"`
		Settlement SettlementConfig `yaml:"settlement"`
	}

	HTTPConfig struct {
		Port string `yaml:"port"`
	}

	DatabaseConfig struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	}

	RedisConfig struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	}

	RabbitMQConfig struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	}

	AuthConfig struct {
		JWTSecret string `yaml:"jwt_secret"`
	}

	// TariffConfig is the fare model for one request kind: a flat base
	// fee covering the first FreeKm, then PerKmRate beyond it.
	TariffConfig struct {
		BaseFee   float64 `yaml:"base_fee"`
		FreeKm    float64 `yaml:"free_km"`
		PerKmRate float64 `yaml:"per_km_rate"`
	}

	TariffsConfig struct {
		FoodOrder TariffConfig `yaml:"food_order"`
		Ride      TariffConfig `yaml:"ride"`
	}

	DispatchConfig struct {
		// SearchRadiusM bounds both candidate listings and claim
		// eligibility.
		SearchRadiusM float64 `yaml:"search_radius_m"`

		// PendingTimeout is how long a request may stay PENDING before
		// the sweeper cancels it.
		PendingTimeout Duration `yaml:"pending_timeout"`
		SweepInterval  Duration `yaml:"sweep_interval"`

		// PositionTTL expires courier positions that stop updating.
		// Zero keeps them forever.
		PositionTTL Duration `yaml:"position_ttl"`
	}

	SettlementConfig struct {
		CommissionRate float64 `yaml:"commission_rate"`
		MaxParallel    int     `yaml:"max_parallel"`
	}
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "15m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// NewConfig loads .env (when present), parses the YAML file and applies
// environment overrides for secrets.
func NewConfig(filepath string) (*Config, error) {
	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RABBITMQ_PASSWORD"); v != "" {
		cfg.RabbitMQ.Password = v
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "3000"
	}
	if cfg.Dispatch.SearchRadiusM <= 0 {
		cfg.Dispatch.SearchRadiusM = 5000
	}
	if cfg.Dispatch.PendingTimeout <= 0 {
		cfg.Dispatch.PendingTimeout = Duration(15 * time.Minute)
	}
	if cfg.Dispatch.SweepInterval <= 0 {
		cfg.Dispatch.SweepInterval = Duration(30 * time.Second)
	}
	if cfg.Settlement.CommissionRate <= 0 {
		cfg.Settlement.CommissionRate = 0.2
	}
	if cfg.Settlement.MaxParallel <= 0 {
		cfg.Settlement.MaxParallel = 4
	}
}
