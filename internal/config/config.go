package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Leave    LeaveConfig    `mapstructure:"leave"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	Name        string `mapstructure:"name"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	SSLMode     string `mapstructure:"sslmode"`
	MaxRetries  int    `mapstructure:"max_retries"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

// URL is the form golang-migrate expects.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type KafkaConfig struct {
	Broker  string `mapstructure:"broker"`
	GroupID string `mapstructure:"group_id"`
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LeaveConfig struct {
	AnnualCap int `mapstructure:"annual_cap"`
	// Type caps are checked at creation only unless this is set.
	EnforceTypeRulesOnUpdate bool          `mapstructure:"enforce_type_rules_on_update"`
	BalanceCacheTTL          time.Duration `mapstructure:"balance_cache_ttl"`
}

type WorkerConfig struct {
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	NotificationRetention time.Duration `mapstructure:"notification_retention"`
	PruneSchedule         string        `mapstructure:"prune_schedule"`
}

// Load reads defaults, then an optional config file, then environment variables (DB_HOST -> db.host).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.name", "conge")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_retries", 5)
	v.SetDefault("db.auto_migrate", false)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("kafka.broker", "")
	v.SetDefault("kafka.group_id", "go-conge-notifications")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("auth.secure_cookies", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("leave.annual_cap", 18)
	v.SetDefault("leave.enforce_type_rules_on_update", false)
	v.SetDefault("leave.balance_cache_ttl", "10m")

	v.SetDefault("worker.poll_interval", "3s")
	v.SetDefault("worker.notification_retention", "2160h")
	v.SetDefault("worker.prune_schedule", "0 3 * * *")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

// Validate checks settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if c.Leave.AnnualCap <= 0 {
		return fmt.Errorf("leave.annual_cap must be positive")
	}
	return nil
}
