package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Chain     ChainConfig     `mapstructure:"chain"`
	KDF       KDFConfig       `mapstructure:"kdf"`
	Lock      LockConfig      `mapstructure:"lock"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ChainConfig points at the Ethereum JSON-RPC node.
type ChainConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	ExpectedChainID int64         `mapstructure:"expected_chain_id"` // 0 = accept whatever the node reports
	GasLimit        uint64        `mapstructure:"gas_limit"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// KDFConfig selects the password key derivation function.
type KDFConfig struct {
	Algorithm  string `mapstructure:"algorithm"` // pbkdf2, argon2id
	Iterations int    `mapstructure:"iterations"`
}

// LockConfig selects the per-user withdrawal lock backend.
type LockConfig struct {
	Backend       string        `mapstructure:"backend"` // memory, redis
	TTL           time.Duration `mapstructure:"ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	WaitTimeout   time.Duration `mapstructure:"wait_timeout"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	Expiry time.Duration `mapstructure:"expiry"`
}

type RateLimitConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"` // redis, memory (single instance only)
}

// MetricsConfig controls the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from a .env file, a config file and environment variables.
// Environment variables override file values. Prefix: WCS_ (Wallet Custody Service).
// Nested keys use underscore: WCS_DATABASE_HOST, WCS_CHAIN_RPC_URL, etc.
func Load(path string) (*Config, error) {
	// .env only seeds the process environment; real env vars win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env file: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "wallet_custody")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("chain.rpc_url", "https://rpc.ankr.com/eth")
	v.SetDefault("chain.expected_chain_id", 0)
	v.SetDefault("chain.gas_limit", 21000)
	v.SetDefault("chain.request_timeout", "15s")
	v.SetDefault("kdf.algorithm", "pbkdf2")
	v.SetDefault("kdf.iterations", 250000)
	v.SetDefault("lock.backend", "memory")
	v.SetDefault("lock.ttl", "90s")
	v.SetDefault("lock.retry_interval", "50ms")
	v.SetDefault("lock.wait_timeout", "30s")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "wallet-custody")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.backend", "redis")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: WCS_DATABASE_HOST -> database.host
	v.SetEnvPrefix("WCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

const (
	// defaultChainTimeout mirrors the chain adapter's fallback when
	// chain.request_timeout is unset.
	defaultChainTimeout = 15 * time.Second

	// withdrawChainCalls is the number of node round trips made under the
	// withdrawal lock: nonce, gas price, chain id and broadcast.
	withdrawChainCalls = 4

	ledgerWriteAllowance = 10 * time.Second
	lockTTLMargin        = 10 * time.Second
)

// MinLockTTL is the shortest Redis lock TTL that still outlives a withdrawal
// whose chain calls and ledger write all run to their timeouts.
func (c *Config) MinLockTTL() time.Duration {
	perCall := c.Chain.RequestTimeout
	if perCall <= 0 {
		perCall = defaultChainTimeout
	}
	return withdrawChainCalls*perCall + ledgerWriteAllowance + lockTTLMargin
}

// Validate rejects settings that would weaken key protection or cannot work.
func (c *Config) Validate() error {
	switch c.KDF.Algorithm {
	case "pbkdf2":
		if c.KDF.Iterations < 100000 {
			return fmt.Errorf("kdf.iterations must be at least 100000, got %d", c.KDF.Iterations)
		}
	case "argon2id":
	default:
		return fmt.Errorf("unsupported kdf.algorithm %q", c.KDF.Algorithm)
	}

	switch c.Lock.Backend {
	case "memory":
	case "redis":
		if c.Lock.TTL <= 0 {
			return fmt.Errorf("lock.ttl must be positive for the redis lock backend, got %s", c.Lock.TTL)
		}
		if need := c.MinLockTTL(); c.Lock.TTL < need {
			return fmt.Errorf("lock.ttl %s is shorter than a worst-case withdrawal, need at least %s", c.Lock.TTL, need)
		}
	default:
		return fmt.Errorf("unsupported lock.backend %q", c.Lock.Backend)
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case "redis", "memory":
		default:
			return fmt.Errorf("unsupported ratelimit.backend %q", c.RateLimit.Backend)
		}
	}

	if c.Chain.GasLimit < 21000 {
		return fmt.Errorf("chain.gas_limit must be at least 21000, got %d", c.Chain.GasLimit)
	}
	return nil
}
