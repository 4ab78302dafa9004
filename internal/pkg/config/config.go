package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port         string `env:"PORT,          default=8080"`
	Env          string `env:"ENV,           default=development"`
	DefaultImage string `env:"DEFAULT_IMAGE, default=/images/default-pfp.png"`

	Log    LogConfig
	Store  StoreConfig
	Mongo  MongoConfig
	SQL    SQLConfig
	Redis  RedisConfig
	Blob   BlobConfig
	Avatar AvatarConfig
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL,       default=info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB, default=100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS, default=3"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS, default=28"`
}

type StoreConfig struct {
	// Driver selects the user store: mongo, sqlite or postgres.
	Driver string `env:"STORE_DRIVER, default=mongo"`
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,            default=member_portal"`
	MaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE, default=50"`
}

type SQLConfig struct {
	DSN string `env:"SQL_DSN, default=file:portal.db?_pragma=foreign_keys(1)"`
}

type RedisConfig struct {
	// Addr is optional; an empty address disables the identity cache.
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,           default=0"`
	CacheTTL time.Duration `env:"IDENTITY_CACHE_TTL, default=30s"`
}

type BlobConfig struct {
	// Driver selects the avatar store: minio or memory.
	Driver    string `env:"BLOB_DRIVER,     default=minio"`
	Endpoint  string `env:"BLOB_ENDPOINT,   default=localhost:9000"`
	AccessKey string `env:"BLOB_ACCESS_KEY, default=minioadmin"`
	SecretKey string `env:"BLOB_SECRET_KEY, default=minioadmin"`
	Bucket    string `env:"BLOB_BUCKET,     default=avatars"`
	Region    string `env:"BLOB_REGION"`
	UseSSL    bool   `env:"BLOB_USE_SSL,    default=false"`
	PublicURL string `env:"BLOB_PUBLIC_URL"`
}

type AvatarConfig struct {
	MaxBytes       int64         `env:"AVATAR_MAX_BYTES,       default=5242880"`
	KeyPrefix      string        `env:"AVATAR_KEY_PREFIX"`
	JanitorWorkers int           `env:"AVATAR_JANITOR_WORKERS, default=2"`
	JanitorRetries int           `env:"AVATAR_JANITOR_RETRIES, default=5"`
	JanitorDelay   time.Duration `env:"AVATAR_JANITOR_DELAY,   default=2s"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks the settings envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "mongo", "sqlite", "postgres":
	default:
		return fmt.Errorf("STORE_DRIVER must be one of mongo, sqlite, postgres (got %q)", c.Store.Driver)
	}
	switch c.Blob.Driver {
	case "minio", "memory":
	default:
		return fmt.Errorf("BLOB_DRIVER must be one of minio, memory (got %q)", c.Blob.Driver)
	}
	if c.Avatar.MaxBytes <= 0 {
		return fmt.Errorf("AVATAR_MAX_BYTES must be positive")
	}
	return nil
}

// LoadWith reads configuration through the given lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}
