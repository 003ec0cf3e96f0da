package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Store       string `env:"FORMFLOW_STORE" envDefault:"memory"` // memory, postgres or sqlite
	DatabaseURL string `env:"FORMFLOW_DATABASE_URL"`              // required for postgres
	SQLitePath  string `env:"FORMFLOW_SQLITE_PATH" envDefault:"formflow.db"`
	GRPCAddr    string `env:"FORMFLOW_GRPC_ADDR" envDefault:":9090"`
	HTTPAddr    string `env:"FORMFLOW_HTTP_ADDR" envDefault:":8080"`
	NATSURL     string `env:"FORMFLOW_NATS_URL"` // optional, empty = no bus

	// AuthTokens maps bearer tokens to caller ids: "tok1=alice,tok2=bob".
	// Empty trusts the X-Caller-Id header set by an upstream proxy.
	AuthTokens map[string]string `env:"FORMFLOW_AUTH_TOKENS" envSeparator:"," envKeyValSeparator:"="`

	// Gateway settings
	PendingRetention time.Duration `env:"FORMFLOW_PENDING_RETENTION" envDefault:"5m"`
	SweepInterval    time.Duration `env:"FORMFLOW_SWEEP_INTERVAL" envDefault:"1m"` // 0 = sweep on broadcast only
	OutboundBuffer   int           `env:"FORMFLOW_OUTBOUND_BUFFER" envDefault:"64"`

	// Sync settings
	SyncInterval   time.Duration `env:"FORMFLOW_SYNC_INTERVAL" envDefault:"3m"` // 0 = disabled
	SyncS3Bucket   string        `env:"FORMFLOW_SYNC_S3_BUCKET"`                // enables S3 when set
	SyncS3Endpoint string        `env:"FORMFLOW_SYNC_S3_ENDPOINT"`              // custom endpoint for MinIO
	SyncS3Region   string        `env:"FORMFLOW_SYNC_S3_REGION" envDefault:"us-east-1"`
	SyncS3Key      string        `env:"FORMFLOW_SYNC_S3_KEY" envDefault:"formflow/forms.jsonl"`
	SyncS3History  bool          `env:"FORMFLOW_SYNC_S3_HISTORY"` // also keep timestamped copies
}

func Load() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("FORMFLOW_DATABASE_URL is required when FORMFLOW_STORE=postgres")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("FORMFLOW_SQLITE_PATH is required when FORMFLOW_STORE=sqlite")
		}
	default:
		return fmt.Errorf("FORMFLOW_STORE: unknown store %q", c.Store)
	}
	if c.PendingRetention <= 0 {
		return fmt.Errorf("FORMFLOW_PENDING_RETENTION must be positive")
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("FORMFLOW_SWEEP_INTERVAL must not be negative")
	}
	if c.OutboundBuffer <= 0 {
		return fmt.Errorf("FORMFLOW_OUTBOUND_BUFFER must be positive")
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("FORMFLOW_SYNC_INTERVAL must not be negative")
	}
	for token, caller := range c.AuthTokens {
		if token == "" || caller == "" {
			return fmt.Errorf("FORMFLOW_AUTH_TOKENS: entries must be token=caller")
		}
	}
	return nil
}
