package config

import (
	"strings"
	"testing"
	"time"
)

// envVars lists every variable Load reads; each test starts with them cleared.
var envVars = []string{
	"FORMFLOW_STORE", "FORMFLOW_DATABASE_URL", "FORMFLOW_SQLITE_PATH",
	"FORMFLOW_GRPC_ADDR", "FORMFLOW_HTTP_ADDR", "FORMFLOW_NATS_URL",
	"FORMFLOW_AUTH_TOKENS", "FORMFLOW_PENDING_RETENTION", "FORMFLOW_SWEEP_INTERVAL",
	"FORMFLOW_OUTBOUND_BUFFER", "FORMFLOW_SYNC_INTERVAL", "FORMFLOW_SYNC_S3_BUCKET",
	"FORMFLOW_SYNC_S3_ENDPOINT", "FORMFLOW_SYNC_S3_REGION", "FORMFLOW_SYNC_S3_KEY", "FORMFLOW_SYNC_S3_HISTORY",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("Store = %q, want %q", cfg.Store, StoreMemory)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q", cfg.GRPCAddr)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.PendingRetention != 5*time.Minute {
		t.Errorf("PendingRetention = %v, want 5m", cfg.PendingRetention)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", cfg.SweepInterval)
	}
	if cfg.OutboundBuffer != 64 {
		t.Errorf("OutboundBuffer = %d, want 64", cfg.OutboundBuffer)
	}
	if cfg.SyncInterval != 3*time.Minute {
		t.Errorf("SyncInterval = %v, want 3m", cfg.SyncInterval)
	}
	if cfg.SyncS3Region != "us-east-1" {
		t.Errorf("SyncS3Region = %q", cfg.SyncS3Region)
	}
	if cfg.SyncS3Key != "formflow/forms.jsonl" {
		t.Errorf("SyncS3Key = %q", cfg.SyncS3Key)
	}
	if len(cfg.AuthTokens) != 0 {
		t.Errorf("AuthTokens = %v, want empty", cfg.AuthTokens)
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "PostgresRequiresURL",
			env:     map[string]string{"FORMFLOW_STORE": "postgres"},
			wantErr: "FORMFLOW_DATABASE_URL",
		},
		{
			name: "Postgres",
			env: map[string]string{
				"FORMFLOW_STORE":        "postgres",
				"FORMFLOW_DATABASE_URL": "postgres://db:5432/formflow",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.DatabaseURL != "postgres://db:5432/formflow" {
					t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
				}
			},
		},
		{
			name: "SQLite",
			env:  map[string]string{"FORMFLOW_STORE": "sqlite", "FORMFLOW_SQLITE_PATH": "/var/lib/formflow.db"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.SQLitePath != "/var/lib/formflow.db" {
					t.Errorf("SQLitePath = %q", cfg.SQLitePath)
				}
			},
		},
		{
			name:    "UnknownStore",
			env:     map[string]string{"FORMFLOW_STORE": "mongo"},
			wantErr: "FORMFLOW_STORE",
		},
		{
			name: "CustomAddresses",
			env: map[string]string{
				"FORMFLOW_GRPC_ADDR": ":5050",
				"FORMFLOW_HTTP_ADDR": ":3000",
				"FORMFLOW_NATS_URL":  "nats://localhost:4222",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.GRPCAddr != ":5050" || cfg.HTTPAddr != ":3000" || cfg.NATSURL != "nats://localhost:4222" {
					t.Errorf("unexpected addresses: %+v", cfg)
				}
			},
		},
		{
			name: "AuthTokens",
			env:  map[string]string{"FORMFLOW_AUTH_TOKENS": "tok-a=alice,tok-b=bob"},
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.AuthTokens) != 2 || cfg.AuthTokens["tok-a"] != "alice" || cfg.AuthTokens["tok-b"] != "bob" {
					t.Errorf("AuthTokens = %v", cfg.AuthTokens)
				}
			},
		},
		{
			name: "Gateway",
			env: map[string]string{
				"FORMFLOW_PENDING_RETENTION": "90s",
				"FORMFLOW_SWEEP_INTERVAL":    "0s",
				"FORMFLOW_OUTBOUND_BUFFER":   "8",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.PendingRetention != 90*time.Second || cfg.SweepInterval != 0 || cfg.OutboundBuffer != 8 {
					t.Errorf("unexpected gateway settings: %+v", cfg)
				}
			},
		},
		{
			name:    "InvalidRetention",
			env:     map[string]string{"FORMFLOW_PENDING_RETENTION": "not-a-duration"},
			wantErr: "parse env",
		},
		{
			name:    "NegativeSweep",
			env:     map[string]string{"FORMFLOW_SWEEP_INTERVAL": "-1s"},
			wantErr: "FORMFLOW_SWEEP_INTERVAL",
		},
		{
			name:    "ZeroBuffer",
			env:     map[string]string{"FORMFLOW_OUTBOUND_BUFFER": "0"},
			wantErr: "FORMFLOW_OUTBOUND_BUFFER",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error %q does not mention %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.check(t, cfg)
		})
	}
}

func TestLoadSyncCustom(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("FORMFLOW_SYNC_INTERVAL", "10m")
	t.Setenv("FORMFLOW_SYNC_S3_BUCKET", "my-bucket")
	t.Setenv("FORMFLOW_SYNC_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("FORMFLOW_SYNC_S3_REGION", "eu-west-1")
	t.Setenv("FORMFLOW_SYNC_S3_KEY", "custom/key.jsonl")
	t.Setenv("FORMFLOW_SYNC_S3_HISTORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 10*time.Minute {
		t.Errorf("SyncInterval = %v, want 10m", cfg.SyncInterval)
	}
	if !cfg.SyncS3History {
		t.Error("SyncS3History = false, want true")
	}
	if cfg.SyncS3Bucket != "my-bucket" {
		t.Errorf("SyncS3Bucket = %q", cfg.SyncS3Bucket)
	}
	if cfg.SyncS3Endpoint != "http://minio:9000" {
		t.Errorf("SyncS3Endpoint = %q", cfg.SyncS3Endpoint)
	}
	if cfg.SyncS3Region != "eu-west-1" {
		t.Errorf("SyncS3Region = %q", cfg.SyncS3Region)
	}
	if cfg.SyncS3Key != "custom/key.jsonl" {
		t.Errorf("SyncS3Key = %q", cfg.SyncS3Key)
	}
}

func TestLoadSyncDisabled(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("FORMFLOW_SYNC_INTERVAL", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 0 {
		t.Errorf("SyncInterval = %v, want 0 (disabled)", cfg.SyncInterval)
	}
}
