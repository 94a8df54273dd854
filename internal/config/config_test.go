package config

import (
	"os"
	"testing"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setEnv(t, "DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, "DATABASE_URL", "postgres://localhost/hms")
	setEnv(t, "PORT", "")
	setEnv(t, "ENV", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("default port = %q, want 8000", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("default env should be development")
	}
	if cfg.ChatModel == "" {
		t.Error("default chat model should be set")
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("default pool sizes = %d/%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
}

func TestValidateProductionNeedsAuth(t *testing.T) {
	cfg := &Config{Env: "production", ChatGatewayKey: "sk-test"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error: production without auth config")
	}

	cfg.JWTSigningKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with signing key set: %v", err)
	}
}

func TestValidateProductionNeedsGatewayKey(t *testing.T) {
	cfg := &Config{Env: "production", JWTSigningKey: "secret"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error: production without chat gateway key")
	}
}

func TestValidateDevPermissive(t *testing.T) {
	cfg := &Config{Env: "development"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("development config should validate: %v", err)
	}
}
