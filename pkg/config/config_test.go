package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != "memory" {
		t.Fatalf("default storage driver = %q", cfg.StorageDriver)
	}
	if cfg.TokenTTL != 0 {
		t.Fatalf("default token ttl = %v, want 0", cfg.TokenTTL)
	}
	if cfg.JWTSecret == "" {
		t.Fatal("development must get a fallback secret")
	}
}

func TestLoadRejectsBadDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "cassandra")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
