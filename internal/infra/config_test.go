package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.StorageDriver != "filesystem" {
		t.Fatalf("StorageDriver mismatch: got %q", cfg.StorageDriver)
	}
	if cfg.DailyCap != 20 {
		t.Fatalf("DailyCap mismatch: got %d want 20", cfg.DailyCap)
	}
	if cfg.MaxUploadBytes != 4<<20 {
		t.Fatalf("MaxUploadBytes mismatch: got %d", cfg.MaxUploadBytes)
	}
	if cfg.GenerateTimeout != 60*time.Second {
		t.Fatalf("GenerateTimeout mismatch: got %v", cfg.GenerateTimeout)
	}
	if cfg.SignedURLTTL != time.Hour {
		t.Fatalf("SignedURLTTL mismatch: got %v", cfg.SignedURLTTL)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoadConfigRejectsUnknownStorageDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_DRIVER", "gcs")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestLoadConfigS3RequiresCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("S3_ACCESS_KEY_ID", "")
	t.Setenv("S3_SECRET_ACCESS_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for s3 driver without credentials")
	}

	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageDriver != "s3" {
		t.Fatalf("StorageDriver mismatch: got %q", cfg.StorageDriver)
	}
}

func TestLoadConfigWriteTimeoutMustCoverGeneration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GENERATE_TIMEOUT_SECONDS", "120")
	t.Setenv("HTTP_WRITE_TIMEOUT_SECONDS", "90")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when write timeout does not cover generation timeout")
	}
}
