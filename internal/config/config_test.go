package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Kind != BackendLocal {
		t.Fatalf("expected default backend local, got %q", cfg.Backend.Kind)
	}
	if cfg.AgentIntervalSeconds != DefaultAgentIntervalSeconds {
		t.Fatalf("expected default interval, got %d", cfg.AgentIntervalSeconds)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Backend = BackendConfig{Kind: BackendS3}
	cfg.Backend.S3.Bucket = "my-bucket"
	cfg.Backend.S3.Region = "us-east-1"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Backend.Kind != BackendS3 || got.Backend.S3.Bucket != "my-bucket" || got.Backend.S3.Region != "us-east-1" {
		t.Fatalf("got %+v", got.Backend)
	}
}

func TestOpenBackendLocal(t *testing.T) {
	cfg := Default()
	b, err := cfg.OpenBackend(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	if b == nil {
		t.Fatalf("expected a non-nil backend")
	}
}

func TestOpenBackendRejectsUnknownKind(t *testing.T) {
	cfg := Default()
	cfg.Backend.Kind = "carrier-pigeon"
	if _, err := cfg.OpenBackend(t.TempDir()); err == nil {
		t.Fatalf("expected an error for an unknown backend kind")
	}
}
