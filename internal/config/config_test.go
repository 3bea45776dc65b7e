package config

import (
	"strings"
	"testing"
)

func TestLoadRequiresHealthieKey(t *testing.T) {
	t.Setenv("HEALTHIE_API_KEY", "")
	t.Setenv("AUTHORIZER_ADMIN_SECRET", "secret")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing HEALTHIE_API_KEY")
	}
	if !strings.Contains(err.Error(), "HEALTHIE_API_KEY") {
		t.Errorf("error should name the missing variable, got %q", err)
	}
}

func TestLoadRequiresAuthorizerSecret(t *testing.T) {
	t.Setenv("HEALTHIE_API_KEY", "key")
	t.Setenv("AUTHORIZER_ADMIN_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing AUTHORIZER_ADMIN_SECRET")
	}
	if !strings.Contains(err.Error(), "AUTHORIZER_ADMIN_SECRET") {
		t.Errorf("error should name the missing variable, got %q", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HEALTHIE_API_KEY", "key")
	t.Setenv("AUTHORIZER_ADMIN_SECRET", "secret")
	t.Setenv("HEALTHIE_API_URL", "")
	t.Setenv("AUTHORIZER_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HealthieURL != defaultHealthieURL {
		t.Errorf("expected default healthie URL, got %q", cfg.HealthieURL)
	}
	if cfg.Port != "8081" {
		t.Errorf("expected default port 8081, got %q", cfg.Port)
	}
	if cfg.AllowedOrigins != nil {
		t.Errorf("expected no allowed origins, got %v", cfg.AllowedOrigins)
	}
}

func TestLoadOrigins(t *testing.T) {
	t.Setenv("HEALTHIE_API_KEY", "key")
	t.Setenv("AUTHORIZER_ADMIN_SECRET", "secret")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://intake.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[1] != "https://intake.example.com" {
		t.Errorf("origin not trimmed: %q", cfg.AllowedOrigins[1])
	}
}
