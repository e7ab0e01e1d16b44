package internal

import (
	"strings"
	"testing"
	"time"
)

func validAuth() AuthConfig {
	return AuthConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

func TestAuthConfig_Valid(t *testing.T) {
	cfg := validAuth()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid auth config should pass: %v", err)
	}
}

func TestAuthConfig_MissingSecret(t *testing.T) {
	cfg := validAuth()
	cfg.Secret = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty secret should fail validation")
	}
}

func TestAuthConfig_ShortSecret(t *testing.T) {
	cfg := validAuth()
	cfg.Secret = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatal("short secret should fail validation")
	}
}

func TestAuthConfig_NonPositiveAccessTTL(t *testing.T) {
	cfg := validAuth()
	cfg.AccessTTL = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("zero access_ttl should fail validation")
	}
	if !strings.Contains(err.Error(), "access_ttl") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_RefreshNotLongerThanAccess(t *testing.T) {
	cfg := validAuth()
	cfg.RefreshTTL = cfg.AccessTTL
	err := cfg.Validate()
	if err == nil {
		t.Fatal("refresh_ttl equal to access_ttl should fail validation")
	}
	if !strings.Contains(err.Error(), "refresh_ttl") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHTTPConfig_PortBounds(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
	cfg := HTTPConfig{Port: 8080}
	if err := cfg.Validate(); err != nil {
		t.Errorf("port 8080 should pass: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	// Defaults deliberately omit the secret.
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without secret should fail validation")
	}
	cfg.Auth.Secret = validAuth().Secret
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config with secret should pass: %v", err)
	}
}
