package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/reimagine")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUTH_JWT_SECRET", "jwt-secret")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("IDENTITY_WEBHOOK_SECRET", "id-secret")
	t.Setenv("CHECKOUT_WEBHOOK_SECRET", "co-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AppEnv != "development" {
		t.Errorf("AppEnv = %q, want development", cfg.AppEnv)
	}
	if cfg.AppPort != 8080 {
		t.Errorf("AppPort = %d, want 8080", cfg.AppPort)
	}
	if cfg.GeminiModel != "gemini-2.5-flash-image-preview" {
		t.Errorf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.ProviderTimeout != 300*time.Second {
		t.Errorf("ProviderTimeout = %s, want 300s", cfg.ProviderTimeout)
	}
	if cfg.SignupCredits != 10 {
		t.Errorf("SignupCredits = %d, want 10", cfg.SignupCredits)
	}
	if cfg.WriteTimeout != 320*time.Second {
		t.Errorf("WriteTimeout = %s, want 320s", cfg.WriteTimeout)
	}
	if cfg.MaxInstructionLength != 2000 {
		t.Errorf("MaxInstructionLength = %d, want 2000", cfg.MaxInstructionLength)
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when GEMINI_API_KEY is missing")
	}
}

func TestLoad_WriteTimeoutMustExceedProviderTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PROVIDER_TIMEOUT", "300s")
	t.Setenv("WRITE_TIMEOUT", "300s")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when WRITE_TIMEOUT <= PROVIDER_TIMEOUT")
	}
	if !strings.Contains(err.Error(), "WRITE_TIMEOUT") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_NegativeSignupCredits(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SIGNUP_CREDITS", "-1")

	if _, err := Load(); err == nil {
		t.Error("expected error for negative SIGNUP_CREDITS")
	}
}

func TestGetCORSAllowedOrigins(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "https://reimaginephotos.app", []string{"https://reimaginephotos.app"}},
		{"multiple with spaces", "https://a.example, https://b.example ,", []string{"https://a.example", "https://b.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{CORSAllowedOrigins: tt.raw}
			got := cfg.GetCORSAllowedOrigins()
			if len(got) != len(tt.want) {
				t.Fatalf("origins = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("origins[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
