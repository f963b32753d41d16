package config

import (
	"strings"
	"testing"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"empty", "", ""},
		{"short fully masked", "pass", maskedValue},
		{"eight chars fully masked", "12345678", maskedValue},
		{"long keeps edges", "my_long_secret_key_123", "my<" + maskedValue + ">23"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.secret); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestConfig_MarshalJSON_MasksPassword(t *testing.T) {
	cfg := Config{PostgresPassword: "super_secret_password"}
	data, err := cfg.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if strings.Contains(string(data), "super_secret_password") {
		t.Error("MarshalJSON leaked the PostgreSQL password")
	}
}

func TestConfig_String_MasksPassword(t *testing.T) {
	cfg := Config{PostgresPassword: "super_secret_password"}
	if strings.Contains(cfg.String(), "super_secret_password") {
		t.Error("String() leaked the PostgreSQL password")
	}
}

func TestConfig_FullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"gemini qualifies as googleai", ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"googleai", ProviderGoogleAI, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"openai", ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{"already qualified", ProviderGemini, "mock/test-model", "mock/test-model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}
