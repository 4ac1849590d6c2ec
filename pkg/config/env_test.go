package config

import (
	"os"
	"testing"
)

func withEnvironment(t *testing.T, value string) {
	t.Helper()
	original := os.Getenv("PHARMPOS_SERVER_ENVIRONMENT")
	t.Cleanup(func() {
		if original != "" {
			os.Setenv("PHARMPOS_SERVER_ENVIRONMENT", original)
		} else {
			os.Unsetenv("PHARMPOS_SERVER_ENVIRONMENT")
		}
	})
	if value != "" {
		os.Setenv("PHARMPOS_SERVER_ENVIRONMENT", value)
	} else {
		os.Unsetenv("PHARMPOS_SERVER_ENVIRONMENT")
	}
}

func TestGetEnv(t *testing.T) {
	// Test with existing env var
	os.Setenv("TEST_GET_ENV_VAR", "test_value")
	defer os.Unsetenv("TEST_GET_ENV_VAR")

	got := GetEnv("TEST_GET_ENV_VAR", "default")
	if got != "test_value" {
		t.Errorf("GetEnv() = %v, want %v", got, "test_value")
	}

	// Test with non-existing env var
	got = GetEnv("NON_EXISTING_VAR", "default_value")
	if got != "default_value" {
		t.Errorf("GetEnv() = %v, want %v", got, "default_value")
	}
}

func TestRequireEnv(t *testing.T) {
	// Test with existing env var
	os.Setenv("TEST_REQUIRE_ENV_VAR", "required_value")
	defer os.Unsetenv("TEST_REQUIRE_ENV_VAR")

	got := RequireEnv("TEST_REQUIRE_ENV_VAR")
	if got != "required_value" {
		t.Errorf("RequireEnv() = %v, want %v", got, "required_value")
	}

	// Test panic with non-existing env var
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("RequireEnv() should panic for missing env var")
		}
	}()
	RequireEnv("DEFINITELY_NON_EXISTING_VAR_12345")
}

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		envValue string
		want     string
	}{
		{"development", "development"},
		{"DEVELOPMENT", "development"},
		{"staging", "staging"},
		{"STAGING", "staging"},
		{"production", "production"},
		{"PRODUCTION", "production"},
		{"", "development"}, // default
	}

	for _, tt := range tests {
		withEnvironment(t, tt.envValue)

		got := GetEnvironment()
		if got != tt.want {
			t.Errorf("GetEnvironment() with %q = %v, want %v", tt.envValue, got, tt.want)
		}
	}
}

func TestIsDevelopment(t *testing.T) {
	withEnvironment(t, "development")
	if !IsDevelopment() {
		t.Error("IsDevelopment() should return true for development environment")
	}

	withEnvironment(t, "production")
	if IsDevelopment() {
		t.Error("IsDevelopment() should return false for production environment")
	}
}

func TestIsProduction(t *testing.T) {
	withEnvironment(t, "production")
	if !IsProduction() {
		t.Error("IsProduction() should return true for production environment")
	}

	withEnvironment(t, "development")
	if IsProduction() {
		t.Error("IsProduction() should return false for development environment")
	}
}

func TestIsStaging(t *testing.T) {
	withEnvironment(t, "staging")
	if !IsStaging() {
		t.Error("IsStaging() should return true for staging environment")
	}

	withEnvironment(t, "production")
	if IsStaging() {
		t.Error("IsStaging() should return false for production environment")
	}
}

func TestIsProductionLike(t *testing.T) {
	withEnvironment(t, "production")
	if !IsProductionLike() {
		t.Error("IsProductionLike() should return true for production")
	}

	withEnvironment(t, "staging")
	if !IsProductionLike() {
		t.Error("IsProductionLike() should return true for staging")
	}

	withEnvironment(t, "development")
	if IsProductionLike() {
		t.Error("IsProductionLike() should return false for development")
	}
}
