package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestLoad_InterviewDefaults(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/intervia_test")
	os.Setenv("REDIS_URL", "redis://localhost:6379")
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("GEMINI_API_KEY", "test-key")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("GEMINI_API_KEY")
	}()

	cfg := Load()

	if cfg.InterviewDuration != 45*time.Minute {
		t.Errorf("Expected 45m default duration, got %v", cfg.InterviewDuration)
	}
	if cfg.MaxQuestions != 18 {
		t.Errorf("Expected 18 max questions, got %d", cfg.MaxQuestions)
	}
	if cfg.DefaultPoolSize != 9 {
		t.Errorf("Expected pool size 9, got %d", cfg.DefaultPoolSize)
	}
	if cfg.CritiqueWorkerCount != 3 {
		t.Errorf("Expected 3 critique workers, got %d", cfg.CritiqueWorkerCount)
	}
}

func TestLoad_InterviewOverrides(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/intervia_test")
	os.Setenv("REDIS_URL", "redis://localhost:6379")
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("GEMINI_API_KEY", "test-key")
	os.Setenv("INTERVIEW_DURATION_MINUTES", "30")
	os.Setenv("INTERVIEW_MAX_QUESTIONS", "10")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("GEMINI_API_KEY")
		os.Unsetenv("INTERVIEW_DURATION_MINUTES")
		os.Unsetenv("INTERVIEW_MAX_QUESTIONS")
	}()

	cfg := Load()

	if cfg.InterviewDuration != 30*time.Minute {
		t.Errorf("Expected 30m duration, got %v", cfg.InterviewDuration)
	}
	if cfg.MaxQuestions != 10 {
		t.Errorf("Expected 10 max questions, got %d", cfg.MaxQuestions)
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("TEST_REQUIRED", "value123")
	defer os.Unsetenv("TEST_REQUIRED")

	result := mustGetEnv("TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}
