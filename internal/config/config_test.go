package config

import (
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	t.Setenv(key, "")
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	t.Setenv(key, "8080")
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestLoadReadsPortsAndSecrets(t *testing.T) {
	t.Setenv("APP_PORT", "1234")
	t.Setenv("RESEND_API_KEY", "re_test")
	t.Setenv("CRON_SECRET", "")
	t.Setenv("NEWSLETTER_CRON_SECRET", "fallback")
	t.Setenv("POSTGRES_DSN", "")

	cfg := Load()
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if !cfg.EmailConfigured() {
		t.Fatalf("EmailConfigured() = false with RESEND_API_KEY set")
	}
	if cfg.CronSecret != "fallback" {
		t.Fatalf("CronSecret = %q, want NEWSLETTER_CRON_SECRET fallback", cfg.CronSecret)
	}
	if cfg.DatabaseConfigured() {
		t.Fatalf("DatabaseConfigured() = true without POSTGRES_DSN")
	}
}

func TestGetDurationAndBool(t *testing.T) {
	t.Setenv("TEST_TTL", "90s")
	if got := getDuration("TEST_TTL", time.Minute); got != 90*time.Second {
		t.Fatalf("getDuration = %v, want 90s", got)
	}

	// 非法值回退默认
	t.Setenv("TEST_TTL", "soon")
	if got := getDuration("TEST_TTL", time.Minute); got != time.Minute {
		t.Fatalf("getDuration with bad value = %v, want 1m", got)
	}

	t.Setenv("TEST_FLAG", "true")
	if !getBool("TEST_FLAG", false) {
		t.Fatalf("getBool(TEST_FLAG) = false, want true")
	}
	t.Setenv("TEST_FLAG", "maybe")
	if getBool("TEST_FLAG", false) {
		t.Fatalf("getBool with bad value should fall back to default")
	}
}
