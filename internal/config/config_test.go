package config_test

import (
	"testing"
	"time"

	"github.com/abaye123/yemot-router2/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "YEMOT_READ_TIMEOUT", "YEMOT_PRINT_LOG", "MONITOR_ENABLED",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CALLSTORE_KEY_PREFIX", "CALLSTORE_TTL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Yemot.ReadTimeout != 0 {
		t.Fatalf("ReadTimeout = %s, want 0", cfg.Yemot.ReadTimeout)
	}
	if cfg.Yemot.PrintLog {
		t.Fatal("PrintLog should default to false")
	}
	if !cfg.Monitor.Enabled {
		t.Fatal("monitor should default to enabled")
	}
	if cfg.Store.RedisAddr != "" {
		t.Fatalf("RedisAddr = %q, want empty", cfg.Store.RedisAddr)
	}
	if cfg.Store.TTL != time.Hour {
		t.Fatalf("TTL = %s, want 1h", cfg.Store.TTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("YEMOT_READ_TIMEOUT", "45s")
	t.Setenv("YEMOT_PRINT_LOG", "true")
	t.Setenv("MONITOR_ENABLED", "false")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CALLSTORE_TTL", "10m")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Yemot.ReadTimeout != 45*time.Second {
		t.Fatalf("ReadTimeout = %s", cfg.Yemot.ReadTimeout)
	}
	if !cfg.Yemot.PrintLog {
		t.Fatal("PrintLog override lost")
	}
	if cfg.Monitor.Enabled {
		t.Fatal("monitor override lost")
	}
	if cfg.Store.RedisAddr != "localhost:6379" || cfg.Store.RedisDB != 3 {
		t.Fatalf("store config = %+v", cfg.Store)
	}
	if cfg.Store.TTL != 10*time.Minute {
		t.Fatalf("TTL = %s", cfg.Store.TTL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"YEMOT_READ_TIMEOUT": "-5s",
		"YEMOT_PRINT_LOG":    "maybe",
		"REDIS_DB":           "three",
		"CALLSTORE_TTL":      "soon",
		"PORT":               "80 80",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
