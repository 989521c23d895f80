package configparser

import (
	"testing"
	"time"
)

type testConfig struct {
	Inner struct {
		Port    string        `env:"TESTCFG_PORT" default:"3002"`
		Retries int           `env:"TESTCFG_RETRIES" default:"3"`
		Timeout time.Duration `env:"TESTCFG_TIMEOUT" default:"10s"`
		Debug   bool          `env:"TESTCFG_DEBUG" default:"false"`
		Ratio   float64       `env:"TESTCFG_RATIO" default:"0.5"`
	}
}

func TestParseEnv_Defaults(t *testing.T) {
	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Inner.Port != "3002" {
		t.Fatalf("expected default port, got %q", cfg.Inner.Port)
	}
	if cfg.Inner.Retries != 3 {
		t.Fatalf("expected default retries 3, got %d", cfg.Inner.Retries)
	}
	if cfg.Inner.Timeout != 10*time.Second {
		t.Fatalf("expected default timeout 10s, got %v", cfg.Inner.Timeout)
	}
	if cfg.Inner.Ratio != 0.5 {
		t.Fatalf("expected default ratio 0.5, got %v", cfg.Inner.Ratio)
	}
}

func TestParseEnv_EnvOverridesDefault(t *testing.T) {
	t.Setenv("TESTCFG_PORT", "9999")
	t.Setenv("TESTCFG_DEBUG", "true")
	t.Setenv("TESTCFG_TIMEOUT", "250ms")

	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Inner.Port != "9999" {
		t.Fatalf("expected env override, got %q", cfg.Inner.Port)
	}
	if !cfg.Inner.Debug {
		t.Fatalf("expected debug true")
	}
	if cfg.Inner.Timeout != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", cfg.Inner.Timeout)
	}
}

func TestParseEnv_RejectsNonPointer(t *testing.T) {
	var cfg testConfig
	if err := ParseEnv(cfg); err == nil {
		t.Fatalf("expected error for non-pointer argument")
	}
}

func TestParseEnv_BadValue(t *testing.T) {
	t.Setenv("TESTCFG_RETRIES", "many")

	var cfg testConfig
	if err := ParseEnv(&cfg); err == nil {
		t.Fatalf("expected parse error for non-numeric retries")
	}
}
