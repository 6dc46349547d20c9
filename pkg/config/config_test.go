package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv unsets every LINKEDINBOT_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, EnvPrefix) {
			t.Setenv(name, "")
			if err := os.Unsetenv(name); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := NewLoader(WithDotEnv()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
mode: company
format: yaml
jobs: false
timeout: 30s
cache:
  ttl: 1h
  dir: /tmp/li-cache
`)
	t.Setenv("LINKEDINBOT_FORMAT", "json")
	t.Setenv("LINKEDINBOT_CACHE_ENABLED", "false")

	cfg, err := NewLoader(WithConfigFile(path), WithDotEnv()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Mode = "company"
	want.Format = "json"
	want.Jobs = false
	want.Timeout = 30 * time.Second
	want.Cache = Cache{Enabled: false, TTL: time.Hour, Dir: "/tmp/li-cache"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	dotenv := writeFile(t, dir, ".env", "LINKEDINBOT_TOKEN=from-dotenv\nLINKEDINBOT_MODE=in\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("LINKEDINBOT_TOKEN") //nolint:errcheck // test cleanup
		_ = os.Unsetenv("LINKEDINBOT_MODE")  //nolint:errcheck // test cleanup
	})

	cfg, err := NewLoader(WithDotEnv(dotenv)).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "from-dotenv" {
		t.Errorf("Token = %q, want from-dotenv", cfg.Token)
	}
	if cfg.Mode != "in" {
		t.Errorf("Mode = %q, want in", cfg.Mode)
	}
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	dotenv := writeFile(t, dir, ".env", "LINKEDINBOT_FORMAT=yaml\n")
	t.Setenv("LINKEDINBOT_FORMAT", "json")

	cfg, err := NewLoader(WithDotEnv(dotenv)).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := NewLoader(WithConfigFile(missing), WithDotEnv()).Load(); err == nil {
		t.Error("required missing file should fail")
	}
	if _, err := NewLoader(WithOptionalConfigFile(missing), WithDotEnv()).Load(); err != nil {
		t.Errorf("optional missing file: %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"mode", map[string]string{"LINKEDINBOT_MODE": "group"}, "unsupported mode"},
		{"format", map[string]string{"LINKEDINBOT_FORMAT": "xml"}, "unknown output format"},
		{"timeout", map[string]string{"LINKEDINBOT_TIMEOUT": "0s"}, "timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewLoader(WithDotEnv()).Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	if p := DefaultPath(); p != "" && filepath.Base(p) != "config.yaml" {
		t.Errorf("DefaultPath() = %q", p)
	}
}
