package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SHOPADMIN_CONFIG", "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.API.BaseURL != DefaultAPIBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.API.BaseURL, DefaultAPIBaseURL)
	}
	if want := filepath.Join(home, ".shopadmin", "credentials.json"); c.Session.Path != want {
		t.Errorf("Session.Path = %q, want %q", c.Session.Path, want)
	}
	if c.UI.Debounce != 350*time.Millisecond {
		t.Errorf("Debounce = %v, want 350ms", c.UI.Debounce)
	}
	if c.UI.PageSize != 10 {
		t.Errorf("PageSize = %d, want 10", c.UI.PageSize)
	}
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `
api:
  base_url: http://localhost:9999
  timeout: 5s
session:
  storage: sqlite
ui:
  page_size: 25
  debounce: 400ms
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.API.BaseURL != "http://localhost:9999" {
		t.Errorf("BaseURL = %q", c.API.BaseURL)
	}
	if c.API.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", c.API.Timeout)
	}
	if c.Session.Storage != StorageSQLite {
		t.Errorf("Storage = %q, want sqlite", c.Session.Storage)
	}
	if c.UI.PageSize != 25 || c.UI.Debounce != 400*time.Millisecond {
		t.Errorf("UI = %+v", c.UI)
	}
	// Unset keys keep their defaults.
	if c.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", c.Server.Addr)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("SHOPADMIN_API_BASE_URL", "http://env.example")
	t.Setenv("SHOPADMIN_LOG_LEVEL", "debug")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.API.BaseURL != "http://env.example" {
		t.Errorf("BaseURL = %q, want env override", c.API.BaseURL)
	}
	if c.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", c.Log.Level)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_InvalidStorage(t *testing.T) {
	isolate(t)
	t.Setenv("SHOPADMIN_SESSION_STORAGE", "redis")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := Default()
	want.API.BaseURL = "http://roundtrip.local"
	want.UI.PageSize = 50
	want.Server.Secure = true

	if err := Write(path, want); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
