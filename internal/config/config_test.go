package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORE_BACKEND", "")

	cfg := Load()
	if cfg.ServerAddr != ":8080" || cfg.StoreBackend != BackendPostgres {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MaxPhotoBytes != 512<<10 || cfg.ReadTimeout != 15*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RedisURL != "" || cfg.AuthServiceURL != "" {
		t.Error("redis and auth service are optional by default")
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "api.yaml")
	yaml := "server_addr: \":9090\"\nstore_backend: firestore\nfirestore_project_id: demo\nmax_photo_size_kb: 100\nsend_rate_limit: 5\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SEND_RATE_LIMIT", "7")

	cfg := Load()
	if cfg.ServerAddr != ":9090" || cfg.StoreBackend != BackendFirestore || cfg.Firestore.ProjectID != "demo" {
		t.Errorf("yaml not applied: %+v", cfg)
	}
	if cfg.MaxPhotoBytes != 100<<10 {
		t.Errorf("photo size = %d", cfg.MaxPhotoBytes)
	}
	if cfg.SendRateLimit != 7 {
		t.Errorf("env must win over yaml: %d", cfg.SendRateLimit)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("STORE_BACKEND=memory\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("LOG_LEVEL", "warn")
	// STORE_BACKEND должен прийти из .env; t.Setenv регистрирует восстановление после теста.
	t.Setenv("STORE_BACKEND", "")
	os.Unsetenv("STORE_BACKEND")

	cfg := Load()
	if cfg.StoreBackend != BackendMemory {
		t.Errorf("backend = %q", cfg.StoreBackend)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("existing env must win over .env: %q", cfg.LogLevel)
	}
}

func TestUnknownBackendFallsBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORE_BACKEND", "cassandra")
	if cfg := Load(); cfg.StoreBackend != BackendPostgres {
		t.Errorf("backend = %q", cfg.StoreBackend)
	}
}

// chdir changes the working directory for the test and restores it on
// cleanup, mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
