package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/resource-rush/game/config"
	"github.com/wricardo/resource-rush/game/engine"
)

func newTestSSHServer(t *testing.T, configID string) *SSHServer {
	t.Helper()
	dir := t.TempDir()

	configs, err := config.NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	easy := engine.DefaultGameConfig()
	easy.Name = "easy"
	if err := configs.SaveConfig("easy", easy); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultSSHServerConfig()
	cfg.Address = "127.0.0.1:0"
	cfg.HostKeyPath = filepath.Join(dir, "keys", "host_key")
	cfg.ConfigID = configID

	srv, err := NewSSHServer(cfg, configs, nil)
	if err != nil {
		t.Fatalf("NewSSHServer failed: %v", err)
	}
	return srv
}

func TestDefaultSSHServerConfig(t *testing.T) {
	cfg := DefaultSSHServerConfig()
	if cfg.Address != ":23234" || cfg.IdleTimeout != 30*time.Minute {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
}

func TestSSHServer_GameConfig(t *testing.T) {
	tests := []struct {
		name       string
		configID   string
		expectedID string
	}{
		{"configured", "easy", "easy"},
		{"missing falls back", "nope", "classic"},
		{"unset uses default", "", "classic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestSSHServer(t, tt.configID)
			id, cfg := srv.gameConfig()
			if cfg == nil {
				t.Fatal("Expected a config")
			}
			if id != tt.expectedID {
				t.Errorf("Expected config id %q, got %q", tt.expectedID, id)
			}
		})
	}
}

func TestSSHServer_ListenAndServeStopsOnCancel(t *testing.T) {
	srv := newTestSSHServer(t, "")
	if srv.Addr() != "127.0.0.1:0" {
		t.Errorf("Unexpected address %s", srv.Addr())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
