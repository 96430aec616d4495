package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/wricardo/resource-rush/game/config"
	"github.com/wricardo/resource-rush/game/engine"
	"github.com/wricardo/resource-rush/game/service"
)

// newTestPersistence returns a persistence layer backed by temp dirs and a
// config manager holding a single "classic" config
func newTestPersistence(t *testing.T) (*FilePersistence, *config.Manager) {
	t.Helper()

	configDir := t.TempDir()
	configManager, err := config.NewManager(configDir)
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	if err := configManager.SaveConfig("classic", createTestConfig()); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	persistence, err := NewFilePersistence(filepath.Join(t.TempDir(), "sessions"), configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	return persistence, configManager
}

func newTestSession(t *testing.T, id string) *service.Session {
	t.Helper()
	cfg := createTestConfig()
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	now := time.Now().Truncate(time.Second)
	return &service.Session{
		ID:             id,
		RunID:          "run-" + id,
		ConfigID:       "classic",
		Engine:         eng,
		Config:         cfg,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

func TestFilePersistence(t *testing.T) {
	persistence, _ := newTestPersistence(t)
	session := newTestSession(t, "test1")
	session.Engine.AttemptMove(engine.DirectionRight)
	session.Engine.AttemptMove(engine.DirectionDown)
	want := session.Engine.Snapshot()

	t.Run("Save and Load Session", func(t *testing.T) {
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if !persistence.Exists("test1") {
			t.Fatal("Session file should exist after save")
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.ID != "test1" || loaded.RunID != "run-test1" || loaded.ConfigID != "classic" {
			t.Errorf("Unexpected identity after load: %+v", loaded)
		}
		if !loaded.CreatedAt.Equal(session.CreatedAt) {
			t.Errorf("Expected CreatedAt %v, got %v", session.CreatedAt, loaded.CreatedAt)
		}

		got := loaded.Engine.Snapshot()
		if got.PlayerPos != want.PlayerPos || got.Moves != want.Moves || got.Lives != want.Lives {
			t.Errorf("Expected %+v/%d/%d, got %+v/%d/%d",
				want.PlayerPos, want.Moves, want.Lives, got.PlayerPos, got.Moves, got.Lives)
		}
		if !slices.Equal(got.PenaltyCells, want.PenaltyCells) || !slices.Equal(got.ResourceCells, want.ResourceCells) {
			t.Error("Board cells should survive a round trip")
		}
		if got.Busy != want.Busy || len(got.PendingPrompts) != len(want.PendingPrompts) {
			t.Error("Pending prompts should survive a round trip")
		}
		if len(loaded.Engine.GetMoveHistory()) != len(session.Engine.GetMoveHistory()) {
			t.Errorf("Expected %d history entries, got %d",
				len(session.Engine.GetMoveHistory()), len(loaded.Engine.GetMoveHistory()))
		}
	})

	t.Run("List Sessions", func(t *testing.T) {
		if err := persistence.Save(newTestSession(t, "test2")); err != nil {
			t.Fatalf("Failed to save second session: %v", err)
		}
		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}
		slices.Sort(ids)
		if !slices.Equal(ids, []string{"test1", "test2"}) {
			t.Errorf("Expected [test1 test2], got %v", ids)
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		if err := persistence.Delete("test1"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists("test1") {
			t.Error("Session file should not exist after delete")
		}
		if _, err := persistence.Load("test1"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if err := persistence.Delete("test1"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
		}
	})

	t.Run("Reject Unsafe IDs", func(t *testing.T) {
		if persistence.Exists("../test2") {
			t.Error("Path traversal id should never exist")
		}
		if err := persistence.Save(newTestSession(t, "../evil")); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("Unknown Config", func(t *testing.T) {
		orphan := newTestSession(t, "orphan")
		orphan.ConfigID = "vanished"
		if err := persistence.Save(orphan); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if _, err := persistence.Load("orphan"); !errors.Is(err, service.ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	persistence, _ := newTestPersistence(t)
	session := newTestSession(t, "Struct")
	session.Engine.AttemptMove(engine.DirectionDown)

	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	filePath := filepath.Join(persistence.sessionsDir, "struct.json")
	raw, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Expected lower-case session file: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Session file is not valid JSON: %v", err)
	}
	for _, field := range []string{"id", "run_id", "config_id", "created_at", "last_accessed_at", "game_state", "history"} {
		if _, ok := doc[field]; !ok {
			t.Errorf("Expected field %q in session file", field)
		}
	}

	state, ok := doc["game_state"].(map[string]any)
	if !ok {
		t.Fatal("Expected game_state to be an object")
	}
	for _, field := range []string{"player_pos", "moves", "lives", "penalty_cells", "resource_cells"} {
		if _, ok := state[field]; !ok {
			t.Errorf("Expected field %q in game_state", field)
		}
	}

	if _, err := os.Stat(filePath + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should not be left behind")
	}
}
