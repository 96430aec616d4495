package session

import (
	"errors"
	"testing"

	"github.com/wricardo/resource-rush/game/engine"
)

func TestManagerWithPersistence(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	gameConfig, err := configManager.LoadConfig("classic")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	manager := NewManagerWithPersistence(persistence)

	t.Run("Create persists immediately", func(t *testing.T) {
		session, err := manager.Create("persist1", "classic", gameConfig)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if !persistence.Exists(session.ID) {
			t.Error("Session should be written on create")
		}
	})

	t.Run("Save writes current state", func(t *testing.T) {
		session, _ := manager.Get("persist1")
		session.Engine.AttemptMove(engine.DirectionRight)
		if err := manager.Save("persist1"); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		loaded, err := persistence.Load("persist1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.Engine.GetState().PlayerPos != (engine.Position{X: 1, Y: 0}) {
			t.Errorf("Expected saved player at (1,0), got %+v", loaded.Engine.GetState().PlayerPos)
		}
	})

	t.Run("Get falls back to persistence", func(t *testing.T) {
		if err := manager.DeleteFromMemory("persist1"); err != nil {
			t.Fatalf("DeleteFromMemory failed: %v", err)
		}
		if manager.Count() != 0 {
			t.Fatalf("Expected empty memory, got %d sessions", manager.Count())
		}

		session, err := manager.Get("PERSIST1")
		if err != nil {
			t.Fatalf("Expected session to load from disk: %v", err)
		}
		if session.Engine.GetState().PlayerPos != (engine.Position{X: 1, Y: 0}) {
			t.Errorf("Expected restored player at (1,0), got %+v", session.Engine.GetState().PlayerPos)
		}
		if manager.Count() != 1 {
			t.Errorf("Expected loaded session to be cached, got %d", manager.Count())
		}
	})

	t.Run("LoadPersistedSessions on a fresh manager", func(t *testing.T) {
		if _, err := manager.Create("persist2", "classic", gameConfig); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		fresh := NewManagerWithPersistence(persistence)
		if err := fresh.LoadPersistedSessions(); err != nil {
			t.Fatalf("LoadPersistedSessions failed: %v", err)
		}
		if fresh.Count() != 2 {
			t.Errorf("Expected 2 restored sessions, got %d", fresh.Count())
		}
	})

	t.Run("Generated ids avoid persisted ones", func(t *testing.T) {
		fresh := NewManagerWithPersistence(persistence)
		session, err := fresh.Create("", "classic", gameConfig)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID == "persist1" || session.ID == "persist2" {
			t.Errorf("Generated id collided with a persisted session: %s", session.ID)
		}
	})

	t.Run("SaveAllSessions", func(t *testing.T) {
		if err := manager.SaveAllSessions(); err != nil {
			t.Fatalf("SaveAllSessions failed: %v", err)
		}
	})

	t.Run("Delete removes the file", func(t *testing.T) {
		if err := manager.Delete("persist2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if persistence.Exists("persist2") {
			t.Error("Session file should be removed")
		}
		if _, err := manager.Get("persist2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}
