package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/resource-rush/game/engine"
)

func createTestConfig() *engine.GameConfig {
	config := engine.DefaultGameConfig()
	config.Name = "Session Test Config"
	config.Seed = 7
	return config
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", "classic", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.ConfigID != "classic" {
			t.Errorf("Expected config ID 'classic', got '%s'", session.ConfigID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
		if session.RunID == "" {
			t.Error("Expected a run ID")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", "classic", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character generated ID, got '%s'", session.ID)
		}
		if !ValidSessionID(session.ID) {
			t.Errorf("Generated ID '%s' is not valid", session.ID)
		}
	})

	t.Run("duplicate ID is rejected case-insensitively", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", "classic", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid ID is rejected", func(t *testing.T) {
		for _, id := range []string{"../escape", "has space", "semi;colon"} {
			if _, err := manager.Create(id, "classic", config); !errors.Is(err, ErrInvalidSessionID) {
				t.Errorf("Create(%q): expected ErrInvalidSessionID, got %v", id, err)
			}
		}
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		bad := createTestConfig()
		bad.GridSize = 1
		if _, err := manager.Create("bad-config", "classic", bad); err == nil {
			t.Error("Expected error for invalid config")
		}
		if _, err := manager.Get("bad-config"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Failed create should not leave a session behind")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, err := manager.Create("Alpha", "classic", createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	for _, id := range []string{"Alpha", "alpha", "ALPHA"} {
		got, err := manager.Get(id)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", id, err)
		}
		if got != created {
			t.Errorf("Get(%q) returned a different session", id)
		}
	}

	if _, err := manager.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	first, err := manager.GetOrCreate("shared", "classic", config)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	second, err := manager.GetOrCreate("shared", "classic", config)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if first != second {
		t.Error("Expected the same session on the second call")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	if _, err := manager.Create("doomed", "classic", createTestConfig()); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := manager.Delete("DOOMED"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get("doomed"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Session should be gone after delete")
	}
	if err := manager.Delete("doomed"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
	if err := manager.DeleteFromMemory("doomed"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound from DeleteFromMemory, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	if got := manager.List(); len(got) != 0 {
		t.Errorf("Expected empty list, got %d", len(got))
	}

	for i := 0; i < 3; i++ {
		if _, err := manager.Create(fmt.Sprintf("s%d", i), "classic", createTestConfig()); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
	}
	if got := manager.List(); len(got) != 3 {
		t.Errorf("Expected 3 sessions, got %d", len(got))
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()
	old, _ := manager.Create("old", "classic", createTestConfig())
	manager.Create("fresh", "classic", createTestConfig())

	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	removed := manager.CleanupExpiredSessions(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if _, err := manager.Get("old"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expired session should be removed")
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Error("Fresh session should remain")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	session, _ := manager.Create("touch", "classic", createTestConfig())
	before := time.Now().Add(-time.Minute)
	session.LastAccessedAt = before

	if err := manager.UpdateLastAccessed("touch"); err != nil {
		t.Fatalf("UpdateLastAccessed failed: %v", err)
	}
	if !session.LastAccessedAt.After(before) {
		t.Error("Expected LastAccessedAt to move forward")
	}
	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_SaveWithoutPersistence(t *testing.T) {
	manager := NewManager()
	if err := manager.Save("anything"); err != nil {
		t.Errorf("Save without persistence should be a no-op, got %v", err)
	}
	if err := manager.SaveAllSessions(); err != nil {
		t.Errorf("SaveAllSessions without persistence should be a no-op, got %v", err)
	}
	if err := manager.LoadPersistedSessions(); err != nil {
		t.Errorf("LoadPersistedSessions without persistence should be a no-op, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("worker-%d", i)
			if _, err := manager.Create(id, "classic", config); err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			manager.Get(id)
			manager.UpdateLastAccessed(id)
			manager.List()
		}(i)
	}
	wg.Wait()

	if manager.Count() != 20 {
		t.Errorf("Expected 20 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	a, _ := manager.Create("a", "classic", createTestConfig())
	b, _ := manager.Create("b", "classic", createTestConfig())

	a.Engine.AttemptMove(engine.DirectionRight)

	if b.Engine.GetState().Moves == a.Engine.GetState().Moves {
		t.Error("A move in one session should not affect the other")
	}
	if b.Engine.GetState().PlayerPos != (engine.Position{}) {
		t.Errorf("Expected session b at origin, got %+v", b.Engine.GetState().PlayerPos)
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session, err := manager.Create("", "classic", createTestConfig())
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if seen[session.ID] {
			t.Fatalf("Duplicate session ID generated: %s", session.ID)
		}
		seen[session.ID] = true
	}
}

func TestValidSessionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"a1b2", true},
		{"my_game-01", true},
		{"", false},
		{"../x", false},
		{"a/b", false},
		{"name.json", false},
		{string(make([]byte, 65)), false},
	}
	for _, tt := range tests {
		if got := ValidSessionID(tt.id); got != tt.want {
			t.Errorf("ValidSessionID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
