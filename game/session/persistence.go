package session

import (
	"time"

	"github.com/wricardo/resource-rush/game/engine"
	"github.com/wricardo/resource-rush/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the JSON document stored per session
type PersistedSessionData struct {
	ID             string                    `json:"id"`
	RunID          string                    `json:"run_id"`
	ConfigID       string                    `json:"config_id"`
	CreatedAt      time.Time                 `json:"created_at"`
	LastAccessedAt time.Time                 `json:"last_accessed_at"`
	GameState      *engine.Snapshot          `json:"game_state"`
	History        []engine.MoveHistoryEntry `json:"history"`
}
