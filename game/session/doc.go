// Package session provides session management for Resource Rush.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Short random session IDs
//   - Per-run identifiers for the score board
//   - Optional JSON file persistence of the game snapshot and history
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager owns the in-memory sessions. Each service.Session wraps its own
// engine.GameEngine together with the config it was created from, the
// config id used to reload that config and the id of the run in progress.
//
// Session Identifiers:
//
// Generated ids are 4 hex characters from crypto/rand. Callers may pick
// their own ids made of letters, digits, dashes and underscores. Lookups
// are case-insensitive.
//
// Persistence:
//
// FilePersistence stores one <id>.json file per session containing the
// engine.Snapshot and the move history. Loading reads the config by id
// and replays the snapshot through engine.GameEngine.Restore, so pending
// prompts and finished games survive a restart.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configManager)
//	manager := session.NewManagerWithPersistence(persistence)
//	manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", "classic", config)
//	sess, err = manager.Get(sess.ID)
package session
