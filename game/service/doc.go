// Package service provides the business logic layer for Resource Rush.
//
// The service package implements:
//   - Multi-session game management
//   - Direction parsing and single, targeted and bulk moves
//   - Prompt confirmation and run resets
//   - Paged move history
//   - Recording finished runs on a score board
//
// Core Interfaces:
//
// GameService is the main service interface used by every transport.
// SessionManager handles session creation, retrieval and persistence.
// ConfigManager loads and saves game configurations. ScoreBoard stores
// finished runs and is optional.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP,
// terminal UI) and the game engine. Each session owns an independent
// engine.GameEngine. Mutations are serialized per service and the session
// is saved after every state change.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr, nil)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	result, err := gameService.Move(ctx, info.ID, "right")
//	if result.GameState.Busy {
//		gameService.Confirm(ctx, info.ID)
//	}
//
// Errors:
//
// Lookups and validation failures wrap the sentinel errors declared in
// this package (ErrSessionNotFound, ErrConfigNotFound, ErrInvalidConfig,
// ErrInvalidDirection, ErrScoresDisabled) so transports can map them with
// errors.Is.
package service
