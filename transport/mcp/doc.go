// Package mcp exposes Resource Rush to AI agents over the Model Context
// Protocol.
//
// The server is a thin client: every tool proxies to the REST API served
// by package api and renders the JSON response as text, so agents, the web
// UI and other clients all play the same sessions.
//
// MCP Tools:
//   - create_session, list_sessions, get_session: session management
//   - game_state: ASCII board, counters, pending prompts and legal moves
//   - move, move_to: one step by direction or by adjacent coordinates
//   - bulk_move: up to engine.MaxBulkMoves steps, stopping at the first
//     prompt or rejection
//   - confirm: acknowledge the oldest pending prompt
//   - reset_game: start a new run at level 1
//   - move_history: paginated accepted moves
//   - list_configs, top_scores: configurations and the score board
//   - game_instructions, describe_cell: rules and cell inspection
//
// Board:
//
// The board is printed one row per line with (0,0) in the top-left corner:
//
//	P  player        T  target
//	X  penalty       *  resource
//	o  legal move    .  empty
//
// Transport Modes:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// Stdio, for local MCP clients
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP, mounted next to the REST API
//	apiServer.Handle("/mcp", client.HTTPHandler())
package mcp
