// Package websocket pushes live game updates to browser clients.
//
// A Hub groups connections by session id (case-insensitive). Every state
// change made through the REST API is broadcast to the clients watching
// that session as a Message frame:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//
// Move, bulk move, confirm and reset results are also sent as their own
// events with the service result in "data".
//
// Clients only receive. Incoming frames are read and discarded so ping and
// close control frames keep working.
//
// Delivery never blocks the caller. Each client has a bounded queue and a
// client whose queue is full is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	hub.ServeWS(w, r, sessionID, snapshot)
//	hub.BroadcastToSession(sessionID, snapshot)
package websocket
