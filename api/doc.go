// Package api serves the Resource Rush REST API.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions              create a session, body {"config_id": "classic"}
//   - GET    /api/sessions              list sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/{id}         session info with snapshot and config
//   - DELETE /api/sessions/{id}         delete a session
//
// Game operations:
//   - GET  /api/sessions/{id}/state     current snapshot
//   - POST /api/sessions/{id}/move      {"direction": "up"} or {"x": 1, "y": 0}
//   - POST /api/sessions/{id}/bulk-move {"moves": ["right", "down"]}
//   - POST /api/sessions/{id}/confirm   acknowledge the oldest pending prompt
//   - POST /api/sessions/{id}/reset     start a new game
//   - GET  /api/sessions/{id}/history   paged history (?page=&limit=&order=)
//
// Configuration:
//   - GET  /api/configs                 list configs
//   - POST /api/configs                 save a config (GameConfig fields plus optional config_id)
//   - GET  /api/configs/{name}          full config
//
// Other:
//   - GET /api/scores                   best finished runs (?config=&limit=)
//   - GET /api/health                   liveness
//   - GET /ws?session={id}              WebSocket updates for a session
//
// A move that the engine refuses (busy, finished, out of moves, not an
// adjacent cell) is a normal 200 response with success=false and the
// rejection reason in outcome.rejected.
//
// Errors are returned as JSON with a status code derived from the service
// error:
//
//	{"error": "session not found: ab12"}
//
// 404 for unknown sessions and configs, 400 for bad directions, configs or
// bodies, 503 when the score board is off and 500 otherwise.
package api
