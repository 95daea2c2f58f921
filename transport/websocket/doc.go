// Package websocket provides the real-time fan-out layer of songboard.
//
// A central Hub tracks every live connection and its room membership. Rooms
// are keyed by user id: everyone watching a user's request overlay sits in
// that user's room, and the HTTP layer asks the hub to broadcast a fresh
// playlist snapshot to the room after every mutation.
//
// Each connection is owned by a Client with two goroutines, a read pump and
// a write pump. The read pump enforces the liveness deadline (the peer must
// pong within 10 seconds; pings go out every 5) and interprets inbound text:
//
//   - "/list"        list all rooms, one name per frame
//   - "/join <room>" move this connection to another room
//   - anything else  relayed verbatim to the other members of the room
//
// Malformed commands are answered with an error frame prefixed by "!!!" and
// leave the connection open. Unknown session ids, heartbeat expiry, and
// delivery failures to individual recipients are all absorbed silently;
// only transport-level protocol violations close the connection outright.
//
// The hub serializes every operation behind one mutex and never performs
// I/O while holding it. Delivery into a client's outbound queue is
// fire-and-forget: a slow peer misses frames instead of stalling the hub.
//
// Usage:
//
//	store := playlist.NewStore()
//	hub := websocket.NewHub(store)
//
//	http.HandleFunc("/ws/", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, roomNameFromPath(r))
//	})
//
//	// after mutating the store:
//	hub.BroadcastState(userID)
package websocket
