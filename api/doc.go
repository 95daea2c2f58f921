// Package api exposes the REST surface of songboard: the per-user song
// catalog, playlist settings, and the song request queue, plus the WebSocket
// endpoint that puts a connection into a user's room. The handlers are thin
// glue over playlist.Store; after every successful mutation they ask the hub
// to broadcast the new snapshot to the user's room.
package api
