// Package playlist holds the per-user song request state: whether requests
// are open, which arrangements the user accepts, and the ordered request
// queue. The Store is the single owner of this state; the HTTP layer mutates
// it and the WebSocket hub reads snapshots of it for broadcasting.
package playlist
