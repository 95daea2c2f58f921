package websocket

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/songboard/songboard/playlist"
)

// stateUpdate is the payload broadcast to a room whenever its playlist
// changes through the HTTP API.
type stateUpdate struct {
	SongRequestsEnabled bool                   `json:"songRequestsEnabled"`
	SongRequests        []playlist.SongRequest `json:"songRequests"`
}

// Hub is the single authority for session identity, room membership, and
// message fan-out. Clients never talk to each other directly; every frame
// that crosses connections goes through the hub.
//
// All operations serialize on one mutex. They are short and perform no I/O
// while holding it: outbound delivery is a non-blocking send into each
// client's buffered queue, so a stalled peer can never block the hub.
type Hub struct {
	// clients maps a session id to its connection. Every id present in a
	// room set is also present here.
	clients map[uint64]*Client

	// rooms maps a room name to the ids of its current members. A set is
	// removed as soon as the operation that empties it completes.
	rooms map[string]map[uint64]struct{}

	store *playlist.Store
	mu    sync.Mutex
}

// NewHub creates a hub that reads broadcast snapshots from store.
func NewHub(store *playlist.Store) *Hub {
	return &Hub{
		clients: make(map[uint64]*Client),
		rooms:   make(map[string]map[uint64]struct{}),
		store:   store,
	}
}

// Connect registers a client, assigns it a fresh session id, and joins it to
// roomName. The returned id is unique among live sessions and never zero;
// zero is the "no sender" sentinel used by broadcasts.
func (h *Hub) Connect(roomName string, c *Client) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.newSessionID()
	h.clients[id] = c

	members := h.rooms[roomName]
	if members == nil {
		members = make(map[uint64]struct{})
		h.rooms[roomName] = members
	}
	members[id] = struct{}{}

	log.Printf("Client %d connected to room %q (members: %d)", id, roomName, len(members))
	return id
}

// Disconnect removes the session and all of its room memberships. Unknown or
// already-removed ids are a no-op: disconnect races are expected and benign.
func (h *Hub) Disconnect(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return
	}

	delete(h.clients, id)
	h.removeFromRooms(id)
	close(c.send)

	log.Printf("Client %d disconnected", id)
}

// Join moves the session into roomName. The session is removed from every
// room it currently belongs to; each vacated room and the new room get a
// best-effort notification that excludes the mover. Unknown ids are a no-op.
func (h *Hub) Join(id uint64, roomName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[id]; !ok {
		return
	}

	for _, vacated := range h.removeFromRooms(id) {
		h.deliver(vacated, []byte("Someone disconnected"), id)
	}

	members := h.rooms[roomName]
	if members == nil {
		members = make(map[uint64]struct{})
		h.rooms[roomName] = members
	}
	members[id] = struct{}{}

	h.deliver(roomName, []byte("Someone connected"), id)

	log.Printf("Client %d joined room %q (members: %d)", id, roomName, len(members))
}

// Relay sends message to every member of roomName except the sender.
func (h *Hub) Relay(senderID uint64, roomName, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.deliver(roomName, []byte(message), senderID)
}

// BroadcastState sends the current playlist snapshot for roomName to every
// member, including the one whose action triggered the change. A room with
// no members is a legal no-op; a room with no recorded playlist gets the
// default disabled/empty snapshot.
func (h *Hub) BroadcastState(roomName string) {
	p := h.store.Get(roomName)

	payload, err := json.Marshal(stateUpdate{
		SongRequestsEnabled: p.SongRequestsEnabled,
		SongRequests:        p.SongRequests,
	})
	if err != nil {
		log.Printf("Failed to marshal state for room %q: %v", roomName, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.deliver(roomName, payload, 0)
}

// ListRooms returns the names of all rooms that currently have members.
func (h *Hub) ListRooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.rooms))
	for name := range h.rooms {
		names = append(names, name)
	}
	return names
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers
// it with the hub in roomName.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roomName string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		room: roomName,
	}
	client.id = h.Connect(roomName, client)

	go client.writePump()
	go client.readPump()
}

// deliver queues message for every member of roomName except skipID.
// Each delivery attempt is independent: a member with a full queue misses
// this frame, the rest still receive it. Caller must hold h.mu.
func (h *Hub) deliver(roomName string, message []byte, skipID uint64) {
	for id := range h.rooms[roomName] {
		if id == skipID {
			continue
		}
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case c.send <- message:
		default:
			log.Printf("Client %d send queue full, dropping frame", id)
		}
	}
}

// removeFromRooms drops the session from every room set and prunes sets it
// empties. It returns the names of the vacated rooms. Caller must hold h.mu.
func (h *Hub) removeFromRooms(id uint64) []string {
	var vacated []string
	for name, members := range h.rooms {
		if _, ok := members[id]; !ok {
			continue
		}
		delete(members, id)
		vacated = append(vacated, name)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
	return vacated
}

// newSessionID generates a random session id that does not collide with any
// live session. Caller must hold h.mu.
func (h *Hub) newSessionID() uint64 {
	for {
		var b [8]byte
		rand.Read(b[:])
		id := binary.BigEndian.Uint64(b[:])
		if id == 0 {
			continue
		}
		if _, live := h.clients[id]; !live {
			return id
		}
	}
}
