package websocket

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/songboard/songboard/playlist"
)

// newTestClient registers a hub client without a real connection. The send
// channel stands in for the transport.
func newTestClient(hub *Hub, room string) *Client {
	c := &Client{
		hub:  hub,
		room: room,
		send: make(chan []byte, 16),
	}
	c.id = hub.Connect(room, c)
	return c
}

func recvFrame(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("Send channel closed while expecting a frame")
		}
		return string(msg)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("No frame received within timeout")
	}
	return ""
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if ok {
			t.Fatalf("Unexpected frame: %s", msg)
		}
	default:
	}
}

func TestConnectAssignsUniqueIDs(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		c := newTestClient(hub, "room")
		if c.id == 0 {
			t.Fatal("Session id must never be zero")
		}
		if seen[c.id] {
			t.Fatalf("Duplicate session id %d", c.id)
		}
		seen[c.id] = true
	}
}

func TestRelayDeliversToOthersOnly(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")
	b := newTestClient(hub, "r1")

	hub.Relay(a.id, "r1", "hello")

	if got := recvFrame(t, b); got != "hello" {
		t.Errorf("Expected %q, got %q", "hello", got)
	}
	assertNoFrame(t, a)
}

func TestDisconnectStopsDelivery(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")
	b := newTestClient(hub, "r1")

	hub.Disconnect(b.id)
	hub.Relay(a.id, "r1", "hello")

	assertNoFrame(t, b)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")
	b := newTestClient(hub, "r1")

	hub.Disconnect(b.id)
	hub.Disconnect(b.id)

	// The remaining session is untouched.
	hub.Relay(b.id, "r1", "still here")
	if got := recvFrame(t, a); got != "still here" {
		t.Errorf("Expected %q, got %q", "still here", got)
	}

	// Unknown ids are no-ops too.
	hub.Disconnect(12345)
}

func TestJoinMovesMembership(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")
	b := newTestClient(hub, "r1")

	hub.Join(b.id, "r2")

	// A is notified that B left r1.
	if got := recvFrame(t, a); got != "Someone disconnected" {
		t.Errorf("Expected leave notification, got %q", got)
	}

	// B no longer receives r1 traffic.
	hub.Relay(a.id, "r1", "x")
	assertNoFrame(t, b)

	// B receives r2 traffic.
	c := newTestClient(hub, "r2")
	if got := recvFrame(t, b); got != "Someone connected" {
		t.Errorf("Expected join notification, got %q", got)
	}
	hub.Relay(c.id, "r2", "y")
	if got := recvFrame(t, b); got != "y" {
		t.Errorf("Expected %q, got %q", "y", got)
	}
}

func TestJoinUnknownIDIsNoOp(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")
	hub.Join(999, "r1")

	assertNoFrame(t, a)
	if got := len(hub.ListRooms()); got != 1 {
		t.Errorf("Expected 1 room, got %d", got)
	}
}

func TestBroadcastStateReachesAllMembers(t *testing.T) {
	store := playlist.NewStore()
	hub := NewHub(store)

	a := newTestClient(hub, "streamer")
	b := newTestClient(hub, "streamer")

	store.AddRequest("streamer", playlist.SongRequest{SongID: "song-1", Title: "Creep"})
	hub.BroadcastState("streamer")

	for _, c := range []*Client{a, b} {
		var update stateUpdate
		if err := json.Unmarshal([]byte(recvFrame(t, c)), &update); err != nil {
			t.Fatalf("Failed to unmarshal broadcast: %v", err)
		}
		if len(update.SongRequests) != 1 || update.SongRequests[0].SongID != "song-1" {
			t.Errorf("Unexpected broadcast payload: %+v", update)
		}
	}
}

func TestBroadcastStateDefaultSnapshot(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "untracked")
	hub.BroadcastState("untracked")

	frame := recvFrame(t, a)
	var update stateUpdate
	if err := json.Unmarshal([]byte(frame), &update); err != nil {
		t.Fatalf("Failed to unmarshal broadcast: %v", err)
	}
	if update.SongRequestsEnabled {
		t.Error("Default snapshot should have requests disabled")
	}
	if update.SongRequests == nil || len(update.SongRequests) != 0 {
		t.Errorf("Default snapshot should have an empty request list, got %s", frame)
	}
}

func TestBroadcastStateEmptyRoomIsNoOp(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	// No members anywhere; must not panic or error.
	hub.BroadcastState("nobody-home")
}

func TestDeliveryFailureIsIsolated(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")

	// A client whose queue is already full.
	stalled := &Client{
		hub:  hub,
		room: "r1",
		send: make(chan []byte, 1),
	}
	stalled.id = hub.Connect("r1", stalled)
	stalled.send <- []byte("blocker")

	b := newTestClient(hub, "r1")

	hub.Relay(a.id, "r1", "hello")

	// The healthy recipient still gets the frame.
	if got := recvFrame(t, b); got != "hello" {
		t.Errorf("Expected %q, got %q", "hello", got)
	}
	// The stalled one only ever saw its blocker.
	if got := string(<-stalled.send); got != "blocker" {
		t.Errorf("Expected stalled queue to hold only the blocker, got %q", got)
	}
	assertNoFrame(t, stalled)
}

func TestListRoomsTracksMembership(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")
	b := newTestClient(hub, "r2")

	rooms := hub.ListRooms()
	sort.Strings(rooms)
	if len(rooms) != 2 || rooms[0] != "r1" || rooms[1] != "r2" {
		t.Errorf("Expected [r1 r2], got %v", rooms)
	}

	// Emptied rooms are pruned.
	hub.Disconnect(a.id)
	rooms = hub.ListRooms()
	if len(rooms) != 1 || rooms[0] != "r2" {
		t.Errorf("Expected [r2], got %v", rooms)
	}

	hub.Disconnect(b.id)
	if rooms := hub.ListRooms(); len(rooms) != 0 {
		t.Errorf("Expected no rooms, got %v", rooms)
	}
}
