package websocket

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/songboard/songboard/playlist"
)

func TestHandleTextRelaysPlainText(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")
	b := newTestClient(hub, "r1")

	a.handleText("does anyone know this song?")

	if got := recvFrame(t, b); got != "does anyone know this song?" {
		t.Errorf("Expected relayed text, got %q", got)
	}
	assertNoFrame(t, a)
}

func TestHandleTextListCommand(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")
	newTestClient(hub, "r2")

	a.handleText("/list")

	got := []string{recvFrame(t, a), recvFrame(t, a)}
	sort.Strings(got)
	if got[0] != "r1" || got[1] != "r2" {
		t.Errorf("Expected [r1 r2], got %v", got)
	}
}

func TestHandleTextJoinCommand(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")
	b := newTestClient(hub, "r2")

	a.handleText("/join r2")

	if got := recvFrame(t, a); got != "joined" {
		t.Errorf("Expected join confirmation, got %q", got)
	}
	if a.room != "r2" {
		t.Errorf("Expected local room r2, got %q", a.room)
	}
	if got := recvFrame(t, b); got != "Someone connected" {
		t.Errorf("Expected join notification, got %q", got)
	}

	b.handleText("welcome")
	if got := recvFrame(t, a); got != "welcome" {
		t.Errorf("Expected relayed text in new room, got %q", got)
	}
}

func TestHandleTextJoinRequiresArgument(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")

	a.handleText("/join")
	if got := recvFrame(t, a); got != "!!! room name is required" {
		t.Errorf("Expected error frame, got %q", got)
	}
	if a.room != "r1" {
		t.Errorf("Room should be unchanged, got %q", a.room)
	}

	a.handleText("/join   ")
	if got := recvFrame(t, a); got != "!!! room name is required" {
		t.Errorf("Expected error frame for blank argument, got %q", got)
	}
}

func TestHandleTextUnknownCommand(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	a := newTestClient(hub, "r1")
	b := newTestClient(hub, "r1")

	a.handleText("/dance")

	got := recvFrame(t, a)
	if !strings.HasPrefix(got, "!!! unknown command:") || !strings.Contains(got, "/dance") {
		t.Errorf("Expected unknown-command error echoing input, got %q", got)
	}
	// Commands are never relayed.
	assertNoFrame(t, b)
}

// dialTestServer starts an httptest server wrapping hub.ServeWS and dials it.
func dialTestServer(t *testing.T, hub *Hub, room string) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, room)
	}))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestWebSocketConnectAndRelay(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	conn1, cleanup1 := dialTestServer(t, hub, "streamer")
	defer cleanup1()
	conn2, cleanup2 := dialTestServer(t, hub, "streamer")
	defer cleanup2()

	// Give the read pumps time to start.
	time.Sleep(20 * time.Millisecond)

	if err := conn1.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("Failed to write message: %v", err)
	}

	conn2.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, message, err := conn2.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read relayed message: %v", err)
	}
	if string(message) != "hello" {
		t.Errorf("Expected %q, got %q", "hello", message)
	}
}

func TestWebSocketJoinCommand(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	conn, cleanup := dialTestServer(t, hub, "streamer")
	defer cleanup()

	time.Sleep(20 * time.Millisecond)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("/join other")); err != nil {
		t.Fatalf("Failed to write command: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read confirmation: %v", err)
	}
	if string(message) != "joined" {
		t.Errorf("Expected %q, got %q", "joined", message)
	}

	rooms := hub.ListRooms()
	if len(rooms) != 1 || rooms[0] != "other" {
		t.Errorf("Expected membership to move to [other], got %v", rooms)
	}
}

func TestWebSocketBroadcastOnStateChange(t *testing.T) {
	store := playlist.NewStore()
	hub := NewHub(store)

	conn, cleanup := dialTestServer(t, hub, "streamer")
	defer cleanup()

	time.Sleep(20 * time.Millisecond)

	store.AddRequest("streamer", playlist.SongRequest{SongID: "song-1"})
	hub.BroadcastState("streamer")

	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read broadcast: %v", err)
	}
	if !strings.Contains(string(message), `"songId":"song-1"`) {
		t.Errorf("Expected snapshot payload, got %s", message)
	}
}

func TestWebSocketCloseCleansUpMembership(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	conn, cleanup := dialTestServer(t, hub, "streamer")
	defer cleanup()

	time.Sleep(20 * time.Millisecond)

	if got := len(hub.ListRooms()); got != 1 {
		t.Fatalf("Expected 1 room after connect, got %d", got)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond)

	if got := len(hub.ListRooms()); got != 0 {
		t.Errorf("Expected membership cleaned up after close, got %d rooms", got)
	}
}

func TestWebSocketBinaryFrameClosesConnection(t *testing.T) {
	hub := NewHub(playlist.NewStore())

	conn, cleanup := dialTestServer(t, hub, "streamer")
	defer cleanup()

	time.Sleep(20 * time.Millisecond)

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x01}); err != nil {
		t.Fatalf("Failed to write binary frame: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if got := len(hub.ListRooms()); got != 0 {
		t.Errorf("Expected session dropped after binary frame, got %d rooms", got)
	}
}
