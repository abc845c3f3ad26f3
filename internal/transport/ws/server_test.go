package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func mustDial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func roomSize(h *Hub, subjectID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[subjectID])
}

func TestServer_LiveRelayRoundTrip(t *testing.T) {
	hub := NewHub(time.Minute)
	s := NewServer(hub, 8)
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	a := mustDial(t, wsURL)
	defer a.Close()
	b := mustDial(t, wsURL)
	defer b.Close()

	if err := a.WriteJSON(Frame{Type: TypeJoin, SubjectID: 42, Sender: "Alice"}); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := b.WriteJSON(Frame{Type: TypeJoin, SubjectID: 42, Sender: "Bob"}); err != nil {
		t.Fatalf("join b: %v", err)
	}
	waitFor(t, func() bool { return roomSize(hub, 42) == 2 })

	// b relays a chat frame; a receives it, b (the origin) does not
	if err := b.WriteJSON(Frame{SubjectID: 42, Sender: "Bob", Content: "hi"}); err != nil {
		t.Fatalf("relay: %v", err)
	}

	_ = a.SetReadDeadline(time.Now().Add(3 * time.Second))
	var got Frame
	if err := a.ReadJSON(&got); err != nil {
		t.Fatalf("read relayed frame: %v", err)
	}
	if got.Type != TypeChat || got.Content != "hi" || got.Sender != "Bob" || got.SubjectID != 42 {
		t.Fatalf("unexpected frame: %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("relayed frame must carry a timestamp")
	}
}

func TestServer_MalformedFrameKeepsConnection(t *testing.T) {
	hub := NewHub(time.Minute)
	s := NewServer(hub, 8)
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	a := mustDial(t, wsURL)
	defer a.Close()
	b := mustDial(t, wsURL)
	defer b.Close()

	_ = a.WriteJSON(Frame{Type: TypeJoin, SubjectID: 7, Sender: "Alice"})
	_ = b.WriteJSON(Frame{Type: TypeJoin, SubjectID: 7, Sender: "Bob"})
	waitFor(t, func() bool { return roomSize(hub, 7) == 2 })

	// not JSON, then a frame missing its content: both dropped silently
	if err := b.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := b.WriteJSON(Frame{SubjectID: 7, Sender: "Bob"}); err != nil {
		t.Fatalf("write empty frame: %v", err)
	}

	// the connection survives and keeps relaying
	if err := b.WriteJSON(Frame{SubjectID: 7, Sender: "Bob", Content: "still here"}); err != nil {
		t.Fatalf("relay after garbage: %v", err)
	}

	_ = a.SetReadDeadline(time.Now().Add(3 * time.Second))
	var got Frame
	if err := a.ReadJSON(&got); err != nil {
		t.Fatalf("read after garbage: %v", err)
	}
	if got.Content != "still here" {
		t.Fatalf("content = %q, want %q", got.Content, "still here")
	}
}

func TestServer_DurableBroadcastReachesAllViewers(t *testing.T) {
	hub := NewHub(time.Minute)
	s := NewServer(hub, 8)
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	a := mustDial(t, wsURL)
	defer a.Close()

	_ = a.WriteJSON(Frame{Type: TypeJoin, SubjectID: 42, Sender: "Alice"})
	waitFor(t, func() bool { return roomSize(hub, 42) == 1 })

	// the durable path broadcasts with canonical id/timestamp to everyone
	hub.Broadcast(42, Frame{
		Type:      TypeChat,
		ID:        1,
		SubjectID: 42,
		Sender:    "Alice",
		Content:   "Hello",
		Timestamp: time.Now().UTC(),
	})

	_ = a.SetReadDeadline(time.Now().Add(3 * time.Second))
	var got Frame
	if err := a.ReadJSON(&got); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if got.ID != 1 || got.Content != "Hello" || got.Sender != "Alice" {
		t.Fatalf("unexpected frame: %+v", got)
	}
}
