package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/microarena/duelcore/internal/events"
	"go.uber.org/zap/zaptest"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(nil, zaptest.NewLogger(t))
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitPong sends a ping and waits for the pong, so every control message sent
// before it has been processed by the hub.
func waitPong(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	if err := conn.WriteJSON(ClientMsg{Type: "ping"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply map[string]string
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if reply["type"] != "pong" {
		t.Fatalf("reply = %v, want pong", reply)
	}
}

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	t.Parallel()

	hub, server := newTestHub(t)

	conn := dial(t, server)
	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", DuelID: "d1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitPong(t, conn)

	hub.Broadcast("d1", Envelope{Type: "bet_placed", Data: map[string]string{"bet_id": "b1"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}

	var env struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != "bet_placed" || env.Data["bet_id"] != "b1" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestHub_ConcurrentBroadcastsAndPings(t *testing.T) {
	t.Parallel()

	hub, server := newTestHub(t)

	conn := dial(t, server)
	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", DuelID: "d1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitPong(t, conn)

	// Broadcasts from several goroutines race the control loop's pongs on
	// the same connection; every write must land intact.
	const (
		broadcasters = 4
		perGoroutine = 25
		pings        = 10
	)
	var wg sync.WaitGroup
	for n := 0; n < broadcasters; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < perGoroutine; n++ {
				hub.Broadcast("d1", Envelope{Type: "bet_placed"})
			}
		}()
	}
	go func() {
		for n := 0; n < pings; n++ {
			_ = conn.WriteJSON(ClientMsg{Type: "ping"})
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for n := 0; n < broadcasters*perGoroutine+pings; n++ {
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	wg.Wait()
}

func TestHub_BroadcastIsScopedToDuel(t *testing.T) {
	t.Parallel()

	hub, server := newTestHub(t)

	sub := dial(t, server)
	if err := sub.WriteJSON(ClientMsg{Type: "subscribe", DuelID: "d1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitPong(t, sub)

	other := dial(t, server)
	if err := other.WriteJSON(ClientMsg{Type: "subscribe", DuelID: "d2"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitPong(t, other)

	hub.Broadcast("d1", Envelope{Type: "duel_resolved"})

	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := sub.ReadMessage(); err != nil {
		t.Fatalf("subscriber missed broadcast: %v", err)
	}

	// The other connection follows a different duel and must see nothing.
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("connection received broadcast for a duel it never subscribed to")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	t.Parallel()

	hub, server := newTestHub(t)

	conn := dial(t, server)
	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", DuelID: "d1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := conn.WriteJSON(ClientMsg{Type: "unsubscribe", DuelID: "d1"}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	waitPong(t, conn)

	hub.Broadcast("d1", Envelope{Type: "duel_resolved"})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("unsubscribed connection received broadcast")
	}
}

func TestHubPublisher_DeliversEngineEvents(t *testing.T) {
	t.Parallel()

	hub, server := newTestHub(t)
	pub := NewHubPublisher(hub)

	conn := dial(t, server)
	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", DuelID: "d1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitPong(t, conn)

	err := pub.PublishDuelResolved(context.Background(), events.DuelResolved{
		DuelID: "d1", WinnerID: "p1", TotalPool: 150, PaidOut: 150,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var env struct {
		Type string              `json:"type"`
		Data events.DuelResolved `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != "duel_resolved" || env.Data.WinnerID != "p1" {
		t.Errorf("envelope = %+v", env)
	}
}
