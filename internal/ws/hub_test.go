package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func dialTestHub(t *testing.T, query string) (*Hub, *websocket.Conn, context.CancelFunc) {
	t.Helper()

	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleScanWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		cancel()
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return hub, conn, cancel
}

func readEvent(t *testing.T, conn *websocket.Conn) serverEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev serverEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestSubscribeViaQueryParam(t *testing.T) {
	hub, conn, cancel := dialTestHub(t, "?mode=covered_calls")
	defer cancel()

	if ev := readEvent(t, conn); ev.Event != "connected" {
		t.Fatalf("expected connected event, got %+v", ev)
	}
	if ev := readEvent(t, conn); ev.Event != "subscribed" || ev.Mode != "covered_calls" {
		t.Fatalf("expected subscribed event, got %+v", ev)
	}

	// The hub should now report the mode as active.
	deadline := time.Now().Add(2 * time.Second)
	for {
		groups := hub.GetActiveGroups()
		if len(groups) == 1 && groups[0] == "covered_calls" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("mode never became active: %v", groups)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A broadcast to the group reaches the client.
	payload, _ := json.Marshal(map[string]string{"scanId": "abc"})
	hub.Broadcast("covered_calls", payload)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if !strings.Contains(string(msg), "abc") {
		t.Errorf("unexpected broadcast payload: %s", msg)
	}
}

func TestSubscribeUnknownModeRejected(t *testing.T) {
	_, conn, cancel := dialTestHub(t, "")
	defer cancel()

	if ev := readEvent(t, conn); ev.Event != "connected" {
		t.Fatalf("expected connected event, got %+v", ev)
	}

	if err := conn.WriteJSON(clientMessage{Action: "subscribe", Mode: "straddles"}); err != nil {
		t.Fatal(err)
	}
	if ev := readEvent(t, conn); ev.Event != "error" {
		t.Fatalf("expected error event, got %+v", ev)
	}
}

func TestPingPong(t *testing.T) {
	_, conn, cancel := dialTestHub(t, "")
	defer cancel()

	if ev := readEvent(t, conn); ev.Event != "connected" {
		t.Fatalf("expected connected event, got %+v", ev)
	}

	if err := conn.WriteJSON(clientMessage{Action: "ping"}); err != nil {
		t.Fatal(err)
	}
	if ev := readEvent(t, conn); ev.Event != "pong" {
		t.Fatalf("expected pong, got %+v", ev)
	}
}
