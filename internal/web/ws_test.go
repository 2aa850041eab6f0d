package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/bakery/internal/loader"
	"github.com/JonMunkholm/bakery/internal/menu"
	"github.com/gorilla/websocket"
)

func dialMenu(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/menu"
	return websocket.DefaultDialer.Dial(url, header)
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	return msg
}

func TestHub_SnapshotAndUpdates(t *testing.T) {
	fm := &fakeMenu{state: testState(), updates: make(chan loader.State)}
	s := newTestServer(t, fm, testConfig())
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		s.RunHub(ctx)
		close(hubDone)
	}()

	conn, _, err := dialMenu(t, srv, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readMessage(t, conn)
	if first.Type != MessageSnapshot || len(first.Data.Items) != 3 {
		t.Fatalf("first message = %s with %d items", first.Type, len(first.Data.Items))
	}

	waitUntil(t, func() bool { return s.hub.Clients() == 1 })

	updated := []menu.MenuItem{{ID: "rye", Name: "Rye", Category: "bread", Available: true}}
	fm.updates <- loader.State{MenuItems: updated, Categories: menu.ExtractCategories(updated)}

	msg := readMessage(t, conn)
	if msg.Type != MessageUpdated {
		t.Fatalf("type = %q, want %q", msg.Type, MessageUpdated)
	}
	if len(msg.Data.Items) != 1 || msg.Data.Items[0].ID != "rye" {
		t.Errorf("items = %+v", msg.Data.Items)
	}

	cancel()
	select {
	case <-hubDone:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
}

func TestHub_SnapshotReflectsStateAtRegistration(t *testing.T) {
	fm := &fakeMenu{state: testState(), updates: make(chan loader.State)}
	s := newTestServer(t, fm, testConfig())
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	// The hub is not running yet, so the handler waits to register.
	conn, _, err := dialMenu(t, srv, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	updated := []menu.MenuItem{{ID: "rye", Name: "Rye", Category: "bread", Available: true}}
	fm.mu.Lock()
	fm.state = loader.State{MenuItems: updated, Categories: menu.ExtractCategories(updated)}
	fm.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunHub(ctx)

	first := readMessage(t, conn)
	if first.Type != MessageSnapshot {
		t.Fatalf("type = %q, want %q", first.Type, MessageSnapshot)
	}
	if len(first.Data.Items) != 1 || first.Data.Items[0].ID != "rye" {
		t.Errorf("snapshot items = %+v, want the state current at registration", first.Data.Items)
	}
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	fm := &fakeMenu{state: testState(), updates: make(chan loader.State)}
	s := newTestServer(t, fm, testConfig())
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunHub(ctx)

	conn, _, err := dialMenu(t, srv, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readMessage(t, conn)
	waitUntil(t, func() bool { return s.hub.Clients() == 1 })

	conn.Close()
	waitUntil(t, func() bool { return s.hub.Clients() == 0 })
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedOrigins = []string{"https://kiosk.example.com"}
	fm := &fakeMenu{state: testState(), updates: make(chan loader.State)}
	s := newTestServer(t, fm, cfg)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunHub(ctx)

	_, resp, err := dialMenu(t, srv, http.Header{"Origin": {"https://evil.example.com"}})
	if err == nil {
		t.Fatal("dial from foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	conn, _, err := dialMenu(t, srv, http.Header{"Origin": {"https://kiosk.example.com"}})
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	conn.Close()
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
