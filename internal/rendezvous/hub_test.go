package rendezvous

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/signaling"
)

func newServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	server := httptest.NewServer(NewMux(hub))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return server, hub
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg *signaling.Message) *signaling.Message {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	return read(t, conn)
}

func read(t *testing.T, conn *websocket.Conn) *signaling.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply signaling.Message
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	return &reply
}

func register(t *testing.T, conn *websocket.Conn, id string) {
	t.Helper()
	reply := roundTrip(t, conn, &signaling.Message{Type: signaling.MessageTypeRegister, ID: id})
	if reply.Type != signaling.MessageTypeRegistered || reply.ID != id {
		t.Fatalf("register %s reply = %+v", id, reply)
	}
}

func TestHub_Register(t *testing.T) {
	server, hub := newServer(t)
	first := dial(t, server)
	second := dial(t, server)

	register(t, first, "elmo-ABCD")

	reply := roundTrip(t, second, &signaling.Message{Type: signaling.MessageTypeRegister, ID: "elmo-ABCD"})
	if reply.Type != signaling.MessageTypeError || reply.Error != signaling.ErrorIDTaken {
		t.Errorf("duplicate register reply = %+v, want id taken", reply)
	}

	reply = roundTrip(t, second, &signaling.Message{Type: signaling.MessageTypeRegister, ID: "has space"})
	if reply.Error != signaling.ErrorInvalidID {
		t.Errorf("invalid id reply = %+v", reply)
	}

	if got := hub.Registered(); got != 1 {
		t.Errorf("Registered() = %d, want 1", got)
	}
}

func TestHub_ReleasesIDOnDisconnect(t *testing.T) {
	server, hub := newServer(t)
	first := dial(t, server)
	register(t, first, "elmo-ABCD")
	first.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Registered() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("id still registered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	register(t, dial(t, server), "elmo-ABCD")
}

func TestHub_RelaysSignals(t *testing.T) {
	server, _ := newServer(t)
	host := dial(t, server)
	guest := dial(t, server)
	register(t, host, "elmo-HOST")
	register(t, guest, "elmo-GST1")

	err := guest.WriteJSON(&signaling.Message{
		Type:     signaling.MessageTypeSignal,
		Target:   "elmo-HOST",
		Payload:  &signaling.SignalPayload{Type: signaling.SignalOffer, SDP: "v=0"},
		Metadata: map[string]string{"username": "ola"},
	})
	if err != nil {
		t.Fatal(err)
	}

	relayed := read(t, host)
	if relayed.Type != signaling.MessageTypeSignal || relayed.From != "elmo-GST1" {
		t.Fatalf("relayed = %+v", relayed)
	}
	if relayed.Payload == nil || relayed.Payload.SDP != "v=0" || relayed.Metadata["username"] != "ola" {
		t.Errorf("relayed payload = %+v metadata = %v", relayed.Payload, relayed.Metadata)
	}
}

func TestHub_SignalErrors(t *testing.T) {
	server, _ := newServer(t)
	conn := dial(t, server)

	signal := &signaling.Message{
		Type:    signaling.MessageTypeSignal,
		Target:  "elmo-NONE",
		Payload: &signaling.SignalPayload{Type: signaling.SignalOffer},
	}

	if reply := roundTrip(t, conn, signal); reply.Error != signaling.ErrorNotRegistered {
		t.Errorf("unregistered signal reply = %+v", reply)
	}

	register(t, conn, "elmo-ABCD")
	reply := roundTrip(t, conn, signal)
	if reply.Error != signaling.ErrorPeerUnavailable || reply.Target != "elmo-NONE" {
		t.Errorf("signal to missing peer reply = %+v", reply)
	}
}

func TestHealth(t *testing.T) {
	server, _ := newServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "healthy") {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}
}
