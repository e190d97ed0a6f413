package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/rendezvous"
)

// newRendezvous starts an in-process rendezvous server and returns its websocket URL.
func newRendezvous(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	hub := rendezvous.NewHub(logger)
	go hub.Run(ctx)

	server := httptest.NewServer(rendezvous.NewMux(hub))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func TestWebRTC_DialAccept(t *testing.T) {
	if testing.Short() {
		t.Skip("opens real peer connections")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWebRTC(newRendezvous(t), ICEConfig{}, logger)

	host, err := w.Register(ctx, "elmo-HOST")
	if err != nil {
		t.Fatalf("Register host: %v", err)
	}
	defer host.Close()

	if _, err := w.Register(ctx, "elmo-HOST"); !errors.Is(err, ErrIDTaken) {
		t.Fatalf("duplicate Register error = %v, want ErrIDTaken", err)
	}

	guest, err := w.Register(ctx, "elmo-GST1")
	if err != nil {
		t.Fatalf("Register guest: %v", err)
	}
	defer guest.Close()

	dialed, err := guest.Dial(ctx, "elmo-HOST", Metadata{MetadataUsername: "ola"})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	accepted, err := host.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if accepted.Peer() != "elmo-GST1" || accepted.Metadata()[MetadataUsername] != "ola" {
		t.Errorf("accepted peer = %q metadata = %v", accepted.Peer(), accepted.Metadata())
	}

	for _, msg := range []string{"P1", "P2"} {
		if err := dialed.Send([]byte(msg)); err != nil {
			t.Fatalf("Send(%s): %v", msg, err)
		}
	}
	for _, want := range []string{"P1", "P2"} {
		select {
		case got := <-accepted.Messages():
			if string(got) != want {
				t.Errorf("received %q, want %q", got, want)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	accepted.Close()
	select {
	case <-dialed.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("dialing side never observed the close")
	}
}

func TestWebRTC_DialUnknownPeer(t *testing.T) {
	if testing.Short() {
		t.Skip("opens real peer connections")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWebRTC(newRendezvous(t), ICEConfig{}, logger)

	guest, err := w.Register(ctx, "elmo-GST1")
	if err != nil {
		t.Fatal(err)
	}
	defer guest.Close()

	if _, err := guest.Dial(ctx, "elmo-NONE", nil); !errors.Is(err, ErrPeerUnavailable) {
		t.Errorf("Dial error = %v, want ErrPeerUnavailable", err)
	}
}
