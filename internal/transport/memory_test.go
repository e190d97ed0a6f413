package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func register(t *testing.T, m *Memory, id string) Endpoint {
	t.Helper()
	endpoint, err := m.Register(context.Background(), id)
	if err != nil {
		t.Fatalf("Register(%q): %v", id, err)
	}
	t.Cleanup(func() { endpoint.Close() })
	return endpoint
}

func receive(t *testing.T, conn Conn) []byte {
	t.Helper()
	select {
	case data, ok := <-conn.Messages():
		if !ok {
			t.Fatal("connection closed before a message arrived")
		}
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return nil
}

func TestMemory_RegisterTwice(t *testing.T) {
	m := NewMemory()
	register(t, m, "room-ABCD")

	if _, err := m.Register(context.Background(), "room-ABCD"); !errors.Is(err, ErrIDTaken) {
		t.Fatalf("second Register error = %v, want ErrIDTaken", err)
	}
	if got := m.Registrations(); got != 2 {
		t.Errorf("Registrations() = %d, want 2", got)
	}
}

func TestMemory_RegisterAfterClose(t *testing.T) {
	m := NewMemory()
	endpoint, err := m.Register(context.Background(), "room-ABCD")
	if err != nil {
		t.Fatal(err)
	}
	endpoint.Close()

	if _, err := m.Register(context.Background(), "room-ABCD"); err != nil {
		t.Fatalf("Register after Close: %v", err)
	}
}

func TestMemory_DialUnknownPeer(t *testing.T) {
	m := NewMemory()
	a := register(t, m, "a")

	if _, err := a.Dial(context.Background(), "nobody", nil); !errors.Is(err, ErrPeerUnavailable) {
		t.Fatalf("Dial error = %v, want ErrPeerUnavailable", err)
	}
}

func TestMemory_DialAcceptExchange(t *testing.T) {
	m := NewMemory()
	host := register(t, m, "host")
	guest := register(t, m, "guest")

	dialed, err := guest.Dial(context.Background(), "host", Metadata{MetadataUsername: "alice"})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	accepted, err := host.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if accepted.Peer() != "guest" {
		t.Errorf("accepted.Peer() = %q, want guest", accepted.Peer())
	}
	if dialed.Peer() != "host" {
		t.Errorf("dialed.Peer() = %q, want host", dialed.Peer())
	}
	if got := accepted.Metadata()[MetadataUsername]; got != "alice" {
		t.Errorf("username metadata = %q, want alice", got)
	}

	for _, msg := range []string{"one", "two", "three"} {
		if err := dialed.Send([]byte(msg)); err != nil {
			t.Fatalf("Send(%q): %v", msg, err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		if got := string(receive(t, accepted)); got != want {
			t.Errorf("received %q, want %q", got, want)
		}
	}

	if err := accepted.Send([]byte("pong")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := string(receive(t, dialed)); got != "pong" {
		t.Errorf("received %q, want pong", got)
	}
}

func TestMemory_SendCopiesBuffer(t *testing.T) {
	m := NewMemory()
	host := register(t, m, "host")
	guest := register(t, m, "guest")

	dialed, err := guest.Dial(context.Background(), "host", nil)
	if err != nil {
		t.Fatal(err)
	}
	accepted, err := host.Accept(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	buf := []byte("abc")
	dialed.Send(buf)
	buf[0] = 'x'

	if got := string(receive(t, accepted)); got != "abc" {
		t.Errorf("received %q, want abc", got)
	}
}

func TestMemory_CloseNotifiesBothSides(t *testing.T) {
	m := NewMemory()
	host := register(t, m, "host")
	guest := register(t, m, "guest")

	dialed, err := guest.Dial(context.Background(), "host", nil)
	if err != nil {
		t.Fatal(err)
	}
	accepted, err := host.Accept(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	accepted.Close()

	for name, conn := range map[string]Conn{"dialed": dialed, "accepted": accepted} {
		select {
		case <-conn.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("%s side never observed the close", name)
		}
		if _, ok := <-conn.Messages(); ok {
			t.Errorf("%s Messages() still open after close", name)
		}
	}

	if err := dialed.Send([]byte("late")); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Send after close error = %v, want ErrConnClosed", err)
	}
	if err := accepted.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestMemory_EndpointCloseClosesConns(t *testing.T) {
	m := NewMemory()
	host := register(t, m, "host")
	guest := register(t, m, "guest")

	dialed, err := guest.Dial(context.Background(), "host", nil)
	if err != nil {
		t.Fatal(err)
	}

	host.Close()

	select {
	case <-dialed.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dialed connection survived the endpoint close")
	}
	if _, err := host.Accept(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Accept after Close error = %v, want ErrClosed", err)
	}
	if _, err := guest.Dial(context.Background(), "host", nil); !errors.Is(err, ErrPeerUnavailable) {
		t.Errorf("Dial to closed endpoint error = %v, want ErrPeerUnavailable", err)
	}
}

func TestMemory_CloseDeliversQueuedMessages(t *testing.T) {
	m := NewMemory()
	host := register(t, m, "host")
	guest := register(t, m, "guest")

	dialed, err := guest.Dial(context.Background(), "host", nil)
	if err != nil {
		t.Fatal(err)
	}
	accepted, err := host.Accept(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, msg := range []string{"move", "final state"} {
		if err := dialed.Send([]byte(msg)); err != nil {
			t.Fatal(err)
		}
	}
	dialed.Close()

	var got []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case data, ok := <-accepted.Messages():
			if !ok {
				if len(got) != 2 || got[0] != "move" || got[1] != "final state" {
					t.Errorf("received %q before close, want [move final state]", got)
				}
				return
			}
			got = append(got, string(data))
		case <-timeout:
			t.Fatalf("Messages() never closed, received %q", got)
		}
	}
}

func TestMemory_AcceptAfterCloseWithQueuedConn(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := NewMemory()
		host := register(t, m, "host")
		guest := register(t, m, "guest")

		dialed, err := guest.Dial(context.Background(), "host", nil)
		if err != nil {
			t.Fatal(err)
		}
		host.Close()

		if conn, err := host.Accept(context.Background()); !errors.Is(err, ErrClosed) {
			t.Fatalf("Accept after Close = %v, %v, want ErrClosed", conn, err)
		}
		select {
		case <-dialed.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("queued connection was not closed with its endpoint")
		}
		guest.Close()
	}
}
