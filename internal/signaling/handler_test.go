package signaling

import (
	"testing"
	"time"
)

func TestHandler_RoutesByType(t *testing.T) {
	client := NewClient("ws://localhost/ws")
	handler := NewHandler(client)
	go handler.Start()
	defer client.Close()

	client.incoming <- &Message{Type: MessageTypeRegistered, ID: "elmo-ABCD"}
	client.incoming <- &Message{Type: MessageTypeSignal, From: "elmo-GST1"}
	client.incoming <- &Message{Type: MessageTypeSignal, From: "elmo-GST1", Payload: &SignalPayload{Type: SignalOffer}}
	client.incoming <- &Message{Type: MessageTypeError, Error: ErrorPeerUnavailable}

	select {
	case id := <-handler.Registered:
		if id != "elmo-ABCD" {
			t.Errorf("registered id = %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("registered message not routed")
	}
	select {
	case msg := <-handler.Signal:
		if msg.Payload == nil {
			t.Errorf("signal without payload was routed: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("signal message not routed")
	}
	select {
	case msg := <-handler.Error:
		if msg.Error != ErrorPeerUnavailable {
			t.Errorf("error message = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("error message not routed")
	}
}

func TestHandler_StopsWhenClientClosesWithNobodyReading(t *testing.T) {
	client := NewClient("ws://localhost/ws")
	handler := NewHandler(client)

	stopped := make(chan struct{})
	go func() {
		handler.Start()
		close(stopped)
	}()

	offer := &Message{Type: MessageTypeSignal, From: "elmo-GST1", Payload: &SignalPayload{Type: SignalOffer}}
	for i := 0; i < cap(handler.Signal)+1; i++ {
		client.incoming <- offer
	}
	client.Close()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("handler blocked on a full Signal channel after the client closed")
	}
	for range handler.Signal {
	}
}
