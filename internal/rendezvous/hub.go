// Package rendezvous is the signaling server that lets endpoints claim a
// rendezvous id and exchange WebRTC offers, answers and ICE candidates with
// each other by id.
package rendezvous

import (
	"context"
	"log/slog"
	"strings"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/signaling"
)

// maxIDLength bounds a registered rendezvous id.
const maxIDLength = 128

type inbound struct {
	client  *Client
	message *signaling.Message
}

// Hub is the central brain of the rendezvous server. A single goroutine
// running Run owns every registration.
type Hub struct {
	// peers maps registered ids to their connection.
	peers map[string]*Client

	connected    chan *Client
	disconnected chan *Client
	messages     chan inbound
	stats        chan chan int

	done   chan struct{}
	logger *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		peers:        make(map[string]*Client),
		connected:    make(chan *Client),
		disconnected: make(chan *Client),
		messages:     make(chan inbound),
		stats:        make(chan chan int),
		done:         make(chan struct{}),
		logger:       logger,
	}
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.connected:
			client.logger().Debug("client connected", "remote", client.Conn.RemoteAddr().String())

		case client := <-h.disconnected:
			if client.ID != "" && h.peers[client.ID] == client {
				delete(h.peers, client.ID)
				client.logger().Info("id released")
			}
			close(client.Send)

		case in := <-h.messages:
			h.handle(in.client, in.message)

		case reply := <-h.stats:
			reply <- len(h.peers)

		case <-ctx.Done():
			for id, client := range h.peers {
				delete(h.peers, id)
				client.Conn.Close()
			}
			return
		}
	}
}

// Registered returns how many ids are currently claimed.
func (h *Hub) Registered() int {
	reply := make(chan int, 1)
	select {
	case h.stats <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) handle(client *Client, msg *signaling.Message) {
	switch msg.Type {

	case signaling.MessageTypeRegister:
		id := strings.TrimSpace(msg.ID)
		if !validID(id) || client.ID != "" {
			h.reply(client, &signaling.Message{Type: signaling.MessageTypeError, Error: signaling.ErrorInvalidID})
			return
		}
		if _, taken := h.peers[id]; taken {
			client.logger().Info("id already taken", "requested", id)
			h.reply(client, &signaling.Message{Type: signaling.MessageTypeError, Error: signaling.ErrorIDTaken})
			return
		}

		client.ID = id
		h.peers[id] = client
		client.logger().Info("id registered")
		h.reply(client, &signaling.Message{Type: signaling.MessageTypeRegistered, ID: id})

	case signaling.MessageTypeSignal:
		if client.ID == "" {
			h.reply(client, &signaling.Message{Type: signaling.MessageTypeError, Error: signaling.ErrorNotRegistered})
			return
		}

		target, ok := h.peers[msg.Target]
		if !ok || msg.Payload == nil {
			client.logger().Debug("signal target unavailable", "target", msg.Target)
			h.reply(client, &signaling.Message{
				Type:   signaling.MessageTypeError,
				Error:  signaling.ErrorPeerUnavailable,
				Target: msg.Target,
			})
			return
		}

		client.logger().Debug("relaying signal", "target", msg.Target, "kind", msg.Payload.Type)
		h.reply(target, &signaling.Message{
			Type:     signaling.MessageTypeSignal,
			From:     client.ID,
			Payload:  msg.Payload,
			Metadata: msg.Metadata,
		})

	default:
		client.logger().Debug("unknown message type", "type", msg.Type)
	}
}

// reply queues msg for client without blocking the hub. A client whose
// buffer is full is too slow to keep up and loses the message.
func (h *Hub) reply(client *Client, msg *signaling.Message) {
	select {
	case client.Send <- msg:
	default:
		client.logger().Warn("send buffer full, dropping message", "type", msg.Type)
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.connected <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.disconnected <- client:
	case <-h.done:
	}
}

func (h *Hub) dispatch(in inbound) bool {
	select {
	case h.messages <- in:
		return true
	case <-h.done:
		return false
	}
}

func validID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	return !strings.ContainsAny(id, " \t\r\n")
}
