// Package channel multiplexes named logical channels over a peer session.
//
// Every message travels as a msgpack envelope {channel, payload}. A message
// addressed to the local peer never touches the session: it is handed to the
// local subscribers synchronously, as the value itself.
package channel

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/session"
)

// Channels used by the game.
const (
	// DataChannel carries host state projections to players.
	DataChannel = "data"
	// ActionChannel carries player actions to the host.
	ActionChannel = "action"
)

var ErrUnknownChannel = errors.New("unknown channel")

// Session is the part of a peer session the multiplexer needs.
type Session interface {
	LocalID() string
	Send(peerID string, data []byte) error
	OnData(fn session.DataFunc)
}

// Handler receives messages on one channel.
type Handler func(msg Message)

// Mux routes envelopes between a session and per-channel subscribers.
type Mux struct {
	session  Session
	channels map[string]struct{}
	logger   *slog.Logger

	mu   sync.RWMutex
	subs map[string][]Handler

	dropped atomic.Int64
}

// New creates a multiplexer over s for a fixed set of channels.
func New(s Session, channels ...string) *Mux {
	m := &Mux{
		session:  s,
		channels: make(map[string]struct{}, len(channels)),
		logger:   slog.Default(),
		subs:     make(map[string][]Handler),
	}
	for _, name := range channels {
		m.channels[name] = struct{}{}
	}
	s.OnData(m.dispatch)
	return m
}

// SetLogger replaces the multiplexer's logger.
func (m *Mux) SetLogger(logger *slog.Logger) {
	m.logger = logger
}

// Subscribe registers h for every message on channel, local or remote.
func (m *Mux) Subscribe(channel string, h Handler) error {
	if _, ok := m.channels[channel]; !ok {
		return fmt.Errorf("subscribe %q: %w", channel, ErrUnknownChannel)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[channel] = append(m.subs[channel], h)
	return nil
}

// Send delivers payload to peerID on channel. Sending to the local peer runs
// the local subscribers before Send returns. Sending to a peer the session
// does not know is a silent no-op.
func (m *Mux) Send(peerID, channel string, payload any) error {
	if _, ok := m.channels[channel]; !ok {
		return fmt.Errorf("send %q: %w", channel, ErrUnknownChannel)
	}

	if peerID == m.session.LocalID() {
		m.deliver(Message{From: peerID, Channel: channel, value: payload, local: true})
		return nil
	}

	data, err := encodeEnvelope(channel, payload)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", channel, err)
	}
	return m.session.Send(peerID, data)
}

// Dropped returns how many inbound envelopes were discarded as malformed or
// addressed to an unknown channel.
func (m *Mux) Dropped() int64 {
	return m.dropped.Load()
}

func (m *Mux) dispatch(peerID string, data []byte) {
	env, err := decodeEnvelope(data)
	if err != nil {
		m.drop("malformed envelope", "peer", peerID, "error", err)
		return
	}
	if _, ok := m.channels[env.Channel]; !ok {
		m.drop("envelope for unknown channel", "peer", peerID, "channel", env.Channel)
		return
	}
	m.deliver(Message{From: peerID, Channel: env.Channel, raw: env.Payload})
}

func (m *Mux) deliver(msg Message) {
	m.mu.RLock()
	handlers := m.subs[msg.Channel]
	m.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

func (m *Mux) drop(reason string, args ...any) {
	m.dropped.Add(1)
	m.logger.Debug("dropping "+reason, args...)
}
