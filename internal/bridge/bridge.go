// Package bridge connects a room to an external rules engine over a pair of
// streams carrying newline-delimited JSON frames.
//
// Frames read by the bridge:
//
//	{"type":"state","payload":<HostState>}   host only, publish to every player
//	{"type":"action","payload":<Action>}     send an action to the host
//
// Frames written by the bridge:
//
//	{"type":"room","payload":{"code":...,"peerId":...}}
//	{"type":"state","payload":<ClientState>}
//	{"type":"action","from":<peer id>,"payload":<Action>}   host only
//	{"type":"left"}                                          client only
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/game"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/room"
)

// Frame types.
const (
	FrameRoom   = "room"
	FrameState  = "state"
	FrameAction = "action"
	FrameLeft   = "left"
)

// maxFrameSize bounds one input line.
const maxFrameSize = 1 << 20

// ErrHostLeft is returned by ServeClient when the connection to the host is lost.
var ErrHostLeft = errors.New("host left the room")

// Frame is one line on either stream.
type Frame struct {
	Type    string          `json:"type"`
	From    string          `json:"from,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RoomInfo is the payload of a room frame.
type RoomInfo struct {
	Code   string `json:"code"`
	PeerID string `json:"peerId"`
}

// Host is the part of a hosted room the bridge drives.
type Host interface {
	Open(ctx context.Context) (string, error)
	PeerID() string
	OnAction(fn func(from string, action game.Action)) error
	OnState(fn func(state game.ClientState)) error
	SendAction(action game.Action) error
	PublishState(state game.HostState) error
}

// Client is the part of a joined room the bridge drives.
type Client interface {
	Join(ctx context.Context, code string) room.JoinResult
	OnState(fn func(state game.ClientState)) error
	SendAction(action game.Action) error
	Left() <-chan struct{}
}

var (
	_ Host   = (*room.Host)(nil)
	_ Client = (*room.Client)(nil)
)

// Bridge reads frames from r and writes frames to w.
type Bridge struct {
	in     *bufio.Scanner
	logger *slog.Logger

	mu  sync.Mutex
	out *json.Encoder
}

// New creates a bridge over r and w.
func New(r io.Reader, w io.Writer, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	in := bufio.NewScanner(r)
	in.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &Bridge{
		in:     in,
		out:    json.NewEncoder(w),
		logger: logger,
	}
}

// Emit writes one frame. It is safe for concurrent use.
func (b *Bridge) Emit(typ, from string, payload any) error {
	frame := Frame{Type: typ, From: from}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s frame: %w", typ, err)
		}
		frame.Payload = raw
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.out.Encode(&frame)
}

// ServeHost opens the room, then pipes frames between the streams and the
// room until the input ends or ctx is cancelled.
func (b *Bridge) ServeHost(ctx context.Context, h Host) error {
	h.OnAction(func(from string, action game.Action) {
		b.emit(FrameAction, from, action)
	})
	h.OnState(func(state game.ClientState) {
		b.emit(FrameState, "", state)
	})

	code, err := h.Open(ctx)
	if err != nil {
		return err
	}
	if err := b.Emit(FrameRoom, "", RoomInfo{Code: code, PeerID: h.PeerID()}); err != nil {
		return err
	}

	return b.read(ctx, func(frame Frame) error {
		switch frame.Type {
		case FrameState:
			var state game.HostState
			if err := json.Unmarshal(frame.Payload, &state); err != nil {
				return fmt.Errorf("decode state: %w", err)
			}
			if err := normalizeCards(&state); err != nil {
				return fmt.Errorf("decode state: %w", err)
			}
			return h.PublishState(state)
		case FrameAction:
			var action game.Action
			if err := json.Unmarshal(frame.Payload, &action); err != nil {
				return fmt.Errorf("decode action: %w", err)
			}
			return h.SendAction(action)
		default:
			return fmt.Errorf("unexpected frame type %q", frame.Type)
		}
	})
}

// ServeClient joins the room registered under code, then pipes frames
// between the streams and the room until the input ends, the host goes away
// or ctx is cancelled.
func (b *Bridge) ServeClient(ctx context.Context, c Client, code string) error {
	c.OnState(func(state game.ClientState) {
		b.emit(FrameState, "", state)
	})

	result := c.Join(ctx, code)
	if !result.OK {
		return result.Err
	}
	if err := b.Emit(FrameRoom, "", RoomInfo{Code: result.Code, PeerID: result.PeerID}); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.Left():
			b.emit(FrameLeft, "", nil)
			cancel()
		case <-ctx.Done():
		}
	}()

	err := b.read(ctx, func(frame Frame) error {
		if frame.Type != FrameAction {
			return fmt.Errorf("unexpected frame type %q", frame.Type)
		}
		var action game.Action
		if err := json.Unmarshal(frame.Payload, &action); err != nil {
			return fmt.Errorf("decode action: %w", err)
		}
		return c.SendAction(action)
	})

	select {
	case <-c.Left():
		return ErrHostLeft
	default:
		return err
	}
}

// normalizeCards checks every card in state and rewrites it in canonical form.
func normalizeCards(state *game.HostState) error {
	if state.ActiveCard != "" {
		card, err := game.ParseCard(string(state.ActiveCard))
		if err != nil {
			return err
		}
		state.ActiveCard = card
	}
	for i := range state.Players {
		hand := state.Players[i].Hand
		for j, c := range hand {
			card, err := game.ParseCard(string(c))
			if err != nil {
				return fmt.Errorf("player %s: %w", state.Players[i].UUID, err)
			}
			hand[j] = card
		}
	}
	return nil
}

func (b *Bridge) emit(typ, from string, payload any) {
	if err := b.Emit(typ, from, payload); err != nil {
		b.logger.Warn("writing frame failed", "type", typ, "error", err)
	}
}

// read handles input lines until EOF or ctx is cancelled. Bad frames are
// logged and skipped.
func (b *Bridge) read(ctx context.Context, handle func(Frame) error) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for b.in.Scan() {
			line := append([]byte(nil), b.in.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- b.in.Err()
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return ctx.Err()
				}
			}
			if len(line) == 0 {
				continue
			}
			var frame Frame
			if err := json.Unmarshal(line, &frame); err != nil {
				b.logger.Warn("skipping malformed frame", "error", err)
				continue
			}
			if err := handle(frame); err != nil {
				b.logger.Warn("skipping frame", "type", frame.Type, "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
