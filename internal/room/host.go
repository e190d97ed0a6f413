package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/admission"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/game"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/session"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/transport"
)

// Host owns a room. Every seat, the host's own included, receives its
// projected view on the data channel and every action, the host's own
// included, arrives on the action channel.
type Host struct {
	channels

	session  *session.Session
	username string
	logger   *slog.Logger
}

// NewHost creates a room on t and starts registering its code. Subscribe with
// OnAction and OnState before calling Open so that no join is missed.
func NewHost(t transport.Transport, opts Options) *Host {
	logger := opts.logger().With("role", "host")

	sessionOpts := []session.Option{
		session.WithPolicy(admission.All(
			admission.MaxPeers(opts.maxPlayers()),
			admission.RequireMetadata(transport.MetadataUsername),
		)),
		session.WithCodec(opts.codec()),
		session.WithLogger(logger),
	}
	if opts.Code != "" {
		sessionOpts = append(sessionOpts, session.WithCode(opts.Code))
	}
	s := session.New(t, sessionOpts...)

	h := &Host{
		channels: openChannels(s, logger),
		session:  s,
		username: opts.Username,
		logger:   logger,
	}

	s.OnNewConnection(func(conn transport.Conn) {
		name := conn.Metadata()[transport.MetadataUsername]
		h.SendAction(game.PlayerJoin(conn.Peer(), name))
	})
	s.OnRemovedConnection(func(conn transport.Conn) {
		h.SendAction(game.PlayerLeave(conn.Peer()))
	})
	return h
}

// Open waits for the room code to be registered, then seats the host.
func (h *Host) Open(ctx context.Context) (string, error) {
	code, err := h.session.Ready(ctx)
	if err != nil {
		return "", err
	}
	h.logger.Info("room open", "code", code)
	if err := h.SendAction(game.PlayerJoin(h.PeerID(), h.username)); err != nil {
		return "", err
	}
	return code, nil
}

// Code returns the room code.
func (h *Host) Code() string {
	return h.session.Code()
}

// PeerID returns the host's rendezvous id, which is also its player uuid.
func (h *Host) PeerID() string {
	return h.session.LocalID()
}

// Peers returns the host id followed by every connected player.
func (h *Host) Peers() []string {
	return h.session.Peers()
}

// OnAction registers fn for every action sent to the host.
func (h *Host) OnAction(fn func(from string, action game.Action)) error {
	return h.actions.On(fn)
}

// OnState registers fn for the host's own projected view.
func (h *Host) OnState(fn func(state game.ClientState)) error {
	return h.states.On(func(_ string, state game.ClientState) { fn(state) })
}

// SendAction delivers a host-local action to the host's action subscribers.
func (h *Host) SendAction(action game.Action) error {
	return h.actions.Send(h.PeerID(), action)
}

// PublishState sends each human player its projection of state. AI seats
// have nobody to send to and are skipped.
func (h *Host) PublishState(state game.HostState) error {
	var errs []error
	for _, player := range state.Players {
		if player.IsAI {
			continue
		}
		view, err := game.Project(state, player.UUID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := h.states.Send(player.UUID, view); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", player.UUID, err))
		}
	}
	return errors.Join(errs...)
}

// Dropped returns how many inbound envelopes the host discarded.
func (h *Host) Dropped() int64 {
	return h.mux.Dropped()
}

// Close closes the room.
func (h *Host) Close() error {
	return h.session.Close()
}
