package room

import (
	"context"
	"log/slog"
	"sync"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/admission"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/game"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/roomcode"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/session"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/transport"
)

// JoinResult reports the outcome of Client.Join.
type JoinResult struct {
	Code   string
	PeerID string

	// OK means the data channel to the host opened. The host decides
	// admission after that: a full room closes the connection without a
	// reason, so OK can be followed by Left. Callers that need to know they
	// were seated should wait for the first state from the host.
	OK  bool
	Err error
}

// Client is a player seated in somebody else's room.
type Client struct {
	channels

	session  *session.Session
	codec    roomcode.Codec
	username string
	logger   *slog.Logger

	mu       sync.Mutex
	hostID   string
	left     chan struct{}
	leftOnce sync.Once
}

// NewClient creates a client on t. It registers a throwaway code of its own
// and refuses inbound connections.
func NewClient(t transport.Transport, opts Options) *Client {
	logger := opts.logger().With("role", "client")
	s := session.New(t,
		session.WithPolicy(admission.MaxPeers(1)),
		session.WithCodec(opts.codec()),
		session.WithLogger(logger),
	)

	c := &Client{
		channels: openChannels(s, logger),
		session:  s,
		codec:    opts.codec(),
		username: opts.Username,
		logger:   logger,
		left:     make(chan struct{}),
	}
	s.OnRemovedConnection(func(conn transport.Conn) {
		c.mu.Lock()
		host := c.hostID
		c.mu.Unlock()
		if conn.Peer() == host {
			c.logger.Warn("disconnected from host", "peer", host)
			c.leftOnce.Do(func() { close(c.left) })
		}
	})
	return c
}

// Join connects to the room registered under code.
func (c *Client) Join(ctx context.Context, code string) JoinResult {
	code = roomcode.Normalize(code)
	result := JoinResult{Code: code, PeerID: c.session.LocalID()}

	c.setHost(c.codec.ToRendezvous(code))
	_, err := c.session.Connect(ctx, code, transport.Metadata{transport.MetadataUsername: c.username})
	if err != nil {
		c.setHost("")
		result.Err = err
		return result
	}

	c.logger.Info("joined room", "code", code)
	result.OK = true
	return result
}

func (c *Client) setHost(id string) {
	c.mu.Lock()
	c.hostID = id
	c.mu.Unlock()
}

// PeerID returns the client's rendezvous id, which is also its player uuid.
func (c *Client) PeerID() string {
	return c.session.LocalID()
}

// OnState registers fn for every view the host publishes.
func (c *Client) OnState(fn func(state game.ClientState)) error {
	return c.states.On(func(_ string, state game.ClientState) { fn(state) })
}

// SendAction sends action to the host.
func (c *Client) SendAction(action game.Action) error {
	c.mu.Lock()
	host := c.hostID
	c.mu.Unlock()
	return c.actions.Send(host, action)
}

// Left is closed once the connection to the host is lost. A full room
// admits the dial and then closes it, so a successful Join may be followed
// by Left shortly after.
func (c *Client) Left() <-chan struct{} {
	return c.left
}

// Close leaves the room.
func (c *Client) Close() error {
	return c.session.Close()
}
