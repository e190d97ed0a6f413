package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Compile-time interface checks.
var (
	_ Transport = (*Memory)(nil)
	_ Endpoint  = (*memoryEndpoint)(nil)
	_ Conn      = (*memoryConn)(nil)
)

// Memory is an in-process rendezvous service. Endpoints registered on the
// same Memory can dial each other without any network. Tests use it in place
// of the WebRTC transport.
type Memory struct {
	mu        sync.Mutex
	endpoints map[string]*memoryEndpoint

	registrations atomic.Int64
}

// NewMemory creates an empty in-process rendezvous service.
func NewMemory() *Memory {
	return &Memory{endpoints: make(map[string]*memoryEndpoint)}
}

// Registrations returns how many times Register has been called.
func (m *Memory) Registrations() int64 {
	return m.registrations.Load()
}

func (m *Memory) Register(ctx context.Context, id string) (Endpoint, error) {
	m.registrations.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.endpoints[id]; ok {
		return nil, fmt.Errorf("register %s: %w", id, ErrIDTaken)
	}
	endpoint := &memoryEndpoint{
		network: m,
		id:      id,
		inbound: make(chan Conn, 64),
		closed:  make(chan struct{}),
		conns:   make(map[*memoryConn]struct{}),
	}
	m.endpoints[id] = endpoint
	return endpoint, nil
}

func (m *Memory) lookup(id string) (*memoryEndpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	endpoint, ok := m.endpoints[id]
	return endpoint, ok
}

func (m *Memory) remove(endpoint *memoryEndpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.endpoints[endpoint.id]; ok && current == endpoint {
		delete(m.endpoints, endpoint.id)
	}
}

type memoryEndpoint struct {
	network *Memory
	id      string
	inbound chan Conn

	closed    chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	conns map[*memoryConn]struct{}
}

func (e *memoryEndpoint) ID() string {
	return e.id
}

func (e *memoryEndpoint) Dial(ctx context.Context, remote string, metadata Metadata) (Conn, error) {
	select {
	case <-e.closed:
		return nil, ErrClosed
	default:
	}

	target, ok := e.network.lookup(remote)
	if !ok {
		return nil, fmt.Errorf("dial %s: %w", remote, ErrPeerUnavailable)
	}

	local := newMemoryConn(e, remote, metadata)
	accepted := newMemoryConn(target, e.id, metadata)
	local.remote, accepted.remote = accepted, local

	if !e.track(local) || !target.track(accepted) {
		local.Close()
		return nil, fmt.Errorf("dial %s: %w", remote, ErrPeerUnavailable)
	}

	select {
	case target.inbound <- accepted:
		return local, nil
	case <-target.closed:
		local.Close()
		return nil, fmt.Errorf("dial %s: %w", remote, ErrPeerUnavailable)
	case <-e.closed:
		local.Close()
		return nil, ErrClosed
	case <-ctx.Done():
		local.Close()
		return nil, ctx.Err()
	}
}

func (e *memoryEndpoint) Accept(ctx context.Context) (Conn, error) {
	select {
	case <-e.closed:
		return nil, ErrClosed
	default:
	}

	select {
	case conn := <-e.inbound:
		select {
		case <-e.closed:
			conn.Close()
			return nil, ErrClosed
		default:
		}
		return conn, nil
	case <-e.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *memoryEndpoint) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.network.remove(e)

		e.mu.Lock()
		conns := make([]*memoryConn, 0, len(e.conns))
		for conn := range e.conns {
			conns = append(conns, conn)
		}
		e.mu.Unlock()

		for _, conn := range conns {
			conn.Close()
		}
		drainInbound(e.inbound)
	})
	return nil
}

func (e *memoryEndpoint) track(conn *memoryConn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.closed:
		return false
	default:
	}
	e.conns[conn] = struct{}{}
	return true
}

func (e *memoryEndpoint) untrack(conn *memoryConn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.conns, conn)
}

// memoryConn is one half of an in-process connection. Sends push onto the
// remote half's inbox.
type memoryConn struct {
	*inbox

	id       string
	owner    *memoryEndpoint
	peer     string
	metadata Metadata
	remote   *memoryConn
}

func newMemoryConn(owner *memoryEndpoint, peer string, metadata Metadata) *memoryConn {
	return &memoryConn{
		inbox:    newInbox(),
		id:       uuid.NewString(),
		owner:    owner,
		peer:     peer,
		metadata: metadata,
	}
}

func (c *memoryConn) Peer() string {
	return c.peer
}

func (c *memoryConn) Metadata() Metadata {
	return c.metadata
}

func (c *memoryConn) Send(data []byte) error {
	select {
	case <-c.Done():
		return ErrConnClosed
	default:
	}
	return c.remote.push(append([]byte(nil), data...))
}

// Close closes both halves of the connection. The remote half still
// delivers what was sent before the close.
func (c *memoryConn) Close() error {
	c.discard()
	c.shutdown(nil)
	if c.remote != nil {
		c.remote.shutdown(nil)
	}
	return nil
}

func (c *memoryConn) shutdown(err error) {
	if c.inbox.shutdown(err) {
		c.owner.untrack(c)
	}
}

func (c *memoryConn) String() string {
	return fmt.Sprintf("memory(%s→%s #%s)", c.owner.id, c.peer, c.id[:8])
}
