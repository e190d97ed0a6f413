// Package session owns one player's rendezvous identity and the set of open
// connections to other players.
//
// A Session registers a room code with the transport, admits inbound
// connections through an admission policy, dials other room codes on demand
// and reports connection lifecycle and inbound data to listeners. All events
// are dispatched one at a time from a goroutine owned by the session, in the
// spirit of a hub loop; the connection map is additionally guarded so that
// Send, Broadcast and Peers may be called from anywhere.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/admission"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/roomcode"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/transport"
)

// Listener signatures.
type (
	DataFunc       func(peerID string, data []byte)
	ConnectionFunc func(conn transport.Conn)
)

// Option configures a Session.
type Option func(*Session)

// WithPolicy sets the admission policy for inbound connections.
func WithPolicy(policy admission.Policy) Option {
	return func(s *Session) { s.policy = policy }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithCodec sets the room code namespace used to build rendezvous ids.
func WithCodec(codec roomcode.Codec) Option {
	return func(s *Session) { s.codec = codec }
}

// WithCode registers a fixed room code instead of a generated one.
func WithCode(code string) Option {
	return func(s *Session) { s.code = roomcode.Normalize(code) }
}

type eventKind int

const (
	eventAdmit eventKind = iota
	eventOpen
	eventData
	eventClose
)

type event struct {
	kind eventKind
	conn transport.Conn
	data []byte
	// done is closed once an eventOpen has been applied.
	done chan struct{}
}

// Session is a peer's rendezvous identity plus its open connections.
type Session struct {
	transport transport.Transport
	codec     roomcode.Codec
	code      string
	policy    admission.Policy
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	ready    chan struct{}
	readyErr error
	endpoint transport.Endpoint

	mu    sync.Mutex
	conns map[string]transport.Conn
	order []string

	listenerMu sync.Mutex
	onData     []DataFunc
	onOpen     []ConnectionFunc
	onRemoved  []ConnectionFunc

	events    chan event
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a session and starts registering its room code. Use Ready to
// wait for the outcome.
func New(t transport.Transport, opts ...Option) *Session {
	s := &Session{
		transport: t,
		codec:     roomcode.Default,
		policy:    admission.AdmitAll,
		logger:    slog.Default(),
		ready:     make(chan struct{}),
		conns:     make(map[string]transport.Conn),
		events:    make(chan event, 256),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.code == "" {
		s.code = roomcode.Generate()
	}
	s.logger = s.logger.With("code", s.code)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	go s.run()
	go s.register()
	return s
}

// Code returns the room code this session registers.
func (s *Session) Code() string {
	return s.code
}

// LocalID returns the session's own rendezvous id.
func (s *Session) LocalID() string {
	return s.codec.ToRendezvous(s.code)
}

func (s *Session) register() {
	defer close(s.ready)

	endpoint, err := s.transport.Register(s.ctx, s.LocalID())
	if err != nil {
		s.readyErr = &RegistrationError{Op: "register", Code: s.code, Err: err}
		s.logger.Warn("registration failed", "error", err)
		return
	}

	select {
	case <-s.closed:
		endpoint.Close()
		s.readyErr = &RegistrationError{Op: "register", Code: s.code, Err: ErrClosed}
		return
	default:
	}

	s.endpoint = endpoint
	go s.accept(endpoint)
	s.logger.Info("session registered", "id", endpoint.ID())
}

// Ready waits for registration to finish and returns the room code. Every
// caller observes the same outcome; registration is never retried.
func (s *Session) Ready(ctx context.Context) (string, error) {
	select {
	case <-s.ready:
		return s.code, s.readyErr
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Connect dials the session registered under code and returns the open
// connection. The connection is added to the session and announced to
// OnNewConnection listeners before Connect returns.
func (s *Session) Connect(ctx context.Context, code string, metadata transport.Metadata) (transport.Conn, error) {
	code = roomcode.Normalize(code)

	if _, err := s.Ready(ctx); err != nil {
		return nil, &ConnectError{Op: "connect", Code: code, Err: err, Details: "session not registered"}
	}

	remote := s.codec.ToRendezvous(code)
	if remote == s.LocalID() {
		return nil, &ConnectError{Op: "connect", Code: code, Err: ErrLoopback}
	}

	conn, err := s.endpoint.Dial(ctx, remote, metadata)
	if err != nil {
		return nil, &ConnectError{Op: "connect", Code: code, Err: err}
	}

	done := make(chan struct{})
	if !s.post(event{kind: eventOpen, conn: conn, done: done}) {
		conn.Close()
		return nil, &ConnectError{Op: "connect", Code: code, Err: ErrClosed}
	}

	select {
	case <-done:
		return conn, nil
	case <-s.closed:
		conn.Close()
		return nil, &ConnectError{Op: "connect", Code: code, Err: ErrClosed}
	}
}

// Send writes data to peerID. Sending to an unknown or already closed peer is
// a silent no-op. Sending to the local id returns ErrLoopback.
func (s *Session) Send(peerID string, data []byte) error {
	if peerID == s.LocalID() {
		return ErrLoopback
	}

	s.mu.Lock()
	conn, ok := s.conns[peerID]
	s.mu.Unlock()

	if !ok {
		s.logger.Debug("dropping message for unknown peer", "peer", peerID)
		return nil
	}
	return s.write(conn, data)
}

// Broadcast writes data to every open connection.
func (s *Session) Broadcast(data []byte) error {
	s.mu.Lock()
	conns := make([]transport.Conn, 0, len(s.order))
	for _, id := range s.order {
		conns = append(conns, s.conns[id])
	}
	s.mu.Unlock()

	var errs []error
	for _, conn := range conns {
		if err := s.write(conn, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) write(conn transport.Conn, data []byte) error {
	err := conn.Send(data)
	if errors.Is(err, transport.ErrConnClosed) {
		s.logger.Debug("dropping message for closed connection", "peer", conn.Peer())
		return nil
	}
	return err
}

// Peers returns the local id followed by the ids of every open connection,
// in the order they were added.
func (s *Session) Peers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers := make([]string, 0, len(s.order)+1)
	peers = append(peers, s.LocalID())
	return append(peers, s.order...)
}

// OnData registers fn to receive every inbound message.
func (s *Session) OnData(fn DataFunc) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.onData = append(s.onData, fn)
}

// OnNewConnection registers fn to be told about every admitted or dialed connection.
func (s *Session) OnNewConnection(fn ConnectionFunc) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.onOpen = append(s.onOpen, fn)
}

// OnRemovedConnection registers fn to be told, exactly once per connection,
// when an open connection is removed.
func (s *Session) OnRemovedConnection(fn ConnectionFunc) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.onRemoved = append(s.onRemoved, fn)
}

// Close closes every connection and releases the room code. Listeners are
// not notified of connections torn down by Close.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.cancel()

		s.mu.Lock()
		conns := make([]transport.Conn, 0, len(s.conns))
		for _, conn := range s.conns {
			conns = append(conns, conn)
		}
		s.conns = make(map[string]transport.Conn)
		s.order = nil
		s.mu.Unlock()

		for _, conn := range conns {
			conn.Close()
		}

		<-s.ready
		if s.endpoint != nil {
			s.endpoint.Close()
		}
		s.logger.Info("session closed")
	})
	return nil
}

func (s *Session) accept(endpoint transport.Endpoint) {
	for {
		conn, err := endpoint.Accept(s.ctx)
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) && !errors.Is(err, context.Canceled) {
				s.logger.Warn("accept failed", "error", err)
			}
			return
		}
		if !s.post(event{kind: eventAdmit, conn: conn}) {
			conn.Close()
			return
		}
	}
}

func (s *Session) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.closed:
		return false
	}
}

// run is the dispatch loop. It is the only goroutine that mutates the
// connection map and the only one that invokes listeners.
func (s *Session) run() {
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		case <-s.closed:
			return
		}
	}
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case eventAdmit:
		snap := admission.Snapshot{LocalID: s.LocalID(), Peers: s.Peers()}
		if !s.policy(ev.conn, snap) {
			s.logger.Debug("connection rejected", "peer", ev.conn.Peer())
			ev.conn.Close()
			return
		}
		s.add(ev.conn)

	case eventOpen:
		s.add(ev.conn)
		close(ev.done)

	case eventData:
		s.mu.Lock()
		current := s.conns[ev.conn.Peer()] == ev.conn
		s.mu.Unlock()
		if !current {
			return
		}
		for _, fn := range s.dataListeners() {
			fn(ev.conn.Peer(), ev.data)
		}

	case eventClose:
		s.remove(ev.conn)
	}
}

// add stores conn, replacing any previous connection to the same peer, and
// starts reading from it.
func (s *Session) add(conn transport.Conn) {
	peerID := conn.Peer()

	s.mu.Lock()
	previous, replaced := s.conns[peerID]
	if !replaced {
		s.order = append(s.order, peerID)
	}
	s.conns[peerID] = conn
	s.mu.Unlock()

	if replaced {
		previous.Close()
		for _, fn := range s.removedListeners() {
			fn(previous)
		}
	}

	s.logger.Info("peer connected", "peer", peerID)
	for _, fn := range s.openListeners() {
		fn(conn)
	}
	go s.read(conn)
}

func (s *Session) remove(conn transport.Conn) {
	peerID := conn.Peer()

	s.mu.Lock()
	current, ok := s.conns[peerID]
	if !ok || current != conn {
		s.mu.Unlock()
		return
	}
	delete(s.conns, peerID)
	for i, id := range s.order {
		if id == peerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if err := conn.Err(); err != nil {
		s.logger.Info("peer disconnected", "peer", peerID, "error", err)
	} else {
		s.logger.Info("peer disconnected", "peer", peerID)
	}
	for _, fn := range s.removedListeners() {
		fn(conn)
	}
}

// read forwards inbound messages from conn to the dispatch loop until the
// connection closes.
func (s *Session) read(conn transport.Conn) {
	for data := range conn.Messages() {
		if !s.post(event{kind: eventData, conn: conn, data: data}) {
			return
		}
	}
	s.post(event{kind: eventClose, conn: conn})
}

func (s *Session) dataListeners() []DataFunc {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	return append([]DataFunc(nil), s.onData...)
}

func (s *Session) openListeners() []ConnectionFunc {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	return append([]ConnectionFunc(nil), s.onOpen...)
}

func (s *Session) removedListeners() []ConnectionFunc {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	return append([]ConnectionFunc(nil), s.onRemoved...)
}
