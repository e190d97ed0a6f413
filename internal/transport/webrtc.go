package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/signaling"
)

// Compile-time interface checks.
var (
	_ Transport = (*WebRTC)(nil)
	_ Endpoint  = (*webrtcEndpoint)(nil)
	_ Conn      = (*dataChannelConn)(nil)
)

// dataChannelLabel names the single ordered data channel opened per peer pair.
const dataChannelLabel = "elmo"

// registerTimeout bounds the wait for the rendezvous server to confirm an id.
const registerTimeout = 15 * time.Second

// dialTimeout is the maximum time to wait for a dialed data channel to open.
const dialTimeout = 30 * time.Second

// closeFlushTimeout bounds how long Close waits for buffered sends to leave.
const closeFlushTimeout = time.Second

// WebRTC connects peers with pion data channels. Offers, answers and trickled
// ICE candidates travel through the rendezvous server over a websocket.
type WebRTC struct {
	signalingURL string
	ice          ICEConfig
	logger       *slog.Logger
}

// NewWebRTC creates a WebRTC transport that signals through signalingURL.
func NewWebRTC(signalingURL string, ice ICEConfig, logger *slog.Logger) *WebRTC {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebRTC{
		signalingURL: signalingURL,
		ice:          ice,
		logger:       logger,
	}
}

func (w *WebRTC) Register(ctx context.Context, id string) (Endpoint, error) {
	client := signaling.NewClient(w.signalingURL)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to rendezvous server: %w", err)
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	if err := client.SendMessage(&signaling.Message{Type: signaling.MessageTypeRegister, ID: id}); err != nil {
		client.Close()
		return nil, fmt.Errorf("register %s: %w", id, err)
	}

	select {
	case registered, ok := <-handler.Registered:
		if !ok || registered != id {
			client.Close()
			return nil, fmt.Errorf("register %s: rendezvous server closed the connection", id)
		}
	case msg, ok := <-handler.Error:
		client.Close()
		if ok && msg.Error == signaling.ErrorIDTaken {
			return nil, fmt.Errorf("register %s: %w", id, ErrIDTaken)
		}
		if ok {
			return nil, fmt.Errorf("register %s: %s", id, msg.Error)
		}
		return nil, fmt.Errorf("register %s: rendezvous server closed the connection", id)
	case <-time.After(registerTimeout):
		client.Close()
		return nil, fmt.Errorf("register %s: timed out after %s", id, registerTimeout)
	case <-ctx.Done():
		client.Close()
		return nil, ctx.Err()
	}

	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	endpoint := &webrtcEndpoint{
		id:      id,
		client:  client,
		handler: handler,
		api:     webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine)),
		config:  w.ice.configuration(),
		logger:  w.logger.With("local", id),
		peers:   make(map[string]*webrtcPeer),
		inbound: make(chan Conn, 16),
		closed:  make(chan struct{}),
	}
	go endpoint.route()

	w.logger.Info("registered with rendezvous server", "id", id)
	return endpoint, nil
}

type webrtcEndpoint struct {
	id      string
	client  *signaling.Client
	handler *signaling.Handler
	api     *webrtc.API
	config  webrtc.Configuration
	logger  *slog.Logger

	// peers maps remote id → the single PeerConnection to that peer.
	mu    sync.Mutex
	peers map[string]*webrtcPeer

	inbound chan Conn

	closed    chan struct{}
	closeOnce sync.Once
}

// webrtcPeer tracks the PeerConnection to one remote endpoint.
type webrtcPeer struct {
	remote   string
	metadata Metadata
	pc       *webrtc.PeerConnection

	// failed receives the first fatal error while a dial is pending.
	failed chan error

	// Candidates gathered before our SDP went out are held back so the
	// remote side always sees the description first.
	signalMu          sync.Mutex
	described         bool
	outgoingCandidate []webrtc.ICECandidateInit
	conn              *dataChannelConn

	// Touched only by the route goroutine.
	remoteDescribed   bool
	pendingCandidates []webrtc.ICECandidateInit
}

func (p *webrtcPeer) setConnection(conn *dataChannelConn) {
	p.signalMu.Lock()
	p.conn = conn
	p.signalMu.Unlock()
}

func (p *webrtcPeer) connection() *dataChannelConn {
	p.signalMu.Lock()
	defer p.signalMu.Unlock()
	return p.conn
}

func (e *webrtcEndpoint) ID() string {
	return e.id
}

func (e *webrtcEndpoint) Dial(ctx context.Context, remote string, metadata Metadata) (Conn, error) {
	select {
	case <-e.closed:
		return nil, ErrClosed
	default:
	}

	peer, err := e.newPeer(remote, metadata)
	if err != nil {
		return nil, err
	}

	ordered := true
	dc, err := peer.pc.CreateDataChannel(dataChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		e.dropPeer(peer, err)
		return nil, fmt.Errorf("creating data channel: %w", err)
	}

	opened := make(chan struct{})
	conn := newDataChannelConn(e, peer, dc)
	peer.setConnection(conn)
	dc.OnOpen(func() { close(opened) })

	offer, err := peer.pc.CreateOffer(nil)
	if err != nil {
		e.dropPeer(peer, err)
		return nil, fmt.Errorf("creating SDP offer: %w", err)
	}
	if err := peer.pc.SetLocalDescription(offer); err != nil {
		e.dropPeer(peer, err)
		return nil, fmt.Errorf("setting local description: %w", err)
	}

	err = e.client.SendMessage(&signaling.Message{
		Type:     signaling.MessageTypeSignal,
		Target:   remote,
		Metadata: metadata,
		Payload: &signaling.SignalPayload{
			Type: signaling.SignalOffer,
			SDP:  offer.SDP,
		},
	})
	if err != nil {
		e.dropPeer(peer, err)
		return nil, fmt.Errorf("publishing SDP offer: %w", err)
	}
	e.flushCandidates(peer)

	e.logger.Debug("WebRTC offer sent", "peer", remote)

	select {
	case <-opened:
		e.logger.Info("data channel opened", "peer", remote)
		return conn, nil
	case err := <-peer.failed:
		e.dropPeer(peer, err)
		return nil, fmt.Errorf("dial %s: %w", remote, err)
	case <-time.After(dialTimeout):
		e.dropPeer(peer, context.DeadlineExceeded)
		return nil, fmt.Errorf("dial %s: data channel did not open within %s", remote, dialTimeout)
	case <-ctx.Done():
		e.dropPeer(peer, ctx.Err())
		return nil, ctx.Err()
	case <-e.closed:
		return nil, ErrClosed
	}
}

func (e *webrtcEndpoint) Accept(ctx context.Context) (Conn, error) {
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

func (e *webrtcEndpoint) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.client.Close()

		e.mu.Lock()
		peers := make([]*webrtcPeer, 0, len(e.peers))
		for _, peer := range e.peers {
			peers = append(peers, peer)
		}
		e.mu.Unlock()

		for _, peer := range peers {
			if conn := peer.connection(); conn != nil {
				conn.discard()
			}
			e.dropPeer(peer, nil)
		}
		drainInbound(e.inbound)
	})
	return nil
}

// newPeer creates a PeerConnection to remote and stores it, replacing any
// previous connection to the same peer.
func (e *webrtcEndpoint) newPeer(remote string, metadata Metadata) (*webrtcPeer, error) {
	pc, err := e.api.NewPeerConnection(e.config)
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}

	peer := &webrtcPeer{
		remote:   remote,
		metadata: metadata,
		pc:       pc,
		failed:   make(chan error, 1),
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		peer.signalMu.Lock()
		if !peer.described {
			peer.outgoingCandidate = append(peer.outgoingCandidate, c.ToJSON())
			peer.signalMu.Unlock()
			return
		}
		peer.signalMu.Unlock()
		e.sendCandidate(remote, c.ToJSON())
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		e.logger.Debug("peer connection state change", "peer", remote, "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed:
			e.dropPeer(peer, errors.New("ICE connection failed"))
		case webrtc.PeerConnectionStateClosed:
			e.dropPeer(peer, nil)
		}
	})

	e.mu.Lock()
	previous := e.peers[remote]
	e.peers[remote] = peer
	e.mu.Unlock()

	if previous != nil {
		e.dropPeer(previous, nil)
	}
	return peer, nil
}

// dropPeer tears down a peer and its connection. Safe to call repeatedly.
func (e *webrtcEndpoint) dropPeer(peer *webrtcPeer, cause error) {
	e.mu.Lock()
	if current, ok := e.peers[peer.remote]; ok && current == peer {
		delete(e.peers, peer.remote)
	}
	e.mu.Unlock()

	if cause != nil {
		select {
		case peer.failed <- cause:
		default:
		}
	}
	if conn := peer.connection(); conn != nil {
		conn.shutdown(cause)
	}
	peer.pc.Close()
}

func (e *webrtcEndpoint) lookup(remote string) *webrtcPeer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peers[remote]
}

// flushCandidates marks the local description as sent and releases the
// candidates gathered in the meantime.
func (e *webrtcEndpoint) flushCandidates(peer *webrtcPeer) {
	peer.signalMu.Lock()
	peer.described = true
	pending := peer.outgoingCandidate
	peer.outgoingCandidate = nil
	peer.signalMu.Unlock()

	for _, candidate := range pending {
		e.sendCandidate(peer.remote, candidate)
	}
}

func (e *webrtcEndpoint) sendCandidate(remote string, candidate webrtc.ICECandidateInit) {
	raw, err := json.Marshal(candidate)
	if err != nil {
		e.logger.Warn("encoding ICE candidate failed", "peer", remote, "error", err)
		return
	}
	e.client.SendMessage(&signaling.Message{
		Type:   signaling.MessageTypeSignal,
		Target: remote,
		Payload: &signaling.SignalPayload{
			Type:         signaling.SignalCandidate,
			ICECandidate: raw,
		},
	})
}

// route handles signaling messages until the endpoint closes or the
// rendezvous connection drops. Established data channels survive the drop.
func (e *webrtcEndpoint) route() {
	for {
		select {
		case msg, ok := <-e.handler.Signal:
			if !ok {
				e.logger.Warn("rendezvous connection lost")
				return
			}
			if err := e.handleSignal(msg); err != nil {
				e.logger.Warn("signal handling failed", "peer", msg.From, "error", err)
			}

		case msg, ok := <-e.handler.Error:
			if !ok {
				return
			}
			e.logger.Debug("rendezvous error", "error", msg.Error, "target", msg.Target)
			if msg.Target == "" {
				continue
			}
			if peer := e.lookup(msg.Target); peer != nil {
				cause := errors.New(msg.Error)
				if msg.Error == signaling.ErrorPeerUnavailable {
					cause = ErrPeerUnavailable
				}
				e.dropPeer(peer, cause)
			}

		case <-e.closed:
			return
		}
	}
}

func (e *webrtcEndpoint) handleSignal(msg *signaling.Message) error {
	switch msg.Payload.Type {
	case signaling.SignalOffer:
		return e.answerOffer(msg)

	case signaling.SignalAnswer:
		peer := e.lookup(msg.From)
		if peer == nil {
			return fmt.Errorf("answer from unknown peer")
		}
		answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: msg.Payload.SDP}
		if err := peer.pc.SetRemoteDescription(answer); err != nil {
			return fmt.Errorf("setting remote description: %w", err)
		}
		return e.remoteDescribed(peer)

	case signaling.SignalCandidate:
		peer := e.lookup(msg.From)
		if peer == nil {
			return fmt.Errorf("ICE candidate from unknown peer")
		}
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal(msg.Payload.ICECandidate, &candidate); err != nil {
			return fmt.Errorf("parse ICE candidate: %w", err)
		}
		if !peer.remoteDescribed {
			peer.pendingCandidates = append(peer.pendingCandidates, candidate)
			return nil
		}
		if err := peer.pc.AddICECandidate(candidate); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unexpected signal type: %s", msg.Payload.Type)
	}
}

// remoteDescribed applies the candidates that arrived before the remote description.
func (e *webrtcEndpoint) remoteDescribed(peer *webrtcPeer) error {
	peer.remoteDescribed = true
	pending := peer.pendingCandidates
	peer.pendingCandidates = nil
	for _, candidate := range pending {
		if err := peer.pc.AddICECandidate(candidate); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
	}
	return nil
}

// answerOffer creates a PeerConnection in response to an incoming SDP offer.
// The data channel is handed to Accept once it opens.
func (e *webrtcEndpoint) answerOffer(msg *signaling.Message) error {
	peer, err := e.newPeer(msg.From, Metadata(msg.Metadata))
	if err != nil {
		return err
	}

	peer.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != dataChannelLabel {
			e.logger.Debug("ignoring unexpected data channel", "peer", peer.remote, "label", dc.Label())
			dc.Close()
			return
		}
		conn := newDataChannelConn(e, peer, dc)
		peer.setConnection(conn)
		dc.OnOpen(func() {
			select {
			case e.inbound <- conn:
			case <-e.closed:
				conn.Close()
			}
		})
	})

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: msg.Payload.SDP}
	if err := peer.pc.SetRemoteDescription(offer); err != nil {
		e.dropPeer(peer, err)
		return fmt.Errorf("setting remote description: %w", err)
	}
	if err := e.remoteDescribed(peer); err != nil {
		e.dropPeer(peer, err)
		return err
	}

	answer, err := peer.pc.CreateAnswer(nil)
	if err != nil {
		e.dropPeer(peer, err)
		return fmt.Errorf("creating SDP answer: %w", err)
	}
	if err := peer.pc.SetLocalDescription(answer); err != nil {
		e.dropPeer(peer, err)
		return fmt.Errorf("setting local description: %w", err)
	}

	err = e.client.SendMessage(&signaling.Message{
		Type:   signaling.MessageTypeSignal,
		Target: peer.remote,
		Payload: &signaling.SignalPayload{
			Type: signaling.SignalAnswer,
			SDP:  answer.SDP,
		},
	})
	if err != nil {
		e.dropPeer(peer, err)
		return fmt.Errorf("publishing SDP answer: %w", err)
	}
	e.flushCandidates(peer)

	e.logger.Debug("WebRTC offer answered", "peer", peer.remote)
	return nil
}

// dataChannelConn adapts a pion data channel to Conn.
type dataChannelConn struct {
	*inbox

	endpoint *webrtcEndpoint
	peer     *webrtcPeer
	dc       *webrtc.DataChannel
}

func newDataChannelConn(endpoint *webrtcEndpoint, peer *webrtcPeer, dc *webrtc.DataChannel) *dataChannelConn {
	conn := &dataChannelConn{
		inbox:    newInbox(),
		endpoint: endpoint,
		peer:     peer,
		dc:       dc,
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		conn.push(msg.Data)
	})
	dc.OnClose(func() {
		endpoint.dropPeer(peer, nil)
	})
	return conn
}

func (c *dataChannelConn) Peer() string {
	return c.peer.remote
}

func (c *dataChannelConn) Metadata() Metadata {
	return c.peer.metadata
}

func (c *dataChannelConn) Send(data []byte) error {
	select {
	case <-c.Done():
		return ErrConnClosed
	default:
	}
	return c.dc.Send(data)
}

// Close flushes what Send has buffered, then tears the peer down. Messages
// the remote sent are discarded since nobody reads them anymore.
func (c *dataChannelConn) Close() error {
	c.discard()
	c.flush()
	c.endpoint.dropPeer(c.peer, nil)
	return nil
}

func (c *dataChannelConn) flush() {
	deadline := time.Now().Add(closeFlushTimeout)
	for c.dc.BufferedAmount() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}

func (c *dataChannelConn) shutdown(err error) {
	if c.inbox.shutdown(err) {
		c.dc.Close()
	}
}
