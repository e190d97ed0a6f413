package signaling

import "encoding/json"

// Message represents all WebSocket messages between peers and the rendezvous server.
type Message struct {
	Type     string            `json:"type"`
	ID       string            `json:"id,omitempty"`
	From     string            `json:"from,omitempty"`
	Target   string            `json:"target,omitempty"`
	Payload  *SignalPayload    `json:"payload,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Message type constants.
const (
	MessageTypeRegister = "register"
	MessageTypeSignal   = "signal"

	MessageTypeRegistered = "registered"
	MessageTypeError      = "error"
)

// Error strings carried by MessageTypeError.
const (
	ErrorIDTaken         = "id taken"
	ErrorInvalidID       = "invalid id"
	ErrorNotRegistered   = "not registered"
	ErrorPeerUnavailable = "peer unavailable"
)

// Signal payload kinds.
const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
)

// SignalPayload represents the WebRTC signaling data (SDP offer/answer or ICE candidate).
type SignalPayload struct {
	Type         string          `json:"type"`
	SDP          string          `json:"sdp,omitempty"`
	ICECandidate json.RawMessage `json:"ice_candidate,omitempty"`
}
