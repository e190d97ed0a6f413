package signaling

// Handler routes incoming signaling messages to appropriate channels.
type Handler struct {
	client     *Client
	Registered chan string
	Signal     chan *Message
	Error      chan *Message
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		Registered: make(chan string, 1),
		Signal:     make(chan *Message, 32),
		Error:      make(chan *Message, 8),
	}
}

// Start begins listening to incoming messages and routing them. It returns,
// closing every handler channel, once the client's connection is gone or the
// client is closed.
func (h *Handler) Start() {
	defer func() {
		close(h.Registered)
		close(h.Signal)
		close(h.Error)
	}()

	for {
		select {
		case msg, ok := <-h.client.Incoming():
			if !ok {
				return
			}
			if !h.route(msg) {
				return
			}
		case <-h.client.done:
			return
		}
	}
}

// route hands msg to its channel. It reports false if the client closed
// while the channel was full.
func (h *Handler) route(msg *Message) bool {
	switch msg.Type {

	case MessageTypeRegistered:
		select {
		case h.Registered <- msg.ID:
		case <-h.client.done:
			return false
		}

	case MessageTypeSignal:
		if msg.Payload == nil || msg.From == "" {
			return true
		}
		select {
		case h.Signal <- msg:
		case <-h.client.done:
			return false
		}

	case MessageTypeError:
		select {
		case h.Error <- msg:
		case <-h.client.done:
			return false
		}

	default:

	}
	return true
}
