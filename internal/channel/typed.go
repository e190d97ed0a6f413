package channel

// Channel is a typed view of one multiplexed channel.
type Channel[T any] struct {
	mux  *Mux
	name string
}

// Open returns a typed view of the channel name on m.
func Open[T any](m *Mux, name string) Channel[T] {
	return Channel[T]{mux: m, name: name}
}

// Name returns the channel name.
func (c Channel[T]) Name() string {
	return c.name
}

// On registers fn for every payload on the channel. Payloads that do not
// decode into T are dropped and counted.
func (c Channel[T]) On(fn func(from string, v T)) error {
	return c.mux.Subscribe(c.name, func(msg Message) {
		var v T
		if err := msg.Decode(&v); err != nil {
			c.mux.drop("undecodable payload", "peer", msg.From, "channel", c.name, "error", err)
			return
		}
		fn(msg.From, v)
	})
}

// Send delivers v to peerID on the channel.
func (c Channel[T]) Send(peerID string, v T) error {
	return c.mux.Send(peerID, c.name, v)
}
