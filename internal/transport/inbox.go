package transport

import "sync"

// inbox buffers inbound messages for one connection. Producers push without
// blocking; a pump goroutine hands messages to the Messages channel in order.
// Once the inbox is shut down the pump still delivers everything queued
// before the shutdown, then closes Messages. discard drops that backlog when
// the local side stops reading.
type inbox struct {
	mu     sync.Mutex
	queue  [][]byte
	notify chan struct{}
	err    error

	messages    chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	stop        chan struct{}
	discardOnce sync.Once
}

func newInbox() *inbox {
	b := &inbox{
		notify:   make(chan struct{}, 1),
		messages: make(chan []byte),
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
	}
	go b.pump()
	return b
}

func (b *inbox) push(data []byte) error {
	b.mu.Lock()
	select {
	case <-b.done:
		b.mu.Unlock()
		return ErrConnClosed
	default:
	}
	b.queue = append(b.queue, data)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

func (b *inbox) pump() {
	defer close(b.messages)
	for {
		closing := false
		select {
		case <-b.notify:
		case <-b.done:
			closing = true
		}

		b.mu.Lock()
		pending := b.queue
		b.queue = nil
		b.mu.Unlock()

		for _, data := range pending {
			select {
			case b.messages <- data:
			case <-b.stop:
				return
			}
		}
		if closing {
			return
		}
	}
}

// shutdown stops accepting pushes and records err. Messages already queued
// are still delivered. It reports whether this call was the one that closed
// the inbox.
func (b *inbox) shutdown(err error) bool {
	closed := false
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.err = err
		close(b.done)
		b.mu.Unlock()
		closed = true
	})
	return closed
}

// discard drops any undelivered backlog and lets the pump exit without a
// reader.
func (b *inbox) discard() {
	b.discardOnce.Do(func() { close(b.stop) })
}

func (b *inbox) Messages() <-chan []byte {
	return b.messages
}

func (b *inbox) Done() <-chan struct{} {
	return b.done
}

func (b *inbox) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
