package channel

import (
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// envelope is the wire frame for every multiplexed message.
type envelope struct {
	Channel string `msgpack:"channel"`
	Payload any    `msgpack:"payload"`
}

// rawEnvelope defers payload decoding until a subscriber names a type.
type rawEnvelope struct {
	Channel string             `msgpack:"channel"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

func encodeEnvelope(channel string, payload any) ([]byte, error) {
	return msgpack.Marshal(&envelope{Channel: channel, Payload: payload})
}

func decodeEnvelope(data []byte) (rawEnvelope, error) {
	var env rawEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return rawEnvelope{}, err
	}
	if env.Channel == "" {
		return rawEnvelope{}, fmt.Errorf("envelope without channel")
	}
	return env, nil
}

// Message is one payload delivered on a channel.
type Message struct {
	From    string
	Channel string

	raw   msgpack.RawMessage
	value any
	local bool
}

// Local reports whether the message was sent by this peer to itself.
func (m Message) Local() bool {
	return m.local
}

// Decode stores the payload in v, which must be a non-nil pointer. Loopback
// payloads are assigned directly when their type matches and round-trip
// through msgpack otherwise.
func (m Message) Decode(v any) error {
	if !m.local {
		return msgpack.Unmarshal(m.raw, v)
	}

	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("decode %s payload: non-nil pointer required, got %T", m.Channel, v)
	}
	if m.value != nil {
		value := reflect.ValueOf(m.value)
		if value.Type().AssignableTo(target.Elem().Type()) {
			target.Elem().Set(value)
			return nil
		}
	}

	data, err := msgpack.Marshal(m.value)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Channel, err)
	}
	return msgpack.Unmarshal(data, v)
}
