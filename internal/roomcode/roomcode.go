// Package roomcode generates the short codes players type to join a room and
// converts them to and from the rendezvous identifiers used by the transport.
//
// A rendezvous identifier is "<namespace>-<code>". The namespace keeps ElmO
// rooms apart from unrelated applications sharing the same public broker and
// is never shown to players.
package roomcode

import (
	"crypto/rand"
	"log"
	"math/big"
	"strings"
)

const (
	// Alphabet omits characters that are easy to misread (I, O).
	Alphabet = "ABCEDFGHJKLMNPQRSTUVWXYZ"

	// Length is the number of characters in a room code.
	Length = 4

	// DefaultNamespace is the deployment-wide rendezvous prefix.
	DefaultNamespace = "bGEgYmFuZGUgZGVzIGNyYWNrcyBlc3QgZGUgcmV0b3Vy"

	separator = "-"
)

// Codec converts between room codes and rendezvous identifiers for one namespace.
type Codec struct {
	Namespace string
}

// Default is the codec for DefaultNamespace.
var Default = Codec{Namespace: DefaultNamespace}

// New returns a codec for the given namespace, falling back to DefaultNamespace
// when it is empty.
func New(namespace string) Codec {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Codec{Namespace: namespace}
}

// Generate returns a fresh code. Each character is picked independently and
// uniformly from Alphabet. No collision check happens here: registering the
// identifier with the transport is what decides whether the code is free.
func Generate() string {
	var b strings.Builder
	b.Grow(Length)
	for range Length {
		b.WriteByte(Alphabet[randomIndex(len(Alphabet))])
	}
	return b.String()
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("Failed to generate random index:", err)
	}
	return int(n.Int64())
}

// Normalize trims surrounding space and upper-cases user input so that codes
// are case-insensitive in practice.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the right length and only uses Alphabet.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// ToRendezvous prepends the namespace to code.
func (c Codec) ToRendezvous(code string) string {
	return c.Namespace + separator + code
}

// FromRendezvous strips the namespace from id. Identifiers outside the
// namespace are returned unchanged.
func (c Codec) FromRendezvous(id string) string {
	return strings.TrimPrefix(id, c.Namespace+separator)
}
