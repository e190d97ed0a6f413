// Package admission decides whether an inbound connection may join a session.
package admission

import "github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/transport"

// Snapshot is a read-only view of the session at the moment a connection
// asks to be admitted.
type Snapshot struct {
	// LocalID is the session's own rendezvous id.
	LocalID string
	// Peers lists the local id followed by every open remote connection.
	Peers []string
}

// Policy reports whether pending should be admitted. Policies run on the
// session's dispatch goroutine and must not block or mutate state.
type Policy func(pending transport.Conn, snap Snapshot) bool

// AdmitAll admits every connection.
func AdmitAll(transport.Conn, Snapshot) bool {
	return true
}

// MaxPeers admits connections while the session holds fewer than n peers.
// The local id counts as a peer, so a four-player room is MaxPeers(4).
func MaxPeers(n int) Policy {
	return func(_ transport.Conn, snap Snapshot) bool {
		return len(snap.Peers) < n
	}
}

// All admits a connection only if every policy admits it.
func All(policies ...Policy) Policy {
	return func(pending transport.Conn, snap Snapshot) bool {
		for _, policy := range policies {
			if !policy(pending, snap) {
				return false
			}
		}
		return true
	}
}

// RequireMetadata rejects connections whose dial metadata is missing key.
func RequireMetadata(key string) Policy {
	return func(pending transport.Conn, _ Snapshot) bool {
		_, ok := pending.Metadata()[key]
		return ok
	}
}
