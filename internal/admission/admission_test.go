package admission

import (
	"testing"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/transport"
)

// stubConn satisfies transport.Conn for policy checks.
type stubConn struct {
	transport.Conn
	metadata transport.Metadata
}

func (c stubConn) Metadata() transport.Metadata { return c.metadata }

func TestMaxPeers(t *testing.T) {
	tests := []struct {
		name  string
		max   int
		peers []string
		want  bool
	}{
		{"host alone", 4, []string{"host"}, true},
		{"three seated", 4, []string{"host", "a", "b"}, true},
		{"room full", 4, []string{"host", "a", "b", "c"}, false},
		{"over capacity", 2, []string{"host", "a", "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{LocalID: "host", Peers: tt.peers}
			if got := MaxPeers(tt.max)(stubConn{}, snap); got != tt.want {
				t.Errorf("MaxPeers(%d) with %d peers = %v, want %v", tt.max, len(tt.peers), got, tt.want)
			}
		})
	}
}

func TestAll(t *testing.T) {
	snap := Snapshot{LocalID: "host", Peers: []string{"host"}}
	named := stubConn{metadata: transport.Metadata{transport.MetadataUsername: "alice"}}
	anonymous := stubConn{}

	policy := All(MaxPeers(2), RequireMetadata(transport.MetadataUsername))

	if !policy(named, snap) {
		t.Error("named connection rejected with a free seat")
	}
	if policy(anonymous, snap) {
		t.Error("connection without username admitted")
	}
	if policy(named, Snapshot{LocalID: "host", Peers: []string{"host", "bob"}}) {
		t.Error("connection admitted into a full room")
	}
	if !All()(anonymous, snap) {
		t.Error("empty All should admit")
	}
	if !AdmitAll(anonymous, snap) {
		t.Error("AdmitAll rejected a connection")
	}
}
