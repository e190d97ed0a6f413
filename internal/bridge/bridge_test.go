package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/game"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/room"
)

type fakeHost struct {
	onAction  func(string, game.Action)
	onState   func(game.ClientState)
	actions   []game.Action
	published []game.HostState
}

func (h *fakeHost) Open(context.Context) (string, error) { return "ABCD", nil }
func (h *fakeHost) PeerID() string { return "elmo-ABCD" }
func (h *fakeHost) OnAction(fn func(string, game.Action)) error { h.onAction = fn; return nil }
func (h *fakeHost) OnState(fn func(game.ClientState)) error { h.onState = fn; return nil }
func (h *fakeHost) SendAction(a game.Action) error { h.actions = append(h.actions, a); return nil }
func (h *fakeHost) PublishState(s game.HostState) error { h.published = append(h.published, s); return nil }

type fakeClient struct {
	onState func(game.ClientState)
	actions []game.Action
	left    chan struct{}
}

func (c *fakeClient) Join(_ context.Context, code string) room.JoinResult {
	return room.JoinResult{Code: code, PeerID: "elmo-GST1", OK: true}
}

func (c *fakeClient) OnState(fn func(game.ClientState)) error { c.onState = fn; return nil }
func (c *fakeClient) SendAction(a game.Action) error { c.actions = append(c.actions, a); return nil }
func (c *fakeClient) Left() <-chan struct{} { return c.left }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func frames(t *testing.T, out *bytes.Buffer) []Frame {
	t.Helper()
	var result []Frame
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var frame Frame
		if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
			t.Fatalf("bad output line %q: %v", scanner.Text(), err)
		}
		result = append(result, frame)
	}
	return result
}

func TestServeHost(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"state","payload":{"players":[{"name":"hana","uuid":"h","hand":["7_RED"]}],"currentPlayer":"h","drawStack":0,"activeCard":"3_red","activeColor":"red"}}`,
		`{"type":"state","payload":{"players":[{"name":"hana","uuid":"h","hand":["13_red"]}],"currentPlayer":"h","activeCard":"3_red"}}`,
		`not json`,
		``,
		`{"type":"action","payload":{"action":"drawCard"}}`,
		`{"type":"bogus"}`,
	}, "\n")

	var out bytes.Buffer
	host := &fakeHost{}
	b := New(strings.NewReader(input), &out, quiet)

	if err := b.ServeHost(context.Background(), host); err != nil {
		t.Fatalf("ServeHost: %v", err)
	}

	if len(host.published) != 1 || host.published[0].Players[0].Hand[0] != "7_red" {
		t.Errorf("published = %+v", host.published)
	}
	if len(host.actions) != 1 || host.actions[0].Kind() != "drawCard" {
		t.Errorf("actions = %v", host.actions)
	}

	host.onAction("peer-1", game.PlayerJoin("peer-1", "ola"))
	host.onState(game.ClientState{CurrentPlayer: "h"})

	got := frames(t, &out)
	if len(got) != 3 {
		t.Fatalf("wrote %d frames, want 3: %+v", len(got), got)
	}

	var info RoomInfo
	json.Unmarshal(got[0].Payload, &info)
	if got[0].Type != FrameRoom || info.Code != "ABCD" || info.PeerID != "elmo-ABCD" {
		t.Errorf("room frame = %+v", got[0])
	}
	if got[1].Type != FrameAction || got[1].From != "peer-1" {
		t.Errorf("action frame = %+v", got[1])
	}
	var state game.ClientState
	json.Unmarshal(got[2].Payload, &state)
	if got[2].Type != FrameState || state.CurrentPlayer != "h" {
		t.Errorf("state frame = %+v", got[2])
	}
}

func TestServeClient_StopsWhenHostLeaves(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	var out bytes.Buffer
	client := &fakeClient{left: make(chan struct{})}
	b := New(reader, &out, quiet)

	done := make(chan error, 1)
	go func() {
		done <- b.ServeClient(context.Background(), client, "ABCD")
	}()

	writer.Write([]byte(`{"type":"action","payload":{"action":"playCard","card":"wild"}}` + "\n"))
	close(client.left)

	select {
	case err := <-done:
		if !errors.Is(err, ErrHostLeft) {
			t.Errorf("ServeClient error = %v, want ErrHostLeft", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ServeClient kept running after the host left")
	}

	got := frames(t, &out)
	if len(got) == 0 || got[0].Type != FrameRoom || got[len(got)-1].Type != FrameLeft {
		t.Errorf("frames = %+v, want room first and left last", got)
	}
}
