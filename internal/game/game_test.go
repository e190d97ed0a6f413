package game

import (
	"errors"
	"reflect"
	"testing"
)

func TestProject_RotatesRecipientFirst(t *testing.T) {
	host := HostState{
		Players: []Player{
			{Name: "A", UUID: "a", Hand: []Card{"1_red", "2_blue"}},
			{Name: "B", UUID: "b", Hand: []Card{"wild"}},
			{Name: "C", UUID: "c"},
		},
		CurrentPlayer: "a",
		DrawStack:     2,
		ActiveCard:    "draw_green",
		ActiveColor:   Green,
	}

	got, err := Project(host, "b")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	want := ClientState{
		DistantPlayers: []DistantPlayer{
			{Name: "C", UUID: "c", Cards: 0},
			{Name: "A", UUID: "a", Cards: 2},
		},
		LocalPlayer:   Player{Name: "B", UUID: "b", Hand: []Card{"wild"}},
		CurrentPlayer: "a",
		DrawStack:     2,
		ActiveCard:    "draw_green",
		ActiveColor:   Green,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Project(b) =\n%+v\nwant\n%+v", got, want)
	}
}

func TestProject_DoesNotAliasHostHand(t *testing.T) {
	host := HostState{Players: []Player{{Name: "A", UUID: "a", Hand: []Card{"3_red"}}}}

	view, err := Project(host, "a")
	if err != nil {
		t.Fatal(err)
	}
	view.LocalPlayer.Hand[0] = "wild"

	if host.Players[0].Hand[0] != "3_red" {
		t.Error("mutating the projection changed the host state")
	}
	if len(view.DistantPlayers) != 0 {
		t.Errorf("solo projection has %d distant players", len(view.DistantPlayers))
	}
}

func TestProject_UnknownRecipient(t *testing.T) {
	host := HostState{Players: []Player{{Name: "A", UUID: "a"}}}

	if _, err := Project(host, "z"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("Project(z) error = %v, want ErrUnknownPlayer", err)
	}
}

func TestParseCard(t *testing.T) {
	tests := []struct {
		in    string
		want  Card
		color Color
		ok    bool
	}{
		{"7_red", "7_red", Red, true},
		{" Skip_Blue ", "skip_blue", Blue, true},
		{"reverse_yellow", "reverse_yellow", Yellow, true},
		{"draw_green", "draw_green", Green, true},
		{"wild", Wild, "", true},
		{"wild_draw_four", WildDrawFour, "", true},
		{"10_red", "", "", false},
		{"7_purple", "", "", false},
		{"red", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			card, err := ParseCard(tt.in)
			if (err == nil) != tt.ok {
				t.Fatalf("ParseCard(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			}
			if card != tt.want {
				t.Errorf("ParseCard(%q) = %q, want %q", tt.in, card, tt.want)
			}
			if card.Color() != tt.color {
				t.Errorf("%q.Color() = %q, want %q", card, card.Color(), tt.color)
			}
		})
	}
}

func TestActions(t *testing.T) {
	join := PlayerJoin("peer-1", "alice")
	if join.Kind() != ActionPlayerJoin || join.Get("uuid") != "peer-1" || join.Get("name") != "alice" {
		t.Errorf("PlayerJoin = %v", join)
	}

	leave := PlayerLeave("peer-1")
	if leave.Kind() != ActionPlayerLeave || leave.Get("uuid") != "peer-1" {
		t.Errorf("PlayerLeave = %v", leave)
	}

	if (Action{"card": "wild"}).Kind() != "" {
		t.Error("action without kind reported one")
	}
}
