package cmd

import (
	"fmt"
	"sync"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/game"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/ui"
)

// roster tracks who sits in a hosted room from the join and leave actions.
type roster struct {
	mu      sync.Mutex
	hostID  string
	players []game.Player
}

func newRoster(hostID string) *roster {
	return &roster{hostID: hostID}
}

// apply updates the roster and reports whether the action changed it.
func (r *roster) apply(action game.Action) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	uuid := action.Get("uuid")
	switch action.Kind() {
	case game.ActionPlayerJoin:
		for _, p := range r.players {
			if p.UUID == uuid {
				return false
			}
		}
		r.players = append(r.players, game.Player{Name: action.Get("name"), UUID: uuid})
		return true

	case game.ActionPlayerLeave:
		for i, p := range r.players {
			if p.UUID == uuid {
				r.players = append(r.players[:i], r.players[i+1:]...)
				return true
			}
		}
	}
	return false
}

// state is the lobby game state: everybody seated, no cards dealt yet.
func (r *roster) state() game.HostState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return game.HostState{
		Players:       append([]game.Player(nil), r.players...),
		CurrentPlayer: r.hostID,
	}
}

func (r *roster) lobby() ui.LobbyState {
	state := r.state()
	return ui.LobbyState{
		Status: fmt.Sprintf("%d player(s) seated, waiting for more...", len(state.Players)),
		Seats:  hostSeats(state, r.hostID),
	}
}

func hostSeats(state game.HostState, hostID string) []ui.Seat {
	seats := make([]ui.Seat, 0, len(state.Players))
	for _, p := range state.Players {
		seats = append(seats, ui.Seat{
			Name:  p.Name,
			UUID:  p.UUID,
			Cards: len(p.Hand),
			Host:  p.UUID == hostID,
			AI:    p.IsAI,
			You:   p.UUID == hostID,
		})
	}
	return seats
}

// clientLobby turns a projected view into lobby rows, local player first.
func clientLobby(state game.ClientState, hostID string) ui.LobbyState {
	seats := []ui.Seat{{
		Name:  state.LocalPlayer.Name,
		UUID:  state.LocalPlayer.UUID,
		Cards: len(state.LocalPlayer.Hand),
		You:   true,
	}}
	for _, p := range state.DistantPlayers {
		seats = append(seats, ui.Seat{
			Name:  p.Name,
			UUID:  p.UUID,
			Cards: p.Cards,
			Host:  p.UUID == hostID,
		})
	}

	status := "Waiting for the host to start..."
	if state.GameOver {
		status = "Game over"
	} else if state.ActiveCard != "" {
		status = "Game in progress"
	}
	return ui.LobbyState{
		Status: status,
		Seats:  seats,
		Hand:   state.LocalPlayer.Hand,
		Active: state.ActiveCard,
	}
}
