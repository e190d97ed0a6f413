package game

import (
	"errors"
	"fmt"
)

var ErrUnknownPlayer = errors.New("unknown player")

// Project builds recipient's view of host. Players are rotated so that the
// recipient comes first; opponents keep their name and card count only.
func Project(host HostState, recipient string) (ClientState, error) {
	index := -1
	for i, player := range host.Players {
		if player.UUID == recipient {
			index = i
			break
		}
	}
	if index < 0 {
		return ClientState{}, fmt.Errorf("project for %s: %w", recipient, ErrUnknownPlayer)
	}

	local := host.Players[index]
	local.Hand = append([]Card(nil), local.Hand...)

	n := len(host.Players)
	distant := make([]DistantPlayer, 0, n-1)
	for offset := 1; offset < n; offset++ {
		player := host.Players[(index+offset)%n]
		distant = append(distant, DistantPlayer{
			Name:  player.Name,
			UUID:  player.UUID,
			Cards: len(player.Hand),
		})
	}

	return ClientState{
		DistantPlayers: distant,
		LocalPlayer:    local,
		CurrentPlayer:  host.CurrentPlayer,
		DrawStack:      host.DrawStack,
		ActiveCard:     host.ActiveCard,
		ActiveColor:    host.ActiveColor,
		GameOver:       host.GameOver,
	}, nil
}
