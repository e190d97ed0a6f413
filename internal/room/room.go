// Package room wires a peer session, the channel multiplexer and the state
// projection into the two roles of a game: the host, which owns the
// authoritative state, and the client, which joins it by room code.
package room

import (
	"log/slog"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/channel"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/config"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/game"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/roomcode"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/session"
)

// Options configures a Host or a Client.
type Options struct {
	// Username is the local player's display name.
	Username string

	// Codec maps room codes to rendezvous ids. Zero means roomcode.Default.
	Codec roomcode.Codec

	// Code fixes the hosted room code instead of generating one. Host only.
	Code string

	// MaxPlayers caps the room, host included. Zero means config.DefaultMaxPlayers.
	MaxPlayers int

	Logger *slog.Logger
}

func (o Options) codec() roomcode.Codec {
	if o.Codec.Namespace == "" {
		return roomcode.Default
	}
	return o.Codec
}

func (o Options) maxPlayers() int {
	if o.MaxPlayers <= 0 {
		return config.DefaultMaxPlayers
	}
	return o.MaxPlayers
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// channels is the typed view of the two game channels over one session.
type channels struct {
	mux     *channel.Mux
	actions channel.Channel[game.Action]
	states  channel.Channel[game.ClientState]
}

func openChannels(s *session.Session, logger *slog.Logger) channels {
	mux := channel.New(s, channel.DataChannel, channel.ActionChannel)
	mux.SetLogger(logger)
	return channels{
		mux:     mux,
		actions: channel.Open[game.Action](mux, channel.ActionChannel),
		states:  channel.Open[game.ClientState](mux, channel.DataChannel),
	}
}
