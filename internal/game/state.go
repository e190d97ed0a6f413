// Package game holds the data exchanged between the host's rules engine and
// the players, and the projection of host state into per-player views.
package game

// Player is the host's full record of one seat.
type Player struct {
	Name    string `msgpack:"name" json:"name"`
	UUID    string `msgpack:"uuid" json:"uuid"`
	Hand    []Card `msgpack:"hand" json:"hand"`
	SaidUno bool   `msgpack:"saidUno" json:"saidUno"`
	IsAI    bool   `msgpack:"isAI" json:"isAI"`
}

// HostState is the authoritative game state kept by the host.
type HostState struct {
	Players       []Player `msgpack:"players" json:"players"`
	CurrentPlayer string   `msgpack:"currentPlayer" json:"currentPlayer"`
	DrawStack     int      `msgpack:"drawStack" json:"drawStack"`
	ActiveCard    Card     `msgpack:"activeCard" json:"activeCard"`
	ActiveColor   Color    `msgpack:"activeColor" json:"activeColor"`
	GameOver      bool     `msgpack:"gameOver" json:"gameOver"`
}

// DistantPlayer is what a player may know about an opponent.
type DistantPlayer struct {
	Name  string `msgpack:"name" json:"name"`
	UUID  string `msgpack:"uuid" json:"uuid"`
	Cards int    `msgpack:"cards" json:"cards"`
}

// ClientState is one player's view of the game.
type ClientState struct {
	DistantPlayers []DistantPlayer `msgpack:"distantPlayers" json:"distantPlayers"`
	LocalPlayer    Player          `msgpack:"localPlayer" json:"localPlayer"`
	CurrentPlayer  string          `msgpack:"currentPlayer" json:"currentPlayer"`
	DrawStack      int             `msgpack:"drawStack" json:"drawStack"`
	ActiveCard     Card            `msgpack:"activeCard" json:"activeCard"`
	ActiveColor    Color           `msgpack:"activeColor" json:"activeColor"`
	GameOver       bool            `msgpack:"gameOver" json:"gameOver"`
}
