package game

import (
	"fmt"
	"strings"
)

// Color is one of the four card colors.
type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
)

// Colors lists every card color.
var Colors = []Color{Red, Blue, Green, Yellow}

// Card identifies a card, e.g. "7_red", "skip_blue", "wild_draw_four".
type Card string

const (
	Wild         Card = "wild"
	WildDrawFour Card = "wild_draw_four"
)

var coloredKinds = map[string]bool{
	"0": true, "1": true, "2": true, "3": true, "4": true,
	"5": true, "6": true, "7": true, "8": true, "9": true,
	"draw": true, "skip": true, "reverse": true,
}

// ParseCard validates a card identifier.
func ParseCard(s string) (Card, error) {
	card := Card(strings.ToLower(strings.TrimSpace(s)))
	if card == Wild || card == WildDrawFour {
		return card, nil
	}

	kind, color, ok := strings.Cut(string(card), "_")
	if !ok || !coloredKinds[kind] || !validColor(Color(color)) {
		return "", fmt.Errorf("invalid card %q", s)
	}
	return card, nil
}

// Color returns the card's color, or "" for wild cards.
func (c Card) Color() Color {
	_, color, ok := strings.Cut(string(c), "_")
	if !ok || !validColor(Color(color)) {
		return ""
	}
	return Color(color)
}

// Wild reports whether the card lets its player choose a color.
func (c Card) Wild() bool {
	return c == Wild || c == WildDrawFour
}

func validColor(c Color) bool {
	for _, color := range Colors {
		if c == color {
			return true
		}
	}
	return false
}
