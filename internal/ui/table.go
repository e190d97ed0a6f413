package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/game"
)

// Seat is one row of the roster.
type Seat struct {
	Name  string
	UUID  string
	Cards int
	Host  bool
	AI    bool
	You   bool
}

// RosterView renders the players of a room as a table.
func RosterView(seats []Seat) string {
	if len(seats) == 0 {
		return MutedStyle.Render("No players yet")
	}

	rows := make([][]string, 0, len(seats))
	for i, seat := range seats {
		name := seat.Name
		if name == "" {
			name = MutedStyle.Render("(anonymous)")
		}
		if seat.You {
			name += " (you)"
		}
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), seatIcon(seat), name, fmt.Sprintf("%d", seat.Cards)})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("#", "", "Player", "Cards").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func seatIcon(seat Seat) string {
	switch {
	case seat.Host:
		return IconHost
	case seat.AI:
		return IconBot
	default:
		return IconPeer
	}
}

// HandView renders a player's cards, colored by card color.
// Wild cards take the secondary color.
func HandView(hand []game.Card) string {
	if len(hand) == 0 {
		return MutedStyle.Render("No cards")
	}
	cards := make([]string, 0, len(hand))
	for _, card := range hand {
		style := lipgloss.NewStyle().Bold(true)
		if card.Wild() {
			style = style.Foreground(Secondary)
		} else if c, known := CardColors[card.Color()]; known {
			style = style.Foreground(c)
		}
		cards = append(cards, style.Render("["+string(card)+"]"))
	}
	return IconCards + " " + strings.Join(cards, " ")
}

// RoomInfoView renders the box announcing a freshly opened room that seats
// up to maxPlayers, host included.
func RoomInfoView(code string, maxPlayers int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Room Open!\n\n%s Room code:  %s\n%s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(code),
		MutedStyle.Render(fmt.Sprintf("Share the code with up to %d other player(s).", maxPlayers-1)),
	)

	return boxStyle.Render(content)
}

func RenderRoomInfo(code string, maxPlayers int) {
	fmt.Println(RoomInfoView(code, maxPlayers))
}
