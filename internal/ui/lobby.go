package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/game"
)

// LobbyState is a snapshot shown by the lobby.
type LobbyState struct {
	Status string
	Seats  []Seat
	Hand   []game.Card
	Active game.Card
}

// Lobby is the interactive room view shared by host and client.
type Lobby struct {
	program *tea.Program
	model   *lobbyModel
	updates chan LobbyState
	wg      sync.WaitGroup
}

type lobbyModel struct {
	title    string
	code     string
	state    LobbyState
	spinner  spinner.Model
	updates  chan LobbyState
	quitting bool
}

type lobbyClosedMsg struct{}

// NewLobby creates a lobby for the room identified by code.
func NewLobby(title, code string) *Lobby {
	updates := make(chan LobbyState, 16)

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = SpinnerStyle

	return &Lobby{
		model: &lobbyModel{
			title:   title,
			code:    code,
			state:   LobbyState{Status: "Waiting for players..."},
			spinner: s,
			updates: updates,
		},
		updates: updates,
	}
}

// Start runs the lobby in a goroutine.
func (l *Lobby) Start() {
	l.program = tea.NewProgram(l.model)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if _, err := l.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// Update replaces the displayed state. Updates are dropped while the view
// is behind.
func (l *Lobby) Update(state LobbyState) {
	select {
	case l.updates <- state:
	default:
	}
}

// Stop closes the lobby.
func (l *Lobby) Stop() {
	if l.program != nil {
		l.program.Send(lobbyClosedMsg{})
	}
	l.wg.Wait()
}

// Wait blocks until the user quits the lobby.
func (l *Lobby) Wait() {
	l.wg.Wait()
}

func (m *lobbyModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForUpdates())
}

func (m *lobbyModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m *lobbyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case lobbyClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case LobbyState:
		m.state = msg
		return m, m.listenForUpdates()
	}

	return m, nil
}

func (m *lobbyModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s %s  %s", IconRoom, m.title, BoldStyle.Render(m.code))))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), m.state.Status))
	b.WriteString(RosterView(m.state.Seats))
	b.WriteString("\n")

	if m.state.Active != "" {
		b.WriteString(fmt.Sprintf("\nOn the table: %s\n", HandView([]game.Card{m.state.Active})))
	}
	if len(m.state.Hand) > 0 {
		b.WriteString(fmt.Sprintf("Your hand:    %s\n", HandView(m.state.Hand)))
	}

	b.WriteString("\n" + MutedStyle.Render("Press q to leave"))
	return b.String()
}
