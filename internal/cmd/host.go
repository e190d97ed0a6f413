package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/bridge"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/game"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/room"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/roomcode"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/ui"
)

var (
	flagHostName   string
	flagHostCode   string
	flagMaxPlayers int
	flagHostBridge bool
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Open a room and wait for players",
	Long: `Open a room on the rendezvous server and wait for players to join.

With --bridge the room is driven by an external rules engine speaking
newline-delimited JSON on stdin and stdout.

Examples:
  elmo host --name Alice
  elmo host --code ABCD --max-players 3
  elmo host --bridge < engine.fifo > room.fifo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagHostCode != "" && !roomcode.Valid(roomcode.Normalize(flagHostCode)) {
			return errInvalidCode(flagHostCode)
		}
		return hostRoom(cmd.Context())
	},
}

func hostRoom(ctx context.Context) error {
	cfg, err := loadConfig(flagMaxPlayers)
	if err != nil {
		return err
	}

	host := room.NewHost(newTransport(cfg), room.Options{
		Username:   flagHostName,
		Codec:      cfg.Codec(),
		Code:       flagHostCode,
		MaxPlayers: cfg.MaxPlayers,
		Logger:     slog.Default(),
	})
	defer host.Close()

	if flagHostBridge {
		return bridge.New(os.Stdin, os.Stdout, slog.Default()).ServeHost(ctx, host)
	}

	seats := newRoster(host.PeerID())
	lobby := ui.NewLobby("Hosting room", host.Code())
	host.OnAction(func(_ string, action game.Action) {
		if !seats.apply(action) {
			return
		}
		lobby.Update(seats.lobby())
		if err := host.PublishState(seats.state()); err != nil {
			slog.Warn("publishing lobby state failed", "error", err)
		}
	})

	stopSpinner := ui.RunConnectionSpinner("Opening room...")
	code, err := host.Open(ctx)
	stopSpinner()
	if err != nil {
		return err
	}

	ui.RenderRoomInfo(code, cfg.MaxPlayers)

	lobby.Start()
	go func() {
		<-ctx.Done()
		lobby.Stop()
	}()
	lobby.Wait()
	ui.PrintInfo(fmt.Sprintf("Room %s closed.", code))
	return nil
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().StringVarP(&flagHostName, "name", "n", defaultName(), "Your display name")
	hostCmd.Flags().StringVarP(&flagHostCode, "code", "c", "", "Room code to claim instead of a random one")
	hostCmd.Flags().IntVarP(&flagMaxPlayers, "max-players", "m", 0, "Maximum players, host included")
	hostCmd.Flags().BoolVarP(&flagHostBridge, "bridge", "b", false, "Drive the room from stdin/stdout JSON frames")
}
