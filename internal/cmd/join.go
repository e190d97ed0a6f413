package cmd

import (
	"context"
	"errors"
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
	flagJoinName   string
	flagJoinBridge bool
)

var joinCmd = &cobra.Command{
	Use:     "join <code>",
	Aliases: []string{"j"},
	Short:   "Join a room by its code",
	Long: `Join the room a host opened, using the four-letter code they shared.

Examples:
  elmo join ABCD --name Bob
  elmo join abcd --bridge`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := roomcode.Normalize(args[0])
		if !roomcode.Valid(code) {
			return errInvalidCode(args[0])
		}
		return joinRoom(cmd.Context(), code)
	},
}

func joinRoom(ctx context.Context, code string) error {
	cfg, err := loadConfig(0)
	if err != nil {
		return err
	}

	client := room.NewClient(newTransport(cfg), room.Options{
		Username: flagJoinName,
		Codec:    cfg.Codec(),
		Logger:   slog.Default(),
	})
	defer client.Close()

	if flagJoinBridge {
		err := bridge.New(os.Stdin, os.Stdout, slog.Default()).ServeClient(ctx, client, code)
		if errors.Is(err, bridge.ErrHostLeft) {
			return nil
		}
		return err
	}

	hostID := cfg.Codec().ToRendezvous(code)
	lobby := ui.NewLobby("Joined room", code)
	client.OnState(func(state game.ClientState) {
		lobby.Update(clientLobby(state, hostID))
	})

	stopSpinner := ui.RunConnectionSpinner(fmt.Sprintf("Joining room %s...", code))
	result := client.Join(ctx, code)
	stopSpinner()
	if !result.OK {
		return result.Err
	}
	ui.PrintSuccessf("Connected to room %s as %s", result.Code, flagJoinName)

	lobby.Start()
	go func() {
		select {
		case <-client.Left():
		case <-ctx.Done():
		}
		lobby.Stop()
	}()
	lobby.Wait()

	select {
	case <-client.Left():
		ui.PrintWarning("The host closed the room or the room was full.")
	default:
	}
	return nil
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagJoinName, "name", "n", defaultName(), "Your display name")
	joinCmd.Flags().BoolVarP(&flagJoinBridge, "bridge", "b", false, "Drive the client from stdin/stdout JSON frames")
}
