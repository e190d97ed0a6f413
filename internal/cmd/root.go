package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/config"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/transport"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/ui"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/version"
)

var (
	flagDomain    string
	flagSTUN      string
	flagTURN      string
	flagTURNUser  string
	flagTURNPass  string
	flagRelay     bool
	flagNamespace string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "elmo",
	Short: "Peer-to-peer rooms for the ElmO card game",
	Long: `ElmO connects players directly with WebRTC. One player hosts a room and
shares its four-letter code; the others join with that code. The host keeps
the authoritative game state and sends every player its own view of it.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func loadConfig(maxPlayers int) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Domain:     flagDomain,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
		MaxPlayers: maxPlayers,
		Namespace:  flagNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

func newTransport(cfg *config.Config) transport.Transport {
	return transport.NewWebRTC(cfg.SignalingURL, transport.ICEConfigFromConfig(cfg), slog.Default())
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagDomain, "domain", "d", "", "Rendezvous server domain")
	flags.StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	flags.StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	flags.StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	flags.StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	flags.BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
	flags.StringVar(&flagNamespace, "namespace", "", "Rendezvous namespace shared by every player")
}
