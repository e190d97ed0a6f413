package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/roomcode"
)

var (
	flagCodeCount int
	flagCodeID    bool
)

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Print fresh room codes",
	Long: `Print randomly generated room codes. Codes are only reserved once a host
registers them, so a printed code may already be in use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagCodeCount < 1 {
			return fmt.Errorf("count must be at least 1, got %d", flagCodeCount)
		}
		cfg, err := loadConfig(0)
		if err != nil {
			return err
		}
		codec := cfg.Codec()
		for range flagCodeCount {
			code := roomcode.Generate()
			if flagCodeID {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", code, codec.ToRendezvous(code))
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
		}
		return nil
	},
}

func errInvalidCode(code string) error {
	return fmt.Errorf("invalid room code %q: expected %d letters from %s", code, roomcode.Length, roomcode.Alphabet)
}

// defaultName is the login name, used when no --name is given.
func defaultName() string {
	for _, env := range []string{"USER", "USERNAME"} {
		if name := os.Getenv(env); name != "" {
			return name
		}
	}
	return "Player"
}

func init() {
	rootCmd.AddCommand(codeCmd)

	codeCmd.Flags().IntVarP(&flagCodeCount, "count", "c", 1, "Number of codes to print")
	codeCmd.Flags().BoolVar(&flagCodeID, "id", false, "Also print the rendezvous id")
}
