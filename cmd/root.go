package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "streamdown",
	Short: "Stream markdown to the terminal, one stable block at a time",
	Long: `streamdown segments a growing markdown stream into immutable blocks
and presents them incrementally, so partially-received constructs never
flicker or re-render.

Examples:
  some-llm-cli | streamdown              # render a live stream
  streamdown render README.md           # render a file
  streamdown render --tui notes.md      # interactive scrollable viewer
  streamdown render --delay 5ms doc.md  # simulate a slow stream

  streamdown config                     # view configuration`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

var showStats bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "Show render statistics (fps, heap, block counts)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
