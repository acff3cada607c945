package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "urserver",
		Short:        "Real-time server for the Royal Game of Ur",
		Long:         `urserver hosts real-time two-player Royal Game of Ur matches over websockets, with quick-match pairing and shareable invite links.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
