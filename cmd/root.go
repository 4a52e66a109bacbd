package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is reported by --version and tagged on Sentry events
const Version = "0.1.0"

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cutout",
		Short: "Background removal, compositing and HD export for photos",
		Long: `Cutout removes photo backgrounds, composites the subject over a colour or an
AI generated scene, and exports PNG, WebP or JPG.

It runs as a local web API (serve) or directly from the command line for single
images (process) and batches of up to 20 images (batch).`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newProcessCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newPresetsCmd())

	return cmd
}
