// Package cli implements the mediagate command line tool. It runs the full
// validate, transcode and upload pipeline locally against the configured
// object store.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	quietMode  bool
	cfg        *Config
	printer    *Printer
)

var rootCmd = &cobra.Command{
	Use:   "mediagate",
	Short: "mediagate - validate, transcode and upload media files",
	Long: `mediagate converts images to WebP and videos to WebM, then uploads
the results to object storage under stable per-caller keys.

Get started:
  mediagate upload photo.jpg            # Upload a single file
  mediagate upload *.jpg --folder=blog  # Batch upload into a folder`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = LoadConfig()
		if err != nil {
			return err
		}

		printer = NewPrinter(jsonOutput, quietMode)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON (for scripting)")
	rootCmd.PersistentFlags().BoolVar(&quietMode, "quiet", false, "Suppress non-error output")

	rootCmd.AddCommand(uploadCmd)
}
