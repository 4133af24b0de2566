package cmd

import (
	"log"

	"nutridb/internal/reader"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and extract the SR archive without touching a database",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readerOptions()
		if err != nil {
			return err
		}

		log.Printf("Fetching %s into %s...", opts.SourceURL, opts.CacheDir)
		if err := reader.Materialize(opts); err != nil {
			return err
		}
		log.Printf("Dataset %s ready under %s", opts.Version, opts.CacheDir)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(fetchCmd)
}
