package cmd

import (
	"fmt"
	"log"
	"strings"
	"time"

	"nutridb/internal/dialect"
	"nutridb/internal/loader"
	"nutridb/internal/registry"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	clean   bool
	lenient bool
	tables  []string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Fetch the SR archive and load every table into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		d := dialect.GetDialect(DriverName)
		log.Printf("Using Dialect: %s\n", DriverName)

		opts, err := readerOptions()
		if err != nil {
			return err
		}
		if lenient {
			opts.Lenient = true
		}
		log.Printf("Source: %s (cache: %s)", opts.SourceURL, opts.CacheDir)

		// Table selection: Flag > Config > All known tables.
		targetTables, err := resolveTables()
		if err != nil {
			return err
		}

		if clean {
			if err := cleanTables(db, d, targetTables); err != nil {
				return err
			}
		}

		log.Printf("Loading %d tables...", len(targetTables))
		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(len(targetTables)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Loading: "
		})

		results, loadErr := loader.Load(db, d, targetTables, opts, func() {
			bar.Incr()
		})

		uiprogress.Stop()

		elapsed := time.Since(start)

		fmt.Println("\nSummary Report (Load Order):")
		total := 0
		for i, r := range results {
			icon := "✓"
			if r.Status != "OK" {
				icon = "!"
			}
			fmt.Printf("[%s] [%02d/%02d] %-10s : %d rows - %s\n",
				icon, i+1, len(targetTables), r.Table, r.Rows, r.Status)
			if r.ErrorMsg != "" {
				fmt.Printf("    └ Error: %s\n", r.ErrorMsg)
			}
			total += r.Rows
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Total Rows: %d\n", total)
		log.Printf("Load Done! Time Elapsed: %s", elapsed)

		return loadErr
	},
}

// resolveTables picks the tables to process (flag > config > all) and
// rejects names the registry does not know rather than skipping them.
func resolveTables() ([]string, error) {
	requested := tables
	if len(requested) == 0 {
		requested = viper.GetStringSlice("settings.tables")
	}
	if len(requested) == 0 {
		return registry.Tables(), nil
	}

	want := make(map[string]bool)
	for _, t := range requested {
		canon, err := registry.Canonical(t)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w (known: %s)", t, err, strings.Join(registry.Tables(), ", "))
		}
		want[canon] = true
	}

	// Walk the registry order so selections keep parents before children.
	var target []string
	for _, t := range registry.Tables() {
		if want[t] {
			target = append(target, t)
		}
	}
	return target, nil
}

func init() {
	RootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&clean, "clean", false, "Truncate tables before loading")
	loadCmd.Flags().BoolVar(&lenient, "lenient", false, "Skip malformed rows instead of aborting the table")
	loadCmd.Flags().StringSliceVarP(&tables, "tables", "t", []string{}, "Specific tables to load (comma-separated)")

	viper.BindPFlag("settings.lenient", loadCmd.Flags().Lookup("lenient"))
}
