package cmd

import (
	"log"

	"nutridb/internal/dialect"
	"nutridb/internal/registry"

	"github.com/spf13/cobra"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the SR tables in the target database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		d := dialect.GetDialect(DriverName)
		log.Printf("Using Dialect: %s\n", DriverName)

		for _, table := range registry.Tables() {
			cols, err := registry.Columns(table)
			if err != nil {
				return err
			}
			if _, err := db.Exec(d.CreateTableQuery(table, cols)); err != nil {
				// Oracle has no IF NOT EXISTS; an existing table is fine.
				log.Printf("Warning: create %s: %v (continuing...)\n", table, err)
				continue
			}
			log.Printf("Created %s (%d columns)", table, len(cols))
		}

		log.Println("Schema Ready!")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(initdbCmd)
}
