package cmd

import (
	"database/sql"
	"fmt"
	"log"

	"nutridb/internal/dialect"
	"nutridb/internal/registry"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all data from the SR tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		d := dialect.GetDialect(DriverName)
		log.Printf("Using Dialect: %s\n", DriverName)

		return cleanTables(db, d, registry.Tables())
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)
}

// cleanTables truncates tables in reverse load order so children empty
// before their parents.
func cleanTables(db *sql.DB, d dialect.Dialect, tables []string) error {
	log.Println("Disabling Foreign Key Checks...")

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	if err := d.BeforeLoad(tx); err != nil {
		log.Printf("Warning: Failed to execute BeforeLoad hook: %v. Continuing...\n", err)
		if _, ok := d.(*dialect.PostgresDialect); ok {
			tx.Rollback()
			tx, err = db.Begin()
			if err != nil {
				return err
			}
		}
	}

	count := 0
	total := len(tables)

	for i := len(tables) - 1; i >= 0; i-- {
		table := tables[i]
		count++
		if _, err := tx.Exec(d.TruncateQuery(table)); err != nil {
			log.Printf("Warning: Failed to clean %s: %v (continuing...)\n", table, err)
		}

		if count%5 == 0 || count == total {
			log.Printf("Cleaned %d/%d tables...", count, total)
		}
	}

	log.Println("Enabling Foreign Key Checks...")
	if err := d.AfterLoad(tx); err != nil {
		log.Printf("Warning: Failed to execute AfterLoad hook: %v\n", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cleaning transaction: %w", err)
	}
	tx = nil

	log.Println("Tables Cleaned Successfully!")
	return nil
}
