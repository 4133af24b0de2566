package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

type PostgresDialect struct{}

func (d *PostgresDialect) InsertQuery(table string, cols []string) string {
	// Generate placeholders ($1, $2, ...)
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), vals)
}

func (d *PostgresDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)
}

func (d *PostgresDialect) CreateTableQuery(table string, cols []string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, columnDefs(cols, "VARCHAR(255)"))
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) BeforeLoad(tx *sql.Tx) error {
	// Deferred constraints let a table commit before its children exist.
	// Only helps for keys declared DEFERRABLE, which is acceptable since
	// the registry load order already puts parents first.
	_, err := tx.Exec("SET CONSTRAINTS ALL DEFERRED")
	return err
}

func (d *PostgresDialect) AfterLoad(tx *sql.Tx) error {
	_, err := tx.Exec("SET CONSTRAINTS ALL IMMEDIATE")
	return err
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}
