package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

type MSSQLDialect struct{}

// The go-mssqldb driver prefers @p1, @p2 named parameters over ?.

func (d *MSSQLDialect) InsertQuery(table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), vals)
}

func (d *MSSQLDialect) TruncateQuery(table string) string {
	// DELETE instead of TRUNCATE to avoid FK issues
	return fmt.Sprintf("DELETE FROM %s", table)
}

func (d *MSSQLDialect) CreateTableQuery(table string, cols []string) string {
	return fmt.Sprintf("IF OBJECT_ID('%s', 'U') IS NULL CREATE TABLE %s (%s)",
		table, table, columnDefs(cols, "NVARCHAR(255)"))
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) BeforeLoad(tx *sql.Tx) error {
	rows, err := tx.Query("SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = 'dbo'")
	if err != nil {
		return err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, t := range tables {
		if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s NOCHECK CONSTRAINT all", t)); err != nil {
			return fmt.Errorf("failed to disable constraints on %s: %w", t, err)
		}
	}
	return nil
}

func (d *MSSQLDialect) AfterLoad(tx *sql.Tx) error {
	rows, err := tx.Query("SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = 'dbo'")
	if err != nil {
		return err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, t := range tables {
		// WITH CHECK validates the loaded data while re-enabling.
		if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s WITH CHECK CHECK CONSTRAINT all", t)); err != nil {
			return fmt.Errorf("failed to enable constraints on %s: %w", t, err)
		}
	}
	return nil
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}
