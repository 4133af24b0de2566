package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

type OracleDialect struct{}

func (d *OracleDialect) InsertQuery(table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), vals)
}

func (d *OracleDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", table)
}

func (d *OracleDialect) CreateTableQuery(table string, cols []string) string {
	// No IF NOT EXISTS before 23c; the caller treats ORA-00955 as benign.
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, columnDefs(cols, "VARCHAR2(255)"))
}

func (d *OracleDialect) Placeholder(index int) string {
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) BeforeLoad(tx *sql.Tx) error {
	// Oracle has no session-wide FK toggle; the load order alone must hold.
	return nil
}

func (d *OracleDialect) AfterLoad(tx *sql.Tx) error {
	return nil
}

func (d *OracleDialect) GetSchemaName(input string) string {
	return strings.ToUpper(DefaultGetSchemaName(input))
}
