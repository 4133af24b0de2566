package dialect

import "database/sql"

// Dialect abstracts database-specific SQL for loading the SR tables.
type Dialect interface {
	// Query Generation
	InsertQuery(table string, cols []string) string
	TruncateQuery(table string) string
	CreateTableQuery(table string, cols []string) string
	Placeholder(index int) string // Returns ?, $1, @p1, :1

	// Execution Hooks - FK checks are relaxed while tables load so the
	// registry's load order is the only ordering constraint that matters.
	BeforeLoad(tx *sql.Tx) error
	AfterLoad(tx *sql.Tx) error

	// Helpers
	GetSchemaName(input string) string
}
