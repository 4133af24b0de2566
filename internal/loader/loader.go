// Package loader drives the ingestion: for each table it pulls rows from
// the table reader and inserts them into the target database, one
// transaction per table.
package loader

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"nutridb/internal/dialect"
	"nutridb/internal/reader"
	"nutridb/internal/registry"
)

// Result reports the outcome of one table's load.
type Result struct {
	Table    string
	Rows     int
	Status   string
	ErrorMsg string
}

// Load ingests the given tables in order. Each table is loaded inside a
// single transaction that commits only after every row of the table has
// been read and inserted; any failure rolls the whole table back and
// aborts the run. Results for tables processed so far are returned either
// way. onProgress, if non-nil, is called once per completed table.
func Load(db *sql.DB, d dialect.Dialect, tables []string, opts reader.Options, onProgress func()) ([]Result, error) {
	var results []Result

	for _, name := range tables {
		res, err := loadTable(db, d, name, opts)
		results = append(results, res)
		if err != nil {
			return results, err
		}
		if onProgress != nil {
			onProgress()
		}
	}
	return results, nil
}

func loadTable(db *sql.DB, d dialect.Dialect, name string, opts reader.Options) (Result, error) {
	cols, err := registry.Columns(name)
	if err != nil {
		return failed(name, err), fmt.Errorf("table %q: %w", name, err)
	}

	r, err := reader.Open(name, opts)
	if err != nil {
		return failed(name, err), err
	}
	defer r.Close()

	tx, err := db.Begin()
	if err != nil {
		return failed(r.Table(), err), fmt.Errorf("begin transaction for %s: %w", r.Table(), err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	if err := d.BeforeLoad(tx); err != nil {
		log.Printf("Warning: BeforeLoad hook failed for %s: %v. Continuing...\n", r.Table(), err)
	}

	query := d.InsertQuery(r.Table(), cols)
	rowKeys := r.Columns()
	inserted := 0

	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return failed(r.Table(), err), err
		}

		args := make([]interface{}, len(rowKeys))
		for i, key := range rowKeys {
			args[i] = row[key]
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return failed(r.Table(), err), fmt.Errorf("insert into %s row %d: %w", r.Table(), inserted+1, err)
		}
		inserted++
	}

	if err := d.AfterLoad(tx); err != nil {
		log.Printf("Warning: AfterLoad hook failed for %s: %v\n", r.Table(), err)
	}

	if err := tx.Commit(); err != nil {
		return failed(r.Table(), err), fmt.Errorf("commit %s: %w", r.Table(), err)
	}
	tx = nil

	return Result{Table: r.Table(), Rows: inserted, Status: "OK"}, nil
}

func failed(table string, err error) Result {
	return Result{
		Table:    strings.ToUpper(table),
		Status:   "FAILED",
		ErrorMsg: err.Error(),
	}
}
