package driver

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
)

// SQLServer is the production Driver over database/sql with the sqlserver
// driver registered.
type SQLServer struct {
	db *sql.DB
}

// Open connects to SQL Server using the given connection string and verifies
// the connection before returning.
func Open(connString string) (*SQLServer, error) {
	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("verify sqlserver connection: %w", err)
	}
	return &SQLServer{db: db}, nil
}

// NewSQLServer wraps an existing database handle.
func NewSQLServer(db *sql.DB) *SQLServer {
	return &SQLServer{db: db}
}

// Close releases the underlying connection pool.
func (d *SQLServer) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Execute runs sqlText as one round trip and drains every result set.
func (d *SQLServer) Execute(ctx context.Context, sqlText string, params []any) ([]ResultSet, error) {
	rows, err := d.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []ResultSet
	for {
		set, err := scanResultSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}

func scanResultSet(rows *sql.Rows) (ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	set := ResultSet{}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}
		set = append(set, row)
	}
	return set, rows.Err()
}
