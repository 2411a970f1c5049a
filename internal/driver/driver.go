// Package driver defines the execution contract between the engine and the
// backing SQL library, and provides the SQL Server implementation.
//
// The engine treats execution as opaque: it hands over statement text plus an
// ordered parameter list and receives result sets back. Multi-statement
// batches travel as one round trip and come back as one result set per
// statement that produced rows. Batches are not wrapped in a transaction; a
// failure between the statements of a batch leaves the earlier statements
// applied.
package driver

import "context"

// Row is a single result row keyed by column name.
type Row map[string]any

// ResultSet is the ordered rows of one statement in a batch.
type ResultSet []Row

// Driver executes parameterized SQL. Params bind positionally to @p1..@pN
// placeholders in sqlText. Implementations classify nothing; error
// classification is the caller's concern.
type Driver interface {
	Execute(ctx context.Context, sqlText string, params []any) ([]ResultSet, error)
}
