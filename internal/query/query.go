// Package query defines the wire-level query object the request layer hands
// to the storage engine, plus a cheap memo of its parsed filter and order-by
// trees.
package query

import (
	"github.com/dataq-io/dataq/internal/expr"
	"github.com/dataq-io/dataq/internal/parse"
)

// Unset marks Skip or Top as not provided by the caller.
const Unset = -1

// Query describes one table read or the read-shaped part of a write.
// Filter and order-by text are set through SetFilter and SetOrderBy so the
// parsed memo can track a mutation version; everything else is plain data.
type Query struct {
	// Table is the target table name. Validated as an identifier before any
	// SQL is generated.
	Table string

	// ID, when non-nil, restricts the query to a single row. string or
	// float64 depending on the table's id type.
	ID any

	// Select lists explicit result columns; empty means all columns.
	Select []string

	// Skip and Top window the result. Unset means not provided.
	Skip int
	Top  int

	// InlineCount requests a companion total-count result alongside the page.
	InlineCount bool

	// SystemProperties holds the requested system property names, without the
	// leading marker ("createdAt", "version", ...). The single element "*"
	// requests every property the table supports.
	SystemProperties []string

	// IncludeDeleted includes soft-deleted rows instead of filtering them.
	IncludeDeleted bool

	filter  string
	orderBy string

	version int
	parsed  *parsedMemo
}

// parsedMemo caches parse results for one mutation version of the query.
// The memo is advisory: a stale version just means reparsing, never a wrong
// answer.
type parsedMemo struct {
	filter  expr.Expr
	orderBy []parse.OrderBy
	version int
}

// New returns a query against table with Skip and Top unset.
func New(table string) *Query {
	return &Query{Table: table, Skip: Unset, Top: Unset}
}

// Filter returns the current filter text.
func (q *Query) Filter() string { return q.filter }

// SetFilter replaces the filter text and invalidates the parsed memo.
func (q *Query) SetFilter(text string) {
	if q.filter == text {
		return
	}
	q.filter = text
	q.version++
}

// OrderBy returns the current order-by text.
func (q *Query) OrderBy() string { return q.orderBy }

// SetOrderBy replaces the order-by text and invalidates the parsed memo.
func (q *Query) SetOrderBy(text string) {
	if q.orderBy == text {
		return
	}
	q.orderBy = text
	q.version++
}

// Parsed returns the filter tree and order-by terms for the current text,
// parsing on first use and whenever the text changed since the last parse.
// Empty filter text yields a nil tree; empty order-by text yields no terms.
func (q *Query) Parsed() (expr.Expr, []parse.OrderBy, error) {
	if q.parsed != nil && q.parsed.version == q.version {
		return q.parsed.filter, q.parsed.orderBy, nil
	}

	memo := &parsedMemo{version: q.version}
	if q.filter != "" {
		filter, err := parse.ParseFilter(q.filter)
		if err != nil {
			return nil, nil, err
		}
		memo.filter = filter
	}
	if q.orderBy != "" {
		orderBy, err := parse.ParseOrderBy(q.orderBy)
		if err != nil {
			return nil, nil, err
		}
		memo.orderBy = orderBy
	}
	q.parsed = memo
	return memo.filter, memo.orderBy, nil
}
