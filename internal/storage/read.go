package storage

import (
	"context"
	"errors"
	"slices"

	"github.com/dataq-io/dataq/internal/driver"
	"github.com/dataq-io/dataq/internal/metadata"
	"github.com/dataq-io/dataq/internal/parse"
	"github.com/dataq-io/dataq/internal/query"
	"github.com/dataq-io/dataq/internal/sqlgen"
)

// CountNotRequested marks a result envelope whose query did not ask for an
// inline count.
const CountNotRequested = int64(-1)

// Results is the query envelope: the page of rows and, when inline count
// was requested, the unpaged total.
type Results struct {
	Items []driver.Row
	Count int64
}

// Query compiles and executes a read. Requested system properties are
// resolved against what the table supports before formatting; paging
// artifacts are stripped from the returned rows; the inline-count companion
// result is folded into the envelope.
func (e *Engine) Query(ctx context.Context, q *query.Query) (*Results, error) {
	md, err := e.tableMetadata(ctx, q.Table)
	if err != nil {
		return nil, err
	}

	q.SystemProperties = e.resolveSystemProperties(q.Table, q.SystemProperties, md)

	stmt, err := sqlgen.Format(q, md, sqlgen.Options{Schema: e.opts.Schema, MaxTop: e.opts.MaxTop})
	if err != nil {
		return nil, e.classifyFormatError(err)
	}

	sets, err := e.execute(ctx, stmt.SQL, stmt.Params)
	if err != nil {
		return nil, e.wrapSQLError(err)
	}
	if len(sets) == 0 {
		return nil, &Error{Code: CodeInternal, Message: "query returned no result set"}
	}

	results := &Results{Count: CountNotRequested}
	results.Items = make([]driver.Row, 0, len(sets[0]))
	for _, row := range sets[0] {
		results.Items = append(results.Items, normalizeRow(row))
	}
	if q.InlineCount && len(sets) > 1 && len(sets[1]) > 0 {
		if n, ok := sets[1][0]["count"].(int64); ok {
			results.Count = n
		}
	}
	return results, nil
}

// Lookup reads a single row by id, with every supported system property.
func (e *Engine) Lookup(ctx context.Context, table string, id any, includeDeleted bool) (driver.Row, error) {
	md, err := e.tableMetadata(ctx, table)
	if err != nil {
		return nil, err
	}
	id, err = e.itemID(md, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}

	q := query.New(table)
	q.ID = id
	q.IncludeDeleted = includeDeleted
	q.SystemProperties = []string{"*"}

	results, err := e.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(results.Items) == 0 {
		return nil, notFoundError(table, id)
	}
	return results.Items[0], nil
}

// resolveSystemProperties filters the requested system properties down to
// what the table supports. A wildcard expands silently; an unsupported
// explicit request is logged as a warning, not failed.
func (e *Engine) resolveSystemProperties(table string, requested []string, md *metadata.TableMetadata) []string {
	if len(requested) == 0 {
		return nil
	}
	if slices.Contains(requested, "*") {
		return slices.Clone(md.SystemProperties)
	}
	resolved := make([]string, 0, len(requested))
	for _, name := range requested {
		if md.HasSystemProperty(name) {
			resolved = append(resolved, name)
			continue
		}
		e.log.Warn("requested system property is not supported by the table",
			"table", table,
			"property", name)
	}
	return resolved
}

// classifyFormatError maps formatting failures into the taxonomy: parse
// errors pass through for the caller to branch on, identifier violations
// are bad input, and anything else is wrapped as internal.
func (e *Engine) classifyFormatError(err error) error {
	if parseErr, ok := asSyntaxError(err); ok {
		return parseErr
	}
	if sqlgen.IsIdentifierError(err) {
		return badInputf("%v", err)
	}
	return internalError(err)
}

func asSyntaxError(err error) (*parse.SyntaxError, bool) {
	var se *parse.SyntaxError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
