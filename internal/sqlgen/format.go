package sqlgen

import (
	"fmt"
	"strings"

	"github.com/dataq-io/dataq/internal/expr"
	"github.com/dataq-io/dataq/internal/metadata"
	"github.com/dataq-io/dataq/internal/parse"
	"github.com/dataq-io/dataq/internal/query"
)

// RowNumberColumn is the internal windowing column added to paged queries.
// The engine strips it from result rows before they leave the storage layer.
const RowNumberColumn = "ROW_NUMBER"

// DefaultMaxTop is the engine-wide hard ceiling on result rows when the
// caller sets no tighter one.
const DefaultMaxTop = 1000

// Statement is generated SQL plus the ordered values bound to its @p1..@pN
// placeholders. A statement may contain a multi-statement batch; parameter
// numbering runs across the whole batch.
type Statement struct {
	SQL    string
	Params []any
}

// Options tunes formatting.
type Options struct {
	// Schema qualifies table names, for example "dbo".
	Schema string

	// MaxTop caps result rows. Zero means DefaultMaxTop.
	MaxTop int
}

// Format compiles a query against a classified table into a parameterized
// statement: projection, filtering, ordering, paging, and the optional
// inline-count companion. The combined filter tree (parsed filter, implicit
// id predicate, implicit soft-delete predicate) is booleanized and
// type-converted before emission.
func Format(q *query.Query, md *metadata.TableMetadata, opts Options) (Statement, error) {
	if err := ValidateIdentifier(q.Table); err != nil {
		return Statement{}, err
	}
	for _, col := range q.Select {
		if err := ValidateIdentifier(col); err != nil {
			return Statement{}, err
		}
	}

	filter, orderBy, err := q.Parsed()
	if err != nil {
		return Statement{}, err
	}

	filter = composeFilter(filter, q, md)
	filter = expr.Booleanize(filter)
	filter = expr.ConvertTypes(filter, md.IsBinary)

	f := &formatter{md: md}
	table := f.tableName(q.Table, opts.Schema)
	selection := f.selection(q, md)

	maxTop := opts.MaxTop
	if maxTop <= 0 {
		maxTop = DefaultMaxTop
	}

	if q.Skip != query.Unset {
		err = f.emitPaged(q, table, selection, filter, orderBy, maxTop)
	} else {
		err = f.emitPlain(q, table, selection, filter, orderBy, maxTop)
	}
	if err != nil {
		return Statement{}, err
	}

	if q.InlineCount {
		if err := f.emitCount(table, filter); err != nil {
			return Statement{}, err
		}
	}

	return Statement{SQL: f.sb.String(), Params: f.params}, nil
}

// composeFilter ANDs the implicit predicates onto the parsed filter: the
// id-equality predicate for point lookups and the not-deleted predicate when
// the table soft-deletes and the caller did not ask for deleted rows.
func composeFilter(filter expr.Expr, q *query.Query, md *metadata.TableMetadata) expr.Expr {
	and := func(left, right expr.Expr) expr.Expr {
		if left == nil {
			return right
		}
		return &expr.Binary{Op: expr.OpAnd, Left: left, Right: right}
	}

	if q.ID != nil {
		idPredicate := &expr.Binary{
			Op:    expr.OpEq,
			Left:  &expr.Member{Instance: &expr.Parameter{}, Name: "id"},
			Right: &expr.Constant{Value: q.ID},
		}
		filter = and(filter, idPredicate)
	}
	if md.SupportsSoftDelete && !q.IncludeDeleted {
		notDeleted := &expr.Binary{
			Op:    expr.OpEq,
			Left:  &expr.Member{Instance: &expr.Parameter{}, Name: metadata.ColumnDeleted},
			Right: &expr.Constant{Value: false},
		}
		filter = and(filter, notDeleted)
	}
	return filter
}

type formatter struct {
	sb     strings.Builder
	params []any
	md     *metadata.TableMetadata
}

// param appends a value and returns its placeholder.
func (f *formatter) param(v any) string {
	f.params = append(f.params, v)
	return fmt.Sprintf("@p%d", len(f.params))
}

func (f *formatter) tableName(table, schema string) string {
	if schema == "" {
		return Bracket(table)
	}
	return Bracket(schema) + "." + Bracket(table)
}

// selection renders the projected column list: "*" absent an explicit
// select list, otherwise the validated bracketed columns with the requested
// system properties appended as aliased columns.
func (f *formatter) selection(q *query.Query, md *metadata.TableMetadata) string {
	if len(q.Select) == 0 {
		return "*"
	}
	parts := make([]string, 0, len(q.Select)+len(q.SystemProperties))
	for _, col := range q.Select {
		parts = append(parts, Bracket(col))
	}
	for _, name := range q.SystemProperties {
		column, ok := metadata.SystemPropertyColumn(name)
		if !ok || !md.HasColumn(column) {
			continue
		}
		parts = append(parts, Bracket(column)+" AS "+Bracket(column))
	}
	return strings.Join(parts, ", ")
}

// emitPlain renders the non-paged form:
// SELECT [TOP (n)] sel FROM t [WHERE filter] [ORDER BY order].
// The TOP bound is the tighter of the caller's top and the engine ceiling,
// applied whenever either is in play.
func (f *formatter) emitPlain(q *query.Query, table, selection string, filter expr.Expr, orderBy []parse.OrderBy, maxTop int) error {
	f.sb.WriteString("SELECT ")

	top := maxTop
	if q.Top != query.Unset && q.Top < top {
		top = q.Top
	}
	f.sb.WriteString("TOP (")
	f.sb.WriteString(f.param(int64(top)))
	f.sb.WriteString(") ")

	f.sb.WriteString(selection)
	f.sb.WriteString(" FROM ")
	f.sb.WriteString(table)

	if filter != nil {
		f.sb.WriteString(" WHERE ")
		if err := f.emit(filter); err != nil {
			return err
		}
	}
	if len(orderBy) > 0 {
		f.sb.WriteString(" ORDER BY ")
		if err := f.emitOrderBy(orderBy); err != nil {
			return err
		}
	}
	return nil
}

// emitPaged renders the windowed form keyed on a row number computed over
// the requested ordering (primary key when none given), filtered to the
// window [skip+1, skip+top]. Top defaults to the engine ceiling so the
// window always has a frame.
func (f *formatter) emitPaged(q *query.Query, table, selection string, filter expr.Expr, orderBy []parse.OrderBy, maxTop int) error {
	top := maxTop
	if q.Top != query.Unset && q.Top < top {
		top = q.Top
	}

	f.sb.WriteString("SELECT ")
	f.sb.WriteString(selection)
	f.sb.WriteString(" FROM (SELECT ROW_NUMBER() OVER (ORDER BY ")
	if len(orderBy) > 0 {
		if err := f.emitOrderBy(orderBy); err != nil {
			return err
		}
	} else {
		f.sb.WriteString("[id]")
	}
	f.sb.WriteString(") AS ")
	f.sb.WriteString(Bracket(RowNumberColumn))
	f.sb.WriteString(", ")
	f.sb.WriteString(selection)
	f.sb.WriteString(" FROM ")
	f.sb.WriteString(table)
	if filter != nil {
		f.sb.WriteString(" WHERE ")
		if err := f.emit(filter); err != nil {
			return err
		}
	}
	f.sb.WriteString(") AS [t1] WHERE [t1].")
	f.sb.WriteString(Bracket(RowNumberColumn))
	f.sb.WriteString(" BETWEEN ")
	f.sb.WriteString(f.param(int64(q.Skip + 1)))
	f.sb.WriteString(" AND ")
	f.sb.WriteString(f.param(int64(q.Skip + top)))
	f.sb.WriteString(" ORDER BY [t1].")
	f.sb.WriteString(Bracket(RowNumberColumn))
	return nil
}

// emitCount appends the inline-count companion: a COUNT(*) over the same
// filter, batched into the same round trip.
func (f *formatter) emitCount(table string, filter expr.Expr) error {
	f.sb.WriteString("; SELECT COUNT(*) AS [count] FROM ")
	f.sb.WriteString(table)
	if filter != nil {
		f.sb.WriteString(" WHERE ")
		if err := f.emit(filter); err != nil {
			return err
		}
	}
	return nil
}

func (f *formatter) emitOrderBy(orderBy []parse.OrderBy) error {
	for i, term := range orderBy {
		if i > 0 {
			f.sb.WriteString(", ")
		}
		if err := f.emit(term.Selector); err != nil {
			return err
		}
		if term.Ascending {
			f.sb.WriteString(" ASC")
		} else {
			f.sb.WriteString(" DESC")
		}
	}
	return nil
}
