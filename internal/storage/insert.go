package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dataq-io/dataq/internal/driver"
	"github.com/dataq-io/dataq/internal/metadata"
	"github.com/dataq-io/dataq/internal/sqlgen"
)

// Insert validates and writes a new row, returning the stored row with its
// generated id and system property columns. On an unknown-column error with
// dynamic schema enabled, the table is evolved and the insert retried
// exactly once.
func (e *Engine) Insert(ctx context.Context, table string, item map[string]any) (driver.Row, error) {
	md, err := e.tableMetadata(ctx, table)
	if err != nil {
		return nil, err
	}

	item, err = prepareInsertItem(md, item)
	if err != nil {
		return nil, err
	}

	sqlText, params, err := e.buildInsert(md, item)
	if err != nil {
		return nil, err
	}

	sets, err := e.executeWrite(ctx, table, item, sqlText, params)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 || len(sets[len(sets)-1]) == 0 {
		return nil, &Error{Code: CodeInternal, Message: "insert did not return the stored row"}
	}
	return normalizeRow(sets[len(sets)-1][0]), nil
}

// prepareInsertItem validates property names and values and settles the id:
// numeric-id tables reject an explicit id, string-id tables validate a
// caller id or mint one.
func prepareInsertItem(md *metadata.TableMetadata, item map[string]any) (map[string]any, error) {
	prepared := make(map[string]any, len(item)+1)
	for name, v := range item {
		if name == "id" {
			continue
		}
		if isSystemColumn(name) {
			return nil, badInputf("property %q uses the reserved system prefix", name)
		}
		if err := sqlgen.ValidateIdentifier(name); err != nil {
			return nil, badInputf("%v", err)
		}
		converted, err := convertValue(name, v)
		if err != nil {
			return nil, err
		}
		prepared[name] = converted
	}

	id, hasID := item["id"]
	switch md.IDType {
	case metadata.IDTypeNumber:
		if hasID {
			return nil, badInputf("table %q assigns numeric ids; an explicit id is not allowed", md.Table)
		}
	case metadata.IDTypeString:
		if hasID {
			s, ok := id.(string)
			if !ok {
				return nil, badInputf("id must be a string for table %q", md.Table)
			}
			normalized, err := normalizeStringID(s)
			if err != nil {
				return nil, err
			}
			prepared["id"] = normalized
		} else {
			prepared["id"] = uuid.NewString()
		}
	default:
		return nil, badInputf("table %q has an unsupported id column type", md.Table)
	}
	return prepared, nil
}

// buildInsert renders the insert batch: the INSERT itself followed by a
// capture select for the stored row. String-id tables key the capture on the
// known id; numeric-id tables capture through the scoped identity.
func (e *Engine) buildInsert(md *metadata.TableMetadata, item map[string]any) (string, []any, error) {
	table := sqlgen.Bracket(e.opts.Schema) + "." + sqlgen.Bracket(md.Table)

	columns := sortedPropertyNames(item)
	if _, ok := item["id"]; ok {
		columns = append([]string{"id"}, columns...)
	}

	var sb strings.Builder
	var params []any
	param := func(v any) string {
		params = append(params, v)
		return placeholder(len(params))
	}

	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	if len(columns) == 0 {
		sb.WriteString(" DEFAULT VALUES")
	} else {
		sb.WriteString(" (")
		for i, col := range columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(sqlgen.Bracket(col))
		}
		sb.WriteString(") VALUES (")
		for i, col := range columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(param(item[col]))
		}
		sb.WriteString(")")
	}

	sb.WriteString("; SELECT * FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE [id] = ")
	if md.IDType == metadata.IDTypeString {
		sb.WriteString(param(item["id"]))
	} else {
		sb.WriteString("SCOPE_IDENTITY()")
	}
	return sb.String(), params, nil
}

// executeWrite runs a write statement with the dynamic-schema policy layered
// over the transient-retry policy: an unknown-column error triggers one
// evolve-and-retry cycle when dynamic schema is enabled, and is a caller
// error when it is not. A second unknown-column failure surfaces.
func (e *Engine) executeWrite(ctx context.Context, table string, item map[string]any, sqlText string, params []any) ([]driver.ResultSet, error) {
	sets, err := e.execute(ctx, sqlText, params)
	if err == nil {
		return sets, nil
	}
	if !driver.IsUnknownColumn(err) {
		return nil, e.wrapSQLError(err)
	}
	if !e.opts.DynamicSchema {
		return nil, badInputf("table %q does not have a column for every supplied property", table)
	}
	if err := e.evolveSchema(ctx, table, item); err != nil {
		return nil, err
	}
	sets, err = e.execute(ctx, sqlText, params)
	if err != nil {
		return nil, e.wrapSQLError(err)
	}
	return sets, nil
}
