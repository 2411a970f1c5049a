package storage

import (
	"bytes"
	"context"
	"strings"

	"github.com/dataq-io/dataq/internal/driver"
	"github.com/dataq-io/dataq/internal/metadata"
	"github.com/dataq-io/dataq/internal/sqlgen"
)

// Update modifies an existing row and returns the refreshed stored row.
// Only properties present in the item reach the SET clause; an item carrying
// nothing but its id is a successful no-op that never touches storage.
// A supplied version token becomes an equality predicate; zero affected rows
// then disambiguate into Conflict (stale version, carrying the current row),
// ItemSoftDeleted, or ItemNotFound.
func (e *Engine) Update(ctx context.Context, table string, item map[string]any) (driver.Row, error) {
	md, err := e.tableMetadata(ctx, table)
	if err != nil {
		return nil, err
	}

	id, err := e.itemID(md, item)
	if err != nil {
		return nil, err
	}

	version, err := suppliedVersion(md, item)
	if err != nil {
		return nil, err
	}

	undelete, err := undeleteRequested(md, item)
	if err != nil {
		return nil, err
	}

	props := sortedPropertyNames(item)
	for _, name := range props {
		if err := sqlgen.ValidateIdentifier(name); err != nil {
			return nil, badInputf("%v", err)
		}
		if _, err := convertValue(name, item[name]); err != nil {
			return nil, err
		}
	}

	if len(props) == 0 && !undelete {
		// Nothing to write; the row is untouched and the update reports one
		// affected row.
		return normalizeRow(driver.Row(item)), nil
	}

	sqlText, params := e.buildUpdate(md, id, item, props, version, undelete)
	sets, err := e.executeWrite(ctx, table, item, sqlText, params)
	if err != nil {
		return nil, err
	}

	affected, current := splitWriteResults(sets)
	if affected == 0 {
		return nil, disambiguate(table, id, version, current)
	}
	if len(current) == 0 {
		return nil, notFoundError(table, id)
	}
	return normalizeRow(current[0]), nil
}

// itemID extracts and validates the item's id against the table's id type.
func (e *Engine) itemID(md *metadata.TableMetadata, item map[string]any) (any, error) {
	id, ok := item["id"]
	if !ok || id == nil {
		return nil, badInputf("an id is required")
	}
	switch md.IDType {
	case metadata.IDTypeString:
		s, ok := id.(string)
		if !ok {
			return nil, badInputf("id must be a string for table %q", md.Table)
		}
		return normalizeStringID(s)
	case metadata.IDTypeNumber:
		switch id.(type) {
		case float64, int, int64:
			return id, nil
		}
		return nil, badInputf("id must be a number for table %q", md.Table)
	}
	return nil, badInputf("table %q has an unsupported id column type", md.Table)
}

// suppliedVersion decodes the optional version token. Tokens are only
// meaningful on tables supporting optimistic concurrency; elsewhere they are
// ignored, matching the table's advertised capabilities.
func suppliedVersion(md *metadata.TableMetadata, item map[string]any) ([]byte, error) {
	v, ok := item[metadata.ColumnVersion]
	if !ok || !md.SupportsConflict {
		return nil, nil
	}
	token, ok := v.(string)
	if !ok {
		return nil, badInputf("version must be a base64 string")
	}
	return decodeVersion(token)
}

// undeleteRequested interprets an explicit __deleted=false as an undelete.
// Setting the flag any other way through update is not allowed; deletion
// goes through Delete.
func undeleteRequested(md *metadata.TableMetadata, item map[string]any) (bool, error) {
	v, ok := item[metadata.ColumnDeleted]
	if !ok {
		return false, nil
	}
	if !md.SupportsSoftDelete {
		return false, badInputf("table %q does not support soft delete", md.Table)
	}
	b, ok := v.(bool)
	if !ok || b {
		return false, badInputf("the deleted flag can only be set to false through update")
	}
	return true, nil
}

// buildUpdate renders the update batch: the UPDATE, its affected count, and
// a read of the row by id. The trailing read doubles as the refreshed-row
// result and the disambiguation read for the zero-affected case.
func (e *Engine) buildUpdate(md *metadata.TableMetadata, id any, item map[string]any, props []string, version []byte, undelete bool) (string, []any) {
	table := sqlgen.Bracket(e.opts.Schema) + "." + sqlgen.Bracket(md.Table)

	var sb strings.Builder
	var params []any
	param := func(v any) string {
		params = append(params, v)
		return placeholder(len(params))
	}

	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	first := true
	writeSet := func(column, value string) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(column)
		sb.WriteString(" = ")
		sb.WriteString(value)
	}
	for _, name := range props {
		writeSet(sqlgen.Bracket(name), param(item[name]))
	}
	if undelete {
		writeSet(sqlgen.Bracket(metadata.ColumnDeleted), param(false))
	}
	if md.HasColumn(metadata.ColumnUpdatedAt) {
		writeSet(sqlgen.Bracket(metadata.ColumnUpdatedAt), "CONVERT(DATETIMEOFFSET(3), SYSUTCDATETIME())")
	}

	sb.WriteString(" WHERE [id] = ")
	sb.WriteString(param(id))
	if version != nil {
		sb.WriteString(" AND ")
		sb.WriteString(sqlgen.Bracket(metadata.ColumnVersion))
		sb.WriteString(" = ")
		sb.WriteString(param(version))
	}
	if md.SupportsSoftDelete && !undelete {
		sb.WriteString(" AND ")
		sb.WriteString(sqlgen.Bracket(metadata.ColumnDeleted))
		sb.WriteString(" = ")
		sb.WriteString(param(false))
	}

	sb.WriteString("; SELECT @@ROWCOUNT AS [rowcount]; SELECT * FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE [id] = ")
	sb.WriteString(param(id))
	return sb.String(), params
}

// splitWriteResults pulls the affected count and the trailing row read out
// of a write batch's result sets.
func splitWriteResults(sets []driver.ResultSet) (affected int64, current driver.ResultSet) {
	for _, set := range sets {
		if len(set) == 1 {
			if n, ok := set[0]["rowcount"].(int64); ok && len(set[0]) == 1 {
				affected = n
				continue
			}
		}
		current = set
	}
	return affected, current
}

// disambiguate explains a zero-affected write from the row's current state:
// a version mismatch is a Conflict carrying the authoritative row, a set
// deletion flag is ItemSoftDeleted, and an absent row is ItemNotFound.
func disambiguate(table string, id any, version []byte, current driver.ResultSet) error {
	if len(current) == 0 {
		return notFoundError(table, id)
	}
	row := current[0]
	if version != nil {
		stored, _ := row[metadata.ColumnVersion].([]byte)
		if !bytes.Equal(stored, version) {
			return conflictError(normalizeRow(row))
		}
	}
	if rowDeleted(row) {
		return softDeletedError(normalizeRow(row))
	}
	return notFoundError(table, id)
}
