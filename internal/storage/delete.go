package storage

import (
	"context"
	"strings"

	"github.com/dataq-io/dataq/internal/metadata"
	"github.com/dataq-io/dataq/internal/sqlgen"
)

// Delete removes the row with the given id: a soft delete (flipping the
// deletion flag) when the table supports it, a hard delete otherwise.
// A non-empty version token becomes an equality predicate, with the same
// zero-affected disambiguation as update.
func (e *Engine) Delete(ctx context.Context, table string, id any, version string) error {
	md, err := e.tableMetadata(ctx, table)
	if err != nil {
		return err
	}

	id, err = e.itemID(md, map[string]any{"id": id})
	if err != nil {
		return err
	}

	var versionBytes []byte
	if version != "" && md.SupportsConflict {
		versionBytes, err = decodeVersion(version)
		if err != nil {
			return err
		}
	}

	sqlText, params := e.buildDelete(md, id, versionBytes)
	sets, err := e.execute(ctx, sqlText, params)
	if err != nil {
		return e.wrapSQLError(err)
	}

	affected, current := splitWriteResults(sets)
	if affected == 0 {
		return disambiguate(table, id, versionBytes, current)
	}
	return nil
}

func (e *Engine) buildDelete(md *metadata.TableMetadata, id any, version []byte) (string, []any) {
	table := sqlgen.Bracket(e.opts.Schema) + "." + sqlgen.Bracket(md.Table)

	var sb strings.Builder
	var params []any
	param := func(v any) string {
		params = append(params, v)
		return placeholder(len(params))
	}

	if md.SupportsSoftDelete {
		sb.WriteString("UPDATE ")
		sb.WriteString(table)
		sb.WriteString(" SET ")
		sb.WriteString(sqlgen.Bracket(metadata.ColumnDeleted))
		sb.WriteString(" = ")
		sb.WriteString(param(true))
		if md.HasColumn(metadata.ColumnUpdatedAt) {
			sb.WriteString(", ")
			sb.WriteString(sqlgen.Bracket(metadata.ColumnUpdatedAt))
			sb.WriteString(" = CONVERT(DATETIMEOFFSET(3), SYSUTCDATETIME())")
		}
	} else {
		sb.WriteString("DELETE FROM ")
		sb.WriteString(table)
	}

	sb.WriteString(" WHERE [id] = ")
	sb.WriteString(param(id))
	if version != nil {
		sb.WriteString(" AND ")
		sb.WriteString(sqlgen.Bracket(metadata.ColumnVersion))
		sb.WriteString(" = ")
		sb.WriteString(param(version))
	}
	if md.SupportsSoftDelete {
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
