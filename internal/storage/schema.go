package storage

import (
	"context"
	"time"

	"github.com/dataq-io/dataq/internal/driver"
	"github.com/dataq-io/dataq/internal/sqlgen"
)

// sqlTypeFor infers the column type for a property from its runtime value.
// Null carries no type, so a null-valued unknown property adds no column;
// the retried write then fails and surfaces, which is the best available
// answer without a type to infer.
func sqlTypeFor(v any) (string, bool) {
	switch v.(type) {
	case string:
		return "NVARCHAR(MAX)", true
	case bool:
		return "BIT", true
	case float64, int, int64:
		return "FLOAT(53)", true
	case time.Time:
		return "DATETIMEOFFSET(3)", true
	}
	return "", false
}

// evolveSchema adds a nullable column for every item property the table
// does not have yet, then refreshes the cached metadata. Evolution is
// serialized within the process; a racing writer in another process that
// wins the ALTER shows up as a duplicate-column error, which counts as
// success because the column the write needs now exists either way.
func (e *Engine) evolveSchema(ctx context.Context, table string, item map[string]any) error {
	e.evolveMu.Lock()
	defer e.evolveMu.Unlock()

	md, err := e.meta.Refresh(ctx, table)
	if err != nil {
		return e.wrapSQLError(err)
	}

	tableName := sqlgen.Bracket(e.opts.Schema) + "." + sqlgen.Bracket(md.Table)
	for _, name := range sortedPropertyNames(item) {
		if md.HasColumn(name) {
			continue
		}
		columnType, ok := sqlTypeFor(item[name])
		if !ok {
			continue
		}
		stmt := "ALTER TABLE " + tableName + " ADD " + sqlgen.Bracket(name) + " " + columnType + " NULL"
		if _, err := e.execute(ctx, stmt, nil); err != nil {
			if driver.IsDuplicateColumn(err) {
				e.log.Info("column already added by a concurrent writer",
					"table", table,
					"column", name)
				continue
			}
			return e.wrapSQLError(err)
		}
		e.log.Info("added column for new property",
			"table", table,
			"column", name,
			"type", columnType)
	}

	if _, err := e.meta.Refresh(ctx, table); err != nil {
		return e.wrapSQLError(err)
	}
	return nil
}
