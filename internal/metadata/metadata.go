// Package metadata classifies tables from live schema introspection and
// caches the result for the storage engine.
//
// Classification answers four questions per table: what type the id column
// is, whether optimistic concurrency is available (a version column exists),
// whether soft delete is available (a deletion flag column exists), and
// which columns hold binary data. System properties, soft delete, and
// conflict support are only meaningful on string-keyed tables; numeric-id
// tables report them absent regardless of the columns actually present.
package metadata

import "strings"

// IDType classifies the id column of a table.
type IDType string

const (
	IDTypeString  IDType = "string"
	IDTypeNumber  IDType = "number"
	IDTypeUnknown IDType = "unknown"
)

// System property column names. The engine owns these columns; callers
// address them by the bare property name ("createdAt"), the storage layer by
// the prefixed column name ("__createdAt").
const (
	ColumnCreatedAt = "__createdAt"
	ColumnUpdatedAt = "__updatedAt"
	ColumnVersion   = "__version"
	ColumnDeleted   = "__deleted"
)

// SystemPropertyPrefix marks engine-owned columns.
const SystemPropertyPrefix = "__"

// systemPropertyColumns maps bare property names to column names.
var systemPropertyColumns = map[string]string{
	"createdAt": ColumnCreatedAt,
	"updatedAt": ColumnUpdatedAt,
	"version":   ColumnVersion,
	"deleted":   ColumnDeleted,
}

// SystemPropertyColumn resolves a bare property name to its column name.
func SystemPropertyColumn(name string) (string, bool) {
	column, ok := systemPropertyColumns[name]
	return column, ok
}

// Column is one introspected column.
type Column struct {
	Name     string
	DataType string // lowercase SQL type name
}

// TableMetadata is the cached classification of one table.
type TableMetadata struct {
	Table              string
	IDType             IDType
	SupportsConflict   bool
	SupportsSoftDelete bool

	// SystemProperties holds the bare names of system properties whose
	// columns exist, empty for numeric-id tables.
	SystemProperties []string

	// BinaryColumns holds columns whose values compare byte-exact.
	BinaryColumns map[string]bool

	// Columns maps every column name to its lowercase data type.
	Columns map[string]string
}

// HasColumn reports whether the table has the named column.
func (m *TableMetadata) HasColumn(name string) bool {
	_, ok := m.Columns[name]
	return ok
}

// IsBinary reports whether the named column is binary-classified.
func (m *TableMetadata) IsBinary(name string) bool {
	return m.BinaryColumns[name]
}

// HasSystemProperty reports whether the bare property name is present and
// meaningful for this table.
func (m *TableMetadata) HasSystemProperty(name string) bool {
	for _, p := range m.SystemProperties {
		if p == name {
			return true
		}
	}
	return false
}

var stringIDTypes = map[string]bool{
	"nvarchar": true,
	"varchar":  true,
	"nchar":    true,
	"char":     true,
	"ntext":    true,
	"text":     true,
}

var numberIDTypes = map[string]bool{
	"int":      true,
	"bigint":   true,
	"smallint": true,
	"tinyint":  true,
	"decimal":  true,
	"numeric":  true,
	"float":    true,
	"real":     true,
}

var binaryTypes = map[string]bool{
	"binary":    true,
	"varbinary": true,
	"image":     true,
	"timestamp": true, // legacy name for rowversion
	"rowversion": true,
}

// Classify builds TableMetadata from introspected columns.
func Classify(table string, columns []Column) *TableMetadata {
	m := &TableMetadata{
		Table:         table,
		IDType:        IDTypeUnknown,
		BinaryColumns: make(map[string]bool),
		Columns:       make(map[string]string, len(columns)),
	}

	for _, col := range columns {
		dataType := strings.ToLower(col.DataType)
		m.Columns[col.Name] = dataType
		if binaryTypes[dataType] {
			m.BinaryColumns[col.Name] = true
		}
		if col.Name == "id" {
			switch {
			case stringIDTypes[dataType]:
				m.IDType = IDTypeString
			case numberIDTypes[dataType]:
				m.IDType = IDTypeNumber
			}
		}
	}

	// System behaviors are a string-id feature. A numeric-id table keeps its
	// physical columns but the engine treats the behaviors as absent.
	if m.IDType == IDTypeString {
		for _, name := range []string{"createdAt", "updatedAt", "version", "deleted"} {
			if m.HasColumn(systemPropertyColumns[name]) {
				m.SystemProperties = append(m.SystemProperties, name)
			}
		}
		m.SupportsConflict = m.HasColumn(ColumnVersion)
		m.SupportsSoftDelete = m.HasColumn(ColumnDeleted)
	}

	return m
}
