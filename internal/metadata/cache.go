package metadata

import (
	"context"
	"fmt"
	"sync"

	"github.com/dataq-io/dataq/internal/driver"
)

// introspectSQL reads one table's column inventory. Table and schema names
// bind as parameters; this statement never embeds identifiers.
const introspectSQL = "SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2"

// Cache is the explicit metadata service: built once, passed by handle into
// the storage engine, shared across concurrent operations. Entries never
// expire on their own; schema evolution and other schema-changing paths call
// Invalidate or Refresh explicitly. Reads and writes are mutex-guarded so
// concurrent evolution attempts cannot corrupt the map.
type Cache struct {
	driver driver.Driver
	schema string

	mu     sync.RWMutex
	tables map[string]*TableMetadata
}

// NewCache creates a cache reading introspection through d for the given
// schema (for example "dbo").
func NewCache(d driver.Driver, schema string) *Cache {
	return &Cache{
		driver: d,
		schema: schema,
		tables: make(map[string]*TableMetadata),
	}
}

// Get returns the cached metadata for table, introspecting on first use.
// The caller must have validated table as a safe identifier.
func (c *Cache) Get(ctx context.Context, table string) (*TableMetadata, error) {
	c.mu.RLock()
	m, ok := c.tables[table]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}
	return c.Refresh(ctx, table)
}

// Refresh introspects table and replaces any cached entry.
func (c *Cache) Refresh(ctx context.Context, table string) (*TableMetadata, error) {
	columns, err := c.introspect(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q does not exist in schema %q", table, c.schema)
	}

	m := Classify(table, columns)
	c.mu.Lock()
	c.tables[table] = m
	c.mu.Unlock()
	return m, nil
}

// Invalidate drops the cached entry for table so the next Get introspects.
func (c *Cache) Invalidate(table string) {
	c.mu.Lock()
	delete(c.tables, table)
	c.mu.Unlock()
}

func (c *Cache) introspect(ctx context.Context, table string) ([]Column, error) {
	sets, err := c.driver.Execute(ctx, introspectSQL, []any{c.schema, table})
	if err != nil {
		return nil, fmt.Errorf("introspect table %q: %w", table, err)
	}
	if len(sets) == 0 {
		return nil, nil
	}

	columns := make([]Column, 0, len(sets[0]))
	for _, row := range sets[0] {
		name, _ := row["COLUMN_NAME"].(string)
		dataType, _ := row["DATA_TYPE"].(string)
		if name == "" {
			continue
		}
		columns = append(columns, Column{Name: name, DataType: dataType})
	}
	return columns, nil
}
