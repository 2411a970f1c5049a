package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataq-io/dataq/internal/driver"
	"github.com/dataq-io/dataq/internal/metadata"
	"github.com/dataq-io/dataq/internal/query"
	"github.com/dataq-io/dataq/internal/sqlgen"
)

func TestExecute_RetriesTransientErrors(t *testing.T) {
	d := &scriptedDriver{}
	d.enqueueIntrospection(plainColumns...)
	d.enqueue(nil, mssql.Error{Number: 40613, Message: "database unavailable"})
	d.enqueue(nil, mssql.Error{Number: 40613, Message: "database unavailable"})
	d.enqueue([]driver.ResultSet{{driver.Row{"id": "a"}}}, nil)
	e := newTestEngine(t, d, Options{MaxRetries: 3})

	results, err := e.Query(context.Background(), query.New("items"))
	require.NoError(t, err)
	assert.Len(t, results.Items, 1)
	assert.Len(t, d.calls, 4)
}

func TestExecute_RetriesExhausted(t *testing.T) {
	d := &scriptedDriver{}
	d.enqueueIntrospection(plainColumns...)
	d.enqueue(nil, mssql.Error{Number: 40501, Message: "service busy"})
	d.enqueue(nil, mssql.Error{Number: 40501, Message: "service busy"})
	e := newTestEngine(t, d, Options{MaxRetries: 2})

	_, err := e.Query(context.Background(), query.New("items"))
	require.Error(t, err)
	assert.True(t, IsRetriesExhausted(err))
	assert.Len(t, d.calls, 3)

	// The last transient cause stays reachable.
	var serverErr mssql.Error
	assert.ErrorAs(t, err, &serverErr)
}

func TestExecute_NonTransientSurfacesImmediately(t *testing.T) {
	d := &scriptedDriver{}
	d.enqueueIntrospection(plainColumns...)
	d.enqueue(nil, mssql.Error{Number: 8134, Message: "divide by zero"})
	e := newTestEngine(t, d, Options{MaxRetries: 3})

	_, err := e.Query(context.Background(), query.New("items"))
	require.Error(t, err)
	assert.Equal(t, CodeSQLError, CodeOf(err))
	assert.Len(t, d.calls, 2)
}

func TestExecute_ContextCancelledDuringBackoff(t *testing.T) {
	d := &scriptedDriver{}
	d.enqueueIntrospection(plainColumns...)
	d.enqueue(nil, mssql.Error{Number: 40613})
	e := newTestEngine(t, d, Options{MaxRetries: 3, RetryInterval: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := e.Query(ctx, query.New("items"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeStringID(t *testing.T) {
	id, err := normalizeStringID("item-1")
	require.NoError(t, err)
	assert.Equal(t, "item-1", id)

	// Decomposed and composed forms normalize to the same id.
	composed, err := normalizeStringID("café")
	require.NoError(t, err)
	decomposed, err := normalizeStringID("café")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)

	longest, err := normalizeStringID(strings.Repeat("a", maxIDLength))
	require.NoError(t, err)
	assert.Len(t, longest, maxIDLength)

	_, err = normalizeStringID(strings.Repeat("a", maxIDLength+1))
	assert.Error(t, err)
}

func TestConvertValue(t *testing.T) {
	allowed := []any{nil, "s", true, 3.14, 7, int64(7), time.Now(), []byte{1}}
	for _, v := range allowed {
		_, err := convertValue("p", v)
		assert.NoError(t, err, "%T", v)
	}

	disallowed := []any{map[string]any{}, []string{"a"}, struct{}{}, complex(1, 2)}
	for _, v := range disallowed {
		_, err := convertValue("p", v)
		require.Error(t, err, "%T", v)
		assert.True(t, IsBadInput(err), "%T", v)
	}
}

func TestNormalizeRow(t *testing.T) {
	row := driver.Row{
		"id":                    "a",
		sqlgen.RowNumberColumn:  int64(3),
		metadata.ColumnVersion:  []byte{1, 2},
		"title":                 "x",
	}

	out := normalizeRow(row)

	assert.NotContains(t, out, sqlgen.RowNumberColumn)
	assert.Equal(t, versionToken([]byte{1, 2}), out[metadata.ColumnVersion])
	assert.Equal(t, "x", out["title"])

	// The input row is untouched.
	assert.Contains(t, row, sqlgen.RowNumberColumn)
}

func TestRowDeleted(t *testing.T) {
	assert.True(t, rowDeleted(driver.Row{metadata.ColumnDeleted: true}))
	assert.True(t, rowDeleted(driver.Row{metadata.ColumnDeleted: int64(1)}))
	assert.False(t, rowDeleted(driver.Row{metadata.ColumnDeleted: false}))
	assert.False(t, rowDeleted(driver.Row{metadata.ColumnDeleted: int64(0)}))
	assert.False(t, rowDeleted(driver.Row{}))
	assert.False(t, rowDeleted(driver.Row{metadata.ColumnDeleted: "yes"}))
}

func TestNew_Defaults(t *testing.T) {
	e := New(&scriptedDriver{}, metadata.NewCache(&scriptedDriver{}, "dbo"), Options{})

	assert.Equal(t, "dbo", e.opts.Schema)
	assert.Equal(t, defaultMaxRetries, e.opts.MaxRetries)
	assert.Equal(t, defaultRetryInterval, e.opts.RetryInterval)
	assert.NotNil(t, e.log)
}
