package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataq-io/dataq/internal/driver"
	"github.com/dataq-io/dataq/internal/metadata"
)

func TestDelete_SoftDelete(t *testing.T) {
	d := &scriptedDriver{}
	d.enqueueIntrospection(systemColumns...)
	d.enqueue([]driver.ResultSet{rowcountSet(1), {driver.Row{"id": "item-1"}}}, nil)
	e := newTestEngine(t, d, Options{})

	err := e.Delete(context.Background(), "items", "item-1", "")
	require.NoError(t, err)

	del := d.calls[1]
	assert.Equal(t,
		"UPDATE [dbo].[items] SET [__deleted] = @p1, [__updatedAt] = CONVERT(DATETIMEOFFSET(3), SYSUTCDATETIME())"+
			" WHERE [id] = @p2 AND [__deleted] = @p3"+
			"; SELECT @@ROWCOUNT AS [rowcount]; SELECT * FROM [dbo].[items] WHERE [id] = @p4",
		del.sql)
	assert.Equal(t, []any{true, "item-1", false, "item-1"}, del.params)
}

func TestDelete_HardDelete(t *testing.T) {
	d := &scriptedDriver{}
	d.enqueueIntrospection(plainColumns...)
	d.enqueue([]driver.ResultSet{rowcountSet(1), {}}, nil)
	e := newTestEngine(t, d, Options{})

	err := e.Delete(context.Background(), "items", "item-1", "")
	require.NoError(t, err)

	del := d.calls[1]
	assert.Equal(t,
		"DELETE FROM [dbo].[items] WHERE [id] = @p1"+
			"; SELECT @@ROWCOUNT AS [rowcount]; SELECT * FROM [dbo].[items] WHERE [id] = @p2",
		del.sql)
	assert.Equal(t, []any{"item-1", "item-1"}, del.params)
}

func TestDelete_VersionPredicate(t *testing.T) {
	d := &scriptedDriver{}
	d.enqueueIntrospection(systemColumns...)
	d.enqueue([]driver.ResultSet{rowcountSet(1), {driver.Row{"id": "item-1"}}}, nil)
	e := newTestEngine(t, d, Options{})

	err := e.Delete(context.Background(), "items", "item-1", versionToken([]byte{5}))
	require.NoError(t, err)

	del := d.calls[1]
	assert.Contains(t, del.sql, "AND [__version] = @p3")
	assert.Equal(t, []byte{5}, del.params[2])
}

func TestDelete_Conflict(t *testing.T) {
	current := driver.Row{"id": "item-1", metadata.ColumnVersion: []byte{2}}
	d := &scriptedDriver{}
	d.enqueueIntrospection(systemColumns...)
	d.enqueue([]driver.ResultSet{rowcountSet(0), {current}}, nil)
	e := newTestEngine(t, d, Options{})

	err := e.Delete(context.Background(), "items", "item-1", versionToken([]byte{1}))
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestDelete_AlreadyDeleted(t *testing.T) {
	current := driver.Row{"id": "item-1", metadata.ColumnDeleted: true}
	d := &scriptedDriver{}
	d.enqueueIntrospection(systemColumns...)
	d.enqueue([]driver.ResultSet{rowcountSet(0), {current}}, nil)
	e := newTestEngine(t, d, Options{})

	err := e.Delete(context.Background(), "items", "item-1", "")
	require.Error(t, err)
	assert.True(t, IsSoftDeleted(err))
}

func TestDelete_NotFound(t *testing.T) {
	d := &scriptedDriver{}
	d.enqueueIntrospection(plainColumns...)
	d.enqueue([]driver.ResultSet{rowcountSet(0), {}}, nil)
	e := newTestEngine(t, d, Options{})

	err := e.Delete(context.Background(), "items", "ghost", "")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestDelete_InvalidID(t *testing.T) {
	d := &scriptedDriver{}
	d.enqueueIntrospection(plainColumns...)
	e := newTestEngine(t, d, Options{})

	err := e.Delete(context.Background(), "items", "bad/id", "")
	require.Error(t, err)
	assert.True(t, IsBadInput(err))
}

func TestDelete_VersionIgnoredWithoutConflictSupport(t *testing.T) {
	d := &scriptedDriver{}
	d.enqueueIntrospection(plainColumns...)
	d.enqueue([]driver.ResultSet{rowcountSet(1), {}}, nil)
	e := newTestEngine(t, d, Options{})

	err := e.Delete(context.Background(), "items", "item-1", versionToken([]byte{5}))
	require.NoError(t, err)
	assert.NotContains(t, d.calls[1].sql, "[__version]")
}
