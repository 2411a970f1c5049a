package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dataq-io/dataq/internal/driver"
	"github.com/dataq-io/dataq/internal/metadata"
)

// scriptedDriver plays back a queue of canned responses and records every
// statement it receives.
type scriptedDriver struct {
	responses []response
	calls     []executedCall
}

type response struct {
	sets []driver.ResultSet
	err  error
}

type executedCall struct {
	sql    string
	params []any
}

func (d *scriptedDriver) Execute(_ context.Context, sqlText string, params []any) ([]driver.ResultSet, error) {
	d.calls = append(d.calls, executedCall{sql: sqlText, params: params})
	if len(d.responses) == 0 {
		return nil, nil
	}
	r := d.responses[0]
	d.responses = d.responses[1:]
	return r.sets, r.err
}

func (d *scriptedDriver) enqueue(sets []driver.ResultSet, err error) {
	d.responses = append(d.responses, response{sets: sets, err: err})
}

// enqueueIntrospection queues an INFORMATION_SCHEMA result built from
// name/type pairs.
func (d *scriptedDriver) enqueueIntrospection(pairs ...string) {
	rows := make(driver.ResultSet, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		rows = append(rows, driver.Row{"COLUMN_NAME": pairs[i], "DATA_TYPE": pairs[i+1]})
	}
	d.enqueue([]driver.ResultSet{rows}, nil)
}

// Column sets for the three table shapes the tests exercise.
var (
	plainColumns = []string{"id", "nvarchar", "title", "nvarchar", "complete", "bit"}

	systemColumns = []string{
		"id", "nvarchar", "title", "nvarchar", "complete", "bit",
		metadata.ColumnCreatedAt, "datetimeoffset",
		metadata.ColumnUpdatedAt, "datetimeoffset",
		metadata.ColumnVersion, "timestamp",
		metadata.ColumnDeleted, "bit",
	}

	numberColumns = []string{"id", "int", "title", "nvarchar"}
)

func newTestEngine(t *testing.T, d *scriptedDriver, opts Options) *Engine {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = time.Millisecond
	}
	return New(d, metadata.NewCache(d, "dbo"), opts)
}

// rowcountSet is the @@ROWCOUNT companion result of a write batch.
func rowcountSet(n int64) driver.ResultSet {
	return driver.ResultSet{driver.Row{"rowcount": n}}
}
