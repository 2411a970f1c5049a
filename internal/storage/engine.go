package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/dataq-io/dataq/internal/driver"
	"github.com/dataq-io/dataq/internal/metadata"
	"github.com/dataq-io/dataq/internal/sqlgen"
)

// Options tunes one engine instance.
type Options struct {
	// Schema qualifies table names, "dbo" when empty.
	Schema string

	// DynamicSchema allows the engine to add columns for unseen properties.
	DynamicSchema bool

	// MaxTop is the hard result-row ceiling; zero means sqlgen.DefaultMaxTop.
	MaxTop int

	// MaxRetries bounds transient-error retries per statement. Zero means
	// defaultMaxRetries.
	MaxRetries int

	// RetryInterval is the fixed delay between attempts. Zero means
	// defaultRetryInterval.
	RetryInterval time.Duration

	// Logger receives warnings and retry diagnostics. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

const (
	defaultSchema        = "dbo"
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

// Engine executes table operations. Safe for concurrent use.
type Engine struct {
	driver driver.Driver
	meta   *metadata.Cache
	opts   Options
	log    *slog.Logger

	// evolveMu serializes dynamic schema evolution. Two racing evolutions
	// for the same table would otherwise issue duplicate ALTERs; the loser
	// of a cross-process race is handled by treating duplicate-column
	// errors as success.
	evolveMu sync.Mutex
}

// New creates an engine over the given driver and metadata cache.
func New(d driver.Driver, meta *metadata.Cache, opts Options) *Engine {
	if opts.Schema == "" {
		opts.Schema = defaultSchema
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{driver: d, meta: meta, opts: opts, log: log}
}

// tableMetadata validates the table name and resolves its classification.
func (e *Engine) tableMetadata(ctx context.Context, table string) (*metadata.TableMetadata, error) {
	if err := sqlgen.ValidateIdentifier(table); err != nil {
		return nil, badInputf("%v", err)
	}
	md, err := e.meta.Get(ctx, table)
	if err != nil {
		return nil, e.wrapSQLError(err)
	}
	return md, nil
}

// execute runs one statement (or batch) with the transient-retry policy:
// a fixed set of connection/timeout/throttle conditions retries up to the
// configured bound with a fixed timer delay; everything else surfaces
// immediately. Exhaustion is logged distinctly and surfaced as its own code.
func (e *Engine) execute(ctx context.Context, sqlText string, params []any) ([]driver.ResultSet, error) {
	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxRetries; attempt++ {
		sets, err := e.driver.Execute(ctx, sqlText, params)
		if err == nil {
			return sets, nil
		}
		if !driver.IsTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt < e.opts.MaxRetries {
			e.log.Warn("transient SQL error, retrying",
				"attempt", attempt,
				"max", e.opts.MaxRetries,
				"error", err)
			select {
			case <-time.After(e.opts.RetryInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	e.log.Error("transient SQL error persisted through all retries",
		"attempts", e.opts.MaxRetries,
		"error", lastErr)
	return nil, &Error{
		Code:    CodeRetriesExhausted,
		Message: "the operation failed with a transient error after all retry attempts",
		Err:     lastErr,
	}
}

// wrapSQLError classifies a driver error that is not handled structurally
// upstream. Engine errors pass through untouched.
func (e *Engine) wrapSQLError(err error) error {
	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}
	if sqlgen.IsIdentifierError(err) {
		return badInputf("%v", err)
	}
	return &Error{Code: CodeSQLError, Message: "database operation failed", Err: err}
}

// placeholder returns the positional parameter name for 1-based index n.
func placeholder(n int) string {
	return "@p" + strconv.Itoa(n)
}

// invalidIDChars matches characters forbidden in caller-supplied string ids:
// path and quoting metacharacters plus control ranges.
var invalidIDChars = regexp.MustCompile("[+\"/?`\\\\]|[\\x00-\\x1f]|[\\x7f-\\x9f]")

const maxIDLength = 255

// normalizeStringID NFC-normalizes a caller-supplied id and validates it
// against the forbidden-character pattern.
func normalizeStringID(id string) (string, error) {
	id = norm.NFC.String(id)
	if id == "" || id == "." || id == ".." || len(id) > maxIDLength || invalidIDChars.MatchString(id) {
		return "", badInputf("invalid id %q", id)
	}
	return id, nil
}

// convertValue vets one property value for use as a SQL parameter.
func convertValue(name string, v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, float64, int, int64, time.Time, []byte:
		return v, nil
	default:
		return nil, badInputf("property %q has unsupported type %T", name, v)
	}
}

// sortedPropertyNames returns the item's property names in deterministic
// order, excluding the id and any system-managed columns.
func sortedPropertyNames(item map[string]any) []string {
	names := make([]string, 0, len(item))
	for name := range item {
		if name == "id" || isSystemColumn(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isSystemColumn(name string) bool {
	return len(name) >= 2 && name[:2] == metadata.SystemPropertyPrefix
}

// normalizeRow prepares a stored row for the caller: the paging artifact is
// stripped and the binary version token is re-encoded as base64 text.
func normalizeRow(row driver.Row) driver.Row {
	out := make(driver.Row, len(row))
	for name, v := range row {
		if name == sqlgen.RowNumberColumn {
			continue
		}
		if name == metadata.ColumnVersion {
			if b, ok := v.([]byte); ok {
				v = base64.StdEncoding.EncodeToString(b)
			}
		}
		out[name] = v
	}
	return out
}

// decodeVersion converts a caller-supplied base64 version token to the byte
// form the version column compares against.
func decodeVersion(token string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, badInputf("invalid version token %q", token)
	}
	return b, nil
}

// rowDeleted reports whether a stored row carries a set deletion flag.
func rowDeleted(row driver.Row) bool {
	switch v := row[metadata.ColumnDeleted].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	}
	return false
}
