package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dataq-io/dataq/internal/metadata"
	"github.com/dataq-io/dataq/internal/parse"
	"github.com/dataq-io/dataq/internal/query"
	"github.com/dataq-io/dataq/internal/sqlgen"
)

// Error codes for CLI responses.
const (
	ErrCodeSyntax     = "E_SYNTAX"     // filter or order-by expression failed to parse
	ErrCodeIdentifier = "E_IDENTIFIER" // table or column name is not a safe identifier
	ErrCodeConfig     = "E_CONFIG"     // configuration file failed validation
	ErrCodeGeneric    = "E_GENERIC"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Table            string
	Schema           string
	Filter           string
	OrderBy          string
	Select           []string
	Skip             int
	Top              int
	InlineCount      bool
	IncludeDeleted   bool
	SoftDelete       bool
	Conflict         bool
	BinaryColumns    []string
	SystemProperties []string
}

// CompileResult holds the compiled statement for output.
type CompileResult struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile --table <name> [flags]",
		Short: "Compile filter and order-by expressions to parameterized T-SQL",
		Long: `Compile a table query to a parameterized T-SQL statement.

The command builds the same statement the storage engine would execute,
against a synthetic table description controlled by the table flags, and
prints the SQL text with its positional parameters.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "table name (required)")
	cmd.Flags().StringVar(&opts.Schema, "schema", "dbo", "schema qualifying the table")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter expression")
	cmd.Flags().StringVar(&opts.OrderBy, "orderby", "", "order-by expression")
	cmd.Flags().StringSliceVar(&opts.Select, "select", nil, "columns to select")
	cmd.Flags().IntVar(&opts.Skip, "skip", query.Unset, "rows to skip")
	cmd.Flags().IntVar(&opts.Top, "top", query.Unset, "maximum rows to return")
	cmd.Flags().BoolVar(&opts.InlineCount, "count", false, "request the unpaged total count")
	cmd.Flags().BoolVar(&opts.IncludeDeleted, "include-deleted", false, "include soft-deleted rows")
	cmd.Flags().BoolVar(&opts.SoftDelete, "soft-delete", false, "treat the table as soft-delete capable")
	cmd.Flags().BoolVar(&opts.Conflict, "conflict", false, "treat the table as version-tracked")
	cmd.Flags().StringSliceVar(&opts.BinaryColumns, "binary-column", nil, "column to treat as binary (repeatable)")
	cmd.Flags().StringSliceVar(&opts.SystemProperties, "system-properties", nil, "system properties to select, or * for all")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	md := syntheticMetadata(opts)
	formatter.VerboseLog("Table %s: id type %s, soft delete %v, conflict %v",
		md.Table, md.IDType, md.SupportsSoftDelete, md.SupportsConflict)

	q := query.New(opts.Table)
	q.Select = opts.Select
	q.Skip = opts.Skip
	q.Top = opts.Top
	q.InlineCount = opts.InlineCount
	q.IncludeDeleted = opts.IncludeDeleted
	q.SystemProperties = opts.SystemProperties
	q.SetFilter(opts.Filter)
	q.SetOrderBy(opts.OrderBy)

	stmt, err := sqlgen.Format(q, md, sqlgen.Options{Schema: opts.Schema})
	if err != nil {
		return outputCompileError(formatter, err)
	}

	result := &CompileResult{SQL: stmt.SQL, Params: stmt.Params}
	if stmt.Params == nil {
		result.Params = []any{}
	}
	return outputCompileSuccess(formatter, result)
}

// syntheticMetadata builds the table description the statement is compiled
// against. The CLI has no database to introspect, so the capability flags
// stand in for what INFORMATION_SCHEMA would report.
func syntheticMetadata(opts *CompileOptions) *metadata.TableMetadata {
	columns := []metadata.Column{{Name: "id", DataType: "nvarchar"}}
	if opts.SoftDelete {
		columns = append(columns,
			metadata.Column{Name: metadata.ColumnDeleted, DataType: "bit"},
			metadata.Column{Name: metadata.ColumnCreatedAt, DataType: "datetimeoffset"},
			metadata.Column{Name: metadata.ColumnUpdatedAt, DataType: "datetimeoffset"},
		)
	}
	if opts.Conflict {
		columns = append(columns, metadata.Column{Name: metadata.ColumnVersion, DataType: "timestamp"})
	}
	for _, name := range opts.BinaryColumns {
		columns = append(columns, metadata.Column{Name: name, DataType: "varbinary"})
	}
	return metadata.Classify(opts.Table, columns)
}

// outputCompileSuccess outputs the compiled statement.
func outputCompileSuccess(formatter *OutputFormatter, result *CompileResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.SQL)
	for i, p := range result.Params {
		fmt.Fprintf(formatter.Writer, "  @p%d = %#v\n", i+1, p)
	}
	return nil
}

// outputCompileError classifies and outputs a compilation failure.
func outputCompileError(formatter *OutputFormatter, err error) error {
	var syntaxErr *parse.SyntaxError
	if errors.As(err, &syntaxErr) {
		details := map[string]any{"input": syntaxErr.Input, "position": syntaxErr.Pos}
		_ = formatter.Error(ErrCodeSyntax, syntaxErr.Message, details)
		return WrapExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeSyntax, syntaxErr.Message), err)
	}
	if sqlgen.IsIdentifierError(err) {
		_ = formatter.Error(ErrCodeIdentifier, err.Error(), nil)
		return WrapExitError(ExitFailure, fmt.Sprintf("%s: %v", ErrCodeIdentifier, err), err)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %v", ErrCodeGeneric, err), err)
}
