package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dataq-io/dataq/internal/config"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationSummary holds the effective configuration for output.
type ValidationSummary struct {
	Path          string `json:"path"`
	Schema        string `json:"schema"`
	DynamicSchema bool   `json:"dynamicSchema"`
	MaxTop        int    `json:"maxTop"`
	RetryAttempts int    `json:"retryAttempts"`
	RetryInterval string `json:"retryInterval"`
	LogLevel      string `json:"logLevel"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a dataq configuration file",
		Long: `Validate a YAML configuration file against the configuration schema.

Defaults are applied before validation, so the command also shows the
effective configuration the engine would run with.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(path)
	if err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			_ = formatter.Error(ErrCodeConfig, "configuration failed validation", ve.Details)
			return WrapExitError(ExitFailure, fmt.Sprintf("%s: configuration failed validation", ErrCodeConfig), err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %v", ErrCodeGeneric, err), err)
	}

	summary := &ValidationSummary{
		Path:          path,
		Schema:        cfg.Schema,
		DynamicSchema: cfg.DynamicSchema,
		MaxTop:        cfg.MaxTop,
		RetryAttempts: cfg.Retry.MaxAttempts,
		RetryInterval: cfg.Retry.Interval,
		LogLevel:      cfg.LogLevel,
	}
	return outputValidateSuccess(formatter, summary)
}

// outputValidateSuccess outputs the effective configuration.
func outputValidateSuccess(formatter *OutputFormatter, summary *ValidationSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n\n", summary.Path)
	fmt.Fprintf(formatter.Writer, "  schema:         %s\n", summary.Schema)
	fmt.Fprintf(formatter.Writer, "  dynamic schema: %v\n", summary.DynamicSchema)
	fmt.Fprintf(formatter.Writer, "  max top:        %d\n", summary.MaxTop)
	fmt.Fprintf(formatter.Writer, "  retry:          %d attempt(s) at %s\n", summary.RetryAttempts, summary.RetryInterval)
	fmt.Fprintf(formatter.Writer, "  log level:      %s\n", summary.LogLevel)
	return nil
}
