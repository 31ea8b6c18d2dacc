package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skyoxu/rouge/internal/card"
	"github.com/skyoxu/rouge/internal/catalog"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Cards    []string `json:"cards"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidationFailure describes why a catalog was rejected.
type ValidationFailure struct {
	Card     string `json:"card,omitempty"`
	CardCode string `json:"card_code,omitempty"`
	Line     int    `json:"line,omitempty"`
	File     string `json:"file,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a CUE card catalog",
		Long: `Load every CUE file in a catalog directory and validate each card
definition. Upgrade targets missing from the catalog are reported as
warnings.

Exit codes:
  0 - Catalog valid
  1 - Catalog invalid
  2 - Command error (directory not found, no CUE files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cat, err := catalog.LoadDir(dir)
	if err != nil {
		return outputValidateError(formatter, err)
	}

	result := ValidationResult{Valid: true, Cards: cat.IDs()}
	upgrades := cat.UpgradeMap()
	for _, id := range cat.MissingUpgradeTargets() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("card %q upgrades to %q, which is not in the catalog", id, upgrades[id]))
	}
	formatter.VerboseLog("Loaded %d card(s) from %s", cat.Len(), dir)

	var buf strings.Builder
	fmt.Fprintf(&buf, "Catalog valid: %d card(s)\n", len(result.Cards))
	for _, w := range result.Warnings {
		fmt.Fprintf(&buf, "warning: %s\n", w)
	}
	return formatter.Success(result, buf.String())
}

func outputValidateError(formatter *OutputFormatter, err error) error {
	var loadErr *catalog.LoadError
	if !errors.As(err, &loadErr) {
		_ = formatter.Error("CATALOG_ERROR", err.Error(), nil)
		return WrapExitError(ExitFailure, "catalog invalid", err)
	}

	details := ValidationFailure{Card: loadErr.Card}
	if code := card.ValidationCode(err); code != "" {
		details.CardCode = string(code)
	}
	if loadErr.Pos.IsValid() {
		details.File = loadErr.Pos.Filename()
		details.Line = loadErr.Pos.Line()
	}
	_ = formatter.Error(loadErr.Code, loadErr.Error(), details)

	switch loadErr.Code {
	case catalog.ErrCodeNotFound, catalog.ErrCodeNoFiles:
		return WrapExitError(ExitCommandError, "cannot load catalog", err)
	default:
		return WrapExitError(ExitFailure, "catalog invalid", err)
	}
}
