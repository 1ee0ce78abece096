package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneroisu/randomall/internal/config"
	"github.com/conneroisu/randomall/internal/engine"
	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/logging"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a gen document",
	Long: `Validate the head, format and body of a gen document and print the
localized error report. Exits non-zero when the document has errors.

Examples:
  randomall validate -f gen.json
  randomall validate -f gen.json --locale ru`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Document file")
	validateCmd.MarkFlagRequired("file")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	catalog, err := newCatalog(cfg)
	if err != nil {
		return fmt.Errorf("failed to load locale: %w", err)
	}
	doc, err := readDocument(validateFile)
	if err != nil {
		return err
	}
	return validateDocument(cmd.Context(), cmd.OutOrStdout(), doc, catalog)
}

// validateDocument test-renders doc without list lookups and prints either
// a confirmation or the error report.
func validateDocument(ctx context.Context, w io.Writer, doc engine.Document, catalog *i18n.Catalog) error {
	resp, err := engine.New(doc, offlineDeps(catalog, logging.NewNopLogger(), 0), nil, nil).Test(ctx)
	if err != nil {
		return err
	}
	if r, ok := resp.(*engine.ErrorResponse); ok {
		if err := writeReport(w, r); err != nil {
			return err
		}
		return errInvalidDocument
	}
	_, err = fmt.Fprintln(w, "Document is valid")
	return err
}
