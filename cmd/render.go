package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/randomall/internal/config"
	"github.com/conneroisu/randomall/internal/engine"
	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/logging"
	"github.com/conneroisu/randomall/internal/middleware"
	"github.com/conneroisu/randomall/internal/types"
)

// errInvalidDocument is returned after the validation report was printed.
var errInvalidDocument = errors.New("document has errors")

var (
	renderFile   string
	renderTest   bool
	renderSeed   uint64
	renderUserID int64
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a gen document offline",
	Long: `Render one result of a gen document read from a JSON file with "head",
"format" and "body" keys. LIST(<id>) references resolve against the
configured database.

Examples:
  randomall render -f gen.json
  randomall render -f gen.json --test
  randomall render -f gen.json --seed 42 --user 7`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderFile, "file", "f", "", "Document file")
	renderCmd.Flags().BoolVar(&renderTest, "test", false, "Validate and render in test mode")
	renderCmd.Flags().Uint64Var(&renderSeed, "seed", 0, "Random seed (0 picks one)")
	renderCmd.Flags().Int64Var(&renderUserID, "user", 0, "Render on behalf of this user id")
	renderCmd.MarkFlagRequired("file")
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer closeLog()

	catalog, err := newCatalog(cfg)
	if err != nil {
		return fmt.Errorf("failed to load locale: %w", err)
	}
	doc, err := readDocument(renderFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var user *types.User
	if renderUserID > 0 {
		user = &types.User{ID: renderUserID}
	}

	deps := engine.Deps{
		Chains: middleware.NewChains(middleware.Deps{
			Lists:   store.Lists,
			Catalog: catalog,
			Logger:  logger,
		}),
		Catalog: catalog,
		Logger:  logger,
		Rand:    newRand(renderSeed),
	}
	return renderDocument(ctx, cmd.OutOrStdout(), doc, deps, user, renderTest)
}

// renderDocument prints one result of doc. In test mode the document is
// validated first and a report is printed instead when it has errors.
func renderDocument(ctx context.Context, w io.Writer, doc engine.Document, deps engine.Deps, user *types.User, test bool) error {
	e := engine.New(doc, deps, user, nil)

	if !test {
		resp, err := e.Generate(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, html.UnescapeString(resp.Msg))
		return err
	}

	resp, err := e.Test(ctx)
	if err != nil {
		return err
	}
	switch r := resp.(type) {
	case *engine.TestResponse:
		_, err = fmt.Fprintln(w, html.UnescapeString(r.Msg.Result))
		return err
	case *engine.ErrorResponse:
		if err := writeReport(w, r); err != nil {
			return err
		}
		return errInvalidDocument
	default:
		return fmt.Errorf("unexpected response %T", resp)
	}
}

func readDocument(path string) (engine.Document, error) {
	var doc engine.Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read document: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse document %s: %w", path, err)
	}
	return doc, nil
}

func writeReport(w io.Writer, r *engine.ErrorResponse) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// offlineDeps are engine dependencies that need no database.
func offlineDeps(catalog *i18n.Catalog, logger logging.Logger, seed uint64) engine.Deps {
	return engine.Deps{
		Chains:  middleware.NewChains(middleware.Deps{Catalog: catalog, Logger: logger}),
		Catalog: catalog,
		Logger:  logger,
		Rand:    newRand(seed),
	}
}
