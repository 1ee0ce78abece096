package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/randomall/internal/blocks"
	"github.com/conneroisu/randomall/internal/engine"
	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/types"
)

// pageData is everything the gen page shows. Result is already escaped.
type pageData struct {
	Lang       string
	Gen        *types.GenEntity
	Result     string
	Align      string
	Variations string
}

func (s *Server) handleGenPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(ctx)
	gen, err := s.loadGen(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := gen.CheckViewPermissions(user, r.URL.Query().Get("key")); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.store.Gens.IncrementViews(ctx, gen.ID); err != nil {
		s.logger.Warn(ctx, err, "Failed to count view", "gen_id", gen.ID)
	} else {
		gen.Views++
	}

	resp, err := engine.New(engine.Document{Format: gen.Format, Body: gen.Body}, s.engineDeps(), user, gen).Generate(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	align := "left"
	if format, errs := blocks.ValidateFormat(gen.Format); !errs.HasErrors() {
		align = format.Align
	}

	templ.Handler(genPage(s.catalog, pageData{
		Lang:       s.catalog.Lang(),
		Gen:        gen,
		Result:     resp.Msg,
		Align:      align,
		Variations: blocks.ApproximateVariations(gen.Variations),
	})).ServeHTTP(w, r)
}

func genPage(catalog *i18n.Catalog, data pageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		esc := templ.EscapeString[string]

		fmt.Fprintf(&b, "<!DOCTYPE html>\n<html lang=\"%s\"><head><meta charset=\"utf-8\">", esc(data.Lang))
		fmt.Fprintf(&b, "<title>%s</title></head><body>", esc(data.Gen.Title))
		b.WriteString(`<main class="gen">`)
		fmt.Fprintf(&b, "<h1>%s</h1>", esc(data.Gen.Title))
		if data.Gen.Description != "" {
			fmt.Fprintf(&b, `<p class="description">%s</p>`, esc(data.Gen.Description))
		}

		b.WriteString(`<dl class="meta">`)
		if data.Gen.Category != nil {
			fmt.Fprintf(&b, "<dt>%s</dt><dd>%s</dd>", esc(catalog.T("head.labels.category")), esc(*data.Gen.Category))
		}
		if len(data.Gen.Tags) > 0 {
			fmt.Fprintf(&b, "<dt>%s</dt><dd>%s</dd>", esc(catalog.T("page.tags")), esc(strings.Join(data.Gen.Tags, ", ")))
		}
		if data.Variations != "" {
			fmt.Fprintf(&b, "<dt>%s</dt><dd>%s</dd>", esc(catalog.T("page.variations")), esc(data.Variations))
		}
		fmt.Fprintf(&b, "<dt>%s</dt><dd>%d</dd>", esc(catalog.T("page.views")), data.Gen.Views)
		b.WriteString("</dl>")

		fmt.Fprintf(&b, `<section class="result" aria-label="%s">`, esc(catalog.T("page.result")))
		fmt.Fprintf(&b, `<div style="white-space: pre-wrap; text-align: %s">%s</div>`, esc(data.Align), data.Result)
		b.WriteString("</section></main></body></html>")

		_, err := io.WriteString(w, b.String())
		return err
	})
}
