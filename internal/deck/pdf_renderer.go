package deck

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dlevin/pitchforge/internal/pitch"
)

// ChromiumPDFRenderer turns a run envelope's deck markdown into a printable
// PDF via headless Chromium.
type ChromiumPDFRenderer struct {
	chromePath string
}

func NewChromiumPDFRenderer() *ChromiumPDFRenderer {
	return &ChromiumPDFRenderer{chromePath: detectChromePath()}
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, env pitch.ResponseEnvelope) ([]byte, error) {
	htmlDoc, err := buildHTML(env)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;padding-right:8px;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, err
	}
	return pdf, nil
}

const deckCSS = `body{font-family:Georgia,'Times New Roman',serif;color:#1c1917;background:#fff;padding:0.6rem;}` +
	`.deck-wrap{max-width:900px;margin:0 auto;}` +
	`.deck-meta{color:#44403c;font-size:0.85rem;margin-bottom:1rem;}` +
	`.deck-meta strong{color:#1c1917;}` +
	`.deck-badge{display:inline-block;background:#eef2ff;color:#3730a3;border:1px solid #c7d2fe;border-radius:4px;padding:0.1rem 0.5rem;font-size:0.75rem;margin-right:0.4rem;}` +
	`.deck-html h1{font-size:1.6rem;border-bottom:2px solid #3730a3;padding-bottom:0.3rem;}` +
	`.deck-html h2{font-size:1.15rem;margin-top:1.4rem;break-inside:avoid;}` +
	`.deck-html table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.8rem;}` +
	`.deck-html th,.deck-html td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}` +
	`.deck-html thead th{background:#f1f5f9;font-weight:700;}` +
	`html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}` +
	`@media print{ @page{size:auto;margin:12mm;} body{padding:0;} .deck-wrap{max-width:none;} }`

func buildHTML(env pitch.ResponseEnvelope) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(env.DeckMarkdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	return "<!doctype html><html><head><meta charset='utf-8'><title>Pitch Deck</title>" +
		"<style>" + deckCSS + "</style></head><body>" +
		"<div class='deck-wrap'>" +
		"<div class='deck-meta'>" + buildMetaHTML(env) + "</div>" +
		"<div>" + buildBadgeHTML(env) + "</div>" +
		"<div class='deck-html'>" + content.String() + "</div>" +
		"</div></body></html>", nil
}

func buildMetaHTML(env pitch.ResponseEnvelope) string {
	var out strings.Builder
	if env.RunID != "" {
		out.WriteString("<div><strong>Run:</strong> " + html.EscapeString(env.RunID) + "</div>")
	}
	if !env.Metadata.CompletedAt.IsZero() {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(env.Metadata.CompletedAt.Format("January 2, 2006 at 3:04 PM MST")) + "</div>")
	}
	return out.String()
}

func buildBadgeHTML(env pitch.ResponseEnvelope) string {
	var out strings.Builder
	out.WriteString("<span class='deck-badge'>" + html.EscapeString(string(env.Status)) + "</span>")
	if trl := env.Profile.ReadinessLevel; trl > 0 {
		fmt.Fprintf(&out, "<span class='deck-badge'>TRL %d/9</span>", trl)
	}
	if len(env.Profile.Domains) > 0 {
		out.WriteString("<span class='deck-badge'>" + html.EscapeString(env.Profile.Domains[0]) + "</span>")
	}
	return out.String()
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
