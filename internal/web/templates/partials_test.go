package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/cardimport/internal/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func TestErrorAlert(t *testing.T) {
	html := render(t, ErrorAlert("Bad <input>", "", "REQ003"))

	assert.Contains(t, html, `role="alert"`)
	assert.Contains(t, html, "Bad &lt;input&gt;")
	assert.Contains(t, html, "Code: REQ003")
	assert.NotContains(t, html, "alert-action")

	html = render(t, ErrorAlert("Session expired", "Upload the file again", "SES001"))
	assert.Contains(t, html, `<p class="alert-action">Upload the file again</p>`)
}

func TestPreviewStats(t *testing.T) {
	v := &core.SessionView{
		ID:       "abc",
		State:    core.StateCommitting,
		Stats:    core.PreviewStats{Total: 4, Ready: 2, NotFound: 1, Errors: 1},
		Progress: &core.BatchProgress{CurrentBatch: 2, TotalBatches: 3, Percentage: 67},
	}
	html := render(t, PreviewStats(v))

	assert.Contains(t, html, `data-session="abc"`)
	assert.Contains(t, html, "4 rows")
	assert.Contains(t, html, "2 ready")
	assert.Contains(t, html, "1 not found")
	assert.Contains(t, html, `<progress max="100" value="67">`)
	assert.Contains(t, html, "Batch 2 of 3")

	v.Result = &core.ImportResult{Imported: 2, Failed: 1, Errors: []core.ImportRowError{{Row: 3, CardName: "Bolt & Co", Error: "duplicate"}}}
	html = render(t, PreviewStats(v))
	assert.Contains(t, html, "2 imported")
	assert.Contains(t, html, "<li>Row 3: Bolt &amp; Co: duplicate</li>")
	assert.NotContains(t, html, "<progress")
}

func TestPreviewTable(t *testing.T) {
	v := &core.SessionView{
		ID:     "abc",
		Target: core.TargetCollection,
		Rows: []core.PreviewRow[core.ParsedRow]{
			{Index: 0, Row: core.ParsedRow{Name: "Sol Ring", Quantity: 2}, Resolution: core.Ready{Card: core.ResolvedCard{Name: "Sol Ring", SetCode: "C21"}}},
			{Index: 1, Row: core.ParsedRow{Name: "Mystery", Quantity: 1}, Resolution: core.NotFound{}},
		},
	}
	html := render(t, PreviewTable(v))

	assert.Contains(t, html, `<tr data-index="0" data-status="ready"><td>1</td><td>Sol Ring</td><td>2</td><td>ready</td><td>Sol Ring (C21)</td></tr>`)
	assert.Contains(t, html, `<tr data-index="1" data-status="not_found"><td>2</td><td>Mystery</td>`)

	w := &core.SessionView{
		Target: core.TargetWishlist,
		Rows: []core.PreviewRow[core.WishlistRow]{
			{Index: 0, Row: core.WishlistRow{Name: "Force of Will", Quantity: 1}, Resolution: core.Invalid{Message: "Missing card name"}},
		},
	}
	html = render(t, PreviewTable(w))
	assert.Contains(t, html, `data-status="error"`)
	assert.Contains(t, html, "<td>Missing card name</td>")
}
