// Package templates holds the HTMX partials served by the web layer.
// Components live in .templ files; run `templ generate` after editing them.
package templates

import (
	"fmt"

	"github.com/JonMunkholm/cardimport/internal/core"
)

// printingLabel describes the printing a preview row will be imported as.
func printingLabel(res core.Resolution, customCardID string) string {
	switch r := res.(type) {
	case core.Ready:
		if r.Card.SetCode == "" {
			return r.Card.Name
		}
		return fmt.Sprintf("%s (%s)", r.Card.Name, r.Card.SetCode)
	case core.Invalid:
		return r.Message
	}
	if customCardID != "" {
		return customCardID
	}
	return ""
}
