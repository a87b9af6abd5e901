package core

// decklist.go parses pasted decklists in the common export formats:
//
//	4 Lightning Bolt              mtgo
//	4x Lightning Bolt             quantity_x
//	Lightning Bolt x4             suffix
//	4 Lightning Bolt (M10) 146    arena
//	1 Sol Ring (CMR) 472 *F*      arena, foil
//	Lightning Bolt                plain
//
// A sideboard header ("Sideboard", "Sideboard:", "// Sideboard", "SB:")
// marks every following line as sideboard; an "SB: " prefix marks a single
// line. Section headers and // or # comments are skipped.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultMaxTextLines is the ceiling on non-blank lines in pasted text.
const DefaultMaxTextLines = 1000

// Format names reported as DetectedFormat.
const (
	FormatArena     = "arena"
	FormatMTGO      = "mtgo"
	FormatQuantityX = "quantity_x"
	FormatSuffix    = "suffix"
	FormatPlain     = "plain"
)

var (
	foilMarkerRe = regexp.MustCompile(`(?i)\s*(\*f\*|\*foil\*|\(foil\)|\[foil\])\s*$`)
	setNumberRe  = regexp.MustCompile(`\s+\(([A-Za-z0-9]{2,6})\)(?:\s+([A-Za-z0-9\-]+))?\s*$`)
	prefixQtyRe  = regexp.MustCompile(`^(\d+)([xX]?)\s+(.+)$`)
	suffixQtyRe  = regexp.MustCompile(`^(.+?)\s+[xX](\d+)$`)
)

// sectionHeaders are skipped; the bool says whether the section is sideboard.
var sectionHeaders = map[string]bool{
	"deck":         false,
	"main":         false,
	"mainboard":    false,
	"maindeck":     false,
	"commander":    false,
	"companion":    false,
	"sideboard":    true,
	"sb":           true,
	"// sideboard": true,
	"//sideboard":  true,
}

// ParseDecklist splits text into card entries. Entries come back without a
// match status; ResolveEntries fills that in. maxLines <= 0 uses
// DefaultMaxTextLines.
func ParseDecklist(text string, maxLines int) TextImportResult {
	if maxLines <= 0 {
		maxLines = DefaultMaxTextLines
	}

	result := TextImportResult{
		Entries: []TextImportEntry{},
		Errors:  []ParseError{},
	}
	votes := map[string]int{}
	var order []string

	sideboard := false
	counted := 0

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		counted++
		if counted > maxLines {
			result.Errors = append(result.Errors, ParseError{
				Row:     0,
				Message: fmt.Sprintf("Text exceeds the limit of %d lines; remaining lines were not processed", maxLines),
			})
			break
		}

		header := strings.TrimSuffix(strings.ToLower(line), ":")
		if sb, ok := sectionHeaders[header]; ok {
			sideboard = sb
			continue
		}
		if strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}

		lineSideboard := sideboard
		if len(line) > 3 && strings.EqualFold(line[:3], "SB:") {
			lineSideboard = true
			line = strings.TrimSpace(line[3:])
		}

		entry, format, msg := parseDeckLine(line)
		if msg != "" {
			result.Errors = append(result.Errors, ParseError{Row: lineNo, Message: msg})
			continue
		}
		entry.Line = lineNo
		entry.Raw = strings.TrimSpace(raw)
		entry.Sideboard = lineSideboard
		result.Entries = append(result.Entries, entry)

		if votes[format] == 0 {
			order = append(order, format)
		}
		votes[format]++
	}

	result.Stats.TotalLines = min(counted, maxLines)
	result.Stats.Parsed = len(result.Entries)
	for _, e := range result.Entries {
		result.Stats.TotalCards += e.Quantity
		if e.Sideboard {
			result.Stats.Sideboard++
		}
	}

	best := 0
	for _, f := range order {
		if votes[f] > best {
			best = votes[f]
			result.DetectedFormat = f
		}
	}

	return result
}

// parseDeckLine recognizes one card line. It returns the entry, the format
// the line matched, or a non-empty error message.
func parseDeckLine(line string) (TextImportEntry, string, string) {
	entry := TextImportEntry{Quantity: 1}

	if loc := foilMarkerRe.FindStringIndex(line); loc != nil {
		entry.Foil = true
		line = line[:loc[0]]
	}

	hasSet := false
	if m := setNumberRe.FindStringSubmatchIndex(line); m != nil {
		entry.SetCode = strings.ToUpper(line[m[2]:m[3]])
		if m[4] >= 0 {
			entry.CollectorNumber = line[m[4]:m[5]]
		}
		line = line[:m[0]]
		hasSet = true
	}

	format := FormatPlain
	qty := ""
	switch {
	case prefixQtyRe.MatchString(line):
		m := prefixQtyRe.FindStringSubmatch(line)
		qty, line = m[1], m[3]
		format = FormatMTGO
		if m[2] != "" {
			format = FormatQuantityX
		}
	case suffixQtyRe.MatchString(line):
		m := suffixQtyRe.FindStringSubmatch(line)
		line, qty = m[1], m[2]
		format = FormatSuffix
	}
	if hasSet {
		format = FormatArena
	}

	if qty != "" {
		entry.Quantity = clampQuantity(qty)
	}

	entry.Name = strings.Join(strings.Fields(line), " ")
	if entry.Name == "" {
		return entry, format, "Missing card name"
	}

	return entry, format, ""
}

// clampQuantity reads a digit run as a quantity in [1, maxCount]. Pasted
// lists report every line as an entry, so "0 Sol Ring" counts as one copy
// and absurd counts are capped instead of rejected.
func clampQuantity(digits string) int {
	n, err := strconv.Atoi(digits)
	switch {
	case err != nil:
		return maxCount
	case n < 1:
		return 1
	}
	return min(n, maxCount)
}
