package core

// normalize.go holds the pure cell-level helpers shared by the parsers:
// condition synonyms, header keys, card name keys and numeric parsing.

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// conditionSynonyms maps cleaned spellings to the canonical condition.
// Keys are produced by conditionKey.
var conditionSynonyms = map[string]Condition{
	"M":                 ConditionMint,
	"MINT":              ConditionMint,
	"NM":                ConditionNearMint,
	"NEAR_MINT":         ConditionNearMint,
	"NEARMINT":          ConditionNearMint,
	"NM_M":              ConditionNearMint,
	"LP":                ConditionLightlyPlayed,
	"LIGHTLY_PLAYED":    ConditionLightlyPlayed,
	"LIGHT_PLAYED":      ConditionLightlyPlayed,
	"SLIGHTLY_PLAYED":   ConditionLightlyPlayed,
	"SP":                ConditionLightlyPlayed,
	"EX":                ConditionLightlyPlayed,
	"EXCELLENT":         ConditionLightlyPlayed,
	"MP":                ConditionModeratelyPlayed,
	"MODERATELY_PLAYED": ConditionModeratelyPlayed,
	"MODERATE_PLAYED":   ConditionModeratelyPlayed,
	"PLAYED":            ConditionModeratelyPlayed,
	"PL":                ConditionModeratelyPlayed,
	"GOOD":              ConditionModeratelyPlayed,
	"GD":                ConditionModeratelyPlayed,
	"HP":                ConditionHeavilyPlayed,
	"HEAVILY_PLAYED":    ConditionHeavilyPlayed,
	"HEAVY_PLAYED":      ConditionHeavilyPlayed,
	"DMG":               ConditionDamaged,
	"DAMAGED":           ConditionDamaged,
	"POOR":              ConditionDamaged,
	"PO":                ConditionDamaged,
}

// conditionKey upper-cases s and collapses spaces, hyphens and underscores
// into single underscores, so "Lightly Played", "lightly-played" and
// "LIGHTLY_PLAYED" share a key.
func conditionKey(s string) string {
	s = strings.ToUpper(s)
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), "_")
}

// NormalizeCondition maps a condition or one of its synonyms to the
// canonical value. It is pure and idempotent.
func NormalizeCondition(s string) (Condition, bool) {
	c, ok := conditionSynonyms[conditionKey(s)]
	return c, ok
}

// ParsePriority validates a wishlist priority, ignoring case.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	for _, valid := range Priorities {
		if p == valid {
			return p, true
		}
	}
	return "", false
}

// HeaderKey canonicalizes a column name so that camelCase, snake_case,
// kebab-case and spaced variants compare equal.
func HeaderKey(s string) string {
	s = strings.ToLower(CleanCell(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// NameKey is the case-insensitive identity of a card name. It uses Unicode
// case folding so names like "Æther Vial" match regardless of case. Inner
// spacing is significant: "Lightning  Bolt" and "Lightning Bolt" are
// different names.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// CleanCell trims whitespace and strips the ="..." wrapper spreadsheet
// exports use to keep values from being reinterpreted.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// maxCount bounds quantity cells so sums of counts cannot overflow.
const maxCount = 1_000_000

// parseCount parses an integer cell in [0, maxCount]. Blank yields def.
func parseCount(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxCount {
		return 0, false
	}
	return n, true
}

// parsePrice parses a non-negative amount, tolerating currency symbols and
// thousands separators. Blank yields nil.
func parsePrice(raw string) (*Price, bool) {
	if raw == "" {
		return nil, true
	}
	s := strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(raw)
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return nil, false
	}
	p := NewPrice(d)
	return &p, true
}

// parseTruthy implements the boolean-ish columns: true, 1 and yes are true,
// anything else is false.
func parseTruthy(raw string) bool {
	switch strings.ToLower(raw) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

func conditionList() string {
	names := make([]string, len(Conditions))
	for i, c := range Conditions {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func priorityList() string {
	names := make([]string, len(Priorities))
	for i, p := range Priorities {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
