package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Condition is the graded physical condition of a card.
type Condition string

const (
	ConditionMint             Condition = "M"
	ConditionNearMint         Condition = "NM"
	ConditionLightlyPlayed    Condition = "LP"
	ConditionModeratelyPlayed Condition = "MP"
	ConditionHeavilyPlayed    Condition = "HP"
	ConditionDamaged          Condition = "DMG"
)

// Conditions lists every valid condition, best first.
var Conditions = []Condition{
	ConditionMint,
	ConditionNearMint,
	ConditionLightlyPlayed,
	ConditionModeratelyPlayed,
	ConditionHeavilyPlayed,
	ConditionDamaged,
}

// Priority ranks wishlist entries.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Priorities lists every valid wishlist priority.
var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

// TargetType selects which inventory an import writes to.
type TargetType string

const (
	TargetCollection TargetType = "collection"
	TargetWishlist   TargetType = "wishlist"
)

// ParseTargetType validates a target name from a URL or request body.
func ParseTargetType(s string) (TargetType, error) {
	switch t := TargetType(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetCollection, TargetWishlist:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
}

// DefaultDuplicateMode is the mode used when a commit does not name one.
func (t TargetType) DefaultDuplicateMode() DuplicateMode {
	if t == TargetWishlist {
		return DuplicateSkip
	}
	return DuplicateAdd
}

// DuplicateMode tells the store how to reconcile an import row with an
// existing entry for the same card. The store applies it; the pipeline only
// forwards it.
type DuplicateMode string

const (
	DuplicateAdd     DuplicateMode = "add"
	DuplicateSkip    DuplicateMode = "skip"
	DuplicateReplace DuplicateMode = "replace"
	DuplicateUpdate  DuplicateMode = "update"
)

// ValidFor reports whether the mode is accepted by the given target.
// Collections take add, skip or replace; wishlists take skip or update.
func (m DuplicateMode) ValidFor(t TargetType) bool {
	switch t {
	case TargetCollection:
		return m == DuplicateAdd || m == DuplicateSkip || m == DuplicateReplace
	case TargetWishlist:
		return m == DuplicateSkip || m == DuplicateUpdate
	}
	return false
}

// Price is a non-negative amount rounded to two decimal places.
// It marshals as a JSON number.
type Price struct {
	decimal.Decimal
}

// NewPrice rounds d to cents.
func NewPrice(d decimal.Decimal) Price {
	return Price{d.Round(2)}
}

// MarshalJSON implements json.Marshaler.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.StringFixed(2)), nil
}

// UnmarshalJSON accepts both numbers and quoted strings.
func (p *Price) UnmarshalJSON(b []byte) error {
	return p.Decimal.UnmarshalJSON(b)
}

// ParsedRow is one validated collection line from an input file.
// ForTrade never exceeds Quantity+FoilQuantity.
type ParsedRow struct {
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	FoilQuantity int       `json:"foilQuantity"`
	Condition    Condition `json:"condition"`
	Language     string    `json:"language"`
	ForTrade     int       `json:"forTrade"`
	TradePrice   *Price    `json:"tradePrice"`
}

// WishlistRow is one validated wishlist line from an input file.
type WishlistRow struct {
	Name         string     `json:"name"`
	Quantity     int        `json:"quantity"`
	Priority     Priority   `json:"priority"`
	MaxPrice     *Price     `json:"maxPrice"`
	MinCondition *Condition `json:"minCondition"`
	FoilOnly     bool       `json:"foilOnly"`
}

// ParseError describes a rejected input row. Row 0 is a file-level problem.
type ParseError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ResolvedCard is a read-only snapshot of one catalog printing.
type ResolvedCard struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	SetCode    string   `json:"setCode"`
	SetName    string   `json:"setName"`
	ScryfallID *string  `json:"scryfallId"`
	PriceEUR   *float64 `json:"priceEur"`
}

// ResolvedName pairs a requested name with the printing it resolved to.
type ResolvedName struct {
	Name string       `json:"name"`
	Card ResolvedCard `json:"card"`
}

// ResolveCardsResult is the catalog's answer to a name lookup.
type ResolveCardsResult struct {
	Resolved []ResolvedName `json:"resolved"`
	NotFound []string       `json:"notFound"`
}

// ImportRow is a collection row ready to commit.
type ImportRow struct {
	CardID string `json:"cardId"`
	ParsedRow
}

// WishlistImportRow is a wishlist row ready to commit.
type WishlistImportRow struct {
	CardID string `json:"cardId"`
	WishlistRow
}

// ImportRowError reports one row the store did not accept.
// Row is 1-based within the full submission.
type ImportRowError struct {
	Row      int    `json:"row"`
	CardName string `json:"cardName"`
	Error    string `json:"error"`
}

// ImportResult accumulates the outcome of a commit.
type ImportResult struct {
	Imported int              `json:"imported"`
	Updated  int              `json:"updated"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Errors   []ImportRowError `json:"errors"`
}

// Total is the number of rows the result accounts for.
func (r ImportResult) Total() int {
	return r.Imported + r.Updated + r.Skipped + r.Failed
}

// BatchProgress is emitted before each commit window.
type BatchProgress struct {
	CurrentBatch int `json:"currentBatch"`
	TotalBatches int `json:"totalBatches"`
	Percentage   int `json:"percentage"`
}

// EntryStatus is the catalog match state of a text import entry.
type EntryStatus string

const (
	EntryMatched  EntryStatus = "matched"
	EntryNotFound EntryStatus = "not_found"
)

// TextImportEntry is one card line recognized in pasted text or a remote deck.
type TextImportEntry struct {
	Line            int           `json:"line"`
	Raw             string        `json:"raw"`
	Name            string        `json:"name"`
	Quantity        int           `json:"quantity"`
	SetCode         string        `json:"setCode,omitempty"`
	CollectorNumber string        `json:"collectorNumber,omitempty"`
	Foil            bool          `json:"foil"`
	Sideboard       bool          `json:"sideboard"`
	Status          EntryStatus   `json:"status"`
	Card            *ResolvedCard `json:"card,omitempty"`
}

// TextImportStats summarizes a text import.
type TextImportStats struct {
	TotalLines int `json:"totalLines"`
	Parsed     int `json:"parsed"`
	Matched    int `json:"matched"`
	NotFound   int `json:"notFound"`
	Sideboard  int `json:"sideboard"`
	TotalCards int `json:"totalCards"`
}

// TextImportResult is the outcome of parsing and resolving free text.
type TextImportResult struct {
	Entries        []TextImportEntry `json:"entries"`
	Errors         []ParseError      `json:"errors"`
	DetectedFormat string            `json:"detectedFormat,omitempty"`
	Stats          TextImportStats   `json:"stats"`
}

// URLImportResult is a TextImportResult fetched from a deck site.
type URLImportResult struct {
	TextImportResult
	DeckName   string `json:"deckName"`
	DeckAuthor string `json:"deckAuthor"`
	Source     string `json:"source"`
}
