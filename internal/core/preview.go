package core

// preview.go reconciles parsed rows with catalog results.
//
// A Preview owns its rows and their derived stats. The only mutation after
// construction is ApplyOverride, which changes one row and adjusts the stats
// under the same lock, so the two can never disagree.

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// RowStatus is the wire name of a row's resolution.
type RowStatus string

const (
	StatusReady    RowStatus = "ready"
	StatusNotFound RowStatus = "not_found"
	StatusError    RowStatus = "error"
)

// Resolution is the closed set of states a preview row can be in:
// Ready, NotFound or Invalid.
type Resolution interface {
	Status() RowStatus
	sealed()
}

// Ready carries the printing the row will be imported as.
type Ready struct{ Card ResolvedCard }

// NotFound means the catalog had no printing for the row's name.
type NotFound struct{}

// Invalid marks a row rejected by validation after parsing.
type Invalid struct{ Message string }

func (Ready) Status() RowStatus    { return StatusReady }
func (NotFound) Status() RowStatus { return StatusNotFound }
func (Invalid) Status() RowStatus  { return StatusError }

func (Ready) sealed()    {}
func (NotFound) sealed() {}
func (Invalid) sealed()  {}

// PreviewRow is one import candidate awaiting the user's decision.
type PreviewRow[R any] struct {
	Index        int
	Row          R
	Resolution   Resolution
	CustomCardID string
}

// Card returns the printing attached to the row, if any.
func (r PreviewRow[R]) Card() (ResolvedCard, bool) {
	if ready, ok := r.Resolution.(Ready); ok {
		return ready.Card, true
	}
	return ResolvedCard{}, false
}

// CardID returns the ID to commit with: the override if set, otherwise the
// resolved printing. The bool is false for rows excluded from commit.
func (r PreviewRow[R]) CardID() (string, bool) {
	if r.CustomCardID != "" {
		return r.CustomCardID, true
	}
	if card, ok := r.Card(); ok {
		return card.ID, true
	}
	return "", false
}

// MarshalJSON flattens the parsed row's fields next to the preview fields.
func (r PreviewRow[R]) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(r.Row)
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, fmt.Errorf("preview row must marshal to an object: %w", err)
	}

	extra := map[string]any{
		"index":        r.Index,
		"status":       r.Resolution.Status(),
		"resolvedCard": nil,
	}
	if card, ok := r.Card(); ok {
		extra["resolvedCard"] = card
	}
	if r.CustomCardID != "" {
		extra["customCardId"] = r.CustomCardID
	}
	if inv, ok := r.Resolution.(Invalid); ok {
		extra["errorMessage"] = inv.Message
	}
	for k, v := range extra {
		if fields[k], err = json.Marshal(v); err != nil {
			return nil, err
		}
	}

	return json.Marshal(fields)
}

// PreviewStats counts preview rows by status.
type PreviewStats struct {
	Total    int `json:"total"`
	Ready    int `json:"ready"`
	NotFound int `json:"notFound"`
	Errors   int `json:"errors"`
}

func (s *PreviewStats) count(res Resolution, delta int) {
	switch res.(type) {
	case Ready:
		s.Ready += delta
	case NotFound:
		s.NotFound += delta
	case Invalid:
		s.Errors += delta
	}
}

// Preview is the aggregate of preview rows and their stats.
type Preview[R any] struct {
	mu    sync.RWMutex
	rows  []PreviewRow[R]
	stats PreviewStats
}

// NewPreview builds an aggregate from rows that already carry a resolution.
// Indexes are reassigned to match positions.
func NewPreview[R any](rows []PreviewRow[R]) *Preview[R] {
	p := &Preview[R]{rows: rows}
	p.stats.Total = len(rows)
	for i := range p.rows {
		p.rows[i].Index = i
		if p.rows[i].Resolution == nil {
			p.rows[i].Resolution = NotFound{}
		}
		p.stats.count(p.rows[i].Resolution, 1)
	}
	return p
}

// BuildPreview resolves the distinct names across rows with one catalog call
// and returns the resulting preview.
func BuildPreview[R any](ctx context.Context, resolver CardResolver, rows []R, nameOf func(R) string) (*Preview[R], error) {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = nameOf(r)
	}

	idx, err := ResolveNames(ctx, resolver, names)
	if err != nil {
		return nil, err
	}

	previewRows := make([]PreviewRow[R], len(rows))
	for i, r := range rows {
		previewRows[i] = PreviewRow[R]{Row: r, Resolution: NotFound{}}
		if card, ok := idx.Lookup(names[i]); ok {
			previewRows[i].Resolution = Ready{Card: card}
		}
	}

	return NewPreview(previewRows), nil
}

// Stats returns the current counts.
func (p *Preview[R]) Stats() PreviewStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// Rows returns a copy of the preview rows.
func (p *Preview[R]) Rows() []PreviewRow[R] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PreviewRow[R], len(p.rows))
	copy(out, p.rows)
	return out
}

// Len returns the number of preview rows.
func (p *Preview[R]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rows)
}

// ApplyOverride points row index at card. The row becomes Ready with the
// card's ID as its custom card ID. Stats move one count from the row's
// previous status to ready, so re-pointing an already ready row leaves
// them unchanged. Rows in the error state cannot be overridden.
func (p *Preview[R]) ApplyOverride(index int, card ResolvedCard) (PreviewRow[R], PreviewStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.rows) {
		return PreviewRow[R]{}, p.stats, fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, index, len(p.rows))
	}

	row := &p.rows[index]
	if _, invalid := row.Resolution.(Invalid); invalid {
		return *row, p.stats, fmt.Errorf("%w: row %d has status %s", ErrRowNotOverridable, index, StatusError)
	}

	prev := row.Resolution
	row.CustomCardID = card.ID
	row.Resolution = Ready{Card: card}

	p.stats.count(prev, -1)
	p.stats.count(row.Resolution, 1)

	return *row, p.stats, nil
}

// SelectRows returns the commit rows for every preview row that is ready or
// carries an override, built with the chosen card ID. Other rows are left
// out without being counted anywhere.
func SelectRows[R, T any](rows []PreviewRow[R], build func(row R, cardID string) T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if id, ok := r.CardID(); ok {
			out = append(out, build(r.Row, id))
		}
	}
	return out
}

// PreviewRowsToImportRows selects collection rows for commit.
func PreviewRowsToImportRows(rows []PreviewRow[ParsedRow]) []ImportRow {
	return SelectRows(rows, func(r ParsedRow, id string) ImportRow {
		return ImportRow{CardID: id, ParsedRow: r}
	})
}

// PreviewRowsToWishlistImportRows selects wishlist rows for commit.
func PreviewRowsToWishlistImportRows(rows []PreviewRow[WishlistRow]) []WishlistImportRow {
	return SelectRows(rows, func(r WishlistRow, id string) WishlistImportRow {
		return WishlistImportRow{CardID: id, WishlistRow: r}
	})
}

// EntriesToCollectionRows turns resolved text entries into preview rows.
// Foil entries count toward FoilQuantity; other fields take their defaults.
func EntriesToCollectionRows(entries []TextImportEntry) []PreviewRow[ParsedRow] {
	return entriesToRows(entries, func(e TextImportEntry) ParsedRow {
		row := ParsedRow{Name: e.Name, Condition: ConditionNearMint, Language: "EN"}
		if e.Foil {
			row.FoilQuantity = e.Quantity
		} else {
			row.Quantity = e.Quantity
		}
		return row
	})
}

// EntriesToWishlistRows turns resolved text entries into wishlist preview rows.
func EntriesToWishlistRows(entries []TextImportEntry) []PreviewRow[WishlistRow] {
	return entriesToRows(entries, func(e TextImportEntry) WishlistRow {
		return WishlistRow{Name: e.Name, Quantity: max(e.Quantity, 1), Priority: PriorityNormal, FoilOnly: e.Foil}
	})
}

func entriesToRows[R any](entries []TextImportEntry, build func(TextImportEntry) R) []PreviewRow[R] {
	rows := make([]PreviewRow[R], len(entries))
	for i, e := range entries {
		rows[i] = PreviewRow[R]{Row: build(e), Resolution: NotFound{}}
		if e.Status == EntryMatched && e.Card != nil {
			rows[i].Resolution = Ready{Card: *e.Card}
		}
	}
	return rows
}
