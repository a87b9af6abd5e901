package core

import (
	"context"
	"fmt"
	"strings"
)

// CardResolver maps card names to catalog printings.
// Implemented by the catalog API client.
type CardResolver interface {
	ResolveCards(ctx context.Context, names []string) (ResolveCardsResult, error)
}

// NameIndex is the outcome of one resolution call, keyed by NameKey.
type NameIndex struct {
	cards    map[string]ResolvedCard
	notFound map[string]struct{}
}

// UniqueNames returns the distinct non-blank names in first-seen order,
// compared case-insensitively.
func UniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := NameKey(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ResolveNames issues exactly one resolution call for the distinct names.
// No call is made when there is nothing to resolve.
func ResolveNames(ctx context.Context, resolver CardResolver, names []string) (*NameIndex, error) {
	idx := &NameIndex{
		cards:    map[string]ResolvedCard{},
		notFound: map[string]struct{}{},
	}

	unique := UniqueNames(names)
	if len(unique) == 0 {
		return idx, nil
	}

	res, err := resolver.ResolveCards(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("resolve %d card names: %w", len(unique), err)
	}

	for _, r := range res.Resolved {
		idx.cards[NameKey(r.Name)] = r.Card
	}
	for _, n := range res.NotFound {
		idx.notFound[NameKey(n)] = struct{}{}
	}

	return idx, nil
}

// Lookup returns the resolution for name. The not-found set is consulted
// first; a name the catalog reported in neither collection is treated as
// not found.
func (idx *NameIndex) Lookup(name string) (ResolvedCard, bool) {
	key := NameKey(name)
	if _, missing := idx.notFound[key]; missing {
		return ResolvedCard{}, false
	}
	card, ok := idx.cards[key]
	return card, ok
}

// ResolveEntries fills in the match status of parsed text entries with a
// single resolution call and updates the match stats.
func ResolveEntries(ctx context.Context, resolver CardResolver, result *TextImportResult) error {
	names := make([]string, len(result.Entries))
	for i, e := range result.Entries {
		names[i] = e.Name
	}

	idx, err := ResolveNames(ctx, resolver, names)
	if err != nil {
		return err
	}

	result.Stats.Matched, result.Stats.NotFound = 0, 0
	for i := range result.Entries {
		e := &result.Entries[i]
		if card, ok := idx.Lookup(e.Name); ok {
			c := card
			e.Status, e.Card = EntryMatched, &c
			result.Stats.Matched++
		} else {
			e.Status, e.Card = EntryNotFound, nil
			result.Stats.NotFound++
		}
	}

	return nil
}
