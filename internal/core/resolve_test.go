package core

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeCatalog resolves names from a fixed table and records every call.
type fakeCatalog struct {
	mu       sync.Mutex
	cards    map[string]ResolvedCard
	matchAll bool
	err      error
	calls    [][]string
}

func newFakeCatalog(names ...string) *fakeCatalog {
	f := &fakeCatalog{cards: map[string]ResolvedCard{}}
	for _, n := range names {
		f.cards[NameKey(n)] = ResolvedCard{ID: "card-" + NameKey(n), Name: n, SetCode: "TST", SetName: "Test Set"}
	}
	return f
}

func (f *fakeCatalog) ResolveCards(_ context.Context, names []string) (ResolveCardsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), names...))
	if f.err != nil {
		return ResolveCardsResult{}, f.err
	}

	res := ResolveCardsResult{Resolved: []ResolvedName{}, NotFound: []string{}}
	for _, n := range names {
		if card, ok := f.cards[NameKey(n)]; ok {
			res.Resolved = append(res.Resolved, ResolvedName{Name: n, Card: card})
		} else if f.matchAll {
			res.Resolved = append(res.Resolved, ResolvedName{Name: n, Card: ResolvedCard{ID: "card-" + NameKey(n), Name: n}})
		} else {
			res.NotFound = append(res.NotFound, n)
		}
	}
	return res, nil
}

func (f *fakeCatalog) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestUniqueNames(t *testing.T) {
	got := UniqueNames([]string{"Bolt", "bolt", " ", "Opt", "BOLT ", "opt", "Ponder"})
	want := []string{"Bolt", "Opt", "Ponder"}

	if len(got) != len(want) {
		t.Fatalf("UniqueNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("UniqueNames[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveNames_SingleCall(t *testing.T) {
	cat := newFakeCatalog("Lightning Bolt")

	idx, err := ResolveNames(context.Background(), cat, []string{"Lightning Bolt", "lightning bolt", "Unknown Card", "Unknown Card"})
	if err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}

	if cat.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", cat.callCount())
	}
	if len(cat.calls[0]) != 2 {
		t.Errorf("names sent = %v, want 2 distinct", cat.calls[0])
	}

	if card, ok := idx.Lookup("LIGHTNING BOLT"); !ok || card.Name != "Lightning Bolt" {
		t.Errorf("Lookup(LIGHTNING BOLT) = %+v, %v", card, ok)
	}
	if _, ok := idx.Lookup("Unknown Card"); ok {
		t.Error("Lookup(Unknown Card) ok = true, want false")
	}
	if _, ok := idx.Lookup("Never Asked"); ok {
		t.Error("Lookup(Never Asked) ok = true, want false")
	}
}

func TestResolveNames_InnerSpacingIsDistinct(t *testing.T) {
	cat := newFakeCatalog("Lightning Bolt")

	idx, err := ResolveNames(context.Background(), cat, []string{"Lightning  Bolt", "Lightning Bolt"})
	if err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}

	if len(cat.calls[0]) != 2 {
		t.Fatalf("names sent = %q, want both spellings", cat.calls[0])
	}
	if _, ok := idx.Lookup("Lightning Bolt"); !ok {
		t.Error("Lookup(Lightning Bolt) ok = false, want true")
	}
	if _, ok := idx.Lookup("Lightning  Bolt"); ok {
		t.Error("Lookup(Lightning  Bolt) ok = true, want false")
	}
}

func TestResolveNames_NoNames(t *testing.T) {
	cat := newFakeCatalog()

	if _, err := ResolveNames(context.Background(), cat, []string{"", "  "}); err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}
	if cat.callCount() != 0 {
		t.Errorf("calls = %d, want 0", cat.callCount())
	}
}

func TestResolveNames_Error(t *testing.T) {
	cat := newFakeCatalog()
	cat.err = errors.New("catalog: server error")

	_, err := ResolveNames(context.Background(), cat, []string{"Bolt"})
	if err == nil {
		t.Fatal("ResolveNames error = nil")
	}
	if !errors.Is(err, cat.err) {
		t.Errorf("error %v does not wrap catalog error", err)
	}
}

func TestResolveEntries(t *testing.T) {
	cat := newFakeCatalog("Lightning Bolt", "Duress")
	res := ParseDecklist("4 Lightning Bolt\n2 Mystery Card\nSideboard\n2 duress\n", 0)

	if err := ResolveEntries(context.Background(), cat, &res); err != nil {
		t.Fatalf("ResolveEntries: %v", err)
	}

	if cat.callCount() != 1 {
		t.Errorf("calls = %d, want 1", cat.callCount())
	}
	if res.Stats.Matched != 2 || res.Stats.NotFound != 1 {
		t.Errorf("Matched, NotFound = %d, %d; want 2, 1", res.Stats.Matched, res.Stats.NotFound)
	}

	statuses := []EntryStatus{EntryMatched, EntryNotFound, EntryMatched}
	for i, want := range statuses {
		if res.Entries[i].Status != want {
			t.Errorf("Entries[%d].Status = %q, want %q", i, res.Entries[i].Status, want)
		}
	}
	if res.Entries[1].Card != nil {
		t.Errorf("not found entry has card %+v", res.Entries[1].Card)
	}
	if res.Entries[2].Card == nil || res.Entries[2].Card.Name != "Duress" {
		t.Errorf("Entries[2].Card = %+v, want Duress", res.Entries[2].Card)
	}
}
