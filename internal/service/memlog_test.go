package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/SJPMusic/soloheart-sub001/internal/rules"
)

func smallRules() *rules.Config {
	cfg := rules.Default()
	cfg.ShortCapacity = 3
	cfg.MidCapacity = 4
	return cfg
}

func TestMemoryLog_AppendAssignsSequence(t *testing.T) {
	m := NewMemoryLog(rules.Default(), testLogger())
	state := newTestState()

	first := m.Append(state, domain.MemoryEntry{Content: "a", Type: domain.EntryEvent, Significance: 0.5})
	second := m.Append(state, domain.MemoryEntry{Content: "b", Type: domain.EntryEvent, Significance: 0.5})

	if first.Seq != 0 || second.Seq != 1 {
		t.Fatalf("expected sequential seq numbers, got %d and %d", first.Seq, second.Seq)
	}
	if first.Layer != domain.LayerShort {
		t.Fatalf("expected new entries in short layer, got %s", first.Layer)
	}
	if first.ID == second.ID {
		t.Fatal("expected distinct entry IDs")
	}
}

func TestMemoryLog_OverflowPromotesSignificant(t *testing.T) {
	m := NewMemoryLog(smallRules(), testLogger())
	state := newTestState()

	// Four entries into a short layer of three: the least significant
	// overflows, and at 0.6 it clears the 0.5 promotion threshold.
	m.Append(state, domain.MemoryEntry{Content: "keep-1", Type: domain.EntryEvent, Significance: 0.9})
	m.Append(state, domain.MemoryEntry{Content: "keep-2", Type: domain.EntryEvent, Significance: 0.8})
	m.Append(state, domain.MemoryEntry{Content: "promote-me", Type: domain.EntryEvent, Significance: 0.6})
	m.Append(state, domain.MemoryEntry{Content: "keep-3", Type: domain.EntryEvent, Significance: 0.7})

	var promoted *domain.MemoryEntry
	short := 0
	for i := range state.Entries {
		e := &state.Entries[i]
		if e.Layer == domain.LayerShort {
			short++
		}
		if e.Content == "promote-me" {
			promoted = e
		}
	}
	if short != 3 {
		t.Fatalf("expected short layer at capacity 3, got %d", short)
	}
	if promoted == nil || promoted.Layer != domain.LayerMid {
		t.Fatalf("expected overflow entry promoted to mid, got %v", promoted)
	}
}

func TestMemoryLog_OverflowEvictsInsignificant(t *testing.T) {
	m := NewMemoryLog(smallRules(), testLogger())
	state := newTestState()

	m.Append(state, domain.MemoryEntry{Content: "keep-1", Type: domain.EntryEvent, Significance: 0.9})
	m.Append(state, domain.MemoryEntry{Content: "keep-2", Type: domain.EntryEvent, Significance: 0.8})
	m.Append(state, domain.MemoryEntry{Content: "evict-me", Type: domain.EntryEvent, Significance: 0.2})
	m.Append(state, domain.MemoryEntry{Content: "keep-3", Type: domain.EntryEvent, Significance: 0.7})

	if len(state.Entries) != 3 {
		t.Fatalf("expected eviction, got %d entries", len(state.Entries))
	}
	for _, e := range state.Entries {
		if e.Content == "evict-me" {
			t.Fatal("expected low-significance entry evicted")
		}
	}
}

func TestMemoryLog_PromotionDecay(t *testing.T) {
	cfg := smallRules()
	m := NewMemoryLog(cfg, testLogger())
	state := newTestState()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return base.Add(200 * time.Hour) }
	defer func() { timeNow = time.Now }()

	// 0.6 significance, 200 hours old: 0.6*exp(-0.01*200) ≈ 0.081, below
	// the promotion threshold, so age turns a promotion into an eviction.
	stale := domain.MemoryEntry{Content: "stale", Type: domain.EntryEvent, Significance: 0.6, Timestamp: base}
	m.Append(state, stale)
	m.Append(state, domain.MemoryEntry{Content: "keep-1", Type: domain.EntryEvent, Significance: 0.9})
	m.Append(state, domain.MemoryEntry{Content: "keep-2", Type: domain.EntryEvent, Significance: 0.8})
	m.Append(state, domain.MemoryEntry{Content: "keep-3", Type: domain.EntryEvent, Significance: 0.7})

	for _, e := range state.Entries {
		if e.Content == "stale" {
			t.Fatalf("expected stale entry evicted after decay, got layer %s", e.Layer)
		}
	}
}

func TestMemoryLog_RetrieveOrderingStable(t *testing.T) {
	m := NewMemoryLog(rules.Default(), testLogger())
	state := newTestState()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	for i := 0; i < 10; i++ {
		m.Append(state, domain.MemoryEntry{
			Content:      fmt.Sprintf("entry-%d", i),
			Type:         domain.EntryEvent,
			Significance: 0.5,
			Timestamp:    now,
		})
	}

	first := m.Retrieve(state, domain.RetrieveFilter{}, 0)
	for run := 0; run < 5; run++ {
		again := m.Retrieve(state, domain.RetrieveFilter{}, 0)
		if len(again) != len(first) {
			t.Fatalf("expected %d results, got %d", len(first), len(again))
		}
		for i := range first {
			if first[i].ID != again[i].ID {
				t.Fatalf("run %d: ordering not stable at index %d", run, i)
			}
		}
	}

	// Equal significance and timestamp: insertion sequence decides.
	for i := 1; i < len(first); i++ {
		if first[i-1].Seq > first[i].Seq {
			t.Fatalf("expected seq tiebreak ascending, got %d before %d", first[i-1].Seq, first[i].Seq)
		}
	}
}

func TestMemoryLog_RetrieveFilters(t *testing.T) {
	m := NewMemoryLog(rules.Default(), testLogger())
	state := newTestState()

	m.Append(state, domain.MemoryEntry{Content: "race: Half-Elf", Type: domain.EntryFact, Significance: 0.6,
		ArchetypeTags: []domain.ArchetypeTag{domain.ArchetypeShadow}})
	m.Append(state, domain.MemoryEntry{Content: "met the innkeeper", Type: domain.EntryEvent, Significance: 0.4})

	factType := domain.EntryFact
	facts := m.Retrieve(state, domain.RetrieveFilter{Type: &factType}, 0)
	if len(facts) != 1 || facts[0].Content != "race: Half-Elf" {
		t.Fatalf("expected the fact entry, got %v", facts)
	}

	tagged := m.Retrieve(state, domain.RetrieveFilter{ArchetypeTags: []domain.ArchetypeTag{domain.ArchetypeShadow}}, 0)
	if len(tagged) != 1 {
		t.Fatalf("expected one Shadow-tagged entry, got %d", len(tagged))
	}

	byQuery := m.Retrieve(state, domain.RetrieveFilter{Query: "innkeeper"}, 0)
	if len(byQuery) != 1 || byQuery[0].Type != domain.EntryEvent {
		t.Fatalf("expected lexical query match, got %v", byQuery)
	}

	limited := m.Retrieve(state, domain.RetrieveFilter{}, 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit applied, got %d", len(limited))
	}
}
