package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/google/uuid"
)

func TestMemoryStore_SaveIsSnapshot(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	state := domain.NewSessionState(uuid.New())
	state.CreatedAt = time.Now()
	state.Character.Set(domain.CommittedFact{Field: domain.FieldName, Value: "Lyra"})

	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the live state must not affect the persisted copy.
	state.Character.Set(domain.CommittedFact{Field: domain.FieldName, Value: "Borin"})

	loaded, err := s.Load(ctx, state.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fact, _ := loaded.Character.Get(domain.FieldName)
	if fact.Value != "Lyra" {
		t.Fatalf("expected persisted snapshot Lyra, got %s", fact.Value)
	}
}

func TestMemoryStore_LoadMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Load(context.Background(), uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_DeleteAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := domain.NewSessionState(uuid.New())
	a.CreatedAt = time.Now()
	b := domain.NewSessionState(uuid.New())
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	_ = s.Save(ctx, a)
	_ = s.Save(ctx, b)

	ids, err := s.List(ctx)
	if err != nil || len(ids) != 2 {
		t.Fatalf("expected two sessions, got %v (%v)", ids, err)
	}
	if ids[0] != a.ID {
		t.Fatal("expected creation-order listing")
	}

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestMemoryStore_SearchSimilar(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	state := domain.NewSessionState(uuid.New())
	state.CreatedAt = time.Now()
	state.Entries = []domain.MemoryEntry{
		{ID: uuid.New(), Content: "close", Embedding: []float32{1, 0, 0}, Seq: 0},
		{ID: uuid.New(), Content: "far", Embedding: []float32{0, 1, 0}, Seq: 1},
		{ID: uuid.New(), Content: "no embedding", Seq: 2},
	}
	_ = s.Save(ctx, state)

	results, err := s.SearchSimilar(ctx, state.ID, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two embedded entries, got %d", len(results))
	}
	if results[0].Content != "close" {
		t.Fatalf("expected cosine ranking, got %q first", results[0].Content)
	}
	if results[0].Score <= results[1].Score {
		t.Fatal("expected descending scores")
	}
}
