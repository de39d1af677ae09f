package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore is an in-process SessionStore for running without a database
// and for tests. Save stores a deep copy, so a later mutation of the live
// state never leaks into the "persisted" snapshot.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.SessionState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*domain.SessionState)}
}

var _ domain.SessionStore = (*MemoryStore)(nil)

func (s *MemoryStore) Save(_ context.Context, state *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.ID] = state.Clone()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id uuid.UUID) (*domain.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return state.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		id      uuid.UUID
		created int64
	}
	ordered := make([]entry, 0, len(s.sessions))
	for id, st := range s.sessions {
		ordered = append(ordered, entry{id: id, created: st.CreatedAt.UnixNano()})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].created != ordered[j].created {
			return ordered[i].created < ordered[j].created
		}
		return ordered[i].id.String() < ordered[j].id.String()
	})

	ids := make([]uuid.UUID, len(ordered))
	for i, e := range ordered {
		ids[i] = e.id
	}
	return ids, nil
}

func (s *MemoryStore) SearchSimilar(_ context.Context, sessionID uuid.UUID, embedding []float32, limit int) ([]domain.EntryWithScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	var results []domain.EntryWithScore
	for i := range state.Entries {
		e := state.Entries[i]
		if len(e.Embedding) == 0 {
			continue
		}
		results = append(results, domain.EntryWithScore{
			MemoryEntry: e,
			Score:       cosineSimilarity(embedding, e.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
