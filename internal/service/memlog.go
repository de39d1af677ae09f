package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/SJPMusic/soloheart-sub001/internal/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryLog maintains the layered memory entry log inside a session state:
// appends land in the short-term layer, overflow is promoted or evicted by
// significance, and retrieval is deterministically ordered. Layer and
// significance are owned here; producers only assign significance at
// creation.
type MemoryLog struct {
	cfg    *rules.Config
	logger *zap.Logger
}

func NewMemoryLog(cfg *rules.Config, logger *zap.Logger) *MemoryLog {
	return &MemoryLog{cfg: cfg, logger: logger}
}

// Append adds an entry to the short-term layer and rebalances layer
// capacities.
func (m *MemoryLog) Append(state *domain.SessionState, entry domain.MemoryEntry) domain.MemoryEntry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.SessionID = state.ID
	entry.Layer = domain.LayerShort
	entry.Seq = state.NextSeq
	state.NextSeq++
	if entry.Timestamp.IsZero() {
		entry.Timestamp = timeNow()
	}
	entry.Significance = clamp(entry.Significance, 0, 1)

	state.Entries = append(state.Entries, entry)
	m.rebalance(state)
	return entry
}

// rebalance enforces the short and mid-term capacities. The lowest
// significance entries overflow first: past the promotion threshold they move
// down a layer (with recency decay applied), otherwise they are evicted.
func (m *MemoryLog) rebalance(state *domain.SessionState) {
	m.overflowLayer(state, domain.LayerShort, domain.LayerMid, m.cfg.ShortCapacity, m.cfg.PromotionThreshold)
	m.overflowLayer(state, domain.LayerMid, domain.LayerLong, m.cfg.MidCapacity, m.cfg.LongPromotionThreshold)
}

func (m *MemoryLog) overflowLayer(state *domain.SessionState, from, to domain.MemoryLayer, capacity int, threshold float64) {
	idxs := m.layerIndexes(state, from)
	if len(idxs) <= capacity {
		return
	}

	// Lowest significance first; ties broken by age (older first), then
	// insertion order, so overflow selection is deterministic.
	sort.SliceStable(idxs, func(a, b int) bool {
		ea, eb := &state.Entries[idxs[a]], &state.Entries[idxs[b]]
		if ea.Significance != eb.Significance {
			return ea.Significance < eb.Significance
		}
		if !ea.Timestamp.Equal(eb.Timestamp) {
			return ea.Timestamp.Before(eb.Timestamp)
		}
		return ea.Seq < eb.Seq
	})

	overflow := idxs[:len(idxs)-capacity]
	evict := make(map[int]bool)
	now := timeNow()

	for _, i := range overflow {
		e := &state.Entries[i]
		decayed := m.decayedSignificance(e, now)
		if decayed >= threshold {
			e.Layer = to
			e.Significance = decayed
			m.logger.Debug("memory promoted",
				zap.String("entry_id", e.ID.String()),
				zap.String("to_layer", string(to)),
				zap.Float64("significance", decayed))
		} else {
			evict[i] = true
			m.logger.Debug("memory evicted",
				zap.String("entry_id", e.ID.String()),
				zap.String("layer", string(from)),
				zap.Float64("significance", decayed))
		}
	}

	if len(evict) > 0 {
		kept := state.Entries[:0]
		for i := range state.Entries {
			if !evict[i] {
				kept = append(kept, state.Entries[i])
			}
		}
		state.Entries = kept
	}

	// A promotion wave can overflow the destination layer too.
	if to == domain.LayerMid {
		m.overflowLayer(state, domain.LayerMid, domain.LayerLong, m.cfg.MidCapacity, m.cfg.LongPromotionThreshold)
	}
}

// decayedSignificance applies exponential recency decay. This runs only at
// promotion time; stored significance is never rewritten retroactively.
func (m *MemoryLog) decayedSignificance(e *domain.MemoryEntry, now time.Time) float64 {
	ageHours := now.Sub(e.Timestamp).Hours()
	if ageHours <= 0 {
		return e.Significance
	}
	return e.Significance * math.Exp(-m.cfg.DecayLambda*ageHours)
}

func (m *MemoryLog) layerIndexes(state *domain.SessionState, layer domain.MemoryLayer) []int {
	var idxs []int
	for i := range state.Entries {
		if state.Entries[i].Layer == layer {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// Retrieve filters the log and returns entries ordered by relevance
// (significance weighted by recency), newest first on ties, then insertion
// sequence. The same state and filter always yield the same ordering.
func (m *MemoryLog) Retrieve(state *domain.SessionState, filter domain.RetrieveFilter, limit int) []domain.EntryWithScore {
	now := timeNow()
	var out []domain.EntryWithScore
	for i := range state.Entries {
		e := &state.Entries[i]
		if !matchesFilter(e, filter) {
			continue
		}
		out = append(out, domain.EntryWithScore{
			MemoryEntry: *e,
			Score:       relevance(e, now, m.cfg.DecayLambda),
		})
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		if !out[a].Timestamp.Equal(out[b].Timestamp) {
			return out[a].Timestamp.After(out[b].Timestamp)
		}
		return out[a].Seq < out[b].Seq
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func relevance(e *domain.MemoryEntry, now time.Time, lambda float64) float64 {
	ageHours := now.Sub(e.Timestamp).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return e.Significance * math.Exp(-lambda*ageHours)
}

func matchesFilter(e *domain.MemoryEntry, f domain.RetrieveFilter) bool {
	if f.Type != nil && e.Type != *f.Type {
		return false
	}
	if f.Layer != nil && e.Layer != *f.Layer {
		return false
	}
	for _, tag := range f.ArchetypeTags {
		if !e.HasArchetype(tag) {
			return false
		}
	}
	for _, tag := range f.EmotionalTags {
		if !e.HasEmotionalTag(tag) {
			return false
		}
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(e.Content), strings.ToLower(f.Query)) {
		return false
	}
	return true
}
