package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryFact     EntryType = "fact"
	EntryEvent    EntryType = "event"
	EntrySymbolic EntryType = "symbolic"
)

func ValidEntryType(t string) bool {
	switch EntryType(t) {
	case EntryFact, EntryEvent, EntrySymbolic:
		return true
	}
	return false
}

type MemoryLayer string

const (
	LayerShort MemoryLayer = "short"
	LayerMid   MemoryLayer = "mid"
	LayerLong  MemoryLayer = "long"
)

func ValidLayer(l string) bool {
	switch MemoryLayer(l) {
	case LayerShort, LayerMid, LayerLong:
		return true
	}
	return false
}

// MemoryEntry is one record in the layered memory log. Layer and significance
// are owned by the store's promotion/eviction logic once appended; producers
// assign significance only at creation time.
type MemoryEntry struct {
	ID            uuid.UUID      `json:"id"`
	SessionID     uuid.UUID      `json:"session_id,omitempty"`
	Content       string         `json:"content"`
	Type          EntryType      `json:"type"`
	Layer         MemoryLayer    `json:"layer"`
	Significance  float64        `json:"significance"`
	EmotionalTags []string       `json:"emotional_tags,omitempty"`
	ArchetypeTags []ArchetypeTag `json:"archetype_tags,omitempty"`
	Embedding     []float32      `json:"-"`
	// Seq is the insertion order within the session, the final retrieval
	// tiebreak.
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// HasArchetype reports whether the entry carries the given tag.
func (e *MemoryEntry) HasArchetype(tag ArchetypeTag) bool {
	for _, t := range e.ArchetypeTags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasEmotionalTag reports whether the entry carries the given emotional tag.
func (e *MemoryEntry) HasEmotionalTag(tag string) bool {
	for _, t := range e.EmotionalTags {
		if t == tag {
			return true
		}
	}
	return false
}

// RetrieveFilter scopes a memory retrieval. Nil/empty members match
// everything.
type RetrieveFilter struct {
	Type          *EntryType
	Layer         *MemoryLayer
	ArchetypeTags []ArchetypeTag
	EmotionalTags []string
	Query         string
}

// EntryWithScore pairs an entry with its retrieval relevance.
type EntryWithScore struct {
	MemoryEntry
	Score float64 `json:"score"`
}
