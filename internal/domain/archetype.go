package domain

import "time"

// ArchetypeTag is a symbolic category attached to committed facts. The
// vocabulary is fixed configuration, not derived at runtime.
type ArchetypeTag string

const (
	ArchetypeHero      ArchetypeTag = "Hero"
	ArchetypeShadow    ArchetypeTag = "Shadow"
	ArchetypeMentor    ArchetypeTag = "Mentor"
	ArchetypeFather    ArchetypeTag = "Father"
	ArchetypeMother    ArchetypeTag = "Mother"
	ArchetypeJourney   ArchetypeTag = "Journey"
	ArchetypeThreshold ArchetypeTag = "Threshold"
	ArchetypeRebirth   ArchetypeTag = "Rebirth"
	ArchetypeTrickster ArchetypeTag = "Trickster"
	ArchetypeSacrifice ArchetypeTag = "Sacrifice"
	ArchetypeAbyss     ArchetypeTag = "Abyss"
	ArchetypeReturn    ArchetypeTag = "Return"
	ArchetypeInnocent  ArchetypeTag = "Innocent"
	ArchetypeWarrior   ArchetypeTag = "Warrior"
	ArchetypeSage      ArchetypeTag = "Sage"
	ArchetypeRuler     ArchetypeTag = "Ruler"
	ArchetypeOutlaw    ArchetypeTag = "Outlaw"
	ArchetypeLover     ArchetypeTag = "Lover"
	ArchetypeCreator   ArchetypeTag = "Creator"
	ArchetypeCaregiver ArchetypeTag = "Caregiver"
)

// AllArchetypes returns the fixed vocabulary in stable order.
func AllArchetypes() []ArchetypeTag {
	return []ArchetypeTag{
		ArchetypeHero, ArchetypeShadow, ArchetypeMentor, ArchetypeFather,
		ArchetypeMother, ArchetypeJourney, ArchetypeThreshold, ArchetypeRebirth,
		ArchetypeTrickster, ArchetypeSacrifice, ArchetypeAbyss, ArchetypeReturn,
		ArchetypeInnocent, ArchetypeWarrior, ArchetypeSage, ArchetypeRuler,
		ArchetypeOutlaw, ArchetypeLover, ArchetypeCreator, ArchetypeCaregiver,
	}
}

func ValidArchetype(t string) bool {
	for _, a := range AllArchetypes() {
		if a == ArchetypeTag(t) {
			return true
		}
	}
	return false
}

// Contradiction records a narrative-decay event: a newly committed fact that
// is semantically incompatible with the prior value for the same field. It is
// always recorded and surfaced, never silently discarded.
type Contradiction struct {
	Field         string    `json:"field"`
	PreviousValue string    `json:"previous_value"`
	NewValue      string    `json:"new_value"`
	Timestamp     time.Time `json:"timestamp"`
}

// SymbolicState tracks the chaos/order tension scalar and the archetypes in
// play for one campaign session. Tension is bounded and only resets at
// campaign start.
type SymbolicState struct {
	Tension    float64               `json:"tension"`
	ActiveTags map[ArchetypeTag]bool `json:"active_tags"`
	DecayFlags []Contradiction       `json:"decay_flags"`
}

func NewSymbolicState() *SymbolicState {
	return &SymbolicState{
		ActiveTags: make(map[ArchetypeTag]bool),
	}
}

// TagList returns the active tags in the fixed vocabulary order so output is
// reproducible.
func (s *SymbolicState) TagList() []ArchetypeTag {
	var out []ArchetypeTag
	for _, a := range AllArchetypes() {
		if s.ActiveTags[a] {
			out = append(out, a)
		}
	}
	return out
}

func (s *SymbolicState) Clone() *SymbolicState {
	out := NewSymbolicState()
	out.Tension = s.Tension
	for k, v := range s.ActiveTags {
		out.ActiveTags[k] = v
	}
	out.DecayFlags = append([]Contradiction(nil), s.DecayFlags...)
	return out
}
