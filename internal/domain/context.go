package domain

// ContextBundle is the ranked context handed to the language-generation
// service. Character and symbolic state are always complete; memory entries
// are the highest-relevance subset that fits the token budget.
type ContextBundle struct {
	Character      map[string]CommittedFact `json:"character"`
	Tension        float64                  `json:"tension"`
	ActiveTags     []ArchetypeTag           `json:"active_tags"`
	DecayFlags     []Contradiction          `json:"decay_flags,omitempty"`
	Memories       []EntryWithScore         `json:"memories"`
	TokenEstimate  int                      `json:"token_estimate"`
	TokenBudget    int                      `json:"token_budget"`
	MemoriesPruned int                      `json:"memories_pruned"`
}
