package service

import (
	"encoding/json"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/SJPMusic/soloheart-sub001/internal/rules"
	"go.uber.org/zap"
)

const (
	// DefaultTokenBudget bounds the serialized bundle handed downstream.
	DefaultTokenBudget = 2048

	// charsPerToken is the rough serialization ratio used for estimates.
	charsPerToken = 4
)

// Synthesizer assembles the context bundle for a session: the full character
// sheet and symbolic state, plus as many high-relevance memories as fit the
// token budget.
type Synthesizer struct {
	memlog *MemoryLog
	cfg    *rules.Config
	logger *zap.Logger
}

func NewSynthesizer(memlog *MemoryLog, cfg *rules.Config, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{memlog: memlog, cfg: cfg, logger: logger}
}

// BuildContext produces the bundle. Character and symbolic state are never
// trimmed; when the estimate exceeds the budget, the lowest-relevance
// memories are dropped first until the bundle fits or no memories remain.
func (s *Synthesizer) BuildContext(state *domain.SessionState, budget int) domain.ContextBundle {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}

	memories := s.memlog.Retrieve(state, domain.RetrieveFilter{}, 0)

	// The bundle outlives the session lock, so it must not alias live state.
	character := make(map[string]domain.CommittedFact, len(state.Character.Fields))
	for k, v := range state.Character.Fields {
		character[k] = v
	}

	bundle := domain.ContextBundle{
		Character:   character,
		Tension:     state.Symbolic.Tension,
		ActiveTags:  state.Symbolic.TagList(),
		DecayFlags:  append([]domain.Contradiction(nil), state.Symbolic.DecayFlags...),
		Memories:    memories,
		TokenBudget: budget,
	}

	pruned := 0
	for {
		bundle.TokenEstimate = estimateTokens(bundle)
		if bundle.TokenEstimate <= budget || len(bundle.Memories) == 0 {
			break
		}
		bundle.Memories = bundle.Memories[:len(bundle.Memories)-1]
		pruned++
	}
	bundle.MemoriesPruned = pruned

	if pruned > 0 {
		s.logger.Debug("context memories pruned to fit budget",
			zap.String("session_id", state.ID.String()),
			zap.Int("pruned", pruned),
			zap.Int("kept", len(bundle.Memories)),
			zap.Int("token_estimate", bundle.TokenEstimate))
	}
	return bundle
}

func estimateTokens(b domain.ContextBundle) int {
	raw, err := json.Marshal(b)
	if err != nil {
		return 0
	}
	return (len(raw) + charsPerToken - 1) / charsPerToken
}
