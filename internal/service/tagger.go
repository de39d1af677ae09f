package service

import (
	"strings"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/SJPMusic/soloheart-sub001/internal/rules"
	"github.com/antzucaro/matchr"
	"go.uber.org/zap"
)

// Tagger assigns archetype tags and a chaos/order tension delta to each
// committed fact, and detects contradictions against the prior value for the
// same field. Tagging is a pure lookup against the rules document, so the
// same fact content always yields the same tags and delta.
type Tagger struct {
	cfg    *rules.Config
	logger *zap.Logger
}

func NewTagger(cfg *rules.Config, logger *zap.Logger) *Tagger {
	return &Tagger{cfg: cfg, logger: logger}
}

// TagResult is the symbolic annotation for one committed fact.
type TagResult struct {
	Tags          []domain.ArchetypeTag `json:"tags"`
	TensionDelta  float64               `json:"tension_delta"`
	Contradiction *domain.Contradiction `json:"contradiction,omitempty"`
}

// Tag computes the annotation for a fact and applies it to the symbolic
// state: new tags join the active set and the clamped tension shifts by the
// summed per-archetype weights. A detected contradiction is appended to the
// decay flags; it never blocks the commit that caused it.
func (t *Tagger) Tag(fact domain.CommittedFact, prior *domain.CommittedFact, state *domain.SymbolicState) TagResult {
	res := TagResult{}

	content := strings.ToLower(fact.Field + " " + fact.Value)
	for _, rule := range t.cfg.Archetypes {
		if matchesAny(content, rule.Keywords) {
			res.Tags = append(res.Tags, rule.Tag)
			res.TensionDelta += rule.Weight
		}
	}

	if prior != nil {
		if c := t.detectContradiction(fact, *prior); c != nil {
			res.Contradiction = c
			// Contradictions are destabilizing regardless of which
			// archetypes fired.
			res.TensionDelta += 0.1
		}
	}

	for _, tag := range res.Tags {
		state.ActiveTags[tag] = true
	}
	state.Tension = clamp(state.Tension+res.TensionDelta, t.cfg.TensionMin, t.cfg.TensionMax)
	if res.Contradiction != nil {
		state.DecayFlags = append(state.DecayFlags, *res.Contradiction)
		t.logger.Info("narrative decay flagged",
			zap.String("field", res.Contradiction.Field),
			zap.String("previous", res.Contradiction.PreviousValue),
			zap.String("new", res.Contradiction.NewValue))
	}

	return res
}

// detectContradiction decides whether a superseded value is semantically
// incompatible with its replacement. Two different named backgrounds are a
// contradiction; a more specific restatement of the same background is not.
func (t *Tagger) detectContradiction(fact, prior domain.CommittedFact) *domain.Contradiction {
	if !t.cfg.Exclusive(fact.Field) {
		return nil
	}
	if valuesEquivalent(t.cfg, prior.Value, fact.Value) {
		return nil
	}
	return &domain.Contradiction{
		Field:         fact.Field,
		PreviousValue: prior.Value,
		NewValue:      fact.Value,
		Timestamp:     timeNow(),
	}
}

// valuesEquivalent implements the equivalence side of the incompatibility
// table: normalized equality, the synonym table, containment ("Elf of the
// Western Wood" restates "Elf"), and Jaro-Winkler proximity for spelling
// drift.
func valuesEquivalent(cfg *rules.Config, a, b string) bool {
	na, nb := domain.NormalizeValue(a), domain.NormalizeValue(b)
	if na == "" || nb == "" {
		return na == nb
	}
	if cfg.Equivalent(na, nb) {
		return true
	}
	if containsWord(na, nb) || containsWord(nb, na) {
		return true
	}
	return matchr.JaroWinkler(na, nb, true) >= cfg.RestatementSimilarity
}

// containsWord reports whether needle appears in haystack on word boundaries.
func containsWord(haystack, needle string) bool {
	if haystack == needle {
		return true
	}
	idx := strings.Index(haystack, needle)
	for idx >= 0 {
		beforeOK := idx == 0 || !isWordChar(haystack[idx-1])
		end := idx + len(needle)
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(haystack[idx+1:], needle)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isWordChar(c byte) bool {
	return c == '-' || c == '\'' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func matchesAny(content string, keywords []string) bool {
	for _, kw := range keywords {
		if containsWord(content, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
