package extract

import (
	"github.com/SJPMusic/soloheart-sub001/internal/domain"
)

// PatternExtractor is the deterministic keyword/phrase matcher. It is a pure
// function over the rule table and never fails, which makes it the fallback
// source of truth when the assisted path is down.
type PatternExtractor struct {
	rules []Rule
}

func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{rules: ruleTable}
}

// Extract scans the utterance against every rule and returns at most one
// candidate per field: the one with the longest matched span. Ties go to the
// higher-confidence rule, then to the earlier rule in the table.
func (p *PatternExtractor) Extract(utterance string) []domain.FactCandidate {
	best := make(map[string]domain.FactCandidate)
	order := make([]string, 0, 8)

	for _, rule := range p.rules {
		loc := rule.Pattern.FindStringSubmatchIndex(utterance)
		if loc == nil {
			continue
		}

		value := rule.Value
		if value == "" {
			// Capture-based rule: value comes from group 1.
			if len(loc) < 4 || loc[2] < 0 {
				continue
			}
			value = utterance[loc[2]:loc[3]]
		}

		cand := domain.FactCandidate{
			Field:      rule.Field,
			Value:      value,
			Confidence: rule.Confidence,
			Source:     domain.CandidatePattern,
			MatchLen:   loc[1] - loc[0],
		}

		existing, ok := best[rule.Field]
		if !ok {
			best[rule.Field] = cand
			order = append(order, rule.Field)
			continue
		}
		if cand.MatchLen > existing.MatchLen ||
			(cand.MatchLen == existing.MatchLen && cand.Confidence > existing.Confidence) {
			best[rule.Field] = cand
		}
	}

	out := make([]domain.FactCandidate, 0, len(best))
	for _, field := range order {
		out = append(out, best[field])
	}
	return out
}
