package extract

import (
	"context"
	"sort"
	"time"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"go.uber.org/zap"
)

const DefaultAssistedTimeout = 5 * time.Second

// Coordinator merges assisted and pattern extraction into one ranked
// candidate list per utterance. The assisted path is optional and failable;
// the pattern extractor always runs and is the fallback source of truth.
type Coordinator struct {
	pattern  *PatternExtractor
	assisted domain.AssistedExtractor
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCoordinator(assisted domain.AssistedExtractor, timeout time.Duration, logger *zap.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultAssistedTimeout
	}
	return &Coordinator{
		pattern:  NewPatternExtractor(),
		assisted: assisted,
		timeout:  timeout,
		logger:   logger,
	}
}

// Extract produces one ranked candidate list for the utterance. knownFields
// are fields already committed; they steer the assisted prompt toward what is
// still missing but never suppress pattern matches, since a re-mention of a
// settled field is how conflicts get detected downstream. The second return
// reports whether the assisted path contributed this turn.
func (c *Coordinator) Extract(ctx context.Context, utterance string, knownFields map[string]bool) ([]domain.FactCandidate, bool) {
	var assistedCands []domain.FactCandidate
	assistedUsed := false

	if c.assisted != nil {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		cands, err := c.assisted.ExtractFacts(callCtx, utterance, c.missingFields(knownFields))
		cancel()
		if err != nil {
			c.logger.Warn("assisted extraction failed, falling back to pattern extractor", zap.Error(err))
		} else {
			assistedCands = c.sanitize(cands)
			assistedUsed = true
		}
	}

	patternCands := c.pattern.Extract(utterance)

	merged := c.merge(assistedCands, patternCands)

	// Rank by confidence, then field name for a stable order.
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return merged[i].Field < merged[j].Field
	})

	return merged, assistedUsed
}

func (c *Coordinator) missingFields(known map[string]bool) []string {
	var fields []string
	for _, f := range domain.RequiredFields() {
		if !known[f] {
			fields = append(fields, f)
		}
	}
	for _, f := range domain.OptionalFields() {
		if !known[f] {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		// Everything is committed; still pass the full vocabulary so the
		// service can report corrections.
		fields = append(domain.RequiredFields(), domain.OptionalFields()...)
	}
	return fields
}

// sanitize drops malformed assisted candidates: unknown fields, empty values,
// out-of-range confidence. A service that returns garbage for one field can
// still contribute the rest.
func (c *Coordinator) sanitize(cands []domain.FactCandidate) []domain.FactCandidate {
	out := make([]domain.FactCandidate, 0, len(cands))
	for _, cand := range cands {
		if !domain.KnownField(cand.Field) {
			c.logger.Debug("dropping assisted candidate with unknown field", zap.String("field", cand.Field))
			continue
		}
		if cand.Value == "" {
			continue
		}
		if cand.Confidence < 0 || cand.Confidence > 1 {
			continue
		}
		cand.Source = domain.CandidateAssisted
		out = append(out, cand)
	}
	return out
}

// merge resolves per-field collisions between the two sources: higher
// confidence wins; on an exact tie the assisted candidate is preferred unless
// the pattern match covers a longer lexical span than the assisted value,
// in which case the longer, more specific match wins.
func (c *Coordinator) merge(assisted, pattern []domain.FactCandidate) []domain.FactCandidate {
	byField := make(map[string]domain.FactCandidate, len(assisted)+len(pattern))
	var order []string

	for _, cand := range assisted {
		if _, ok := byField[cand.Field]; !ok {
			order = append(order, cand.Field)
		}
		byField[cand.Field] = cand
	}

	for _, cand := range pattern {
		existing, ok := byField[cand.Field]
		if !ok {
			byField[cand.Field] = cand
			order = append(order, cand.Field)
			continue
		}
		switch {
		case cand.Confidence > existing.Confidence:
			byField[cand.Field] = cand
		case cand.Confidence == existing.Confidence && cand.MatchLen > len(existing.Value):
			byField[cand.Field] = cand
		}
	}

	out := make([]domain.FactCandidate, 0, len(byField))
	for _, field := range order {
		out = append(out, byField[field])
	}
	return out
}
