package service

import (
	"time"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/SJPMusic/soloheart-sub001/internal/rules"
	"go.uber.org/zap"
)

// Ledger applies extraction candidates to a character sheet. The design goal
// is to never re-ask a question the player already answered in passing: an
// unset field commits immediately, and a confident non-conflicting candidate
// commits without a confirmation round-trip. Conflicting low-confidence
// candidates are surfaced as ambiguities for the narrative layer to resolve.
type Ledger struct {
	cfg    *rules.Config
	logger *zap.Logger
}

func NewLedger(cfg *rules.Config, logger *zap.Logger) *Ledger {
	return &Ledger{cfg: cfg, logger: logger}
}

// CommitOutcome reports what one candidate batch did to the session.
type CommitOutcome struct {
	Committed   []domain.CommittedFact
	Ambiguities []domain.FactCandidate
}

// Commit applies candidates in ranked order against the session's character
// state, maintaining the global undo journal. The caller is responsible for
// running the symbolic tagger and memory append on each committed fact.
func (l *Ledger) Commit(state *domain.SessionState, candidates []domain.FactCandidate) CommitOutcome {
	var out CommitOutcome

	for _, cand := range candidates {
		if !domain.KnownField(cand.Field) {
			continue
		}

		existing, has := state.Character.Get(cand.Field)

		if has && l.equivalent(existing.Value, cand.Value) {
			// Restatement of the settled value; nothing to do.
			continue
		}

		if has && cand.Confidence < l.cfg.AutoCommitThreshold {
			// Conflicts with a committed value and isn't confident enough
			// to overwrite it. Surface, don't commit.
			l.logger.Debug("candidate conflicts below threshold, surfacing as ambiguity",
				zap.String("field", cand.Field),
				zap.String("existing", existing.Value),
				zap.String("candidate", cand.Value),
				zap.Float64("confidence", cand.Confidence))
			out.Ambiguities = append(out.Ambiguities, cand)
			continue
		}

		fact := l.apply(state, cand.Field, cand.Value, cand.Confidence, sourceFor(cand.Source))
		out.Committed = append(out.Committed, fact)
	}

	return out
}

// Confirm records the caller's explicit resolution of a surfaced ambiguity.
// The player answered the question, so the threshold no longer applies.
func (l *Ledger) Confirm(state *domain.SessionState, field, value string) (domain.CommittedFact, bool) {
	if !domain.KnownField(field) || value == "" {
		return domain.CommittedFact{}, false
	}
	return l.apply(state, field, value, 1.0, domain.SourceCorrection), true
}

// apply pushes the prior value (or the unset sentinel) onto the undo journal,
// then replaces the field.
func (l *Ledger) apply(state *domain.SessionState, field, value string, confidence float64, source domain.FactSource) domain.CommittedFact {
	rec := domain.UndoRecord{
		Field:     field,
		Timestamp: timeNow(),
	}
	if prev, ok := state.Character.Get(field); ok {
		p := prev
		rec.PrevSet = true
		rec.Prev = &p
	}
	state.UndoLog = append(state.UndoLog, rec)

	fact := domain.CommittedFact{
		Field:      field,
		Value:      value,
		Source:     source,
		Confidence: confidence,
		Timestamp:  timeNow(),
	}
	state.Character.Set(fact)

	l.logger.Debug("fact committed",
		zap.String("field", field),
		zap.String("value", value),
		zap.String("source", string(source)),
		zap.Float64("confidence", confidence))

	return fact
}

// UndoResult describes what a single undo step restored.
type UndoResult struct {
	Field         string  `json:"field"`
	PreviousValue *string `json:"previous_value"`
}

// UndoLast pops the most recent commitment across all fields (one global
// LIFO, not per-field) and restores the prior value. Returns nil when there
// is nothing to undo.
func (l *Ledger) UndoLast(state *domain.SessionState) *UndoResult {
	if len(state.UndoLog) == 0 {
		return nil
	}

	rec := state.UndoLog[len(state.UndoLog)-1]
	state.UndoLog = state.UndoLog[:len(state.UndoLog)-1]

	res := &UndoResult{Field: rec.Field}
	if rec.PrevSet {
		state.Character.Restore(rec.Field, rec.Prev)
		res.PreviousValue = &rec.Prev.Value
	} else {
		state.Character.Restore(rec.Field, nil)
	}

	l.logger.Debug("commitment undone", zap.String("field", rec.Field), zap.Bool("restored_prior", rec.PrevSet))
	return res
}

// equivalent treats restatements of the same value as equal: normalized
// string equality, the synonym table, and near-match containment.
func (l *Ledger) equivalent(a, b string) bool {
	return valuesEquivalent(l.cfg, a, b)
}

func sourceFor(s domain.CandidateSource) domain.FactSource {
	if s == domain.CandidateAssisted {
		return domain.SourceAssisted
	}
	return domain.SourcePlayer
}

var timeNow = time.Now
