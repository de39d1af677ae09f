package service

import (
	"testing"
	"time"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/SJPMusic/soloheart-sub001/internal/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestState() *domain.SessionState {
	state := domain.NewSessionState(uuid.New())
	now := time.Now()
	state.CreatedAt = now
	state.UpdatedAt = now
	return state
}

func TestLedger_CommitUnsetField(t *testing.T) {
	l := NewLedger(rules.Default(), testLogger())
	state := newTestState()

	out := l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldRace, Value: "Half-Elf", Confidence: 0.6, Source: domain.CandidatePattern},
	})

	if len(out.Committed) != 1 {
		t.Fatalf("expected one committed fact, got %v", out)
	}
	fact, ok := state.Character.Get(domain.FieldRace)
	if !ok || fact.Value != "Half-Elf" {
		t.Fatalf("expected race committed, got %v", fact)
	}
	if fact.Source != domain.SourcePlayer {
		t.Fatalf("expected player source for pattern candidate, got %s", fact.Source)
	}
}

func TestLedger_ConflictBelowThresholdBecomesAmbiguity(t *testing.T) {
	l := NewLedger(rules.Default(), testLogger())
	state := newTestState()

	l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldClass, Value: "Ranger", Confidence: 0.9},
	})
	out := l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldClass, Value: "Rogue", Confidence: 0.6},
	})

	if len(out.Committed) != 0 {
		t.Fatalf("expected no commit, got %v", out.Committed)
	}
	if len(out.Ambiguities) != 1 || out.Ambiguities[0].Value != "Rogue" {
		t.Fatalf("expected Rogue surfaced as ambiguity, got %v", out.Ambiguities)
	}
	fact, _ := state.Character.Get(domain.FieldClass)
	if fact.Value != "Ranger" {
		t.Fatalf("expected committed value untouched, got %s", fact.Value)
	}
}

func TestLedger_ConflictAboveThresholdCommits(t *testing.T) {
	l := NewLedger(rules.Default(), testLogger())
	state := newTestState()

	l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldClass, Value: "Ranger", Confidence: 0.9},
	})
	out := l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldClass, Value: "Druid", Confidence: 0.8},
	})

	if len(out.Committed) != 1 {
		t.Fatalf("expected overwrite commit, got %v", out)
	}
	fact, _ := state.Character.Get(domain.FieldClass)
	if fact.Value != "Druid" {
		t.Fatalf("expected Druid, got %s", fact.Value)
	}
}

func TestLedger_RestatementSkipped(t *testing.T) {
	l := NewLedger(rules.Default(), testLogger())
	state := newTestState()

	l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldClass, Value: "Rogue", Confidence: 0.9},
	})
	// "thief" is a synonym of "rogue"; a low-confidence restatement is not
	// an ambiguity.
	out := l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldClass, Value: "Thief", Confidence: 0.5},
	})

	if len(out.Committed) != 0 || len(out.Ambiguities) != 0 {
		t.Fatalf("expected restatement to be a no-op, got %v", out)
	}
	if len(state.UndoLog) != 1 {
		t.Fatalf("expected only the original commit in the undo log, got %d", len(state.UndoLog))
	}
}

func TestLedger_UnknownFieldDropped(t *testing.T) {
	l := NewLedger(rules.Default(), testLogger())
	state := newTestState()

	out := l.Commit(state, []domain.FactCandidate{
		{Field: "favorite_color", Value: "blue", Confidence: 0.9},
	})
	if len(out.Committed) != 0 || len(out.Ambiguities) != 0 {
		t.Fatalf("expected unknown field dropped, got %v", out)
	}
}

func TestLedger_Confirm(t *testing.T) {
	l := NewLedger(rules.Default(), testLogger())
	state := newTestState()

	l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldClass, Value: "Ranger", Confidence: 0.9},
	})

	fact, ok := l.Confirm(state, domain.FieldClass, "Rogue")
	if !ok {
		t.Fatal("expected confirm to apply")
	}
	if fact.Source != domain.SourceCorrection || fact.Confidence != 1.0 {
		t.Fatalf("expected correction at confidence 1.0, got %v", fact)
	}
	current, _ := state.Character.Get(domain.FieldClass)
	if current.Value != "Rogue" {
		t.Fatalf("expected confirmed value committed, got %s", current.Value)
	}

	if _, ok := l.Confirm(state, "favorite_color", "blue"); ok {
		t.Fatal("expected confirm to reject unknown field")
	}
}

func TestLedger_UndoIsGlobalLIFO(t *testing.T) {
	l := NewLedger(rules.Default(), testLogger())
	state := newTestState()

	l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldRace, Value: "Half-Elf", Confidence: 0.9},
	})
	l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldClass, Value: "Ranger", Confidence: 0.9},
	})
	l.Commit(state, []domain.FactCandidate{
		{Field: domain.FieldRace, Value: "Human", Confidence: 0.9},
	})

	// Most recent commitment across all fields: the race overwrite.
	res := l.UndoLast(state)
	if res == nil || res.Field != domain.FieldRace {
		t.Fatalf("expected race undone first, got %v", res)
	}
	if res.PreviousValue == nil || *res.PreviousValue != "Half-Elf" {
		t.Fatalf("expected Half-Elf restored, got %v", res.PreviousValue)
	}
	race, _ := state.Character.Get(domain.FieldRace)
	if race.Value != "Half-Elf" {
		t.Fatalf("expected Half-Elf back on the sheet, got %s", race.Value)
	}

	// Next: the class commit; it reverts to unset.
	res = l.UndoLast(state)
	if res == nil || res.Field != domain.FieldClass || res.PreviousValue != nil {
		t.Fatalf("expected class undone to unset, got %v", res)
	}
	if _, ok := state.Character.Get(domain.FieldClass); ok {
		t.Fatal("expected class unset after undo")
	}

	// Then the original race commit, then empty.
	if res = l.UndoLast(state); res == nil {
		t.Fatal("expected a third undo step")
	}
	if res = l.UndoLast(state); res != nil {
		t.Fatalf("expected empty undo log, got %v", res)
	}
}
