package extract

import (
	"testing"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
)

func candidateFor(t *testing.T, cands []domain.FactCandidate, field string) domain.FactCandidate {
	t.Helper()
	for _, c := range cands {
		if c.Field == field {
			return c
		}
	}
	t.Fatalf("no candidate for field %q in %v", field, cands)
	return domain.FactCandidate{}
}

func hasField(cands []domain.FactCandidate, field string) bool {
	for _, c := range cands {
		if c.Field == field {
			return true
		}
	}
	return false
}

func TestPatternExtractor_CoreExample(t *testing.T) {
	p := NewPatternExtractor()
	cands := p.Extract("She's a female half-elf ranger who lost her family to raiders.")

	if got := candidateFor(t, cands, domain.FieldGender).Value; got != "Female" {
		t.Fatalf("expected gender Female, got %s", got)
	}
	if got := candidateFor(t, cands, domain.FieldRace).Value; got != "Half-Elf" {
		t.Fatalf("expected race Half-Elf, got %s", got)
	}
	if got := candidateFor(t, cands, domain.FieldClass).Value; got != "Ranger" {
		t.Fatalf("expected class Ranger, got %s", got)
	}
	if got := candidateFor(t, cands, domain.FieldBackground).Value; got != "Tragic Loss" {
		t.Fatalf("expected background Tragic Loss, got %s", got)
	}
}

func TestPatternExtractor_LongestMatchWins(t *testing.T) {
	p := NewPatternExtractor()

	// "half-elf" must shadow the shorter "elf" match for the same field.
	cands := p.Extract("A grizzled half-elf veteran.")
	race := candidateFor(t, cands, domain.FieldRace)
	if race.Value != "Half-Elf" {
		t.Fatalf("expected Half-Elf to win over Elf, got %s", race.Value)
	}

	cands = p.Extract("An elf from the north.")
	if got := candidateFor(t, cands, domain.FieldRace).Value; got != "Elf" {
		t.Fatalf("expected Elf, got %s", got)
	}
}

func TestPatternExtractor_WordBoundaries(t *testing.T) {
	p := NewPatternExtractor()

	// "shelf" must not match "elf"; "rangers" is plural but still the class
	// keyword on its own is required, so "stranger" must not match "ranger".
	cands := p.Extract("He put the book on the shelf and waved at a stranger.")
	if hasField(cands, domain.FieldRace) {
		t.Fatal("matched race inside an unrelated word")
	}
	if hasField(cands, domain.FieldClass) {
		t.Fatal("matched class inside an unrelated word")
	}
}

func TestPatternExtractor_NameCapture(t *testing.T) {
	p := NewPatternExtractor()

	cands := p.Extract("Her name is Lyra and she fights with a bow.")
	if got := candidateFor(t, cands, domain.FieldName).Value; got != "Lyra" {
		t.Fatalf("expected captured name Lyra, got %s", got)
	}
}

func TestPatternExtractor_AgeCapture(t *testing.T) {
	p := NewPatternExtractor()

	cands := p.Extract("She is 27 years old.")
	if got := candidateFor(t, cands, domain.FieldAge).Value; got != "27" {
		t.Fatalf("expected age 27, got %s", got)
	}
}

func TestPatternExtractor_NoMatches(t *testing.T) {
	p := NewPatternExtractor()

	cands := p.Extract("The weather was pleasant that morning.")
	if len(cands) != 0 {
		t.Fatalf("expected no candidates, got %v", cands)
	}
}

func TestPatternExtractor_Deterministic(t *testing.T) {
	p := NewPatternExtractor()
	utterance := "A lawful good male dwarf paladin named Borin."

	first := p.Extract(utterance)
	for i := 0; i < 5; i++ {
		again := p.Extract(utterance)
		if len(again) != len(first) {
			t.Fatalf("run %d: expected %d candidates, got %d", i, len(first), len(again))
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d: candidate %d differs: %v vs %v", i, j, first[j], again[j])
			}
		}
	}
}
