package domain

import (
	"strings"
	"time"
)

// CandidateSource identifies which extraction path produced a candidate.
type CandidateSource string

const (
	CandidatePattern  CandidateSource = "pattern"
	CandidateAssisted CandidateSource = "assisted"
)

func ValidCandidateSource(s string) bool {
	switch CandidateSource(s) {
	case CandidatePattern, CandidateAssisted:
		return true
	}
	return false
}

// FactSource records how a committed fact entered the character sheet.
type FactSource string

const (
	SourcePlayer     FactSource = "player"
	SourceAssisted   FactSource = "assisted"
	SourceCorrection FactSource = "correction"
)

func ValidFactSource(s string) bool {
	switch FactSource(s) {
	case SourcePlayer, SourceAssisted, SourceCorrection:
		return true
	}
	return false
}

// FactCandidate is an ephemeral per-utterance extraction result. It is
// consumed by the commitment ledger and never persisted directly.
type FactCandidate struct {
	Field      string          `json:"field"`
	Value      string          `json:"value"`
	Confidence float64         `json:"confidence"`
	Source     CandidateSource `json:"source"`
	// MatchLen is the length of the lexical span the pattern extractor
	// matched. Zero for assisted candidates. Used to break confidence ties
	// in favor of the longer, more specific match.
	MatchLen int `json:"-"`
}

// CommittedFact is the authoritative value for a character field.
type CommittedFact struct {
	Field      string     `json:"field"`
	Value      string     `json:"value"`
	Source     FactSource `json:"source"`
	Confidence float64    `json:"confidence"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Character field names. The extractor rule table and the required-field
// compliance check reference these.
const (
	FieldName       = "name"
	FieldGender     = "gender"
	FieldRace       = "race"
	FieldClass      = "class"
	FieldBackground = "background"
	FieldAlignment  = "alignment"
	FieldAge        = "age"
	FieldTrait      = "trait"
)

// RequiredFields must be committed before a character is playable.
func RequiredFields() []string {
	return []string{FieldName, FieldGender, FieldRace, FieldClass, FieldBackground}
}

// OptionalFields round out the sheet but never block play.
func OptionalFields() []string {
	return []string{FieldAlignment, FieldAge, FieldTrait}
}

func KnownField(field string) bool {
	for _, f := range RequiredFields() {
		if f == field {
			return true
		}
	}
	for _, f := range OptionalFields() {
		if f == field {
			return true
		}
	}
	return false
}

// UndoRecord is one entry in the session's global undo journal. PrevSet is
// false when the field had never been committed before this change.
type UndoRecord struct {
	Field     string         `json:"field"`
	PrevSet   bool           `json:"prev_set"`
	Prev      *CommittedFact `json:"prev,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// CharacterState maps field names to their current committed value. A field
// with a committed value only reverts to absent via undo of its first commit.
type CharacterState struct {
	Fields  map[string]CommittedFact   `json:"fields"`
	History map[string][]CommittedFact `json:"history,omitempty"`
}

func NewCharacterState() *CharacterState {
	return &CharacterState{
		Fields:  make(map[string]CommittedFact),
		History: make(map[string][]CommittedFact),
	}
}

func (cs *CharacterState) Get(field string) (CommittedFact, bool) {
	f, ok := cs.Fields[field]
	return f, ok
}

// Set replaces the current value, recording the superseded value in the
// per-field history.
func (cs *CharacterState) Set(fact CommittedFact) {
	if prev, ok := cs.Fields[fact.Field]; ok {
		cs.History[fact.Field] = append(cs.History[fact.Field], prev)
	}
	cs.Fields[fact.Field] = fact
}

// Restore reverts a field to a prior value (or unset) without touching the
// per-field history. Used by undo.
func (cs *CharacterState) Restore(field string, prev *CommittedFact) {
	if prev == nil {
		delete(cs.Fields, field)
		return
	}
	cs.Fields[field] = *prev
	if h := cs.History[field]; len(h) > 0 {
		cs.History[field] = h[:len(h)-1]
	}
}

// MissingRequired lists required fields with no committed value, in the
// canonical field order.
func (cs *CharacterState) MissingRequired() []string {
	var missing []string
	for _, f := range RequiredFields() {
		if _, ok := cs.Fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func (cs *CharacterState) Clone() *CharacterState {
	out := NewCharacterState()
	for k, v := range cs.Fields {
		out.Fields[k] = v
	}
	for k, h := range cs.History {
		out.History[k] = append([]CommittedFact(nil), h...)
	}
	return out
}

// NormalizeValue folds case and collapses whitespace so that "half-elf" and
// "Half-Elf " compare equal.
func NormalizeValue(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(v))), " ")
}
