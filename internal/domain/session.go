package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the persistable aggregate for one campaign: the character
// sheet with per-field history, the symbolic state, the global undo journal,
// and the full memory entry log with layer/significance annotations.
type SessionState struct {
	ID        uuid.UUID       `json:"id"`
	Character *CharacterState `json:"character"`
	Symbolic  *SymbolicState  `json:"symbolic"`
	UndoLog   []UndoRecord    `json:"undo_log"`
	Entries   []MemoryEntry   `json:"entries"`
	// NextSeq is the insertion counter for memory entries.
	NextSeq   int       `json:"next_seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSessionState(id uuid.UUID) *SessionState {
	return &SessionState{
		ID:        id,
		Character: NewCharacterState(),
		Symbolic:  NewSymbolicState(),
	}
}

func (s *SessionState) Clone() *SessionState {
	out := &SessionState{
		ID:        s.ID,
		Character: s.Character.Clone(),
		Symbolic:  s.Symbolic.Clone(),
		UndoLog:   append([]UndoRecord(nil), s.UndoLog...),
		Entries:   append([]MemoryEntry(nil), s.Entries...),
		NextSeq:   s.NextSeq,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	return out
}
