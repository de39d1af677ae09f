package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when the requested session does not
// exist.
var ErrNotFound = errors.New("not found")

// SessionStore is the durable persistence contract. Save must be atomic from
// the caller's perspective: a partially written session state is never
// visible to a subsequent Load.
type SessionStore interface {
	Load(ctx context.Context, id uuid.UUID) (*SessionState, error)
	Save(ctx context.Context, state *SessionState) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]uuid.UUID, error)
	// SearchSimilar ranks persisted entries for a session by embedding
	// similarity. Only entries with stored embeddings participate.
	SearchSimilar(ctx context.Context, sessionID uuid.UUID, embedding []float32, limit int) ([]EntryWithScore, error)
}

// AssistedExtractor is the external structured-extraction service. It may
// time out or return malformed data; both surface as an error and the caller
// degrades to pattern extraction.
type AssistedExtractor interface {
	ExtractFacts(ctx context.Context, utterance string, targetFields []string) ([]FactCandidate, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Narrator is the opaque language-generation collaborator. Only the bundle
// shape is a contract surface here.
type Narrator interface {
	Generate(ctx context.Context, bundle *ContextBundle) (string, error)
}
