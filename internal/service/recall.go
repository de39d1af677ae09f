package service

import (
	"context"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"go.uber.org/zap"
)

const defaultRecallLimit = 10

// Recaller answers free-text recall queries over a session's memory log.
// With an embedding client configured it ranks persisted entries by vector
// similarity; without one it degrades to lexical retrieval over the in-state
// log.
type Recaller struct {
	store     domain.SessionStore
	embedding domain.EmbeddingClient
	memlog    *MemoryLog
	logger    *zap.Logger
}

func NewRecaller(store domain.SessionStore, embedding domain.EmbeddingClient, memlog *MemoryLog, logger *zap.Logger) *Recaller {
	return &Recaller{store: store, embedding: embedding, memlog: memlog, logger: logger}
}

func (r *Recaller) Recall(ctx context.Context, state *domain.SessionState, query string, limit int) ([]domain.EntryWithScore, error) {
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	if r.embedding == nil {
		return r.lexical(state, query, limit), nil
	}

	vec, err := r.embedding.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, falling back to lexical recall",
			zap.String("session_id", state.ID.String()),
			zap.Error(err))
		return r.lexical(state, query, limit), nil
	}

	results, err := r.store.SearchSimilar(ctx, state.ID, vec, limit)
	if err != nil {
		r.logger.Warn("similarity search failed, falling back to lexical recall",
			zap.String("session_id", state.ID.String()),
			zap.Error(err))
		return r.lexical(state, query, limit), nil
	}
	return results, nil
}

func (r *Recaller) lexical(state *domain.SessionState, query string, limit int) []domain.EntryWithScore {
	return r.memlog.Retrieve(state, domain.RetrieveFilter{Query: query}, limit)
}
