package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// SessionStore persists full session aggregates. The character sheet,
// symbolic state and undo journal are stored as JSON documents; memory
// entries get their own rows so embeddings stay queryable with pgvector.
type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

var _ domain.SessionStore = (*SessionStore)(nil)

// Migrate creates the schema if it does not exist. The vector extension is
// optional; without it the embedding column falls back to a plain bytea and
// SearchSimilar returns no rows.
func (s *SessionStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id         UUID PRIMARY KEY,
			character  JSONB NOT NULL,
			symbolic   JSONB NOT NULL,
			undo_log   JSONB NOT NULL,
			next_seq   INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS memory_entries (
			id             UUID PRIMARY KEY,
			session_id     UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			content        TEXT NOT NULL,
			type           TEXT NOT NULL,
			layer          TEXT NOT NULL,
			significance   DOUBLE PRECISION NOT NULL,
			emotional_tags JSONB,
			archetype_tags JSONB,
			embedding      vector(1536),
			seq            INTEGER NOT NULL,
			occurred_at    TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memory_entries_session
			ON memory_entries (session_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Save writes the whole aggregate in one transaction: the session row is
// upserted and the entry rows are replaced. A turn either lands completely
// or not at all.
func (s *SessionStore) Save(ctx context.Context, state *domain.SessionState) error {
	characterJSON, err := json.Marshal(state.Character)
	if err != nil {
		return fmt.Errorf("marshal character: %w", err)
	}
	symbolicJSON, err := json.Marshal(state.Symbolic)
	if err != nil {
		return fmt.Errorf("marshal symbolic: %w", err)
	}
	undoJSON, err := json.Marshal(state.UndoLog)
	if err != nil {
		return fmt.Errorf("marshal undo log: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (id, character, symbolic, undo_log, next_seq, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			character = EXCLUDED.character,
			symbolic = EXCLUDED.symbolic,
			undo_log = EXCLUDED.undo_log,
			next_seq = EXCLUDED.next_seq,
			updated_at = EXCLUDED.updated_at`,
		state.ID, characterJSON, symbolicJSON, undoJSON, state.NextSeq, state.CreatedAt, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM memory_entries WHERE session_id = $1`, state.ID); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	for i := range state.Entries {
		e := &state.Entries[i]

		var embedding *pgvector.Vector
		if len(e.Embedding) > 0 {
			v := pgvector.NewVector(e.Embedding)
			embedding = &v
		}
		emotionalJSON, err := json.Marshal(e.EmotionalTags)
		if err != nil {
			return fmt.Errorf("marshal emotional_tags: %w", err)
		}
		archetypeJSON, err := json.Marshal(e.ArchetypeTags)
		if err != nil {
			return fmt.Errorf("marshal archetype_tags: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO memory_entries (
				id, session_id, content, type, layer, significance,
				emotional_tags, archetype_tags, embedding, seq, occurred_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			e.ID, state.ID, e.Content, string(e.Type), string(e.Layer), e.Significance,
			emotionalJSON, archetypeJSON, embedding, e.Seq, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	state := &domain.SessionState{ID: id}
	var characterJSON, symbolicJSON, undoJSON []byte

	err := s.db.QueryRow(ctx,
		`SELECT character, symbolic, undo_log, next_seq, created_at, updated_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&characterJSON, &symbolicJSON, &undoJSON, &state.NextSeq, &state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if err := json.Unmarshal(characterJSON, &state.Character); err != nil {
		return nil, fmt.Errorf("unmarshal character: %w", err)
	}
	if err := json.Unmarshal(symbolicJSON, &state.Symbolic); err != nil {
		return nil, fmt.Errorf("unmarshal symbolic: %w", err)
	}
	if err := json.Unmarshal(undoJSON, &state.UndoLog); err != nil {
		return nil, fmt.Errorf("unmarshal undo log: %w", err)
	}
	if state.Character == nil {
		state.Character = domain.NewCharacterState()
	}
	if state.Symbolic == nil {
		state.Symbolic = domain.NewSymbolicState()
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, content, type, layer, significance, emotional_tags, archetype_tags, embedding, seq, occurred_at
		 FROM memory_entries WHERE session_id = $1 ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e := domain.MemoryEntry{SessionID: id}
		var entryType, layer string
		var emotionalJSON, archetypeJSON []byte
		var embedding *pgvector.Vector

		err := rows.Scan(&e.ID, &e.Content, &entryType, &layer, &e.Significance,
			&emotionalJSON, &archetypeJSON, &embedding, &e.Seq, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = domain.EntryType(entryType)
		e.Layer = domain.MemoryLayer(layer)
		if len(emotionalJSON) > 0 {
			if err := json.Unmarshal(emotionalJSON, &e.EmotionalTags); err != nil {
				return nil, fmt.Errorf("unmarshal emotional_tags: %w", err)
			}
		}
		if len(archetypeJSON) > 0 {
			if err := json.Unmarshal(archetypeJSON, &e.ArchetypeTags); err != nil {
				return nil, fmt.Errorf("unmarshal archetype_tags: %w", err)
			}
		}
		if embedding != nil {
			e.Embedding = embedding.Slice()
		}
		state.Entries = append(state.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load entries rows: %w", err)
	}

	return state, nil
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SessionStore) List(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions rows: %w", err)
	}
	return ids, nil
}

// SearchSimilar ranks a session's persisted entries by cosine similarity to
// the query vector. Entries without embeddings never match.
func (s *SessionStore) SearchSimilar(ctx context.Context, sessionID uuid.UUID, embedding []float32, limit int) ([]domain.EntryWithScore, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT id, content, type, layer, significance, emotional_tags, archetype_tags, seq, occurred_at,
			1 - (embedding <=> $1) AS score
		 FROM memory_entries
		 WHERE session_id = $2 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var results []domain.EntryWithScore
	for rows.Next() {
		var es domain.EntryWithScore
		var entryType, layer string
		var emotionalJSON, archetypeJSON []byte

		err := rows.Scan(&es.ID, &es.Content, &entryType, &layer, &es.Significance,
			&emotionalJSON, &archetypeJSON, &es.Seq, &es.Timestamp, &es.Score)
		if err != nil {
			return nil, fmt.Errorf("scan similarity row: %w", err)
		}
		es.SessionID = sessionID
		es.Type = domain.EntryType(entryType)
		es.Layer = domain.MemoryLayer(layer)
		if len(emotionalJSON) > 0 {
			if err := json.Unmarshal(emotionalJSON, &es.EmotionalTags); err != nil {
				return nil, fmt.Errorf("unmarshal emotional_tags: %w", err)
			}
		}
		if len(archetypeJSON) > 0 {
			if err := json.Unmarshal(archetypeJSON, &es.ArchetypeTags); err != nil {
				return nil, fmt.Errorf("unmarshal archetype_tags: %w", err)
			}
		}
		results = append(results, es)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similarity rows: %w", err)
	}
	return results, nil
}
