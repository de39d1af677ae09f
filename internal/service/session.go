package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/SJPMusic/soloheart-sub001/internal/extract"
	"github.com/SJPMusic/soloheart-sub001/internal/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrEmptyUtterance  = errors.New("utterance is empty")
	ErrUnknownField    = errors.New("unknown character field")
)

// SessionService owns the per-session turn pipeline: extract, commit, tag,
// remember, persist. Sessions are serialized individually, so two concurrent
// turns for the same session never interleave, while distinct sessions
// proceed in parallel.
type SessionService struct {
	store       domain.SessionStore
	coordinator *extract.Coordinator
	ledger      *Ledger
	tagger      *Tagger
	memlog      *MemoryLog
	synthesizer *Synthesizer
	recaller    *Recaller
	embedding   domain.EmbeddingClient
	cfg         *rules.Config
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionHandle
}

type sessionHandle struct {
	mu    sync.Mutex
	state *domain.SessionState
}

func NewSessionService(
	store domain.SessionStore,
	coordinator *extract.Coordinator,
	embedding domain.EmbeddingClient,
	cfg *rules.Config,
	logger *zap.Logger,
) *SessionService {
	memlog := NewMemoryLog(cfg, logger)
	return &SessionService{
		store:       store,
		coordinator: coordinator,
		ledger:      NewLedger(cfg, logger),
		tagger:      NewTagger(cfg, logger),
		memlog:      memlog,
		synthesizer: NewSynthesizer(memlog, cfg, logger),
		recaller:    NewRecaller(store, embedding, memlog, logger),
		embedding:   embedding,
		cfg:         cfg,
		logger:      logger,
		sessions:    make(map[uuid.UUID]*sessionHandle),
	}
}

// TurnResult is the full report for one processed utterance.
type TurnResult struct {
	SessionID      uuid.UUID              `json:"session_id"`
	Committed      []domain.CommittedFact `json:"committed"`
	Ambiguities    []domain.FactCandidate `json:"ambiguities,omitempty"`
	Contradictions []domain.Contradiction `json:"contradictions,omitempty"`
	Tension        float64                `json:"tension"`
	ActiveTags     []domain.ArchetypeTag  `json:"active_tags"`
	AssistedUsed   bool                   `json:"assisted_used"`
}

// StateView is the read-only session snapshot for API consumers.
type StateView struct {
	Session         *domain.SessionState `json:"session"`
	MissingRequired []string             `json:"missing_required_fields"`
}

// CreateSession allocates and persists a fresh session. id is optional;
// uuid.Nil means generate one.
func (s *SessionService) CreateSession(ctx context.Context, id uuid.UUID) (*domain.SessionState, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	s.mu.Lock()
	if _, exists := s.sessions[id]; exists {
		s.mu.Unlock()
		return nil, ErrSessionExists
	}
	s.mu.Unlock()

	state := domain.NewSessionState(id)
	now := timeNow()
	state.CreatedAt = now
	state.UpdatedAt = now

	if err := s.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("persist new session: %w", err)
	}

	s.mu.Lock()
	s.sessions[state.ID] = &sessionHandle{state: state}
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session_id", state.ID.String()))
	return state.Clone(), nil
}

// DeleteSession removes the session from the cache and the store.
func (s *SessionService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	h, err := s.handle(ctx, id)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	s.logger.Info("session deleted", zap.String("session_id", id.String()))
	return nil
}

// ListSessions returns the IDs of all persisted sessions.
func (s *SessionService) ListSessions(ctx context.Context) ([]uuid.UUID, error) {
	return s.store.List(ctx)
}

// ProcessTurn runs one utterance through the extraction pipeline and commits
// the result. A turn is only reported successful once the updated state is
// durably saved; on save failure the in-memory session rolls back to its
// pre-turn snapshot.
func (s *SessionService) ProcessTurn(ctx context.Context, id uuid.UUID, utterance string) (*TurnResult, error) {
	if len(utterance) == 0 {
		return nil, ErrEmptyUtterance
	}

	h, err := s.handle(ctx, id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	state := h.state
	snapshot := state.Clone()

	known := make(map[string]bool, len(state.Character.Fields))
	for f := range state.Character.Fields {
		known[f] = true
	}
	candidates, assistedUsed := s.coordinator.Extract(ctx, utterance, known)

	priors := make(map[string]domain.CommittedFact, len(state.Character.Fields))
	for f, v := range state.Character.Fields {
		priors[f] = v
	}

	outcome := s.ledger.Commit(state, candidates)

	result := &TurnResult{
		SessionID:    id,
		Committed:    outcome.Committed,
		Ambiguities:  outcome.Ambiguities,
		AssistedUsed: assistedUsed,
	}

	for _, fact := range outcome.Committed {
		var prior *domain.CommittedFact
		if p, ok := priors[fact.Field]; ok {
			prior = &p
		}
		s.annotate(ctx, state, fact, prior, result)
	}

	result.Tension = state.Symbolic.Tension
	result.ActiveTags = state.Symbolic.TagList()
	state.UpdatedAt = timeNow()

	if err := s.store.Save(ctx, state); err != nil {
		h.state = snapshot
		return nil, fmt.Errorf("persist turn: %w", err)
	}

	s.logger.Info("turn processed",
		zap.String("session_id", id.String()),
		zap.Int("committed", len(result.Committed)),
		zap.Int("ambiguities", len(result.Ambiguities)),
		zap.Int("contradictions", len(result.Contradictions)),
		zap.Bool("assisted_used", assistedUsed),
		zap.Float64("tension", result.Tension))

	return result, nil
}

// annotate runs the symbolic tagger for one committed fact and records the
// fact, any contradiction, and any large tension swing in the memory log.
func (s *SessionService) annotate(ctx context.Context, state *domain.SessionState, fact domain.CommittedFact, prior *domain.CommittedFact, result *TurnResult) {
	tagRes := s.tagger.Tag(fact, prior, state.Symbolic)

	sig := clamp(0.5+fact.Confidence*0.2, 0, 1)
	if tagRes.TensionDelta >= 0.2 || tagRes.TensionDelta <= -0.2 {
		sig = clamp(sig+0.2, 0, 1)
	}
	s.remember(ctx, state, domain.MemoryEntry{
		Content:       fmt.Sprintf("%s: %s", fact.Field, fact.Value),
		Type:          domain.EntryFact,
		Significance:  sig,
		ArchetypeTags: tagRes.Tags,
	})

	if tagRes.Contradiction != nil {
		result.Contradictions = append(result.Contradictions, *tagRes.Contradiction)
		s.remember(ctx, state, domain.MemoryEntry{
			Content: fmt.Sprintf("%s changed from %s to %s",
				fact.Field, tagRes.Contradiction.PreviousValue, tagRes.Contradiction.NewValue),
			Type:          domain.EntrySymbolic,
			Significance:  0.9,
			ArchetypeTags: tagRes.Tags,
			EmotionalTags: []string{"dissonance"},
		})
	} else if tagRes.TensionDelta >= 0.2 || tagRes.TensionDelta <= -0.2 {
		s.remember(ctx, state, domain.MemoryEntry{
			Content:       fmt.Sprintf("tension shifted by %+.2f on %s", tagRes.TensionDelta, fact.Field),
			Type:          domain.EntrySymbolic,
			Significance:  clamp(0.4+abs(tagRes.TensionDelta), 0, 1),
			ArchetypeTags: tagRes.Tags,
		})
	}
}

// remember embeds the entry content when an embedding client is configured,
// then appends to the layered log. Embedding failures are logged and skipped;
// the entry still lands without a vector.
func (s *SessionService) remember(ctx context.Context, state *domain.SessionState, entry domain.MemoryEntry) {
	if s.embedding != nil {
		vec, err := s.embedding.Embed(ctx, entry.Content)
		if err != nil {
			s.logger.Warn("entry embedding failed",
				zap.String("session_id", state.ID.String()),
				zap.Error(err))
		} else {
			entry.Embedding = vec
		}
	}
	s.memlog.Append(state, entry)
}

// Undo reverts the single most recent commitment in the session.
func (s *SessionService) Undo(ctx context.Context, id uuid.UUID) (*UndoResult, error) {
	h, err := s.handle(ctx, id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := h.state.Clone()
	res := s.ledger.UndoLast(h.state)
	if res == nil {
		return nil, ErrNothingToUndo
	}
	h.state.UpdatedAt = timeNow()

	if err := s.store.Save(ctx, h.state); err != nil {
		h.state = snapshot
		return nil, fmt.Errorf("persist undo: %w", err)
	}
	return res, nil
}

// Confirm resolves a surfaced ambiguity with an explicit value.
func (s *SessionService) Confirm(ctx context.Context, id uuid.UUID, field, value string) (*domain.CommittedFact, error) {
	h, err := s.handle(ctx, id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	state := h.state
	snapshot := state.Clone()

	var prior *domain.CommittedFact
	if p, ok := state.Character.Get(field); ok {
		prior = &p
	}

	fact, ok := s.ledger.Confirm(state, field, value)
	if !ok {
		return nil, ErrUnknownField
	}

	result := &TurnResult{SessionID: id}
	s.annotate(ctx, state, fact, prior, result)
	state.UpdatedAt = timeNow()

	if err := s.store.Save(ctx, state); err != nil {
		h.state = snapshot
		return nil, fmt.Errorf("persist confirmation: %w", err)
	}
	return &fact, nil
}

// GetContext builds the token-budgeted context bundle for the session.
func (s *SessionService) GetContext(ctx context.Context, id uuid.UUID, budget int) (*domain.ContextBundle, error) {
	h, err := s.handle(ctx, id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	bundle := s.synthesizer.BuildContext(h.state, budget)
	return &bundle, nil
}

// GetState returns the full session snapshot plus required-field compliance.
func (s *SessionService) GetState(ctx context.Context, id uuid.UUID) (*StateView, error) {
	h, err := s.handle(ctx, id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	return &StateView{
		Session:         h.state.Clone(),
		MissingRequired: h.state.Character.MissingRequired(),
	}, nil
}

// Retrieve answers a filtered memory query against the session's log.
func (s *SessionService) Retrieve(ctx context.Context, id uuid.UUID, filter domain.RetrieveFilter, limit int) ([]domain.EntryWithScore, error) {
	h, err := s.handle(ctx, id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	return s.memlog.Retrieve(h.state, filter, limit), nil
}

// Recall answers a free-text similarity query against the session's memory.
func (s *SessionService) Recall(ctx context.Context, id uuid.UUID, query string, limit int) ([]domain.EntryWithScore, error) {
	h, err := s.handle(ctx, id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	return s.recaller.Recall(ctx, h.state, query, limit)
}

// handle returns the in-memory handle for a session, loading it from the
// store on first touch.
func (s *SessionService) handle(ctx context.Context, id uuid.UUID) (*sessionHandle, error) {
	s.mu.Lock()
	if h, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	state, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.sessions[id]; ok {
		return h, nil
	}
	h := &sessionHandle{state: state}
	s.sessions[id] = h
	return h, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
