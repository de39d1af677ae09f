package service

import (
	"context"
	"errors"
	"testing"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/SJPMusic/soloheart-sub001/internal/extract"
	"github.com/SJPMusic/soloheart-sub001/internal/rules"
	"github.com/SJPMusic/soloheart-sub001/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore wraps the in-memory store and fails Save on demand.
type failingStore struct {
	*store.MemoryStore
	failSave bool
}

func (f *failingStore) Save(ctx context.Context, state *domain.SessionState) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.MemoryStore.Save(ctx, state)
}

func newSessionTest() (*SessionService, *failingStore) {
	st := &failingStore{MemoryStore: store.NewMemoryStore()}
	logger := testLogger()
	coordinator := extract.NewCoordinator(nil, 0, logger)
	svc := NewSessionService(st, coordinator, nil, rules.Default(), logger)
	return svc, st
}

func TestSessionService_CoreConversation(t *testing.T) {
	svc, _ := newSessionTest()
	ctx := context.Background()

	state, err := svc.CreateSession(ctx, uuid.Nil)
	require.NoError(t, err)

	result, err := svc.ProcessTurn(ctx, state.ID, "She's a female half-elf ranger who lost her family to raiders.")
	require.NoError(t, err)

	byField := make(map[string]domain.CommittedFact)
	for _, fact := range result.Committed {
		byField[fact.Field] = fact
	}
	assert.Equal(t, "Female", byField[domain.FieldGender].Value)
	assert.Equal(t, "Half-Elf", byField[domain.FieldRace].Value)
	assert.Equal(t, "Ranger", byField[domain.FieldClass].Value)
	assert.Equal(t, "Tragic Loss", byField[domain.FieldBackground].Value)

	assert.Contains(t, result.ActiveTags, domain.ArchetypeShadow)
	assert.Greater(t, result.Tension, 0.0, "tragic loss should push toward chaos")

	view, err := svc.GetState(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.FieldName}, view.MissingRequired)
	assert.NotEmpty(t, view.Session.Entries, "committed facts should land in memory")
}

func TestSessionService_TurnIsPersisted(t *testing.T) {
	svc, st := newSessionTest()
	ctx := context.Background()

	state, err := svc.CreateSession(ctx, uuid.Nil)
	require.NoError(t, err)

	_, err = svc.ProcessTurn(ctx, state.ID, "Her name is Lyra.")
	require.NoError(t, err)

	saved, err := st.Load(ctx, state.ID)
	require.NoError(t, err)
	fact, ok := saved.Character.Get(domain.FieldName)
	require.True(t, ok)
	assert.Equal(t, "Lyra", fact.Value)
}

func TestSessionService_SaveFailureRollsBack(t *testing.T) {
	svc, st := newSessionTest()
	ctx := context.Background()

	state, err := svc.CreateSession(ctx, uuid.Nil)
	require.NoError(t, err)

	st.failSave = true
	_, err = svc.ProcessTurn(ctx, state.ID, "She's a ranger.")
	require.Error(t, err)

	// The failed turn must leave no trace in the live session.
	st.failSave = false
	view, err := svc.GetState(ctx, state.ID)
	require.NoError(t, err)
	_, ok := view.Session.Character.Get(domain.FieldClass)
	assert.False(t, ok, "failed turn must not leave committed facts behind")
	assert.Empty(t, view.Session.UndoLog)
	assert.Empty(t, view.Session.Entries)
}

func TestSessionService_UndoAndConfirm(t *testing.T) {
	svc, _ := newSessionTest()
	ctx := context.Background()

	state, err := svc.CreateSession(ctx, uuid.Nil)
	require.NoError(t, err)

	_, err = svc.ProcessTurn(ctx, state.ID, "She is a dwarf paladin.")
	require.NoError(t, err)

	// A pronoun-only gender conflict is low confidence: it surfaces as an
	// ambiguity instead of overwriting, and confirm resolves it.
	result, err := svc.ProcessTurn(ctx, state.ID, "He sharpened the blade in silence.")
	require.NoError(t, err)
	require.NotEmpty(t, result.Ambiguities)
	assert.Equal(t, domain.FieldGender, result.Ambiguities[0].Field)

	fact, err := svc.Confirm(ctx, state.ID, domain.FieldGender, "Male")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCorrection, fact.Source)

	res, err := svc.Undo(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FieldGender, res.Field)
	require.NotNil(t, res.PreviousValue)
	assert.Equal(t, "Female", *res.PreviousValue)
}

func TestSessionService_UndoEmpty(t *testing.T) {
	svc, _ := newSessionTest()
	ctx := context.Background()

	state, err := svc.CreateSession(ctx, uuid.Nil)
	require.NoError(t, err)

	_, err = svc.Undo(ctx, state.ID)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestSessionService_ContradictionNeverBlocksCommit(t *testing.T) {
	svc, _ := newSessionTest()
	ctx := context.Background()

	state, err := svc.CreateSession(ctx, uuid.Nil)
	require.NoError(t, err)

	_, err = svc.ProcessTurn(ctx, state.ID, "She is a ranger.")
	require.NoError(t, err)

	result, err := svc.ProcessTurn(ctx, state.ID, "These days she walks the wilds as a druid.")
	require.NoError(t, err)

	require.NotEmpty(t, result.Committed, "contradiction must not block the commit")
	require.NotEmpty(t, result.Contradictions)
	assert.Equal(t, domain.FieldClass, result.Contradictions[0].Field)

	view, err := svc.GetState(ctx, state.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, view.Session.Symbolic.DecayFlags)
}

func TestSessionService_NotFound(t *testing.T) {
	svc, _ := newSessionTest()
	ctx := context.Background()

	_, err := svc.ProcessTurn(ctx, uuid.New(), "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.GetState(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_LoadAfterRestart(t *testing.T) {
	st := &failingStore{MemoryStore: store.NewMemoryStore()}
	logger := testLogger()
	coordinator := extract.NewCoordinator(nil, 0, logger)

	svc := NewSessionService(st, coordinator, nil, rules.Default(), logger)
	ctx := context.Background()

	state, err := svc.CreateSession(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = svc.ProcessTurn(ctx, state.ID, "Her name is Lyra and she is an elf druid.")
	require.NoError(t, err)

	// A fresh service over the same store sees the committed state.
	svc2 := NewSessionService(st, coordinator, nil, rules.Default(), logger)
	view, err := svc2.GetState(ctx, state.ID)
	require.NoError(t, err)

	name, ok := view.Session.Character.Get(domain.FieldName)
	require.True(t, ok)
	assert.Equal(t, "Lyra", name.Value)
}

func TestSessionService_GetContext(t *testing.T) {
	svc, _ := newSessionTest()
	ctx := context.Background()

	state, err := svc.CreateSession(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = svc.ProcessTurn(ctx, state.ID, "She's a half-elf ranger.")
	require.NoError(t, err)

	bundle, err := svc.GetContext(ctx, state.ID, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, bundle.Character)
	assert.NotEmpty(t, bundle.Memories)
	assert.LessOrEqual(t, bundle.TokenEstimate, bundle.TokenBudget)
}
