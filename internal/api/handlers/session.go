package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/SJPMusic/soloheart-sub001/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type createSessionRequest struct {
	ID string `json:"id,omitempty"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	id := uuid.Nil
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		id = parsed
	}

	state, err := h.svc.CreateSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionExists) {
			writeError(w, http.StatusConflict, "session already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GetState(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type turnRequest struct {
	Utterance string `json:"utterance"`
}

func (h *SessionHandler) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.ProcessTurn(r.Context(), id, req.Utterance)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrEmptyUtterance):
			writeError(w, http.StatusBadRequest, "utterance is required")
		default:
			writeError(w, http.StatusInternalServerError, "failed to process turn")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type confirmRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fact, err := h.svc.Confirm(r.Context(), id, req.Field, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrUnknownField):
			writeError(w, http.StatusBadRequest, "unknown field or empty value")
		default:
			writeError(w, http.StatusInternalServerError, "failed to confirm fact")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"committed": fact})
}

func (h *SessionHandler) Undo(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Undo(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrNothingToUndo):
			writeError(w, http.StatusConflict, "nothing to undo")
		default:
			writeError(w, http.StatusInternalServerError, "failed to undo")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	budget := 0
	if b := r.URL.Query().Get("budget"); b != "" {
		parsed, err := strconv.Atoi(b)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid budget")
			return
		}
		budget = parsed
	}

	bundle, err := h.svc.GetContext(r.Context(), id, budget)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to build context")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (h *SessionHandler) Memories(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var filter domain.RetrieveFilter

	if t := q.Get("type"); t != "" {
		if !domain.ValidEntryType(t) {
			writeError(w, http.StatusBadRequest, "invalid type")
			return
		}
		et := domain.EntryType(t)
		filter.Type = &et
	}
	if l := q.Get("layer"); l != "" {
		if !domain.ValidLayer(l) {
			writeError(w, http.StatusBadRequest, "invalid layer")
			return
		}
		ml := domain.MemoryLayer(l)
		filter.Layer = &ml
	}
	if tags := q.Get("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if !domain.ValidArchetype(tag) {
				writeError(w, http.StatusBadRequest, "invalid archetype tag")
				return
			}
			filter.ArchetypeTags = append(filter.ArchetypeTags, domain.ArchetypeTag(tag))
		}
	}
	filter.Query = q.Get("query")

	limit := 0
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.svc.Retrieve(r.Context(), id, filter, limit)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to retrieve memories")
		return
	}
	if entries == nil {
		entries = []domain.EntryWithScore{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": entries})
}

func (h *SessionHandler) Recall(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	topK := 0
	if k := r.URL.Query().Get("top_k"); k != "" {
		parsed, err := strconv.Atoi(k)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid top_k")
			return
		}
		topK = parsed
	}

	results, err := h.svc.Recall(r.Context(), id, query, topK)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to recall")
		return
	}
	if results == nil {
		results = []domain.EntryWithScore{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}
