package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cateradmin/api/internal/config"
	"github.com/cateradmin/api/internal/gateway"
	mw "github.com/cateradmin/api/internal/middleware"
	"github.com/cateradmin/api/internal/rank"
	"github.com/cateradmin/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionManager defines the session methods needed by the handlers.
// Satisfied by *service.Manager; narrow interface for testability.
type SessionManager interface {
	mw.SessionLookup
	Schemes() []config.Scheme
	Open(ctx context.Context, schemeName string) (*service.Session, error)
	List() []service.Snapshot
	Close(id uuid.UUID) error
}

// SessionHandler handles the position editing endpoints.
type SessionHandler struct {
	sessions SessionManager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterRoutes registers the scheme and session endpoints on the given
// Chi router. Routes under /sessions/{sid} run behind SessionCtx.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/schemes", h.ListSchemes)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Open)

		r.Route("/{sid}", func(r chi.Router) {
			r.Use(mw.SessionCtx(h.sessions))
			r.Get("/", h.Get)
			r.Delete("/", h.Close)
			r.Post("/reload", h.Reload)
			r.Get("/partition", h.Partition)
			r.Post("/moves", h.Move)
			r.Put("/order", h.Reorder)
			r.Post("/validate", h.Validate)
			r.Post("/persist", h.Persist)
		})
	})
}

// --- Request / Response types ---

type openSessionRequest struct {
	Scheme string `json:"scheme"`
}

type moveRequest struct {
	ID       string `json:"id"`
	Position *int   `json:"position"`
}

type reorderRequest struct {
	Attributes rank.Attributes `json:"attributes"`
	IDs        []string        `json:"ids"`
}

type itemResponse struct {
	ID         string           `json:"id"`
	Position   int              `json:"position"`
	Attributes rank.Attributes  `json:"attributes"`
	Name       string           `json:"name,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
}

type partitionResponse struct {
	Partition rank.PartitionKey `json:"partition"`
	State     string            `json:"state"`
	Items     []itemResponse    `json:"items"`
}

func toItemResponse(it rank.Item) itemResponse {
	resp := itemResponse{ID: it.ID, Position: it.Rank, Attributes: it.Attributes}
	if d, ok := it.Payload.(gateway.Display); ok {
		resp.Name = d.Name
		if !d.Price.IsZero() {
			price := d.Price
			resp.Price = &price
		}
	}
	return resp
}

func toPartitionResponse(key rank.PartitionKey, state string, items []rank.Item) partitionResponse {
	resp := partitionResponse{Partition: key, State: state, Items: make([]itemResponse, len(items))}
	for i, it := range items {
		resp.Items[i] = toItemResponse(it)
	}
	return resp
}

// --- Handlers ---

// ListSchemes returns the configured catalog schemes.
func (h *SessionHandler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Schemes())
}

// List returns every open session.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.List())
}

// Open loads a scheme's catalog into a new editing session.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Scheme == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scheme is required"})
		return
	}

	session, err := h.sessions.Open(r.Context(), req.Scheme)
	if err != nil {
		writeSessionError(w, "open session", err)
		return
	}

	writeJSON(w, http.StatusCreated, session.Snapshot())
}

// Get returns the state and partitions of a session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mw.SessionFromContext(r.Context()).Snapshot())
}

// Close discards a session and its unsaved edits.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	session := mw.SessionFromContext(r.Context())
	if err := h.sessions.Close(session.ID()); err != nil {
		writeSessionError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reload fetches the catalog again, dropping unsaved edits.
func (h *SessionHandler) Reload(w http.ResponseWriter, r *http.Request) {
	session := mw.SessionFromContext(r.Context())
	if err := session.Reload(r.Context()); err != nil {
		writeSessionError(w, "reload session", err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// Partition returns the items of the partition selected by the query
// parameters, e.g. ?superfast=1&meal_time=lunch. Fields left out select
// items where the field is unset.
func (h *SessionHandler) Partition(w http.ResponseWriter, r *http.Request) {
	session := mw.SessionFromContext(r.Context())

	query := r.URL.Query()
	attrs := make(rank.Attributes, len(session.Scheme().Fields))
	for _, f := range session.Scheme().Fields {
		attrs[f] = query.Get(f)
	}

	key, items := session.Partition(attrs)
	writeJSON(w, http.StatusOK, toPartitionResponse(key, session.State(), items))
}

// Move sets an item's position within its partition. Out of range
// positions are clamped.
func (h *SessionHandler) Move(w http.ResponseWriter, r *http.Request) {
	session := mw.SessionFromContext(r.Context())

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ID == "" || req.Position == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id and position are required"})
		return
	}

	items, err := session.Move(req.ID, *req.Position)
	if err != nil {
		writeSessionError(w, "move item", err)
		return
	}

	key := session.Scheme().Partitioning().KeyOf(itemAttributes(items, req.ID))
	writeJSON(w, http.StatusOK, toPartitionResponse(key, session.State(), items))
}

// Reorder applies an explicit order to one partition.
func (h *SessionHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	session := mw.SessionFromContext(r.Context())

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items, err := session.Reorder(req.Attributes, req.IDs)
	if err != nil {
		writeSessionError(w, "reorder partition", err)
		return
	}

	key := session.Scheme().Partitioning().KeyOf(req.Attributes)
	writeJSON(w, http.StatusOK, toPartitionResponse(key, session.State(), items))
}

// Validate checks every partition without changing anything.
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	session := mw.SessionFromContext(r.Context())
	if err := session.Validate(); err != nil {
		writeSessionError(w, "validate session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "state": session.State()})
}

// Persist validates the session and writes every position to the backend.
func (h *SessionHandler) Persist(w http.ResponseWriter, r *http.Request) {
	session := mw.SessionFromContext(r.Context())
	if err := session.Persist(r.Context()); err != nil {
		writeSessionError(w, "persist session", err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// --- Helpers ---

func itemAttributes(items []rank.Item, id string) rank.Attributes {
	for _, it := range items {
		if it.ID == id {
			return it.Attributes
		}
	}
	return nil
}

// writeSessionError maps service, engine and backend errors to responses.
func writeSessionError(w http.ResponseWriter, action string, err error) {
	if verrs, ok := rank.AsValidationErrors(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "positions are not contiguous",
			"errors": verrs,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrUnknownScheme):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, rank.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, rank.ErrOrderMismatch), errors.Is(err, rank.ErrDuplicateItem):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrPersistInFlight):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a persist is already in progress"})
	case errors.Is(err, gateway.ErrPersist), errors.Is(err, gateway.ErrList):
		log.Printf("ERROR: %s: %v", action, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", action, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
