package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AnshRaj112/diary-backend/internal/middleware"
	"github.com/AnshRaj112/diary-backend/internal/models"
	"github.com/AnshRaj112/diary-backend/internal/services"
	"github.com/AnshRaj112/diary-backend/pkg/utils"
)

const maxEntryBodyBytes = 1 << 20

// IdentityExtractor resolves the caller's identity from request headers.
// Errors are reported to the caller verbatim with 401.
type IdentityExtractor interface {
	ExtractIdentity(h http.Header) (string, error)
}

// EntryHandler serves the five entry endpoints. Each endpoint is one entryOperation
// run through the same pipeline: method, identity, operation, response.
type EntryHandler struct {
	store    services.EntryStore
	identity IdentityExtractor
	audit    services.AuditRecorder
	events   services.EntryPublisher
	log      *slog.Logger
	now      func() time.Time
}

func NewEntryHandler(store services.EntryStore, identity IdentityExtractor, audit services.AuditRecorder, events services.EntryPublisher, log *slog.Logger) *EntryHandler {
	if audit == nil {
		audit = services.NopAudit{}
	}
	return &EntryHandler{
		store:    store,
		identity: identity,
		audit:    audit,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type entryOperation struct {
	name     string
	method   string
	notFound string
	failure  string
	run      func(ctx context.Context, r *http.Request, owner string) (int, interface{}, error)
}

func (h *EntryHandler) serve(op entryOperation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := CheckMethod(r.Method, op.method); err != nil {
			writeError(w, http.StatusMethodNotAllowed, err.Error())
			return
		}

		owner, err := h.identity.ExtractIdentity(r.Header)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		status, body, err := op.run(r.Context(), r, owner)
		if err != nil {
			h.fail(w, r, op, err)
			return
		}
		writeJSON(w, status, body)
	}
}

func (h *EntryHandler) fail(w http.ResponseWriter, r *http.Request, op entryOperation, err error) {
	var validationErr *utils.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, services.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, op.notFound)
	default:
		h.log.ErrorContext(r.Context(), "entry operation failed",
			"operation", op.name,
			"request_id", middleware.RequestIDFrom(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, op.failure)
	}
}

// afterMutation records the change and notifies live subscribers. Failures here
// never change the response.
func (h *EntryHandler) afterMutation(ctx context.Context, action models.EntryEventType, owner, entryID string) {
	if err := h.audit.Record(ctx, action, owner, entryID); err != nil {
		h.log.WarnContext(ctx, "failed to record entry audit", "action", action, "entry_id", entryID, "error", err)
	}
	if h.events == nil {
		return
	}
	evt := models.EntryEvent{Type: action, EntryID: entryID, Timestamp: h.now()}
	if err := h.events.Publish(ctx, owner, evt); err != nil {
		h.log.WarnContext(ctx, "failed to publish entry event", "action", action, "entry_id", entryID, "error", err)
	}
}

func readEntryBody(r *http.Request) (map[string]interface{}, error) {
	if r.Body == nil {
		return nil, utils.ErrInvalidBody
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEntryBodyBytes+1))
	if err != nil || len(raw) > maxEntryBodyBytes {
		return nil, utils.ErrInvalidBody
	}
	return utils.ParseEntryBody(raw)
}

func toFields(p utils.EntryPayload) models.EntryFields {
	return models.EntryFields{Title: p.Title, Content: p.Content, Mood: p.Mood}
}

// Create handles POST: the owner always comes from the token, never from the body.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.serve(entryOperation{
		name:    "create",
		method:  http.MethodPost,
		failure: "Internal server error when creating an entry.",
		run: func(ctx context.Context, r *http.Request, owner string) (int, interface{}, error) {
			body, err := readEntryBody(r)
			if err != nil {
				return 0, nil, err
			}
			payload, err := utils.ValidateEntryFields(body)
			if err != nil {
				return 0, nil, err
			}

			entry, err := h.store.Insert(ctx, owner, toFields(payload), h.now())
			if err != nil {
				return 0, nil, err
			}
			h.afterMutation(ctx, models.EntryCreated, owner, entry.ID.Hex())

			return http.StatusCreated, models.CreatedEntryResponse{
				Message:       "Entry created successfully.",
				EntryResponse: entry.Response(),
			}, nil
		},
	})(w, r)
}

// List handles GET: every entry of the caller, in store order.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	h.serve(entryOperation{
		name:    "list",
		method:  http.MethodGet,
		failure: "Internal server error fetching entries.",
		run: func(ctx context.Context, r *http.Request, owner string) (int, interface{}, error) {
			entries, err := h.store.FindAllByOwner(ctx, owner)
			if err != nil {
				return 0, nil, err
			}
			out := make([]models.EntryResponse, 0, len(entries))
			for _, e := range entries {
				out = append(out, e.Response())
			}
			return http.StatusOK, out, nil
		},
	})(w, r)
}

// Get handles GET ?id=.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.serve(entryOperation{
		name:     "read",
		method:   http.MethodGet,
		notFound: "Entry not found.",
		failure:  "Internal server error fetching an entry.",
		run: func(ctx context.Context, r *http.Request, owner string) (int, interface{}, error) {
			id, err := utils.ValidateEntryID(r.URL.Query().Get("id"))
			if err != nil {
				return 0, nil, err
			}
			entry, err := h.store.FindOneByIDAndOwner(ctx, id, owner)
			if err != nil {
				return 0, nil, err
			}
			return http.StatusOK, entry.Response(), nil
		},
	})(w, r)
}

// Update handles PUT with {id, title, content, mood?}.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.serve(entryOperation{
		name:     "update",
		method:   http.MethodPut,
		notFound: "Entry not found.",
		failure:  "Internal server error updating entry.",
		run: func(ctx context.Context, r *http.Request, owner string) (int, interface{}, error) {
			body, err := readEntryBody(r)
			if err != nil {
				return 0, nil, err
			}
			rawID, _ := body["id"].(string)
			id, err := utils.ValidateEntryID(rawID)
			if err != nil {
				return 0, nil, err
			}
			payload, err := utils.ValidateEntryFields(body)
			if err != nil {
				return 0, nil, err
			}

			at := h.now()
			matched, err := h.store.UpdateByIDAndOwner(ctx, id, owner, toFields(payload), at)
			if err != nil {
				return 0, nil, err
			}
			if matched == 0 {
				return 0, nil, services.ErrEntryNotFound
			}
			h.afterMutation(ctx, models.EntryUpdated, owner, id.Hex())

			return http.StatusOK, models.UpdatedEntryResponse{
				Message:   "Entry updated successfully.",
				ID:        id.Hex(),
				UserEmail: owner,
				Title:     payload.Title,
				Content:   payload.Content,
				Mood:      payload.Mood,
				UpdatedAt: at,
			}, nil
		},
	})(w, r)
}

// Delete handles DELETE ?id=. Deletion is permanent.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.serve(entryOperation{
		name:     "delete",
		method:   http.MethodDelete,
		notFound: "Entry not found or access denied.",
		failure:  "Internal server error when deleting an entry.",
		run: func(ctx context.Context, r *http.Request, owner string) (int, interface{}, error) {
			id, err := utils.ValidateEntryID(r.URL.Query().Get("id"))
			if err != nil {
				return 0, nil, err
			}
			deleted, err := h.store.DeleteByIDAndOwner(ctx, id, owner)
			if err != nil {
				return 0, nil, err
			}
			if deleted == 0 {
				return 0, nil, services.ErrEntryNotFound
			}
			h.afterMutation(ctx, models.EntryDeleted, owner, id.Hex())

			return http.StatusOK, models.DeletedEntryResponse{
				Message: "Entry deleted successfully.",
				ID:      id.Hex(),
			}, nil
		},
	})(w, r)
}
