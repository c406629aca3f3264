package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mdnooraj/folio/internal/storage"
)

// InboxStore abstracts the contact inbox for the API layer.
type InboxStore interface {
	ListContactMessages(ctx context.Context, limit, offset int) ([]storage.ContactMessage, error)
	CountContactMessages(ctx context.Context) (int, error)
	GetContactMessage(ctx context.Context, id string) (storage.ContactMessage, error)
	DeleteContactMessage(ctx context.Context, id string) error
}

// InboxPage is the list response.
type InboxPage struct {
	Messages []storage.ContactMessage `json:"messages"`
	Total    int                      `json:"total"`
}

func handleListInbox(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		msgs, err := deps.Inbox.ListContactMessages(r.Context(), limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list messages: %v", err)
			return
		}
		total, err := deps.Inbox.CountContactMessages(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count messages: %v", err)
			return
		}

		if msgs == nil {
			msgs = []storage.ContactMessage{}
		}
		writeJSON(w, http.StatusOK, InboxPage{Messages: msgs, Total: total})
	}
}

func handleGetInbox(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		msg, err := deps.Inbox.GetContactMessage(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "message not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get message: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, msg)
	}
}

func handleDeleteInbox(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Inbox.DeleteContactMessage(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "message not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete message: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
