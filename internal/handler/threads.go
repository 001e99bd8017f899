package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-ai/ragcore/internal/model"
)

// ThreadStore is the narrow surface the thread handlers need from
// tracker.Tracker (spec.md §4.10, §6.2).
type ThreadStore interface {
	ListThreads(ctx context.Context, userID string, limit int, includeArchived bool) ([]model.ThreadSummary, error)
	GetThread(ctx context.Context, userID, threadID string) (model.ThreadRecord, error)
	Archive(ctx context.Context, threadID, userID string, archived bool) error
}

// ThreadDeps holds the thread-tracker store for the thread handlers.
type ThreadDeps struct {
	Store ThreadStore
}

// ListThreads handles GET /api/threads?userId=...&limit=...&archived=true.
func ListThreads(deps ThreadDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeJSONError(w, http.StatusBadRequest, "userId is required")
			return
		}
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		includeArchived := r.URL.Query().Get("archived") == "true"

		threads, err := deps.Store.ListThreads(r.Context(), userID, limit, includeArchived)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to list threads")
			return
		}
		writeJSON(w, http.StatusOK, threads)
	}
}

// GetThread handles GET /api/threads/{id}?userId=...
func GetThread(deps ThreadDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		threadID := chi.URLParam(r, "id")
		if userID == "" || threadID == "" {
			writeJSONError(w, http.StatusBadRequest, "userId and thread id are required")
			return
		}

		thread, err := deps.Store.GetThread(r.Context(), userID, threadID)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "thread not found")
			return
		}
		writeJSON(w, http.StatusOK, thread)
	}
}

// archiveRequest is the JSON body for PATCH /api/threads/{id}/archive.
type archiveRequest struct {
	UserID   string `json:"userId"`
	Archived bool   `json:"archived"`
}

// ArchiveThread handles PATCH /api/threads/{id}/archive.
func ArchiveThread(deps ThreadDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threadID := chi.URLParam(r, "id")
		var req archiveRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.UserID == "" || threadID == "" {
			writeJSONError(w, http.StatusBadRequest, "userId and thread id are required")
			return
		}

		if err := deps.Store.Archive(r.Context(), threadID, req.UserID, req.Archived); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to update thread")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"archived": req.Archived})
	}
}
