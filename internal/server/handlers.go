package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mesh-intelligence/homepage/internal/homepage"
	"github.com/mesh-intelligence/homepage/internal/storage"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

// maxImageBytes bounds uploaded background images.
const maxImageBytes = 32 << 20

type handler struct {
	svc    *homepage.Service
	store  *storage.Manager
	logger *slog.Logger
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateName),
		errors.Is(err, types.ErrDuplicateURL),
		errors.Is(err, types.ErrDefaultFolder):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidName),
		errors.Is(err, types.ErrInvalidURL),
		errors.Is(err, types.ErrInvalidSettings),
		errors.Is(err, types.ErrInvalidPosition),
		errors.Is(err, types.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (h *handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *handler) listFolders(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Folders())
}

type folderRequest struct {
	Name string `json:"name"`
}

func (h *handler) createFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	f, err := h.svc.CreateFolder(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, f)
}

func (h *handler) renameFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.RenameFolder(r.Context(), id, req.Name); err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := h.svc.Folder(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, f)
}

func (h *handler) deleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFolder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listBookmarks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Folder(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	bookmarks := h.svc.Bookmarks(id)
	if bookmarks == nil {
		bookmarks = []types.Bookmark{}
	}
	h.writeJSON(w, http.StatusOK, bookmarks)
}

func (h *handler) getBackground(w http.ResponseWriter, r *http.Request) {
	bg, err := h.svc.Background(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if bg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, bg)
}

func (h *handler) putBackground(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes+1))
	if err != nil {
		h.badRequest(w, "reading image")
		return
	}
	if len(data) > maxImageBytes {
		h.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "image too large"})
		return
	}
	f, err := h.svc.SetFolderBackground(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, f)
}

type bookmarkRequest struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	FolderID        string `json:"folderId"`
	RejectDuplicate bool   `json:"rejectDuplicate"`
}

func (h *handler) addBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	b, err := h.svc.AddBookmark(r.Context(), homepage.NewBookmark{
		Title:           req.Title,
		URL:             req.URL,
		FolderID:        req.FolderID,
		RejectDuplicate: req.RejectDuplicate,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, b)
}

func (h *handler) deleteBookmark(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBookmark(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// moveRequest moves a bookmark to another folder, to another position, or
// both. The folder change is applied first.
type moveRequest struct {
	FolderID string `json:"folderId"`
	Index    *int   `json:"index"`
}

func (h *handler) moveBookmark(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	b, err := h.svc.Bookmark(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if req.FolderID != "" && req.FolderID != b.FolderID {
		if err := h.svc.MoveBookmarkToFolder(ctx, id, req.FolderID); err != nil {
			h.writeError(w, r, err)
			return
		}
		b.FolderID = req.FolderID
	}
	if req.Index != nil {
		if err := h.svc.MoveBookmark(ctx, b.FolderID, id, *req.Index); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, h.svc.Bookmarks(b.FolderID))
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Settings())
}

// putSettings applies a partial settings document over the current values.
func (h *handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var patch json.RawMessage
	if err := decode(r, &patch); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	next := h.svc.Settings()
	if err := json.Unmarshal(patch, &next); err != nil {
		h.badRequest(w, "invalid settings: "+err.Error())
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), func(s *types.Settings) { *s = next })
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *handler) getStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

func (h *handler) getBlob(w http.ResponseWriter, r *http.Request) {
	handle, data, ok := h.store.OpenHandle(chi.URLParam(r, "handle"))
	if !ok {
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown handle"})
		return
	}
	w.Header().Set("Content-Type", handle.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
