package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/issueblog/internal/apperr"
	"github.com/starford/issueblog/internal/postservice"
	"github.com/starford/issueblog/internal/scaffold"
)

const maxUploadBytes = 20 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *postservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *postservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Sync handles POST /api/sync. It runs one full pass and returns its report.
// Passes triggered concurrently run one after the other.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Sync(r.Context())
	if err != nil {
		slog.Error("sync failed", slog.String("error", err.Error()))
		status := http.StatusBadGateway
		if errors.Is(err, apperr.ErrDuplicatePostID) {
			status = http.StatusConflict
		}
		writeJSON(w, status, errResponse{Error: err.Error(), Report: report})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListPosts handles GET /api/posts.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPosts(r.Context())
	if err != nil {
		slog.Error("list posts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetPost handles GET /api/posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	post, err := h.svc.GetPost(r.Context(), id)
	if err != nil {
		if postservice.IsNotExist(err) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get post failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("ETag", `"`+post.Checksum+`"`)
	writeJSON(w, http.StatusOK, post)
}

// CreatePost handles POST /api/posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Title string `json:"title"`
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	created, err := h.svc.CreatePost(r.Context(), scaffold.Request{Title: req.Title, Label: req.Label})
	if err != nil {
		switch {
		case errors.Is(err, scaffold.ErrEmptyTitle):
			writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("post directory already exists"))
		default:
			slog.Error("create post failed", slog.String("title", req.Title), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UploadAsset handles POST /api/posts/{slug}/assets (multipart/form-data,
// field "file").
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	slug := chi.URLParam(r, "slug")
	asset, err := h.svc.SaveAsset(r.Context(), slug, header.Filename, data)
	if err != nil {
		switch {
		case postservice.IsNotExist(err):
			writeJSON(w, http.StatusNotFound, errorBody("post not found"))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("asset already exists"))
		default:
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}
