package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reviewhub/internal/db"
	"reviewhub/internal/models"
	"reviewhub/internal/policy"
)

type GenreHandler struct {
	genres *db.GenreRepository
}

func NewGenreHandler(genres *db.GenreRepository) *GenreHandler {
	return &GenreHandler{genres: genres}
}

// GET /api/v1/genres
func (h *GenreHandler) List(w http.ResponseWriter, r *http.Request) {
	genres, err := h.genres.FindAll(r.Context())
	if err != nil {
		slog.Error("error listing genres", "error", err)
		internalError(w)
		return
	}
	if genres == nil {
		genres = []models.Genre{}
	}
	writeJSON(w, http.StatusOK, genres)
}

// POST /api/v1/genres (admin)
func (h *GenreHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.ActionCreate, policy.KindGenre, "") {
		return
	}

	var req SlugResourceRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if !slugRegex.MatchString(req.Slug) {
		fieldError(w, "slug", "Slug must contain only lowercase letters, numbers, underscores, and hyphens")
		return
	}

	genre, err := h.genres.Create(r.Context(), sanitizeText(req.Name), req.Slug)
	if errors.Is(err, db.ErrDuplicate) {
		conflict(w, "Genre slug already exists")
		return
	}
	if err != nil {
		slog.Error("error creating genre", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, genre)
}

// DELETE /api/v1/genres/{slug} (admin)
func (h *GenreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.ActionDelete, policy.KindGenre, "") {
		return
	}

	err := h.genres.DeleteBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Genre not found")
		return
	}
	if err != nil {
		slog.Error("error deleting genre", "error", err)
		internalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
