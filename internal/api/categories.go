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

type CategoryHandler struct {
	categories *db.CategoryRepository
}

func NewCategoryHandler(categories *db.CategoryRepository) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type SlugResourceRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Slug string `json:"slug" validate:"required"`
}

// GET /api/v1/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.FindAll(r.Context())
	if err != nil {
		slog.Error("error listing categories", "error", err)
		internalError(w)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// POST /api/v1/categories (admin)
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.ActionCreate, policy.KindCategory, "") {
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

	category, err := h.categories.Create(r.Context(), sanitizeText(req.Name), req.Slug)
	if errors.Is(err, db.ErrDuplicate) {
		conflict(w, "Category slug already exists")
		return
	}
	if err != nil {
		slog.Error("error creating category", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

// DELETE /api/v1/categories/{slug} (admin). Titles in the category
// are detached, not deleted.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.ActionDelete, policy.KindCategory, "") {
		return
	}

	err := h.categories.DeleteBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Category not found")
		return
	}
	if err != nil {
		slog.Error("error deleting category", "error", err)
		internalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
