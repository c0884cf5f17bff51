package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reviewhub/internal/db"
	"reviewhub/internal/models"
	"reviewhub/internal/policy"
	"reviewhub/internal/review"
)

type TitleHandler struct {
	titles     *db.TitleRepository
	categories *db.CategoryRepository
	genres     *db.GenreRepository
}

func NewTitleHandler(titles *db.TitleRepository, categories *db.CategoryRepository, genres *db.GenreRepository) *TitleHandler {
	return &TitleHandler{titles: titles, categories: categories, genres: genres}
}

// GET /api/v1/titles
func (h *TitleHandler) List(w http.ResponseWriter, r *http.Request) {
	titles, err := h.titles.FindAll(r.Context())
	if err != nil {
		slog.Error("error listing titles", "error", err)
		internalError(w)
		return
	}
	if titles == nil {
		titles = []*models.Title{}
	}

	for _, t := range titles {
		if err := h.attachRating(r, t); err != nil {
			slog.Error("error computing rating", "error", err, "title_id", t.ID)
			internalError(w)
			return
		}
	}
	writeJSON(w, http.StatusOK, titles)
}

type CreateTitleRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Year        int      `json:"year" validate:"required,gte=0"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Category    string   `json:"category"`
	Genres      []string `json:"genres" validate:"omitempty,dive,max=50"`
}

// POST /api/v1/titles (admin)
func (h *TitleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.ActionCreate, policy.KindTitle, "") {
		return
	}

	var req CreateTitleRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if req.Year > time.Now().Year() {
		fieldError(w, "year", "Year must not be in the future")
		return
	}

	var categoryID *string
	if req.Category != "" {
		category, ok := h.resolveCategory(w, r, req.Category)
		if !ok {
			return
		}
		categoryID = &category.ID
	}

	genreIDs, ok := h.resolveGenres(w, r, req.Genres)
	if !ok {
		return
	}

	title, err := h.titles.Create(r.Context(), sanitizeText(req.Name), req.Year, sanitizeText(req.Description), categoryID, genreIDs)
	if err != nil {
		slog.Error("error creating title", "error", err)
		internalError(w)
		return
	}

	if err := h.attachRating(r, title); err != nil {
		slog.Error("error computing rating", "error", err, "title_id", title.ID)
		internalError(w)
		return
	}
	writeJSON(w, http.StatusCreated, title)
}

// GET /api/v1/titles/{titleID}
func (h *TitleHandler) Get(w http.ResponseWriter, r *http.Request) {
	title, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.attachRating(r, title); err != nil {
		slog.Error("error computing rating", "error", err, "title_id", title.ID)
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

type UpdateTitleRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=200"`
	Year        *int      `json:"year"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Category    *string   `json:"category"`
	Genres      *[]string `json:"genres"`
}

// PATCH /api/v1/titles/{titleID} (admin)
func (h *TitleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.ActionUpdate, policy.KindTitle, "") {
		return
	}

	title, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req UpdateTitleRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	var upd db.TitleUpdate
	if req.Name != nil {
		name := sanitizeText(*req.Name)
		upd.Name = &name
	}
	if req.Year != nil {
		if *req.Year > time.Now().Year() {
			fieldError(w, "year", "Year must not be in the future")
			return
		}
		upd.Year = req.Year
	}
	if req.Description != nil {
		desc := sanitizeText(*req.Description)
		upd.Description = &desc
	}
	if req.Category != nil {
		upd.SetCategory = true
		if *req.Category != "" {
			category, ok := h.resolveCategory(w, r, *req.Category)
			if !ok {
				return
			}
			upd.CategoryID = &category.ID
		}
	}
	if req.Genres != nil {
		genreIDs, ok := h.resolveGenres(w, r, *req.Genres)
		if !ok {
			return
		}
		upd.SetGenres = true
		upd.GenreIDs = genreIDs
	}

	if err := h.titles.Update(r.Context(), title.ID, upd); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Title not found")
			return
		}
		slog.Error("error updating title", "error", err, "title_id", title.ID)
		internalError(w)
		return
	}

	updated, err := h.titles.FindByID(r.Context(), title.ID)
	if err != nil {
		slog.Error("error reloading title", "error", err, "title_id", title.ID)
		internalError(w)
		return
	}
	if err := h.attachRating(r, updated); err != nil {
		slog.Error("error computing rating", "error", err, "title_id", updated.ID)
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/v1/titles/{titleID} (admin). Reviews and their comments
// cascade.
func (h *TitleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.ActionDelete, policy.KindTitle, "") {
		return
	}

	err := h.titles.Delete(r.Context(), chi.URLParam(r, "titleID"))
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Title not found")
		return
	}
	if err != nil {
		slog.Error("error deleting title", "error", err)
		internalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TitleHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.Title, bool) {
	title, err := h.titles.FindByID(r.Context(), chi.URLParam(r, "titleID"))
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Title not found")
		return nil, false
	}
	if err != nil {
		slog.Error("error finding title", "error", err)
		internalError(w)
		return nil, false
	}
	return title, true
}

func (h *TitleHandler) attachRating(r *http.Request, t *models.Title) error {
	scores, err := h.titles.ScoresByTitle(r.Context(), t.ID)
	if err != nil {
		return err
	}
	if mean, ok := review.Average(scores); ok {
		t.Rating = &mean
	}
	return nil
}

func (h *TitleHandler) resolveCategory(w http.ResponseWriter, r *http.Request, slug string) (*models.Category, bool) {
	category, err := h.categories.FindBySlug(r.Context(), slug)
	if errors.Is(err, db.ErrNotFound) {
		fieldError(w, "category", "Unknown category slug")
		return nil, false
	}
	if err != nil {
		slog.Error("error resolving category", "error", err)
		internalError(w)
		return nil, false
	}
	return category, true
}

func (h *TitleHandler) resolveGenres(w http.ResponseWriter, r *http.Request, slugs []string) ([]string, bool) {
	var ids []string
	for _, slug := range slugs {
		genre, err := h.genres.FindBySlug(r.Context(), slug)
		if errors.Is(err, db.ErrNotFound) {
			fieldError(w, "genres", "Unknown genre slug")
			return nil, false
		}
		if err != nil {
			slog.Error("error resolving genre", "error", err)
			internalError(w)
			return nil, false
		}
		ids = append(ids, genre.ID)
	}
	return ids, true
}
