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

type ReviewHandler struct {
	reviews *db.ReviewRepository
	titles  *db.TitleRepository
}

func NewReviewHandler(reviews *db.ReviewRepository, titles *db.TitleRepository) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, titles: titles}
}

// GET /api/v1/titles/{titleID}/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	title, ok := h.lookupTitle(w, r)
	if !ok {
		return
	}

	reviews, err := h.reviews.FindByTitle(r.Context(), title.ID)
	if err != nil {
		slog.Error("error listing reviews", "error", err, "title_id", title.ID)
		internalError(w)
		return
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

type CreateReviewRequest struct {
	Score int    `json:"score" validate:"required,gte=1,lte=10"`
	Text  string `json:"text" validate:"required,max=10000"`
}

// POST /api/v1/titles/{titleID}/reviews. One review per author per
// title. The repository pre-check gives the friendly Conflict; the
// UNIQUE constraint settles concurrent races.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := CurrentActor(r)
	if !authorize(w, r, policy.ActionCreate, policy.KindReview, actor.ID) {
		return
	}

	title, ok := h.lookupTitle(w, r)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	exists, err := h.reviews.ExistsForAuthor(r.Context(), title.ID, actor.ID)
	if err != nil {
		slog.Error("error checking review existence", "error", err)
		internalError(w)
		return
	}
	if exists {
		conflict(w, "Review already exists")
		return
	}

	rev, err := h.reviews.Create(r.Context(), title.ID, actor.ID, req.Score, sanitizeText(req.Text))
	if errors.Is(err, db.ErrDuplicate) {
		conflict(w, "Review already exists")
		return
	}
	if err != nil {
		slog.Error("error creating review", "error", err, "title_id", title.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, rev)
}

// GET /api/v1/titles/{titleID}/reviews/{reviewID}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	rev, ok := h.lookupReview(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

type UpdateReviewRequest struct {
	Score *int    `json:"score" validate:"omitempty,gte=1,lte=10"`
	Text  *string `json:"text" validate:"omitempty,max=10000"`
}

// PATCH /api/v1/titles/{titleID}/reviews/{reviewID}. Author,
// moderator or admin. pub_date never changes.
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	rev, ok := h.lookupReview(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, policy.ActionUpdate, policy.KindReview, rev.AuthorID) {
		return
	}

	var req UpdateReviewRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	var text *string
	if req.Text != nil {
		v := sanitizeText(*req.Text)
		text = &v
	}

	if err := h.reviews.Update(r.Context(), rev.ID, text, req.Score); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Review not found")
			return
		}
		slog.Error("error updating review", "error", err, "review_id", rev.ID)
		internalError(w)
		return
	}

	updated, err := h.reviews.FindByID(r.Context(), rev.ID)
	if err != nil {
		slog.Error("error reloading review", "error", err, "review_id", rev.ID)
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/v1/titles/{titleID}/reviews/{reviewID}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rev, ok := h.lookupReview(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, policy.ActionDelete, policy.KindReview, rev.AuthorID) {
		return
	}

	if err := h.reviews.Delete(r.Context(), rev.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Review not found")
			return
		}
		slog.Error("error deleting review", "error", err, "review_id", rev.ID)
		internalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) lookupTitle(w http.ResponseWriter, r *http.Request) (*models.Title, bool) {
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

// lookupReview resolves the review and checks it belongs to the title
// in the path.
func (h *ReviewHandler) lookupReview(w http.ResponseWriter, r *http.Request) (*models.Review, bool) {
	rev, err := h.reviews.FindByID(r.Context(), chi.URLParam(r, "reviewID"))
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Review not found")
		return nil, false
	}
	if err != nil {
		slog.Error("error finding review", "error", err)
		internalError(w)
		return nil, false
	}
	if rev.TitleID != chi.URLParam(r, "titleID") {
		notFound(w, "Review not found")
		return nil, false
	}
	return rev, true
}
