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

type CommentHandler struct {
	comments *db.CommentRepository
	reviews  *db.ReviewRepository
}

func NewCommentHandler(comments *db.CommentRepository, reviews *db.ReviewRepository) *CommentHandler {
	return &CommentHandler{comments: comments, reviews: reviews}
}

// GET /api/v1/titles/{titleID}/reviews/{reviewID}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	rev, ok := h.lookupReview(w, r)
	if !ok {
		return
	}

	comments, err := h.comments.FindByReview(r.Context(), rev.ID)
	if err != nil {
		slog.Error("error listing comments", "error", err, "review_id", rev.ID)
		internalError(w)
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// POST /api/v1/titles/{titleID}/reviews/{reviewID}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := CurrentActor(r)
	if !authorize(w, r, policy.ActionCreate, policy.KindComment, actor.ID) {
		return
	}

	rev, ok := h.lookupReview(w, r)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	comment, err := h.comments.Create(r.Context(), rev.ID, actor.ID, sanitizeText(req.Text))
	if err != nil {
		slog.Error("error creating comment", "error", err, "review_id", rev.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// GET /api/v1/titles/{titleID}/reviews/{reviewID}/comments/{commentID}
func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	comment, ok := h.lookupComment(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

type UpdateCommentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// PATCH /api/v1/titles/{titleID}/reviews/{reviewID}/comments/{commentID}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	comment, ok := h.lookupComment(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, policy.ActionUpdate, policy.KindComment, comment.AuthorID) {
		return
	}

	var req UpdateCommentRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.comments.UpdateText(r.Context(), comment.ID, sanitizeText(req.Text)); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Comment not found")
			return
		}
		slog.Error("error updating comment", "error", err, "comment_id", comment.ID)
		internalError(w)
		return
	}

	updated, err := h.comments.FindByID(r.Context(), comment.ID)
	if err != nil {
		slog.Error("error reloading comment", "error", err, "comment_id", comment.ID)
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/v1/titles/{titleID}/reviews/{reviewID}/comments/{commentID}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	comment, ok := h.lookupComment(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, policy.ActionDelete, policy.KindComment, comment.AuthorID) {
		return
	}

	if err := h.comments.Delete(r.Context(), comment.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Comment not found")
			return
		}
		slog.Error("error deleting comment", "error", err, "comment_id", comment.ID)
		internalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// lookupReview resolves the review in the path and checks it belongs
// to the title in the path.
func (h *CommentHandler) lookupReview(w http.ResponseWriter, r *http.Request) (*models.Review, bool) {
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

func (h *CommentHandler) lookupComment(w http.ResponseWriter, r *http.Request) (*models.Comment, bool) {
	rev, ok := h.lookupReview(w, r)
	if !ok {
		return nil, false
	}

	comment, err := h.comments.FindByID(r.Context(), chi.URLParam(r, "commentID"))
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Comment not found")
		return nil, false
	}
	if err != nil {
		slog.Error("error finding comment", "error", err)
		internalError(w)
		return nil, false
	}
	if comment.ReviewID != rev.ID {
		notFound(w, "Comment not found")
		return nil, false
	}
	return comment, true
}
