package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"reviewhub/internal/db"
	"reviewhub/internal/models"
	"reviewhub/internal/policy"
)

type UserHandler struct {
	users *db.UserRepository
}

func NewUserHandler(users *db.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := CurrentActor(r)
	if !authorize(w, r, policy.ActionRead, policy.KindProfile, actor.ID) {
		return
	}

	user, err := h.users.FindByID(r.Context(), actor.ID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "User not found")
		return
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type UpdateMeRequest struct {
	Username  *string `json:"username"`
	FirstName *string `json:"firstName" validate:"omitempty,max=150"`
	LastName  *string `json:"lastName" validate:"omitempty,max=150"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
	// Role is accepted in the payload but never applied on the
	// self-service path; the stored role always wins.
	Role *models.Role `json:"role"`
}

// PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor := CurrentActor(r)
	if !authorize(w, r, policy.ActionUpdate, policy.KindProfile, actor.ID) {
		return
	}

	var req UpdateMeRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	upd, ok := h.profileUpdate(w, req.Username, req.FirstName, req.LastName, req.Bio)
	if !ok {
		return
	}
	// The role field is dropped here no matter what the payload
	// carried; only the admin surface changes roles.
	upd.Role = nil

	h.applyUpdate(w, r, actor.ID, upd)
}

// GET /api/v1/users (admin)
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.FindAll(r.Context())
	if err != nil {
		slog.Error("error listing users", "error", err)
		internalError(w)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type CreateUserRequest struct {
	Email    string      `json:"email" validate:"required,email,max=254"`
	Username string      `json:"username" validate:"required"`
	Role     models.Role `json:"role"`
}

// POST /api/v1/users (admin). Admin-created accounts are active
// immediately, no confirmation round-trip.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	username := strings.TrimSpace(req.Username)
	if !usernameRegex.MatchString(username) {
		fieldError(w, "username", "Username must be 3-32 characters and contain only letters, numbers, underscores, and hyphens")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		fieldError(w, "role", "Unknown role")
		return
	}

	user, err := h.users.Create(r.Context(), normalizeEmail(req.Email), username, role, true)
	if errors.Is(err, db.ErrDuplicate) {
		conflict(w, "Email or username already taken")
		return
	}
	if err != nil {
		slog.Error("error creating user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// GET /api/v1/users/{username} (admin)
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type AdminUpdateUserRequest struct {
	Username  *string      `json:"username"`
	FirstName *string      `json:"firstName" validate:"omitempty,max=150"`
	LastName  *string      `json:"lastName" validate:"omitempty,max=150"`
	Bio       *string      `json:"bio" validate:"omitempty,max=2000"`
	Role      *models.Role `json:"role"`
}

// PATCH /api/v1/users/{username} (admin). Unlike the self-service
// path, admins may change roles.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req AdminUpdateUserRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	upd, valid := h.profileUpdate(w, req.Username, req.FirstName, req.LastName, req.Bio)
	if !valid {
		return
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			fieldError(w, "role", "Unknown role")
			return
		}
		upd.Role = req.Role
	}

	h.applyUpdate(w, r, user.ID, upd)
}

// DELETE /api/v1/users/{username} (admin). Reviews and comments by
// the user are removed with them.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), user.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "User not found")
			return
		}
		slog.Error("error deleting user", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := h.users.FindByUsername(r.Context(), chi.URLParam(r, "username"))
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "User not found")
		return nil, false
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return nil, false
	}
	return user, true
}

func (h *UserHandler) profileUpdate(w http.ResponseWriter, username, firstName, lastName, bio *string) (db.ProfileUpdate, bool) {
	var upd db.ProfileUpdate

	if username != nil {
		name := strings.TrimSpace(*username)
		if !usernameRegex.MatchString(name) {
			fieldError(w, "username", "Username must be 3-32 characters and contain only letters, numbers, underscores, and hyphens")
			return upd, false
		}
		upd.Username = &name
	}
	if firstName != nil {
		v := sanitizeText(*firstName)
		upd.FirstName = &v
	}
	if lastName != nil {
		v := sanitizeText(*lastName)
		upd.LastName = &v
	}
	if bio != nil {
		v := sanitizeText(*bio)
		upd.Bio = &v
	}
	return upd, true
}

func (h *UserHandler) applyUpdate(w http.ResponseWriter, r *http.Request, userID string, upd db.ProfileUpdate) {
	err := h.users.UpdateProfile(r.Context(), userID, upd)
	if errors.Is(err, db.ErrDuplicate) {
		conflict(w, "Username already taken")
		return
	}
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "User not found")
		return
	}
	if err != nil {
		slog.Error("error updating user", "error", err, "user_id", userID)
		internalError(w)
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		slog.Error("error reloading user", "error", err, "user_id", userID)
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
