package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reviewhub/internal/auth"
	"reviewhub/internal/db"
	"reviewhub/internal/models"
)

// CodeSender is the outbound notification sink. Delivery is
// best-effort; the auth flow never surfaces its failures.
type CodeSender interface {
	SendConfirmationCode(to, code string, ttl time.Duration) error
}

type AuthHandler struct {
	users   *db.UserRepository
	codes   *auth.CodeService
	tokens  *auth.TokenService
	sender  CodeSender
	codeTTL time.Duration
}

func NewAuthHandler(
	users *db.UserRepository,
	codes *auth.CodeService,
	tokens *auth.TokenService,
	sender CodeSender,
	codeTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		users:   users,
		codes:   codes,
		tokens:  tokens,
		sender:  sender,
		codeTTL: codeTTL,
	}
}

type RequestCodeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type RequestCodeResponse struct {
	Message string `json:"message"`
}

// POST /api/v1/auth/email
//
// Registers the email if it is new (inactive user, username derived
// from the local part) and mails a confirmation code either way. The
// response is identical for new and existing accounts.
func (h *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	email := normalizeEmail(req.Email)

	user, err := h.users.FindByEmail(r.Context(), email)
	if errors.Is(err, db.ErrNotFound) {
		local, _, _ := strings.Cut(email, "@")
		username, derr := h.users.DeriveUsername(r.Context(), local)
		if derr != nil {
			slog.Error("error deriving username", "error", derr)
			internalError(w)
			return
		}

		user, err = h.users.Create(r.Context(), email, username, models.RoleUser, false)
		if errors.Is(err, db.ErrDuplicate) {
			// Lost a race with a concurrent registration of the
			// same email; the existing row is what we want.
			user, err = h.users.FindByEmail(r.Context(), email)
		}
	}
	if err != nil {
		slog.Error("error resolving user for confirmation code", "error", err)
		internalError(w)
		return
	}

	code := h.codes.Generate(user.ID, user.IsActive)
	if err := h.sender.SendConfirmationCode(email, code, h.codeTTL); err != nil {
		slog.Error("error sending confirmation code email", "error", err)
		// Swallowed: surfacing it would leak which emails are registered.
	}

	writeJSON(w, http.StatusOK, RequestCodeResponse{
		Message: "A confirmation code has been sent to your email",
	})
}

type ObtainTokenRequest struct {
	Email            string `json:"email" validate:"required,email,max=254"`
	ConfirmationCode string `json:"confirmationCode" validate:"required,max=64"`
}

type ObtainTokenResponse struct {
	Token string `json:"token"`
}

// POST /api/v1/auth/token
//
// Verifies the confirmation code against every bucket in the validity
// window, activates the account and returns a bearer token. Repeat
// verification works for already-active users holding a fresh code;
// codes issued before activation die with the flag flip.
func (h *AuthHandler) ObtainToken(w http.ResponseWriter, r *http.Request) {
	var req ObtainTokenRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	email := normalizeEmail(req.Email)

	user, err := h.users.FindByEmail(r.Context(), email)
	if errors.Is(err, db.ErrNotFound) {
		invalidCredentials(w)
		return
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	if !h.codes.Verify(user.ID, user.IsActive, req.ConfirmationCode) {
		invalidCredentials(w)
		return
	}

	if err := h.users.Activate(r.Context(), user.ID); err != nil {
		slog.Error("error activating user", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}
	user.IsActive = true

	token, err := h.tokens.Generate(user)
	if err != nil {
		slog.Error("error minting token", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, ObtainTokenResponse{Token: token})
}
