package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reviewhub/internal/db"
	"reviewhub/internal/models"
)

func requestCode(t *testing.T, server *Server, email string) {
	t.Helper()
	rr := doRequest(t, server, http.MethodPost, "/api/v1/auth/email",
		"", fmt.Sprintf(`{"email":%q}`, email))
	wantStatus(t, rr, http.StatusOK)
}

func obtainToken(t *testing.T, server *Server, email, code string) *string {
	t.Helper()
	rr := doRequest(t, server, http.MethodPost, "/api/v1/auth/token",
		"", fmt.Sprintf(`{"email":%q,"confirmationCode":%q}`, email, code))
	if rr.Code != http.StatusOK {
		return nil
	}
	resp := decodeBody[ObtainTokenResponse](t, rr)
	return &resp.Token
}

func TestRequestCodeRegistersInactiveUser(t *testing.T) {
	server, database, sender := newTestServer(t)

	requestCode(t, server, "alice@example.com")

	user, err := db.NewUserRepository(database).FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want %q", user.Username, "alice")
	}
	if user.IsActive {
		t.Error("self-registered user should start inactive")
	}
	if user.Role != models.RoleUser {
		t.Errorf("Role = %q, want %q", user.Role, models.RoleUser)
	}
	if sender.sentCount("alice@example.com") != 1 {
		t.Errorf("sent codes = %d, want 1", sender.sentCount("alice@example.com"))
	}
}

func TestRequestCodeExistingEmailDoesNotDuplicate(t *testing.T) {
	server, database, sender := newTestServer(t)
	seedUser(t, database, "bob", "bob@example.com", models.RoleUser)

	requestCode(t, server, "bob@example.com")

	users, err := db.NewUserRepository(database).FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("users = %d, want 1", len(users))
	}
	if sender.sentCount("bob@example.com") != 1 {
		t.Errorf("sent codes = %d, want 1", sender.sentCount("bob@example.com"))
	}
}

func TestRequestCodeDerivesSuffixedUsernameOnCollision(t *testing.T) {
	server, database, _ := newTestServer(t)
	seedUser(t, database, "carol", "carol@other.org", models.RoleUser)

	requestCode(t, server, "carol@example.com")

	user, err := db.NewUserRepository(database).FindByEmail(context.Background(), "carol@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if user.Username != "carol1" {
		t.Errorf("Username = %q, want %q", user.Username, "carol1")
	}
}

func TestObtainTokenActivatesAndAuthenticates(t *testing.T) {
	server, database, sender := newTestServer(t)

	requestCode(t, server, "dave@example.com")
	code := sender.lastCode(t, "dave@example.com")

	token := obtainToken(t, server, "dave@example.com", code)
	if token == nil {
		t.Fatal("expected a token for a valid confirmation code")
	}

	user, err := db.NewUserRepository(database).FindByEmail(context.Background(), "dave@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if !user.IsActive {
		t.Error("user should be active after confirmation")
	}

	rr := doRequest(t, server, http.MethodGet, "/api/v1/users/me", "Bearer "+*token, "")
	wantStatus(t, rr, http.StatusOK)
	me := decodeBody[models.User](t, rr)
	if me.Username != "dave" {
		t.Errorf("me.Username = %q, want %q", me.Username, "dave")
	}
}

func TestObtainTokenPreActivationCodeDiesAfterActivation(t *testing.T) {
	server, _, sender := newTestServer(t)

	requestCode(t, server, "erin@example.com")
	code := sender.lastCode(t, "erin@example.com")

	if obtainToken(t, server, "erin@example.com", code) == nil {
		t.Fatal("first confirmation should succeed")
	}

	rr := doRequest(t, server, http.MethodPost, "/api/v1/auth/token",
		"", fmt.Sprintf(`{"email":"erin@example.com","confirmationCode":%q}`, code))
	wantErrorCode(t, rr, http.StatusBadRequest, ErrCodeInvalidCredentials)
}

func TestObtainTokenUnknownEmailAndWrongCodeAreIndistinguishable(t *testing.T) {
	server, database, _ := newTestServer(t)
	seedUser(t, database, "frank", "frank@example.com", models.RoleUser)

	wrongCode := doRequest(t, server, http.MethodPost, "/api/v1/auth/token",
		"", `{"email":"frank@example.com","confirmationCode":"00000000000000000000"}`)
	unknownEmail := doRequest(t, server, http.MethodPost, "/api/v1/auth/token",
		"", `{"email":"nobody@example.com","confirmationCode":"00000000000000000000"}`)

	wantErrorCode(t, wrongCode, http.StatusBadRequest, ErrCodeInvalidCredentials)
	wantErrorCode(t, unknownEmail, http.StatusBadRequest, ErrCodeInvalidCredentials)
	if wrongCode.Body.String() != unknownEmail.Body.String() {
		t.Errorf("responses differ:\n%s\n%s", wrongCode.Body.String(), unknownEmail.Body.String())
	}
}

func TestObtainTokenActiveUserCanReconfirm(t *testing.T) {
	server, _, sender := newTestServer(t)

	requestCode(t, server, "grace@example.com")
	if obtainToken(t, server, "grace@example.com", sender.lastCode(t, "grace@example.com")) == nil {
		t.Fatal("initial confirmation should succeed")
	}

	// A fresh code after activation works again, as a login.
	requestCode(t, server, "grace@example.com")
	if obtainToken(t, server, "grace@example.com", sender.lastCode(t, "grace@example.com")) == nil {
		t.Fatal("post-activation confirmation should succeed")
	}
}

func TestRequestCodeRejectsInvalidEmail(t *testing.T) {
	server, _, _ := newTestServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/v1/auth/email",
		"", `{"email":"not-an-email"}`)
	wantErrorCode(t, rr, http.StatusBadRequest, ErrCodeInvalidRequest)
}

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	server, _, _ := newTestServer(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = doRequest(t, server, http.MethodPost, "/api/v1/auth/email",
			"", `{"email":"harry@example.com"}`)
	}
	wantErrorCode(t, last, http.StatusTooManyRequests, ErrCodeRateLimitExceeded)
}

func TestRequestCodeSurvivesSenderFailure(t *testing.T) {
	database, err := db.Open(testDBPath(t))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	server := NewServer(testConfig(), database, failingSender{})

	requestCode(t, server, "ivy@example.com")

	if _, err := db.NewUserRepository(database).FindByEmail(context.Background(), "ivy@example.com"); err != nil {
		t.Fatalf("user should exist despite delivery failure: %v", err)
	}
}

type failingSender struct{}

func (failingSender) SendConfirmationCode(to, code string, ttl time.Duration) error {
	return errors.New("smtp unreachable")
}
