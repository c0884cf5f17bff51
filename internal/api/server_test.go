package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reviewhub/internal/auth"
	"reviewhub/internal/config"
	"reviewhub/internal/db"
	"reviewhub/internal/models"
)

const testJWTSecret = "test-secret-test-secret-test-secret!"

type fakeSender struct {
	mu    sync.Mutex
	codes map[string][]string
}

func newFakeSender() *fakeSender {
	return &fakeSender{codes: make(map[string][]string)}
}

func (f *fakeSender) SendConfirmationCode(to, code string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[to] = append(f.codes[to], code)
	return nil
}

func (f *fakeSender) lastCode(t *testing.T, email string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := f.codes[email]
	if len(codes) == 0 {
		t.Fatalf("no confirmation code sent to %q", email)
	}
	return codes[len(codes)-1]
}

func (f *fakeSender) sentCount(email string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes[email])
}

func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.ConfirmationCodeStep = 5 * time.Minute
	cfg.Auth.ConfirmationCodeTTL = 15 * time.Minute
	return cfg
}

func newTestServer(t *testing.T) (*Server, *db.DB, *fakeSender) {
	t.Helper()

	database, err := db.Open(testDBPath(t))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	sender := newFakeSender()
	return NewServer(testConfig(), database, sender), database, sender
}

func seedUser(t *testing.T, database *db.DB, username, email string, role models.Role) *models.User {
	t.Helper()

	user, err := db.NewUserRepository(database).Create(context.Background(), email, username, role, true)
	if err != nil {
		t.Fatalf("seeding user %q: %v", username, err)
	}
	return user
}

func bearerFor(t *testing.T, user *models.User) string {
	t.Helper()

	token, err := auth.NewTokenService(testJWTSecret, time.Hour).Generate(user)
	if err != nil {
		t.Fatalf("generating token for %q: %v", user.Username, err)
	}
	return "Bearer " + token
}

func doRequest(t *testing.T, server *Server, method, path, authorization, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body=%q", err, rr.Body.String())
	}
	return v
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, want, rr.Body.String())
	}
}

func wantErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	wantStatus(t, rr, status)
	resp := decodeBody[ErrorResponse](t, rr)
	if resp.Error.Code != code {
		t.Fatalf("error.code = %q, want %q, body=%q", resp.Error.Code, code, rr.Body.String())
	}
}
