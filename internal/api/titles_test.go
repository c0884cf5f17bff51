package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"reviewhub/internal/db"
	"reviewhub/internal/models"
)

func seedTitle(t *testing.T, database *db.DB, name string, year int) *models.Title {
	t.Helper()

	title, err := db.NewTitleRepository(database).Create(context.Background(), name, year, "", nil, nil)
	if err != nil {
		t.Fatalf("seeding title %q: %v", name, err)
	}
	return title
}

func TestCreateTitleRequiresAdmin(t *testing.T) {
	server, database, _ := newTestServer(t)
	moderator := seedUser(t, database, "mod", "mod@example.com", models.RoleModerator)

	rr := doRequest(t, server, http.MethodPost, "/api/v1/titles/",
		bearerFor(t, moderator), `{"name":"Solaris","year":1972}`)
	wantErrorCode(t, rr, http.StatusForbidden, ErrCodeForbidden)

	rr = doRequest(t, server, http.MethodPost, "/api/v1/titles/",
		"", `{"name":"Solaris","year":1972}`)
	wantErrorCode(t, rr, http.StatusUnauthorized, ErrCodeUnauthorized)
}

func TestCreateTitleRejectsFutureYear(t *testing.T) {
	server, database, _ := newTestServer(t)
	admin := seedUser(t, database, "admin", "admin@example.com", models.RoleAdmin)

	body := fmt.Sprintf(`{"name":"Tomorrow","year":%d}`, time.Now().Year()+1)
	rr := doRequest(t, server, http.MethodPost, "/api/v1/titles/", bearerFor(t, admin), body)
	wantErrorCode(t, rr, http.StatusBadRequest, ErrCodeInvalidRequest)

	resp := decodeBody[ErrorResponse](t, rr)
	if resp.Error.Field != "year" {
		t.Errorf("error.field = %q, want %q", resp.Error.Field, "year")
	}
}

func TestCreateTitleResolvesCategoryAndGenres(t *testing.T) {
	server, database, _ := newTestServer(t)
	admin := seedUser(t, database, "admin", "admin@example.com", models.RoleAdmin)

	if _, err := db.NewCategoryRepository(database).Create(context.Background(), "Film", "film"); err != nil {
		t.Fatalf("seeding category: %v", err)
	}
	for _, g := range [][2]string{{"Drama", "drama"}, {"Sci-Fi", "sci-fi"}} {
		if _, err := db.NewGenreRepository(database).Create(context.Background(), g[0], g[1]); err != nil {
			t.Fatalf("seeding genre %q: %v", g[1], err)
		}
	}

	rr := doRequest(t, server, http.MethodPost, "/api/v1/titles/", bearerFor(t, admin),
		`{"name":"Stalker","year":1979,"category":"film","genres":["drama","sci-fi"]}`)
	wantStatus(t, rr, http.StatusCreated)

	title := decodeBody[models.Title](t, rr)
	if title.Category == nil || title.Category.Slug != "film" {
		t.Errorf("Category = %+v, want slug %q", title.Category, "film")
	}
	if len(title.Genres) != 2 {
		t.Errorf("Genres = %d, want 2", len(title.Genres))
	}
	if title.Rating != nil {
		t.Errorf("Rating = %v, want nil for a fresh title", *title.Rating)
	}
}

func TestCreateTitleUnknownCategorySlug(t *testing.T) {
	server, database, _ := newTestServer(t)
	admin := seedUser(t, database, "admin", "admin@example.com", models.RoleAdmin)

	rr := doRequest(t, server, http.MethodPost, "/api/v1/titles/", bearerFor(t, admin),
		`{"name":"Stalker","year":1979,"category":"no-such"}`)
	wantErrorCode(t, rr, http.StatusBadRequest, ErrCodeInvalidRequest)

	resp := decodeBody[ErrorResponse](t, rr)
	if resp.Error.Field != "category" {
		t.Errorf("error.field = %q, want %q", resp.Error.Field, "category")
	}
}

func TestTitleRatingIsAverageOfScores(t *testing.T) {
	server, database, _ := newTestServer(t)
	title := seedTitle(t, database, "Mirror", 1975)
	alice := seedUser(t, database, "alice", "alice@example.com", models.RoleUser)
	bob := seedUser(t, database, "bob", "bob@example.com", models.RoleUser)

	reviews := db.NewReviewRepository(database)
	if _, err := reviews.Create(context.Background(), title.ID, alice.ID, 8, "dense"); err != nil {
		t.Fatalf("creating review: %v", err)
	}
	if _, err := reviews.Create(context.Background(), title.ID, bob.ID, 4, "slow"); err != nil {
		t.Fatalf("creating review: %v", err)
	}

	rr := doRequest(t, server, http.MethodGet, "/api/v1/titles/"+title.ID, "", "")
	wantStatus(t, rr, http.StatusOK)

	got := decodeBody[models.Title](t, rr)
	if got.Rating == nil || *got.Rating != 6.0 {
		t.Errorf("Rating = %v, want 6.0", got.Rating)
	}
}

func TestTitleWithoutReviewsHasNullRating(t *testing.T) {
	server, database, _ := newTestServer(t)
	title := seedTitle(t, database, "Nostalghia", 1983)

	rr := doRequest(t, server, http.MethodGet, "/api/v1/titles/"+title.ID, "", "")
	wantStatus(t, rr, http.StatusOK)

	// The field must render as an explicit null, not 0.
	if !strings.Contains(rr.Body.String(), `"rating":null`) {
		t.Errorf("body = %s, want rating null", rr.Body.String())
	}
}

func TestAnonymousCanListTitles(t *testing.T) {
	server, database, _ := newTestServer(t)
	seedTitle(t, database, "Ivan's Childhood", 1962)

	rr := doRequest(t, server, http.MethodGet, "/api/v1/titles/", "", "")
	wantStatus(t, rr, http.StatusOK)

	titles := decodeBody[[]models.Title](t, rr)
	if len(titles) != 1 {
		t.Errorf("titles = %d, want 1", len(titles))
	}
}

func TestUpdateTitleClearsCategory(t *testing.T) {
	server, database, _ := newTestServer(t)
	admin := seedUser(t, database, "admin", "admin@example.com", models.RoleAdmin)

	category, err := db.NewCategoryRepository(database).Create(context.Background(), "Film", "film")
	if err != nil {
		t.Fatalf("seeding category: %v", err)
	}
	title, err := db.NewTitleRepository(database).Create(context.Background(), "Andrei Rublev", 1966, "", &category.ID, nil)
	if err != nil {
		t.Fatalf("seeding title: %v", err)
	}

	rr := doRequest(t, server, http.MethodPatch, "/api/v1/titles/"+title.ID,
		bearerFor(t, admin), `{"category":""}`)
	wantStatus(t, rr, http.StatusOK)

	got := decodeBody[models.Title](t, rr)
	if got.Category != nil {
		t.Errorf("Category = %+v, want nil after clearing", got.Category)
	}
}

func TestDeleteTitleCascades(t *testing.T) {
	server, database, _ := newTestServer(t)
	admin := seedUser(t, database, "admin", "admin@example.com", models.RoleAdmin)
	author := seedUser(t, database, "alice", "alice@example.com", models.RoleUser)
	title := seedTitle(t, database, "Stalker", 1979)

	rev, err := db.NewReviewRepository(database).Create(context.Background(), title.ID, author.ID, 9, "zone")
	if err != nil {
		t.Fatalf("seeding review: %v", err)
	}

	rr := doRequest(t, server, http.MethodDelete, "/api/v1/titles/"+title.ID, bearerFor(t, admin), "")
	wantStatus(t, rr, http.StatusNoContent)

	if _, err := db.NewReviewRepository(database).FindByID(context.Background(), rev.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("FindByID() after title delete error = %v, want ErrNotFound", err)
	}
}

func TestGetUnknownTitle(t *testing.T) {
	server, _, _ := newTestServer(t)

	rr := doRequest(t, server, http.MethodGet, "/api/v1/titles/ttl_missing", "", "")
	wantErrorCode(t, rr, http.StatusNotFound, ErrCodeNotFound)
}
