package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reviewhub/internal/models"
)

type TitleRepository struct {
	db *DB
}

func NewTitleRepository(db *DB) *TitleRepository {
	return &TitleRepository{db: db}
}

func (r *TitleRepository) Create(ctx context.Context, name string, year int, description string, categoryID *string, genreIDs []string) (*models.Title, error) {
	id, err := GenerateID("ttl")
	if err != nil {
		return nil, fmt.Errorf("generating title ID: %w", err)
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO titles (id, name, year, description, category_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, year, description, categoryID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating title: %w", err)
	}

	if err := replaceGenres(ctx, tx, id, genreIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing title create: %w", err)
	}

	return r.FindByID(ctx, id)
}

func (r *TitleRepository) FindByID(ctx context.Context, id string) (*models.Title, error) {
	t, err := r.scanTitle(r.db.QueryRowContext(ctx, titleSelect+`WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying title: %w", err)
	}

	if err := r.attachGenres(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TitleRepository) FindAll(ctx context.Context) ([]*models.Title, error) {
	rows, err := r.db.QueryContext(ctx, titleSelect+`ORDER BY t.year DESC, t.name`)
	if err != nil {
		return nil, fmt.Errorf("querying titles: %w", err)
	}
	defer rows.Close()

	var titles []*models.Title
	for rows.Next() {
		t, err := r.scanTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range titles {
		if err := r.attachGenres(ctx, t); err != nil {
			return nil, err
		}
	}
	return titles, nil
}

// TitleUpdate carries a partial update; nil pointers leave the stored
// value untouched. SetCategory/SetGenres distinguish "change to
// nothing" from "leave alone".
type TitleUpdate struct {
	Name        *string
	Year        *int
	Description *string
	SetCategory bool
	CategoryID  *string
	SetGenres   bool
	GenreIDs    []string
}

func (r *TitleRepository) Update(ctx context.Context, id string, upd TitleUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	sets := ""
	var args []any
	appendSet := func(column string, value any) {
		if sets != "" {
			sets += ", "
		}
		sets += column + " = ?"
		args = append(args, value)
	}

	if upd.Name != nil {
		appendSet("name", *upd.Name)
	}
	if upd.Year != nil {
		appendSet("year", *upd.Year)
	}
	if upd.Description != nil {
		appendSet("description", *upd.Description)
	}
	if upd.SetCategory {
		appendSet("category_id", upd.CategoryID)
	}

	if sets != "" {
		result, err := tx.ExecContext(ctx, `UPDATE titles SET `+sets+` WHERE id = ?`, append(args, id)...)
		if err != nil {
			return fmt.Errorf("updating title: %w", err)
		}
		if err := checkRowsAffected(result); err != nil {
			return err
		}
	}

	if upd.SetGenres {
		if _, err := tx.ExecContext(ctx, `DELETE FROM title_genres WHERE title_id = ?`, id); err != nil {
			return fmt.Errorf("clearing title genres: %w", err)
		}
		if err := replaceGenres(ctx, tx, id, upd.GenreIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing title update: %w", err)
	}
	return nil
}

// Delete removes the title; its reviews and their comments cascade.
func (r *TitleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM titles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting title: %w", err)
	}
	return checkRowsAffected(result)
}

// ScoresByTitle returns the raw review scores for a title; the mean is
// computed by the caller at read time.
func (r *TitleRepository) ScoresByTitle(ctx context.Context, id string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT score FROM reviews WHERE title_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying review scores: %w", err)
	}
	defer rows.Close()

	var scores []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

const titleSelect = `
SELECT t.id, t.name, t.year, t.description, t.created_at,
       c.id, c.name, c.slug
FROM titles t
LEFT JOIN categories c ON c.id = t.category_id
`

func (r *TitleRepository) scanTitle(row rowScanner) (*models.Title, error) {
	var t models.Title
	var catID, catName, catSlug sql.NullString

	err := row.Scan(
		&t.ID, &t.Name, &t.Year, &t.Description, &t.CreatedAt,
		&catID, &catName, &catSlug,
	)
	if err != nil {
		return nil, err
	}

	if catID.Valid {
		t.Category = &models.Category{ID: catID.String, Name: catName.String, Slug: catSlug.String}
	}
	return &t, nil
}

func (r *TitleRepository) attachGenres(ctx context.Context, t *models.Title) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.slug
		FROM genres g
		JOIN title_genres tg ON tg.genre_id = g.id
		WHERE tg.title_id = ?
		ORDER BY g.slug`, t.ID)
	if err != nil {
		return fmt.Errorf("querying title genres: %w", err)
	}
	defer rows.Close()

	t.Genres = []models.Genre{}
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return fmt.Errorf("scanning genre: %w", err)
		}
		t.Genres = append(t.Genres, g)
	}
	return rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func replaceGenres(ctx context.Context, tx execer, titleID string, genreIDs []string) error {
	for _, genreID := range genreIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO title_genres (title_id, genre_id) VALUES (?, ?)`,
			titleID, genreID,
		)
		if err != nil {
			return fmt.Errorf("linking genre: %w", err)
		}
	}
	return nil
}
