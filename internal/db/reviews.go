package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reviewhub/internal/models"
)

type ReviewRepository struct {
	db *DB
}

func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review. The (title_id, author_id) UNIQUE constraint
// is the backstop against concurrent duplicate creates: the handler
// pre-checks for a friendlier error, but under a race exactly one
// insert wins and the rest surface ErrDuplicate.
func (r *ReviewRepository) Create(ctx context.Context, titleID, authorID string, score int, text string) (*models.Review, error) {
	id, err := GenerateID("rev")
	if err != nil {
		return nil, fmt.Errorf("generating review ID: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, title_id, author_id, score, text, pub_date) VALUES (?, ?, ?, ?, ?, ?)`,
		id, titleID, authorID, score, text, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating review: %w", err)
	}

	return r.FindByID(ctx, id)
}

func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	rev, err := scanReview(r.db.QueryRowContext(ctx, reviewSelect+`WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying review: %w", err)
	}
	return rev, nil
}

func (r *ReviewRepository) FindByTitle(ctx context.Context, titleID string) ([]*models.Review, error) {
	rows, err := r.db.QueryContext(ctx, reviewSelect+`WHERE r.title_id = ? ORDER BY r.pub_date DESC`, titleID)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

// ExistsForAuthor reports whether the author already reviewed the title.
func (r *ReviewRepository) ExistsForAuthor(ctx context.Context, titleID, authorID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE title_id = ? AND author_id = ?`,
		titleID, authorID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking review existence: %w", err)
	}
	return count > 0, nil
}

// Update changes text and/or score; pub_date is immutable.
func (r *ReviewRepository) Update(ctx context.Context, id string, text *string, score *int) error {
	sets := ""
	var args []any
	if text != nil {
		sets = "text = ?"
		args = append(args, *text)
	}
	if score != nil {
		if sets != "" {
			sets += ", "
		}
		sets += "score = ?"
		args = append(args, *score)
	}
	if sets == "" {
		return nil
	}

	result, err := r.db.ExecContext(ctx, `UPDATE reviews SET `+sets+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return fmt.Errorf("updating review: %w", err)
	}
	return checkRowsAffected(result)
}

// Delete removes the review; its comments cascade.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting review: %w", err)
	}
	return checkRowsAffected(result)
}

const reviewSelect = `
SELECT r.id, r.title_id, r.author_id, u.username, r.score, r.text, r.pub_date
FROM reviews r
JOIN users u ON u.id = r.author_id
`

func scanReview(row rowScanner) (*models.Review, error) {
	var rev models.Review
	err := row.Scan(&rev.ID, &rev.TitleID, &rev.AuthorID, &rev.Author, &rev.Score, &rev.Text, &rev.PubDate)
	if err != nil {
		return nil, err
	}
	return &rev, nil
}
