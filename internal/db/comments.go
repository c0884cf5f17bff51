package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reviewhub/internal/models"
)

type CommentRepository struct {
	db *DB
}

func NewCommentRepository(db *DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, reviewID, authorID, text string) (*models.Comment, error) {
	id, err := GenerateID("cmt")
	if err != nil {
		return nil, fmt.Errorf("generating comment ID: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO comments (id, review_id, author_id, text, pub_date) VALUES (?, ?, ?, ?, ?)`,
		id, reviewID, authorID, text, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	return r.FindByID(ctx, id)
}

func (r *CommentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, commentSelect+`WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying comment: %w", err)
	}
	return c, nil
}

func (r *CommentRepository) FindByReview(ctx context.Context, reviewID string) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, commentSelect+`WHERE c.review_id = ? ORDER BY c.pub_date DESC`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) UpdateText(ctx context.Context, id, text string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE comments SET text = ? WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("updating comment: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	return checkRowsAffected(result)
}

const commentSelect = `
SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
FROM comments c
JOIN users u ON u.id = c.author_id
`

func scanComment(row rowScanner) (*models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Author, &c.Text, &c.PubDate)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
