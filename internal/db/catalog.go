package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reviewhub/internal/models"
)

// CategoryRepository and GenreRepository share the same shape: a named,
// slug-keyed lookup table. Deleting a category detaches its titles
// (ON DELETE SET NULL); deleting a genre only removes the association.

type CategoryRepository struct {
	db *DB
}

func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, name, slug string) (*models.Category, error) {
	id, err := insertSlugged(ctx, r.db, "categories", "cat", name, slug)
	if err != nil {
		return nil, err
	}
	return &models.Category{ID: id, Name: name, Slug: slug}, nil
}

func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM categories WHERE slug = ?`, slug,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying category: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepository) FindAll(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) DeleteBySlug(ctx context.Context, slug string) error {
	return deleteBySlug(ctx, r.db, "categories", slug)
}

type GenreRepository struct {
	db *DB
}

func NewGenreRepository(db *DB) *GenreRepository {
	return &GenreRepository{db: db}
}

func (r *GenreRepository) Create(ctx context.Context, name, slug string) (*models.Genre, error) {
	id, err := insertSlugged(ctx, r.db, "genres", "gen", name, slug)
	if err != nil {
		return nil, err
	}
	return &models.Genre{ID: id, Name: name, Slug: slug}, nil
}

func (r *GenreRepository) FindBySlug(ctx context.Context, slug string) (*models.Genre, error) {
	var g models.Genre
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM genres WHERE slug = ?`, slug,
	).Scan(&g.ID, &g.Name, &g.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying genre: %w", err)
	}
	return &g, nil
}

func (r *GenreRepository) FindAll(ctx context.Context) ([]models.Genre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, slug FROM genres ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("querying genres: %w", err)
	}
	defer rows.Close()

	var genres []models.Genre
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, fmt.Errorf("scanning genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func (r *GenreRepository) DeleteBySlug(ctx context.Context, slug string) error {
	return deleteBySlug(ctx, r.db, "genres", slug)
}

func insertSlugged(ctx context.Context, db *DB, table, prefix, name, slug string) (string, error) {
	id, err := GenerateID(prefix)
	if err != nil {
		return "", fmt.Errorf("generating ID: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, name, slug) VALUES (?, ?, ?)`,
		id, name, slug,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("inserting into %s: %w", table, err)
	}
	return id, nil
}

func deleteBySlug(ctx context.Context, db *DB, table, slug string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return checkRowsAffected(result)
}
