package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"reviewhub/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. Self-registered users start inactive;
// admin-created users are active immediately. Email and username
// uniqueness is enforced by the schema.
func (r *UserRepository) Create(ctx context.Context, email, username string, role models.Role, active bool) (*models.User, error) {
	id, err := GenerateID("usr")
	if err != nil {
		return nil, fmt.Errorf("generating user ID: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, role, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, username, email, role, active, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return &models.User{
		ID:        id,
		Username:  username,
		Email:     email,
		Role:      role,
		IsActive:  active,
		CreatedAt: now,
	}, nil
}

// DeriveUsername turns the local part of an email address into a free
// username, appending an incrementing numeric suffix until no existing
// user claims it.
func (r *UserRepository) DeriveUsername(ctx context.Context, local string) (string, error) {
	candidate := local
	for counter := 1; ; counter++ {
		var count int
		err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE username = ?`, candidate,
		).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("checking username availability: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = local + strconv.Itoa(counter)
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, `WHERE id = ?`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `WHERE email = ?`, email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, `WHERE username = ?`, username)
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, userSelect+` ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// Activate flips is_active in a single statement, so concurrent
// verifications of the same user cannot interleave inconsistent state.
// Activating an already-active user is a no-op that still succeeds.
func (r *UserRepository) Activate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("activating user: %w", err)
	}
	return checkRowsAffected(result)
}

// ProfileUpdate carries the mutable profile fields; nil pointers leave
// the stored value untouched.
type ProfileUpdate struct {
	Username  *string
	FirstName *string
	LastName  *string
	Bio       *string
	Role      *models.Role
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	appendSet := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if upd.Username != nil {
		appendSet("username", *upd.Username)
	}
	if upd.FirstName != nil {
		appendSet("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		appendSet("last_name", *upd.LastName)
	}
	if upd.Bio != nil {
		appendSet("bio", *upd.Bio)
	}
	if upd.Role != nil {
		appendSet("role", *upd.Role)
	}

	query := "UPDATE users SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += " WHERE id = ?"
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("updating user profile: %w", err)
	}
	return checkRowsAffected(result)
}

// Delete removes the user; reviews and comments cascade in the schema.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return checkRowsAffected(result)
}

const userSelect = `SELECT id, username, email, role, is_active, first_name, last_name, bio, created_at, updated_at FROM users `

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var updatedAt sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Role,
		&u.IsActive,
		&u.FirstName,
		&u.LastName,
		&u.Bio,
		&u.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.UpdatedAt = nullTimeToPtr(updatedAt)
	return &u, nil
}

func (r *UserRepository) findOne(ctx context.Context, where string, args ...any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, userSelect+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}
