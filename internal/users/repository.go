package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/hnatiuk/accounts/internal/apperror"
)

// Repository defines the data access contract for account operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
// Every update is a single-row statement, so the database's per-row
// atomicity covers the read-modify-write of session_token; concurrent
// logins are last-write-wins, which is consistent with the
// single-session-per-account policy.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateSessionToken(ctx context.Context, id, token string) error
	UpdateSubscription(ctx context.Context, id, subscription string) error
	UpdateAvatarURL(ctx context.Context, id, avatarURL string) error
}

// mysqlDuplicateEntry is the MySQL error number for unique-key violations.
const mysqlDuplicateEntry = 1062

// userRepository implements Repository with hand-written MySQL queries.
type userRepository struct {
	db *sql.DB
}

// NewRepository creates an account repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &userRepository{db: db}
}

// Create inserts a new account row. A duplicate email surfaces as a
// conflict even if it raced past the service's pre-check.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, email, password_hash, avatar_url, subscription, session_token, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.AvatarURL,
		user.Subscription,
		user.SessionToken,
		user.CreatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return apperror.NewConflict("Email in Use")
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// FindByID retrieves an account by its UUID.
// Returns apperror.NotFound if no account exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, email, password_hash, avatar_url, subscription, session_token, created_at
	          FROM users WHERE id = ?`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.Subscription,
		&user.SessionToken,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}

	return user, nil
}

// FindByEmail retrieves an account by its email address (exact match).
// Returns apperror.NotFound if no account exists with this email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, email, password_hash, avatar_url, subscription, session_token, created_at
	          FROM users WHERE email = ?`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.Subscription,
		&user.SessionToken,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}

	return user, nil
}

// EmailExists returns true if an account with the given email already
// exists. Used during signup to check for duplicates before hashing the
// password.
func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}

	return exists, nil
}

// UpdateSessionToken overwrites the stored session token. An empty token
// clears the session. Updating an already-cleared token is a no-op, which
// keeps logout idempotent.
func (r *userRepository) UpdateSessionToken(ctx context.Context, id, token string) error {
	query := `UPDATE users SET session_token = ? WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, token, id)
	if err != nil {
		return fmt.Errorf("updating session token: %w", err)
	}

	return nil
}

// UpdateSubscription sets the subscription tier for an account.
func (r *userRepository) UpdateSubscription(ctx context.Context, id, subscription string) error {
	query := `UPDATE users SET subscription = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, subscription, id)
	if err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		// Distinguish a missing row from an unchanged value.
		exists, err := r.idExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return apperror.NewNotFound("user not found")
		}
	}

	return nil
}

// UpdateAvatarURL sets the stored avatar reference for an account.
func (r *userRepository) UpdateAvatarURL(ctx context.Context, id, avatarURL string) error {
	query := `UPDATE users SET avatar_url = ? WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, avatarURL, id)
	if err != nil {
		return fmt.Errorf("updating avatar url: %w", err)
	}

	return nil
}

// idExists reports whether an account row with the given ID exists.
func (r *userRepository) idExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return exists, nil
}
