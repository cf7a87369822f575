package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebwren/inkwell/backend/api/v1/models"
)

var (
	ErrUsernameExists = errors.New("username already exists")
	ErrUserNotFound   = errors.New("user does not exist")
	ErrDatabaseError  = errors.New("database error occurred")
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// UserStore owns the users table. Usernames are stored lowercased so
// uniqueness is case-insensitive.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	user.Username = normalizeUsername(user.Username)
	user.CreatedAt = time.Now()

	query := `
		INSERT INTO users (id, username, password_hash, content, cover, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Content,
		user.Cover,
		user.CreatedAt,
	)
	if err != nil {
		// The unique index is the source of truth; no pre-check, so two
		// racing registrations cannot both win.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: username '%s' is already taken", ErrUsernameExists, user.Username)
		}
		return fmt.Errorf("%w: failed to create user", ErrDatabaseError)
	}

	return nil
}

// GetByUsername returns the full record including the password hash, for
// credential checks only.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, content, cover, created_at
		FROM users
		WHERE username = $1`

	var user models.User
	err := s.pool.QueryRow(ctx, query, normalizeUsername(username)).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Content,
		&user.Cover,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: failed to retrieve user", ErrDatabaseError)
	}

	return &user, nil
}

// GetByID returns the public projection of a user. The password hash is
// never selected here.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, username, content, cover, created_at
		FROM users
		WHERE id = $1`

	var user models.User
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Content,
		&user.Cover,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: failed to retrieve user", ErrDatabaseError)
	}

	return &user, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
