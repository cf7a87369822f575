package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebwren/inkwell/backend/api/v1/models"
)

var (
	ErrPostNotFound = errors.New("post does not exist")
	ErrNotAuthor    = errors.New("author and editor are different")
)

// listLimit caps the public feed. There is no pagination cursor; every
// call returns only the newest entries.
const listLimit = 20

type PostStore struct {
	pool *pgxpool.Pool
}

func NewPostStore(pool *pgxpool.Pool) *PostStore {
	return &PostStore{pool: pool}
}

func (s *PostStore) Create(ctx context.Context, post *models.Post) error {
	post.ID = uuid.New()
	post.CreatedAt = time.Now()

	query := `
		INSERT INTO posts (id, title, summary, content, cover, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		post.ID,
		post.Title,
		post.Summary,
		post.Content,
		post.Cover,
		post.Author.ID,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to create post", ErrDatabaseError)
	}

	return nil
}

// List returns the newest posts, capped at 20, with the author reduced
// to id and username.
func (s *PostStore) List(ctx context.Context) ([]models.Post, error) {
	query := `
		SELECT p.id, p.title, p.summary, p.content, p.cover, p.created_at,
		       u.id, u.username
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, listLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list posts", ErrDatabaseError)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var post models.Post
		err := rows.Scan(
			&post.ID,
			&post.Title,
			&post.Summary,
			&post.Content,
			&post.Cover,
			&post.CreatedAt,
			&post.Author.ID,
			&post.Author.Username,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan post", ErrDatabaseError)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate posts", ErrDatabaseError)
	}

	return posts, nil
}

func (s *PostStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	query := `
		SELECT p.id, p.title, p.summary, p.content, p.cover, p.created_at,
		       u.id, u.username
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $1`

	var post models.Post
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&post.ID,
		&post.Title,
		&post.Summary,
		&post.Content,
		&post.Cover,
		&post.CreatedAt,
		&post.Author.ID,
		&post.Author.Username,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("%w: failed to retrieve post", ErrDatabaseError)
	}

	return &post, nil
}

// Update applies a partial edit after checking the editor is the author.
// The author reference comes from the row, the editor id from the
// verified session claims; uuid values compare by value, so ids that
// crossed layers still match.
func (s *PostStore) Update(ctx context.Context, id, editorID uuid.UUID, upd models.PostUpdate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to start transaction", ErrDatabaseError)
	}
	defer tx.Rollback(ctx)

	var authorID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = $1`, id).Scan(&authorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPostNotFound
		}
		return fmt.Errorf("%w: failed to retrieve post for update", ErrDatabaseError)
	}

	if authorID != editorID {
		return ErrNotAuthor
	}

	set, args := buildPostUpdate(upd)
	if len(set) == 0 {
		// Nothing supplied; treat as a successful no-op edit.
		return tx.Commit(ctx)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE posts SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: failed to update post", ErrDatabaseError)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit update", ErrDatabaseError)
	}

	return nil
}

// buildPostUpdate returns SET clauses for the fields actually supplied.
// Absent fields keep their stored value: a merge, not a replace. The
// author reference is not updatable.
func buildPostUpdate(upd models.PostUpdate) ([]string, []any) {
	var set []string
	var args []any

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("title", upd.Title)
	add("summary", upd.Summary)
	add("content", upd.Content)
	add("cover", upd.Cover)

	return set, args
}
