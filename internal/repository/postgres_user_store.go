package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/yourorg/collabcore/internal/domain"
	"github.com/yourorg/collabcore/pkg/cache"
)

// userCacheTTL bounds staleness of cached reads. The store is the single
// writer and invalidates on every mutation, so the TTL only matters if an
// out-of-band writer touches the table.
const userCacheTTL = 30 * time.Second

// PostgresUserStore implements domain.UserStore using PostgreSQL. Session
// ids and reset codes are stored as text arrays on the user row; GIN indexes
// keep the by-value lookups sub-linear. ID and email reads go through a
// short-TTL cache invalidated on every write.
type PostgresUserStore struct {
	db     *sql.DB
	cache  *cache.Cache
	logger *slog.Logger
}

// NewPostgresUserStore creates a store over an open connection pool.
func NewPostgresUserStore(db *sql.DB, logger *slog.Logger) *PostgresUserStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{db: db, cache: cache.New(), logger: logger}
}

// Migrate creates the users table and its lookup indexes if missing.
func (r *PostgresUserStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			handle TEXT UNIQUE NOT NULL,
			permission INT NOT NULL,
			profile_image TEXT NOT NULL DEFAULT '',
			sessions TEXT[] NOT NULL DEFAULT '{}',
			reset_codes TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_sessions ON users USING GIN (sessions)`,
		`CREATE INDEX IF NOT EXISTS idx_users_reset_codes ON users USING GIN (reset_codes)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

const userColumns = `id, email, password_hash, first_name, last_name, handle,
	permission, profile_image, sessions, reset_codes, created_at, updated_at`

// Create inserts the record; the database assigns the sequential id.
func (r *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, handle, permission, profile_image, sessions, reset_codes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Handle,
		int(user.Permission),
		user.ProfileImage,
		pq.Array(setToSlice(user.Sessions)),
		pq.Array(setToSlice(user.ResetCodes)),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Validationf("email or handle already in use")
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}
	r.cache.Invalidate("user:")
	return nil
}

func (r *PostgresUserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	key := fmt.Sprintf("user:id:%d", id)
	if v, ok := r.cache.Get(key); ok {
		return v.(*domain.User).Clone(), nil
	}
	u, err := r.getOne(ctx, "id = $1", int64(id))
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, u.Clone(), userCacheTTL)
	return u, nil
}

func (r *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	key := "user:email:" + email
	if v, ok := r.cache.Get(key); ok {
		return v.(*domain.User).Clone(), nil
	}
	u, err := r.getOne(ctx, "email = $1", email)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, u.Clone(), userCacheTTL)
	return u, nil
}

func (r *PostgresUserStore) GetByHandle(ctx context.Context, handle string) (*domain.User, error) {
	return r.getOne(ctx, "handle = $1", handle)
}

// GetBySession and GetByResetCode deliberately bypass the cache: both decide
// whether a secret is currently live, so they always hit the table.
func (r *PostgresUserStore) GetBySession(ctx context.Context, sessionID string) (*domain.User, error) {
	return r.getOne(ctx, "$1 = ANY(sessions)", sessionID)
}

func (r *PostgresUserStore) GetByResetCode(ctx context.Context, code string) (*domain.User, error) {
	return r.getOne(ctx, "$1 = ANY(reset_codes)", code)
}

// Update replaces every mutable column of the record matching user.ID.
func (r *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $1, password_hash = $2, first_name = $3, last_name = $4,
			handle = $5, permission = $6, profile_image = $7,
			sessions = $8, reset_codes = $9, updated_at = now()
		WHERE id = $10
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Handle,
		int(user.Permission),
		user.ProfileImage,
		pq.Array(setToSlice(user.Sessions)),
		pq.Array(setToSlice(user.ResetCodes)),
		int64(user.ID),
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.Validationf("email or handle already in use")
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	r.cache.Invalidate("user:")
	return nil
}

func (r *PostgresUserStore) List(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PostgresUserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *PostgresUserStore) Handles(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT handle FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to list handles: %w", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan handle: %w", err)
		}
		out[h] = struct{}{}
	}
	return out, rows.Err()
}

func (r *PostgresUserStore) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var (
		id         int64
		permission int
		sessions   []string
		resetCodes []string
	)
	err := row.Scan(
		&id,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Handle,
		&permission,
		&u.ProfileImage,
		pq.Array(&sessions),
		pq.Array(&resetCodes),
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.ID = domain.UserID(id)
	u.Permission = domain.Permission(permission)
	u.Sessions = sliceToSet(sessions)
	u.ResetCodes = sliceToSet(resetCodes)
	return u, nil
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

func sliceToSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
