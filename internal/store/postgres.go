package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parrotlabs/parrot/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		clerk_id TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertUser inserts or updates a user keyed by the external identity id.
func (s *PostgresStore) UpsertUser(ctx context.Context, update UserUpdate) (*models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (clerk_id, email, name, image_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (clerk_id) DO UPDATE
		SET email = EXCLUDED.email,
		    name = EXCLUDED.name,
		    image_url = EXCLUDED.image_url,
		    updated_at = now()
		RETURNING id, clerk_id, email, name, image_url, created_at, updated_at`,
		update.ClerkID, update.Email, update.Name, update.ImageURL,
	).Scan(&user.ID, &user.ClerkID, &user.Email, &user.Name, &user.ImageURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByClerkID retrieves a user by external identity id. Returns
// nil when no user matches.
func (s *PostgresStore) GetUserByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, clerk_id, email, name, image_url, created_at, updated_at
		FROM users WHERE clerk_id = $1`,
		clerkID,
	).Scan(&user.ID, &user.ClerkID, &user.Email, &user.Name, &user.ImageURL, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CountUsers returns the total number of synchronized users.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
