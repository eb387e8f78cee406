package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/parrotlabs/parrot/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development
// fallback when no DATABASE_URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/parrot.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/parrot.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		clerk_id TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertUser inserts or updates a user keyed by the external identity id.
func (s *SQLiteStore) UpsertUser(ctx context.Context, update UserUpdate) (*models.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, clerk_id, email, name, image_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (clerk_id) DO UPDATE
		SET email = excluded.email,
		    name = excluded.name,
		    image_url = excluded.image_url,
		    updated_at = CURRENT_TIMESTAMP`,
		uuid.New().String(), update.ClerkID, update.Email, update.Name, update.ImageURL,
	)
	if err != nil {
		return nil, err
	}
	return s.GetUserByClerkID(ctx, update.ClerkID)
}

// GetUserByClerkID retrieves a user by external identity id. Returns
// nil when no user matches.
func (s *SQLiteStore) GetUserByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	var user models.User
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, clerk_id, email, name, image_url, created_at, updated_at
		FROM users WHERE clerk_id = ?`,
		clerkID,
	).Scan(&id, &user.ClerkID, &user.Email, &user.Name, &user.ImageURL, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CountUsers returns the total number of synchronized users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
