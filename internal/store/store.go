package store

import (
	"context"

	"github.com/parrotlabs/parrot/internal/models"
)

// UserUpdate carries the identity-provider fields synchronized on a
// webhook event.
type UserUpdate struct {
	ClerkID  string
	Email    string
	Name     string
	ImageURL *string
}

// DataStore defines the interface for persistent storage of user records.
// Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	UpsertUser(ctx context.Context, update UserUpdate) (*models.User, error)
	GetUserByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}
