package store

import (
	"context"
	"errors"
	"time"

	"notely/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique constraint (user email) is violated.
	ErrDuplicate = errors.New("store: duplicate")
)

// UserQuery selects users for share candidate listings.
type UserQuery struct {
	Search     string
	ExcludeIDs []string
	Offset     int
	Limit      int
}

// Store defines the interface for all database operations
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	SearchUsers(ctx context.Context, q UserQuery) ([]models.User, int, error)

	// Reverse index: user -> note ids
	AddUserNote(ctx context.Context, userID, noteID string) error
	RemoveUserNote(ctx context.Context, userID, noteID string) error
	ListUserNoteIDs(ctx context.Context, userID string) ([]string, error)

	// Notes. SaveNote replaces the note row, its tags and its share list together.
	CreateNote(ctx context.Context, n *models.Note) error
	GetNote(ctx context.Context, id string) (*models.Note, error)
	SaveNote(ctx context.Context, n *models.Note) error
	DeleteNote(ctx context.Context, id string) error
	ListAccessibleNotes(ctx context.Context, userID string, f models.NoteFilter) ([]models.Note, error)

	// Aggregates
	CountNotesByOwner(ctx context.Context, limit int) ([]models.UserNoteCount, error)
	CountTags(ctx context.Context, limit int) ([]models.TagCount, error)
	NoteCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error)

	Close() error
}
