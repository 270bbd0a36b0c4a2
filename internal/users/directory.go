// Package users is the user directory: registration, credential checks,
// lookup, promotion and share candidate search.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"notely/internal/apperr"
	"notely/internal/models"
	"notely/internal/store"
)

type Directory struct {
	store store.Store
	log   zerolog.Logger
	cost  int
}

func NewDirectory(s store.Store, log zerolog.Logger) *Directory {
	return &Directory{store: s, log: log.With().Str("component", "users").Logger(), cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost, mainly to keep tests fast.
func (d *Directory) WithHashCost(cost int) *Directory {
	d.cost = cost
	return d
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *Directory) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.Validation("All fields are required")
	}

	if _, err := d.store.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("User already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("looking up user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return nil, apperr.Internal("hashing password", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		Role:         models.RoleMember,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := d.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal("creating user", err)
	}

	d.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

func (d *Directory) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password required")
	}

	user, err := d.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal("looking up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	return user, nil
}

func (d *Directory) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := d.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("loading user", err)
	}
	return user, nil
}

func (d *Directory) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := d.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("loading user", err)
	}
	return user, nil
}

// Lookup resolves ids to users; unknown ids are absent from the result.
func (d *Directory) Lookup(ctx context.Context, ids []string) (map[string]*models.User, error) {
	found, err := d.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("loading users", err)
	}
	return found, nil
}

// Promote makes userID an admin. Only admins may promote.
func (d *Directory) Promote(ctx context.Context, actor models.Actor, userID string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("Admin access required")
	}
	user, err := d.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		return nil, apperr.Validation("User is already an admin")
	}
	if err := d.store.UpdateUserRole(ctx, user.ID, models.RoleAdmin); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("promoting user", err)
	}
	user.Role = models.RoleAdmin

	d.log.Info().Str("user_id", user.ID).Str("by", actor.ID).Msg("user promoted to admin")
	return user, nil
}

// Search returns one page of users matching term, excluding the given ids.
func (d *Directory) Search(ctx context.Context, term string, exclude []string, offset, limit int) ([]models.User, int, error) {
	users, total, err := d.store.SearchUsers(ctx, store.UserQuery{
		Search:     term,
		ExcludeIDs: exclude,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		return nil, 0, apperr.Internal("searching users", err)
	}
	return users, total, nil
}

// NoteIDs returns the user's reverse index entries.
func (d *Directory) NoteIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := d.store.ListUserNoteIDs(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("loading user notes", err)
	}
	return ids, nil
}

// LinkNote and UnlinkNote maintain the reverse index. They are best-effort:
// the note's share list is authoritative, so callers log failures instead of failing.
func (d *Directory) LinkNote(ctx context.Context, userID, noteID string) error {
	return d.store.AddUserNote(ctx, userID, noteID)
}

func (d *Directory) UnlinkNote(ctx context.Context, userID, noteID string) error {
	return d.store.RemoveUserNote(ctx, userID, noteID)
}
