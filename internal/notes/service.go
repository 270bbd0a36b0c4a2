// Package notes implements the note lifecycle and sharing operations.
//
// Every operation loads the current note, asks the policy package for a
// decision and only then writes. The note row with its tags and share list is
// authoritative; the per-user reverse index is updated afterwards on a
// best-effort basis and failures there are logged, never returned.
package notes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"notely/internal/apperr"
	"notely/internal/models"
	"notely/internal/policy"
	"notely/internal/store"
	"notely/internal/users"
)

const (
	DefaultPageSize = 5
	MaxPageSize     = 100
)

type Service struct {
	store    store.Store
	users    *users.Directory
	log      zerolog.Logger
	now      func() time.Time
	pageSize int
}

type Option func(*Service)

// WithPageSize sets the share candidate page size used when a query gives none.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = min(n, MaxPageSize)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, dir *users.Directory, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		users:    dir,
		log:      log.With().Str("component", "notes").Logger(),
		now:      time.Now,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) load(ctx context.Context, id string) (*models.Note, error) {
	note, err := s.store.GetNote(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Note not found")
	}
	if err != nil {
		return nil, apperr.Internal("loading note", err)
	}
	return note, nil
}

func authorize(note *models.Note, actor models.Actor, op policy.Operation, denied string) error {
	if policy.Decide(note, actor, op) == policy.Deny {
		return apperr.Forbidden(denied)
	}
	return nil
}

func (s *Service) save(ctx context.Context, note *models.Note) error {
	note.UpdatedAt = s.now().UTC()
	if err := s.store.SaveNote(ctx, note); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Note not found")
		}
		return apperr.Internal("saving note", err)
	}
	return nil
}

func (s *Service) link(ctx context.Context, userID, noteID string) {
	if err := s.users.LinkNote(ctx, userID, noteID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("note_id", noteID).Msg("reverse index add failed")
	}
}

func (s *Service) unlink(ctx context.Context, userID, noteID string) {
	if err := s.users.UnlinkNote(ctx, userID, noteID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("note_id", noteID).Msg("reverse index remove failed")
	}
}

func (s *Service) CreateNote(ctx context.Context, actor models.Actor, in models.NoteInput) (*models.Note, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validation("Title and content are required")
	}

	now := s.now().UTC()
	note := &models.Note{
		ID:         uuid.NewString(),
		Title:      in.Title,
		Content:    in.Content,
		Tags:       models.NormalizeTags(in.Tags),
		OwnerID:    actor.ID,
		SharedWith: []models.ShareEntry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return nil, apperr.Internal("creating note", err)
	}
	s.link(ctx, actor.ID, note.ID)

	s.log.Debug().Str("note_id", note.ID).Str("owner_id", actor.ID).Msg("note created")
	return note, nil
}

// GetNote returns the note enriched with owner and share details and the
// caller's edit and delete permissions.
func (s *Service) GetNote(ctx context.Context, actor models.Actor, id string) (*models.NoteView, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(note, actor, policy.View, "Access denied"); err != nil {
		return nil, err
	}
	return s.view(ctx, note, actor)
}

func (s *Service) view(ctx context.Context, note *models.Note, actor models.Actor) (*models.NoteView, error) {
	ids := append([]string{note.OwnerID}, note.SharedUserIDs()...)
	found, err := s.users.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	v := &models.NoteView{
		ID:         note.ID,
		Title:      note.Title,
		Content:    note.Content,
		Tags:       note.Tags,
		IsArchived: note.IsArchived,
		OwnerID:    note.OwnerID,
		SharedWith: make([]models.SharedUser, 0, len(note.SharedWith)),
		CreatedAt:  note.CreatedAt,
		UpdatedAt:  note.UpdatedAt,
	}
	if owner, ok := found[note.OwnerID]; ok {
		ref := models.RefOf(owner)
		v.Owner = &ref
	}
	for _, e := range note.SharedWith {
		su := models.SharedUser{UserID: e.UserID, Access: e.Access}
		if u, ok := found[e.UserID]; ok {
			su.Name, su.Email = u.Name, u.Email
		}
		v.SharedWith = append(v.SharedWith, su)
	}
	v.CanEdit, v.CanDelete = policy.Permissions(note, actor)
	return v, nil
}

// UpdateNote applies a partial update. Content fields need edit rights; a
// sharedWith replacement additionally needs sharing rights.
func (s *Service) UpdateNote(ctx context.Context, actor models.Actor, id string, patch models.NotePatch) (*models.Note, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.TouchesContent() || patch.IsEmpty() {
		if err := authorize(note, actor, policy.EditContent, "Access denied"); err != nil {
			return nil, err
		}
	}
	if patch.SharedWith != nil {
		if err := authorize(note, actor, policy.EditSharing, "Only owner or admin can share"); err != nil {
			return nil, err
		}
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperr.Validation("Title cannot be empty")
		}
		note.Title = *patch.Title
	}
	if patch.Content != nil {
		if strings.TrimSpace(*patch.Content) == "" {
			return nil, apperr.Validation("Content cannot be empty")
		}
		note.Content = *patch.Content
	}
	if patch.Tags != nil {
		note.Tags = models.NormalizeTags(*patch.Tags)
	}
	if patch.IsArchived != nil {
		note.IsArchived = *patch.IsArchived
	}

	var added, removed []string
	if patch.SharedWith != nil {
		entries, err := s.normalizeShares(ctx, note.OwnerID, *patch.SharedWith)
		if err != nil {
			return nil, err
		}
		added, removed = diffShares(note.SharedWith, entries)
		note.SharedWith = entries
	}

	if err := s.save(ctx, note); err != nil {
		return nil, err
	}
	for _, uid := range added {
		s.link(ctx, uid, note.ID)
	}
	for _, uid := range removed {
		s.unlink(ctx, uid, note.ID)
	}
	return note, nil
}

// normalizeShares turns loose client entries into a share list: the owner is
// dropped and a repeated user keeps its first position with the last access.
func (s *Service) normalizeShares(ctx context.Context, ownerID string, in []models.ShareInput) ([]models.ShareEntry, error) {
	entries := make([]models.ShareEntry, 0, len(in))
	index := make(map[string]int, len(in))
	for _, raw := range in {
		e := raw.Normalize()
		if e.UserID == "" {
			return nil, apperr.Validation("Each shared entry needs a user id")
		}
		if e.UserID == ownerID {
			continue
		}
		if i, ok := index[e.UserID]; ok {
			entries[i].Access = e.Access
			continue
		}
		index[e.UserID] = len(entries)
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	found, err := s.users.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, apperr.NotFound("User not found")
		}
	}
	return entries, nil
}

func diffShares(before, after []models.ShareEntry) (added, removed []string) {
	old := make(map[string]bool, len(before))
	for _, e := range before {
		old[e.UserID] = true
	}
	kept := make(map[string]bool, len(after))
	for _, e := range after {
		kept[e.UserID] = true
		if !old[e.UserID] {
			added = append(added, e.UserID)
		}
	}
	for _, e := range before {
		if !kept[e.UserID] {
			removed = append(removed, e.UserID)
		}
	}
	return added, removed
}

// DeleteNote removes the note, then drops it from the owner's and every
// shared user's reverse index.
func (s *Service) DeleteNote(ctx context.Context, actor models.Actor, id string) error {
	note, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(note, actor, policy.Delete, "Only owner or admin can delete"); err != nil {
		return err
	}

	if err := s.store.DeleteNote(ctx, note.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Note not found")
		}
		return apperr.Internal("deleting note", err)
	}

	s.unlink(ctx, note.OwnerID, note.ID)
	for _, uid := range note.SharedUserIDs() {
		s.unlink(ctx, uid, note.ID)
	}

	s.log.Debug().Str("note_id", note.ID).Str("by", actor.ID).Msg("note deleted")
	return nil
}
