package notes

import (
	"context"
	"errors"
	"strings"

	"notely/internal/apperr"
	"notely/internal/models"
	"notely/internal/store"
)

// ListAccessibleNotes returns every note the actor owns or is shared on,
// archived or not, newest first.
func (s *Service) ListAccessibleNotes(ctx context.Context, actor models.Actor) ([]models.Note, error) {
	notes, err := s.store.ListAccessibleNotes(ctx, actor.ID, models.NoteFilter{})
	if err != nil {
		return nil, apperr.Internal("listing notes", err)
	}
	return notes, nil
}

// ListFilteredNotes narrows the accessible notes to those carrying any of
// f.Tags and, when set, matching f.IsArchived.
func (s *Service) ListFilteredNotes(ctx context.Context, actor models.Actor, f models.NoteFilter) ([]models.Note, error) {
	f.Tags = models.NormalizeTags(f.Tags)
	notes, err := s.store.ListAccessibleNotes(ctx, actor.ID, f)
	if err != nil {
		return nil, apperr.Internal("filtering notes", err)
	}
	return notes, nil
}

// ListShareCandidates pages through users the note could be shared with.
func (s *Service) ListShareCandidates(ctx context.Context, actor models.Actor, q models.CandidateQuery) (*models.UserPage, error) {
	exclude := []string{actor.ID}
	if q.NoteID != "" {
		note, err := s.store.GetNote(ctx, q.NoteID)
		switch {
		case err == nil:
			exclude = append(exclude, note.OwnerID)
			exclude = append(exclude, note.SharedUserIDs()...)
		case errors.Is(err, store.ErrNotFound):
		default:
			return nil, apperr.Internal("loading note", err)
		}
	}

	page := max(q.Page, 1)
	size := q.PageSize
	if size <= 0 {
		size = s.pageSize
	}
	size = min(size, MaxPageSize)

	found, total, err := s.users.Search(ctx, strings.TrimSpace(q.Search), exclude, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	out := &models.UserPage{Users: make([]models.UserRef, 0, len(found)), Total: total}
	for i := range found {
		out.Users = append(out.Users, models.RefOf(&found[i]))
	}
	return out, nil
}
