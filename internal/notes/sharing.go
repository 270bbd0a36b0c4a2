package notes

import (
	"context"
	"strings"

	"notely/internal/apperr"
	"notely/internal/models"
	"notely/internal/policy"
)

func parseShareAccess(raw string) (models.Access, error) {
	if strings.TrimSpace(raw) == "" {
		return models.AccessRead, nil
	}
	access, ok := models.ParseAccess(raw)
	if !ok {
		return "", apperr.Validation("Access must be read or write")
	}
	return access, nil
}

// ShareNote grants target access to the note. Sharing again with the same
// user updates the existing entry in place.
func (s *Service) ShareNote(ctx context.Context, actor models.Actor, id, targetID, rawAccess string) (*models.Note, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(note, actor, policy.EditSharing, "Only owner or admin can share"); err != nil {
		return nil, err
	}

	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, apperr.Validation("User id is required")
	}
	access, err := parseShareAccess(rawAccess)
	if err != nil {
		return nil, err
	}
	if targetID == note.OwnerID {
		return nil, apperr.Validation("Cannot share a note with its owner")
	}
	if _, err := s.users.Get(ctx, targetID); err != nil {
		return nil, err
	}

	if i := note.ShareIndex(targetID); i >= 0 {
		note.SharedWith[i].Access = access
	} else {
		note.SharedWith = append(note.SharedWith, models.ShareEntry{UserID: targetID, Access: access})
	}
	if err := s.save(ctx, note); err != nil {
		return nil, err
	}
	s.link(ctx, targetID, note.ID)
	return note, nil
}

// UnshareNote removes target from the share list. Removing a user who is not
// shared succeeds without changes.
func (s *Service) UnshareNote(ctx context.Context, actor models.Actor, id, targetID string) (*models.Note, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(note, actor, policy.EditSharing, "Only owner or admin can unshare"); err != nil {
		return nil, err
	}

	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, apperr.Validation("User id is required")
	}
	i := note.ShareIndex(targetID)
	if i < 0 {
		return note, nil
	}
	note.SharedWith = append(note.SharedWith[:i], note.SharedWith[i+1:]...)
	if err := s.save(ctx, note); err != nil {
		return nil, err
	}
	s.unlink(ctx, targetID, note.ID)
	return note, nil
}

func (s *Service) ChangeSharedAccess(ctx context.Context, actor models.Actor, id, targetID, rawAccess string) (*models.Note, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(note, actor, policy.EditSharing, "Only owner or admin can change access level"); err != nil {
		return nil, err
	}

	i := note.ShareIndex(strings.TrimSpace(targetID))
	if i < 0 {
		return nil, apperr.NotFound("User not found in shared list")
	}
	access, ok := models.ParseAccess(rawAccess)
	if !ok {
		return nil, apperr.Validation("Access must be read or write")
	}

	note.SharedWith[i].Access = access
	if err := s.save(ctx, note); err != nil {
		return nil, err
	}
	s.link(ctx, note.SharedWith[i].UserID, note.ID)
	return note, nil
}

func (s *Service) ArchiveNote(ctx context.Context, actor models.Actor, id string) (*models.Note, error) {
	return s.setArchived(ctx, actor, id, true, "Only owner or admin can archive")
}

func (s *Service) UnarchiveNote(ctx context.Context, actor models.Actor, id string) (*models.Note, error) {
	return s.setArchived(ctx, actor, id, false, "Only owner or admin can unarchive")
}

func (s *Service) setArchived(ctx context.Context, actor models.Actor, id string, archived bool, denied string) (*models.Note, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(note, actor, policy.Archive, denied); err != nil {
		return nil, err
	}
	if note.IsArchived == archived {
		return note, nil
	}
	note.IsArchived = archived
	if err := s.save(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}
