package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"notely/internal/models"
	"notely/internal/store"
)

const noteColumns = "n.id, n.owner_id, n.title, n.content, n.is_archived, n.created_at, n.updated_at"

func scanNote(row rowScanner) (*models.Note, error) {
	var n models.Note
	if err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.IsArchived, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Tags = []string{}
	n.SharedWith = []models.ShareEntry{}
	return &n, nil
}

func (s *SQLStore) CreateNote(ctx context.Context, n *models.Note) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind("INSERT INTO notes (id, owner_id, title, content, is_archived, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"),
		n.ID, n.OwnerID, n.Title, n.Content, n.IsArchived, n.CreatedAt.UTC(), n.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if err := s.writeNoteChildren(ctx, tx, n); err != nil {
		return err
	}
	return tx.Commit()
}

// writeNoteChildren replaces the tag set and share list of n.
func (s *SQLStore) writeNoteChildren(ctx context.Context, tx *sql.Tx, n *models.Note) error {
	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM note_tags WHERE note_id = ?"), n.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM note_shares WHERE note_id = ?"), n.ID); err != nil {
		return err
	}
	for i, tag := range n.Tags {
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO note_tags (note_id, seq, tag) VALUES (?, ?, ?)"), n.ID, i, tag); err != nil {
			return err
		}
	}
	for i, e := range n.SharedWith {
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO note_shares (note_id, seq, user_id, access) VALUES (?, ?, ?, ?)"),
			n.ID, i, e.UserID, string(e.Access)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) GetNote(ctx context.Context, id string) (*models.Note, error) {
	n, err := scanNote(s.db.QueryRowContext(ctx, s.rebind("SELECT "+noteColumns+" FROM notes n WHERE n.id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	notes := []models.Note{*n}
	if err := s.loadNoteChildren(ctx, notes); err != nil {
		return nil, err
	}
	return &notes[0], nil
}

// SaveNote overwrites the stored note. Concurrent saves are last-write-wins.
func (s *SQLStore) SaveNote(ctx context.Context, n *models.Note) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, s.rebind("UPDATE notes SET title = ?, content = ?, is_archived = ?, updated_at = ? WHERE id = ?"),
		n.Title, n.Content, n.IsArchived, n.UpdatedAt.UTC(), n.ID)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	if err := s.writeNoteChildren(ctx, tx, n); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) DeleteNote(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM note_tags WHERE note_id = ?"), id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM note_shares WHERE note_id = ?"), id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, s.rebind("DELETE FROM notes WHERE id = ?"), id)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

func (s *SQLStore) ListAccessibleNotes(ctx context.Context, userID string, f models.NoteFilter) ([]models.Note, error) {
	conds := []string{"(n.owner_id = ? OR EXISTS (SELECT 1 FROM note_shares s WHERE s.note_id = n.id AND s.user_id = ?))"}
	args := []any{userID, userID}

	if f.IsArchived != nil {
		conds = append(conds, "n.is_archived = ?")
		args = append(args, *f.IsArchived)
	}
	if len(f.Tags) > 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM note_tags t WHERE t.note_id = n.id AND t.tag IN ("+placeholders(len(f.Tags))+"))")
		args = append(args, stringArgs(f.Tags)...)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "n.created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		conds = append(conds, "n.created_at <= ?")
		args = append(args, f.Until.UTC())
	}

	query := "SELECT " + noteColumns + " FROM notes n WHERE " + strings.Join(conds, " AND ") + " ORDER BY n.created_at DESC, n.id ASC"
	notes, err := s.queryNotes(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err := s.loadNoteChildren(ctx, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// queryNotes drains the rows before returning so the connection is free for follow-up queries.
func (s *SQLStore) queryNotes(ctx context.Context, query string, args ...any) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// loadNoteChildren fills Tags and SharedWith for every note in place.
func (s *SQLStore) loadNoteChildren(ctx context.Context, notes []models.Note) error {
	if len(notes) == 0 {
		return nil
	}

	index := make(map[string]int, len(notes))
	ids := make([]string, len(notes))
	for i, n := range notes {
		index[n.ID] = i
		ids[i] = n.ID
	}
	in := placeholders(len(ids))

	tags, err := s.db.QueryContext(ctx, s.rebind("SELECT note_id, tag FROM note_tags WHERE note_id IN ("+in+") ORDER BY note_id, seq"), stringArgs(ids)...)
	if err != nil {
		return err
	}
	for tags.Next() {
		var noteID, tag string
		if err := tags.Scan(&noteID, &tag); err != nil {
			tags.Close()
			return err
		}
		i := index[noteID]
		notes[i].Tags = append(notes[i].Tags, tag)
	}
	if err := tags.Close(); err != nil {
		return err
	}

	shares, err := s.db.QueryContext(ctx, s.rebind("SELECT note_id, user_id, access FROM note_shares WHERE note_id IN ("+in+") ORDER BY note_id, seq"), stringArgs(ids)...)
	if err != nil {
		return err
	}
	defer shares.Close()
	for shares.Next() {
		var noteID, userID, access string
		if err := shares.Scan(&noteID, &userID, &access); err != nil {
			return err
		}
		i := index[noteID]
		notes[i].SharedWith = append(notes[i].SharedWith, models.ShareEntry{UserID: userID, Access: models.Access(access)})
	}
	return shares.Err()
}

// Aggregates

func (s *SQLStore) CountNotesByOwner(ctx context.Context, limit int) ([]models.UserNoteCount, error) {
	query := `SELECT u.id, u.name, u.email, COUNT(n.id) AS notes_count
		FROM notes n JOIN users u ON u.id = n.owner_id
		GROUP BY u.id, u.name, u.email
		ORDER BY notes_count DESC, u.name ASC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []models.UserNoteCount{}
	for rows.Next() {
		var c models.UserNoteCount
		if err := rows.Scan(&c.UserID, &c.Name, &c.Email, &c.NoteCount); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *SQLStore) CountTags(ctx context.Context, limit int) ([]models.TagCount, error) {
	query := `SELECT tag, COUNT(*) AS tag_count FROM note_tags
		GROUP BY tag
		ORDER BY tag_count DESC, tag ASC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []models.TagCount{}
	for rows.Next() {
		var c models.TagCount
		if err := rows.Scan(&c.Tag, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *SQLStore) NoteCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT created_at FROM notes WHERE created_at >= ? ORDER BY created_at ASC"), since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}
