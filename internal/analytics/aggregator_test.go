package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notely/internal/apperr"
	"notely/internal/models"
	"notely/internal/store/sqlstore"
)

var admin = models.Actor{ID: "admin", Role: models.RoleAdmin}

func newStore(t *testing.T) *sqlstore.SQLStore {
	t.Helper()
	s, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addUser(t *testing.T, s *sqlstore.SQLStore, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: models.RoleMember, PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func addNote(t *testing.T, s *sqlstore.SQLStore, owner string, created time.Time, tags ...string) {
	t.Helper()
	n := &models.Note{Title: "t", Content: "c", OwnerID: owner, Tags: tags, CreatedAt: created, UpdatedAt: created}
	require.NoError(t, s.CreateNote(context.Background(), n))
}

func TestMembersAreForbidden(t *testing.T) {
	a := NewAggregator(newStore(t), time.UTC)
	member := models.Actor{ID: "m", Role: models.RoleMember}
	ctx := context.Background()

	_, err := a.MostActiveUsers(ctx, member)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = a.MostUsedTags(ctx, member)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = a.NotesPerDay(ctx, member)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestMostActiveUsers(t *testing.T) {
	s := newStore(t)
	a := NewAggregator(s, time.UTC)
	now := time.Now()

	userA := addUser(t, s, "userA")
	userB := addUser(t, s, "userB")
	addNote(t, s, userB.ID, now)
	addNote(t, s, userA.ID, now)
	addNote(t, s, userA.ID, now)

	got, err := a.MostActiveUsers(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, userA.ID, got[0].UserID)
	assert.Equal(t, 2, got[0].NoteCount)
	assert.Equal(t, userB.ID, got[1].UserID)
	assert.Equal(t, 1, got[1].NoteCount)
}

func TestMostUsedTagsTopFive(t *testing.T) {
	s := newStore(t)
	a := NewAggregator(s, time.UTC)
	u := addUser(t, s, "u")
	now := time.Now()

	addNote(t, s, u.ID, now, "work", "a", "b")
	addNote(t, s, u.ID, now, "work", "c", "d")
	addNote(t, s, u.ID, now, "work", "a", "e")

	got, err := a.MostUsedTags(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, []models.TagCount{
		{Tag: "work", Count: 3},
		{Tag: "a", Count: 2},
		{Tag: "b", Count: 1},
		{Tag: "c", Count: 1},
		{Tag: "d", Count: 1},
	}, got)
}

func TestNotesPerDay(t *testing.T) {
	s := newStore(t)
	loc := time.FixedZone("UTC+2", 2*60*60)
	a := NewAggregator(s, loc)
	a.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, loc) }
	u := addUser(t, s, "u")

	addNote(t, s, u.ID, time.Date(2024, 5, 10, 8, 0, 0, 0, loc))
	addNote(t, s, u.ID, time.Date(2024, 5, 10, 0, 30, 0, 0, loc))
	addNote(t, s, u.ID, time.Date(2024, 5, 7, 23, 0, 0, 0, loc))
	addNote(t, s, u.ID, time.Date(2024, 5, 4, 0, 0, 0, 0, loc))
	// before the window
	addNote(t, s, u.ID, time.Date(2024, 5, 3, 23, 59, 0, 0, loc))

	got, err := a.NotesPerDay(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, []models.DayCount{
		{Date: "2024-05-04", Count: 1},
		{Date: "2024-05-05", Count: 0},
		{Date: "2024-05-06", Count: 0},
		{Date: "2024-05-07", Count: 1},
		{Date: "2024-05-08", Count: 0},
		{Date: "2024-05-09", Count: 0},
		{Date: "2024-05-10", Count: 2},
	}, got)
}

func TestNotesPerDayEmpty(t *testing.T) {
	a := NewAggregator(newStore(t), nil)

	got, err := a.NotesPerDay(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, got, 7)
	for i, d := range got {
		assert.Zero(t, d.Count)
		if i > 0 {
			assert.Less(t, got[i-1].Date, d.Date)
		}
	}
	assert.Equal(t, time.Now().Format("2006-01-02"), got[6].Date)
}
