package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Access is the permission granted by a share entry.
type Access string

const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
)

// ParseAccess reports whether s names a valid access level.
func ParseAccess(s string) (Access, bool) {
	switch Access(strings.ToLower(strings.TrimSpace(s))) {
	case AccessRead:
		return AccessRead, true
	case AccessWrite:
		return AccessWrite, true
	}
	return "", false
}

// NormalizeAccess falls back to read for missing or unknown levels.
func NormalizeAccess(s string) Access {
	if a, ok := ParseAccess(s); ok {
		return a
	}
	return AccessRead
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ActorOf returns the actor a user acts as.
func ActorOf(u *User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

type ShareEntry struct {
	UserID string `json:"userId"`
	Access Access `json:"access"`
}

type Note struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Content    string       `json:"content"`
	Tags       []string     `json:"tags"`
	IsArchived bool         `json:"isArchived"`
	OwnerID    string       `json:"ownerId"`
	SharedWith []ShareEntry `json:"sharedWith"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// ShareIndex returns the position of userID in SharedWith, or -1.
func (n *Note) ShareIndex(userID string) int {
	for i, e := range n.SharedWith {
		if e.UserID == userID {
			return i
		}
	}
	return -1
}

// SharedUserIDs lists the users the note is shared with, in share order.
func (n *Note) SharedUserIDs() []string {
	ids := make([]string, 0, len(n.SharedWith))
	for _, e := range n.SharedWith {
		ids = append(ids, e.UserID)
	}
	return ids
}

// NormalizeTags trims tags and drops blanks and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// UserRef is the public projection of a user.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func RefOf(u *User) UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

type SharedUser struct {
	UserID string `json:"userId"`
	Access Access `json:"access"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// NoteView is a note enriched for display to one caller.
type NoteView struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Content    string       `json:"content"`
	Tags       []string     `json:"tags"`
	IsArchived bool         `json:"isArchived"`
	OwnerID    string       `json:"ownerId"`
	Owner      *UserRef     `json:"owner,omitempty"`
	SharedWith []SharedUser `json:"sharedWith"`
	CanEdit    bool         `json:"canEdit"`
	CanDelete  bool         `json:"canDelete"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type NoteInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// ShareInput accepts the loose share entry shapes clients send.
type ShareInput struct {
	UserID     string `json:"userId"`
	User       string `json:"user"`
	Access     string `json:"access"`
	Permission string `json:"permission"`
}

// Normalize resolves the entry to {userId, access}, defaulting access to read.
func (s ShareInput) Normalize() ShareEntry {
	id := s.UserID
	if id == "" {
		id = s.User
	}
	access := s.Access
	if access == "" {
		access = s.Permission
	}
	return ShareEntry{UserID: strings.TrimSpace(id), Access: NormalizeAccess(access)}
}

// NotePatch carries a partial update; nil fields are left untouched.
type NotePatch struct {
	Title      *string       `json:"title,omitempty"`
	Content    *string       `json:"content,omitempty"`
	Tags       *[]string     `json:"tags,omitempty"`
	IsArchived *bool         `json:"isArchived,omitempty"`
	SharedWith *[]ShareInput `json:"sharedWith,omitempty"`
}

func (p NotePatch) TouchesContent() bool {
	return p.Title != nil || p.Content != nil || p.Tags != nil || p.IsArchived != nil
}

func (p NotePatch) IsEmpty() bool {
	return !p.TouchesContent() && p.SharedWith == nil
}

type NoteFilter struct {
	Tags       []string
	IsArchived *bool
	Since      time.Time
	Until      time.Time
}

type CandidateQuery struct {
	NoteID   string
	Search   string
	Page     int
	PageSize int
}

type UserPage struct {
	Users []UserRef `json:"users"`
	Total int       `json:"total"`
}

type UserNoteCount struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	NoteCount int    `json:"notesCount"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
