// Package policy decides whether an actor may perform an operation on a note.
//
// Every decision goes through Classify and the operation table below; callers
// must not re-derive ownership or share checks on their own.
package policy

import "notely/internal/models"

// Capability is the single relation an actor has to a note.
type Capability int

const (
	None Capability = iota
	Reader
	Writer
	Owner
	Admin
)

func (c Capability) String() string {
	switch c {
	case Reader:
		return "reader"
	case Writer:
		return "writer"
	case Owner:
		return "owner"
	case Admin:
		return "admin"
	default:
		return "none"
	}
}

type Operation int

const (
	View Operation = iota
	EditContent
	EditSharing
	Archive
	Delete
)

func (o Operation) String() string {
	switch o {
	case View:
		return "view"
	case EditContent:
		return "edit content"
	case EditSharing:
		return "edit sharing"
	case Archive:
		return "archive"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

var table = map[Operation][]Capability{
	View:        {Owner, Admin, Reader, Writer},
	EditContent: {Owner, Admin, Writer},
	EditSharing: {Owner, Admin},
	Archive:     {Owner, Admin},
	Delete:      {Owner, Admin},
}

// Classify computes the actor's capability on the note.
// Precedence is Admin, Owner, Writer, Reader.
func Classify(note *models.Note, actor models.Actor) Capability {
	if actor.IsAdmin() {
		return Admin
	}
	if actor.ID != "" && actor.ID == note.OwnerID {
		return Owner
	}
	if i := note.ShareIndex(actor.ID); i >= 0 && actor.ID != "" {
		switch note.SharedWith[i].Access {
		case models.AccessWrite:
			return Writer
		case models.AccessRead:
			return Reader
		}
	}
	return None
}

// Allowed reports whether capability c grants op.
func Allowed(c Capability, op Operation) bool {
	for _, allowed := range table[op] {
		if allowed == c {
			return true
		}
	}
	return false
}

func Decide(note *models.Note, actor models.Actor, op Operation) Decision {
	return Decision(Allowed(Classify(note, actor), op))
}

// Permissions returns what the caller may additionally do with a note it can view.
func Permissions(note *models.Note, actor models.Actor) (canEdit, canDelete bool) {
	c := Classify(note, actor)
	return Allowed(c, EditContent), Allowed(c, Delete)
}
