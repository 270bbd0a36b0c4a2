package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"notely/internal/apperr"
	"notely/internal/models"
)

type noteResponse struct {
	Message string       `json:"message"`
	Note    *models.Note `json:"note"`
}

type shareRequest struct {
	UserID string `json:"userId"`
	Access string `json:"access"`
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in models.NoteInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	note, err := s.Notes.CreateNote(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, noteResponse{Message: "Note created successfully", Note: note})
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	notes, err := s.Notes.ListAccessibleNotes(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// handleFilterNotes accepts ?tags=a,b (or repeated tags=) and ?isArchived=true|false.
func (s *Server) handleFilterNotes(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	var f models.NoteFilter
	for _, v := range q["tags"] {
		f.Tags = append(f.Tags, strings.Split(v, ",")...)
	}
	if v := q.Get("isArchived"); v != "" {
		archived, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, apperr.Validation("isArchived must be true or false"))
			return
		}
		f.IsArchived = &archived
	}

	notes, err := s.Notes.ListFilteredNotes(r.Context(), actor, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleShareCandidates(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	result, err := s.Notes.ListShareCandidates(r.Context(), actor, models.CandidateQuery{
		NoteID:   q.Get("noteId"),
		Search:   q.Get("search"),
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.Notes.GetNote(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch models.NotePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	note, err := s.Notes.UpdateNote(r.Context(), actor, mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{Message: "Note updated successfully", Note: note})
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Notes.DeleteNote(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Note deleted successfully")
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	s.shareAction(w, r, "Note shared", func(r *http.Request, actor models.Actor, id string, in shareRequest) (*models.Note, error) {
		return s.Notes.ShareNote(r.Context(), actor, id, in.UserID, in.Access)
	})
}

func (s *Server) handleUnshare(w http.ResponseWriter, r *http.Request) {
	s.shareAction(w, r, "Note unshared", func(r *http.Request, actor models.Actor, id string, in shareRequest) (*models.Note, error) {
		return s.Notes.UnshareNote(r.Context(), actor, id, in.UserID)
	})
}

func (s *Server) handleChangeAccess(w http.ResponseWriter, r *http.Request) {
	s.shareAction(w, r, "Access level changed", func(r *http.Request, actor models.Actor, id string, in shareRequest) (*models.Note, error) {
		return s.Notes.ChangeSharedAccess(r.Context(), actor, id, in.UserID, in.Access)
	})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	s.shareAction(w, r, "Note archived", func(r *http.Request, actor models.Actor, id string, _ shareRequest) (*models.Note, error) {
		return s.Notes.ArchiveNote(r.Context(), actor, id)
	})
}

func (s *Server) handleUnarchive(w http.ResponseWriter, r *http.Request) {
	s.shareAction(w, r, "Note unarchived", func(r *http.Request, actor models.Actor, id string, _ shareRequest) (*models.Note, error) {
		return s.Notes.UnarchiveNote(r.Context(), actor, id)
	})
}

type noteAction func(r *http.Request, actor models.Actor, id string, in shareRequest) (*models.Note, error)

// shareAction runs one of the POST /api/notes/{id}/... mutations.
func (s *Server) shareAction(w http.ResponseWriter, r *http.Request, done string, action noteAction) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in shareRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	note, err := action(r, actor, mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{Message: done, Note: note})
}
