package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/poetry-share/internal/auth"
	"github.com/sakif/poetry-share/internal/service"
)

// PoemHandler serves the poem CRUD surface and the like toggle.
type PoemHandler struct {
	svc    *service.PoemService
	logger *slog.Logger
}

func NewPoemHandler(svc *service.PoemService, logger *slog.Logger) *PoemHandler {
	return &PoemHandler{svc: svc, logger: logger}
}

// poemInput is the create/update request body.
type poemInput struct {
	Title string `json:"title"`
	Poem  string `json:"poem"`
}

// HandleList returns every poem, newest first. Orphaned poems (author
// account deleted) are purged during this read and never appear.
//
// HTTP: GET /api/poetry
func (h *PoemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	poems, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poems)
}

// HandleGetByID returns one poem.
//
// HTTP: GET /api/poetry/{id}
func (h *PoemHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	poem, err := h.svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poem)
}

// HandleListByAuthor returns the poems written by one account.
//
// HTTP: GET /api/poetry/author/{id}
func (h *PoemHandler) HandleListByAuthor(w http.ResponseWriter, r *http.Request) {
	poems, err := h.svc.ListByAuthor(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poems)
}

// HandleListLikedBy returns the poems the given account has liked.
//
// HTTP: GET /api/poetry/{id}/fav-poems
func (h *PoemHandler) HandleListLikedBy(w http.ResponseWriter, r *http.Request) {
	poems, err := h.svc.ListLikedBy(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poems)
}

// HandleCreate saves a new poem authored by the caller.
//
// HTTP: POST /api/poetry (auth required)
func (h *PoemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	var in poemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid JSON body",
		})
		return
	}

	poem, err := h.svc.Create(r.Context(), caller, in.Title, in.Poem)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, poem)
}

// HandleUpdate edits a poem. Only the author passes the ownership check.
//
// HTTP: PUT /api/poetry/{id} (auth required)
func (h *PoemHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	var in poemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid JSON body",
		})
		return
	}

	poem, err := h.svc.Update(r.Context(), caller, r.PathValue("id"), in.Title, in.Poem)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poem)
}

// HandleDelete removes a poem: its author, or an admin.
//
// HTTP: DELETE /api/poetry/{id} (auth required)
func (h *PoemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), caller, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "the poem has been removed"})
}

// HandleToggleLike flips the caller's like on a poem and reports which way
// it went plus the refreshed poem.
//
// HTTP: PUT /api/poetry/{id}/like (auth required, author excluded)
func (h *PoemHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	poem, action, err := h.svc.ToggleLike(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"action": action,
		"poem":   poem,
	})
}
