package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calebwren/inkwell/backend/api/v1/database"
)

type AuthorHandler struct {
	Users UserStore
}

// GetAuthor returns the public profile of a user. The store never
// selects the password hash for this projection.
func (h *AuthorHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		SendError(w, "Invalid author ID", http.StatusBadRequest)
		return
	}

	user, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			SendError(w, "Author not found", http.StatusNotFound)
			return
		}
		SendError(w, "Unable to process request at this time", http.StatusInternalServerError)
		return
	}

	SendJSON(w, user, http.StatusOK)
}
