package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calebwren/inkwell/backend/api/v1/database"
	"github.com/calebwren/inkwell/backend/api/v1/middleware"
	"github.com/calebwren/inkwell/backend/api/v1/models"
)

// PostStore is the slice of the post store the handlers need.
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	List(ctx context.Context) ([]models.Post, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Update(ctx context.Context, id, editorID uuid.UUID, upd models.PostUpdate) error
}

type PostHandler struct {
	Posts PostStore
	Files FileStore
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		SendError(w, "You must be logged in to create a post", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		SendError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	title := r.FormValue("title")
	summary := r.FormValue("summary")
	content := r.FormValue("content")

	if strings.TrimSpace(title) == "" || strings.TrimSpace(summary) == "" || strings.TrimSpace(content) == "" {
		SendError(w, "title, summary and content are required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		SendError(w, "Cover image is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	cover, err := h.Files.Save(file, header.Filename)
	if err != nil {
		SendError(w, "Failed to store cover image", http.StatusInternalServerError)
		return
	}

	post := &models.Post{
		Title:   title,
		Summary: summary,
		Content: content,
		Cover:   cover,
		Author: models.Author{
			ID:       claims.UserID,
			Username: claims.Username,
		},
	}

	if err := h.Posts.Create(r.Context(), post); err != nil {
		SendError(w, "Unable to process request at this time", http.StatusInternalServerError)
		return
	}

	SendJSON(w, "ok", http.StatusOK)
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	posts, err := h.Posts.List(r.Context())
	if err != nil {
		SendError(w, "Unable to process request at this time", http.StatusInternalServerError)
		return
	}

	SendJSON(w, posts, http.StatusOK)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		SendError(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	post, err := h.Posts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			SendError(w, "Post not found", http.StatusNotFound)
			return
		}
		SendError(w, "Unable to process request at this time", http.StatusInternalServerError)
		return
	}

	SendJSON(w, post, http.StatusOK)
}

// UpdatePost applies a partial edit. Only fields present in the form are
// touched; a new file recomputes the cover path, no file leaves it
// alone. Every path writes a response.
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		SendError(w, "You must be logged in to edit a post", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		SendError(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		SendError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	upd := models.PostUpdate{
		Title:   formField(r, "title"),
		Summary: formField(r, "summary"),
		Content: formField(r, "content"),
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		cover, err := h.Files.Save(file, header.Filename)
		if err != nil {
			SendError(w, "Failed to store cover image", http.StatusInternalServerError)
			return
		}
		upd.Cover = &cover
	}

	if err := h.Posts.Update(r.Context(), id, claims.UserID, upd); err != nil {
		switch {
		case errors.Is(err, database.ErrPostNotFound):
			SendError(w, "Post not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNotAuthor):
			SendError(w, "Only the author can edit this post", http.StatusForbidden)
		default:
			SendError(w, "Unable to process request at this time", http.StatusInternalServerError)
		}
		return
	}

	SendJSON(w, "ok", http.StatusOK)
}

// formField distinguishes "field absent" from "field set to empty":
// absent fields come back nil and are excluded from the merge.
func formField(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}
