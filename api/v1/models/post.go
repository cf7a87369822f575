package models

import (
	"time"

	"github.com/google/uuid"
)

// Author is the projection of a user attached to posts in read
// responses: id and username only.
type Author struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type Post struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	Cover     string    `json:"cover"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// PostUpdate carries the fields of an edit request. A nil field was not
// supplied and keeps its stored value; the store merges, it never
// replaces.
type PostUpdate struct {
	Title   *string
	Summary *string
	Content *string
	Cover   *string
}
