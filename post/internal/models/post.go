package models

import "time"

// Post is one user-authored post. MediaIDs reference attachment records
// owned by the media service.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	MediaIDs  []string  `json:"mediaIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreatePostRequest is the body of POST /api/posts. The author comes
// from the gateway-injected identity header, never from the body.
type CreatePostRequest struct {
	Content  string   `json:"content"`
	MediaIDs []string `json:"mediaIds"`
}
