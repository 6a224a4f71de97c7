package models

import "time"

// Media is one uploaded attachment's metadata. The bytes live in object
// storage behind URL; this service only tracks ownership and lifecycle.
type Media struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	OriginalName string    `json:"originalName"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterMediaRequest is the body of POST /api/media.
type RegisterMediaRequest struct {
	OriginalName string `json:"originalName"`
	URL          string `json:"url"`
}
