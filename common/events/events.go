// Package events defines the message shapes shared by every producer and
// consumer on the PulseFeed bus. Both sides encode and decode through this
// package so that a payload missing a required field fails fast at the
// serialization boundary instead of surfacing as a zero value deep inside
// a handler.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Version is the current envelope version. Decoders reject anything else.
const Version = 1

var (
	// ErrShapeMismatch reports a payload missing a field a consumer relies on.
	ErrShapeMismatch = errors.New("event payload shape mismatch")

	// ErrVersionMismatch reports an envelope produced under a different version.
	ErrVersionMismatch = errors.New("event envelope version mismatch")
)

// Envelope wraps every event on the wire.
type Envelope struct {
	Version    int             `json:"version"`
	ProducedAt time.Time       `json:"produced_at"`
	Payload    json.RawMessage `json:"payload"`
}

// PostCreated is broadcast after a post has been persisted.
type PostCreated struct {
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the fields every known consumer references.
func (e PostCreated) Validate() error {
	switch {
	case e.PostID == "":
		return fmt.Errorf("%w: post.created missing postId", ErrShapeMismatch)
	case e.UserID == "":
		return fmt.Errorf("%w: post.created missing userId", ErrShapeMismatch)
	case e.Content == "":
		return fmt.Errorf("%w: post.created missing content", ErrShapeMismatch)
	case e.CreatedAt.IsZero():
		return fmt.Errorf("%w: post.created missing createdAt", ErrShapeMismatch)
	}
	return nil
}

// PostDeleted is broadcast after a post has been removed. MediaIDs lists
// the media attachments the media service must clean up; it may be empty.
type PostDeleted struct {
	PostID   string   `json:"postId"`
	UserID   string   `json:"userId"`
	MediaIDs []string `json:"mediaIds"`
}

// Validate checks the fields every known consumer references.
func (e PostDeleted) Validate() error {
	switch {
	case e.PostID == "":
		return fmt.Errorf("%w: post.deleted missing postId", ErrShapeMismatch)
	case e.UserID == "":
		return fmt.Errorf("%w: post.deleted missing userId", ErrShapeMismatch)
	}
	return nil
}

// validator is implemented by every payload type in this package.
type validator interface {
	Validate() error
}

// Encode validates the payload and wraps it in a versioned envelope.
func Encode(payload validator) ([]byte, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	env := Envelope{
		Version:    Version,
		ProducedAt: time.Now().UTC(),
		Payload:    raw,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal event envelope: %w", err)
	}
	return data, nil
}

// DecodePostCreated unwraps and validates a post.created event.
func DecodePostCreated(data []byte) (PostCreated, error) {
	var payload PostCreated
	if err := decode(data, &payload); err != nil {
		return PostCreated{}, err
	}
	return payload, payload.Validate()
}

// DecodePostDeleted unwraps and validates a post.deleted event.
func DecodePostDeleted(data []byte) (PostDeleted, error) {
	var payload PostDeleted
	if err := decode(data, &payload); err != nil {
		return PostDeleted{}, err
	}
	return payload, payload.Validate()
}

func decode(data []byte, payload any) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}
	if env.Version != Version {
		return fmt.Errorf("%w: got version %d, want %d", ErrVersionMismatch, env.Version, Version)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return fmt.Errorf("unmarshal event payload: %w", err)
	}
	return nil
}
