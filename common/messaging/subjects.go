// Package messaging defines the routing keys used on the PulseFeed bus.
package messaging

// Routing keys follow the pattern {resource}.{action}.
const (
	// SubjectPostCreated is published after a post is persisted.
	SubjectPostCreated = "post.created"

	// SubjectPostDeleted is published after a post is removed.
	SubjectPostDeleted = "post.deleted"
)

// PatternPostAll matches every post lifecycle event.
const PatternPostAll = "post.*"

// PostsStream is the durable stream (topic exchange) carrying all post
// lifecycle events.
const PostsStream = "POSTS"

// PostsStreamSubjects are the subjects captured by PostsStream.
var PostsStreamSubjects = []string{"post.>"}
