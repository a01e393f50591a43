package model

import (
	"errors"
	"time"
)

// MaxReplyLength caps reply content, mirroring the topic content limit.
const MaxReplyLength = 5000

// Reply is a post within a topic, ordered by creation time ascending.
type Reply struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	TopicID   string    `json:"topic_id"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`

	// Joined projection
	Profile *ProfileSummary `json:"profiles"`
}

var (
	// ErrReplyEmpty is returned when a reply has no content after trimming
	ErrReplyEmpty = errors.New("reply content is required")

	// ErrReplyTooLong is returned when a reply exceeds MaxReplyLength
	ErrReplyTooLong = errors.New("reply content too long")
)
