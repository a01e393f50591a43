package model

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Validation limits for new topics, in characters, not bytes. These match the
// remote schema's constraints; anything outside them is rejected before the
// backend sees it.
const (
	MinTitleLength   = 5
	MaxTitleLength   = 100
	MinContentLength = 20
	MaxContentLength = 5000
)

// Topic is a forum discussion thread. Counters are mutated server-side (the
// view counter via an RPC); this app never writes them directly.
type Topic struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"author_id"`
	CategoryID string    `json:"category_id"`
	IsPinned   bool      `json:"is_pinned"`
	ViewCount  int       `json:"view_count"`
	LikeCount  int       `json:"like_count"`
	ReplyCount int       `json:"reply_count"`
	CreatedAt  time.Time `json:"created_at"`

	// Joined projections (not columns of the topics table)
	Profile  *ProfileSummary  `json:"profiles"`
	Category *CategorySummary `json:"categories"`
}

// NewTopicRequest carries the new-topic form fields.
type NewTopicRequest struct {
	Title      string
	Content    string
	CategoryID string
}

// FieldErrors validates the request and returns one message per failing
// field, keyed by field name. An empty map means the request is valid.
func (r *NewTopicRequest) FieldErrors() map[string]string {
	errs := make(map[string]string)
	if n := utf8.RuneCountInString(r.Title); n < MinTitleLength || n > MaxTitleLength {
		errs["title"] = fmt.Sprintf("Title must be between %d and %d characters", MinTitleLength, MaxTitleLength)
	}
	if n := utf8.RuneCountInString(r.Content); n < MinContentLength || n > MaxContentLength {
		errs["content"] = fmt.Sprintf("Content must be between %d and %d characters", MinContentLength, MaxContentLength)
	}
	if _, err := uuid.Parse(r.CategoryID); err != nil {
		errs["category"] = "Please select a category"
	}
	return errs
}

var (
	// ErrTopicNotFound is returned when a topic cannot be found
	ErrTopicNotFound = errors.New("topic not found")

	// ErrInvalidTopic is returned when a new-topic request fails validation
	ErrInvalidTopic = errors.New("invalid topic")
)
