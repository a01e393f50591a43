package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"kiteretsu_web/internal/backend"
	"kiteretsu_web/internal/model"
)

// topicListColumns is the projection for the forum listing: topic columns
// plus the author's username and the category name/color.
const topicListColumns = "id,title,content,author_id,category_id,is_pinned,view_count,like_count,reply_count,created_at,profiles(username),categories(name,color)"

// ForumService performs the forum's reads and writes against the backend
// data API. There is no local storage: every call goes to the remote tables.
type ForumService struct {
	client *backend.Client
}

func NewForumService(client *backend.Client) *ForumService {
	return &ForumService{client: client}
}

// TopicFilter narrows the forum listing. Zero values mean "all".
type TopicFilter struct {
	CategoryID string // equality filter
	Search     string // substring match across title and content
}

// ListCategories returns all categories ordered by name.
func (s *ForumService) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := s.client.From("categories").
		Select("*").
		Order("name", true).
		Get(ctx, "", &categories)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListTopics returns topics ordered pinned-first, then newest-first,
// optionally filtered by category and search text.
func (s *ForumService) ListTopics(ctx context.Context, filter TopicFilter) ([]model.Topic, error) {
	q := s.client.From("topics").
		Select(topicListColumns).
		Order("is_pinned", false).
		Order("created_at", false)

	if filter.CategoryID != "" {
		q = q.Eq("category_id", filter.CategoryID)
	}
	if needle := strings.TrimSpace(filter.Search); needle != "" {
		q = q.Or(
			backend.Ilike("title", needle),
			backend.Ilike("content", needle),
		)
	}

	var topics []model.Topic
	if err := q.Get(ctx, "", &topics); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// GetTopic returns one topic with its author and category projections.
func (s *ForumService) GetTopic(ctx context.Context, topicID string) (*model.Topic, error) {
	var topic model.Topic
	err := s.client.From("topics").
		Select("*,profiles(*),categories(*)").
		Eq("id", topicID).
		Single().
		Get(ctx, "", &topic)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, model.ErrTopicNotFound
		}
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return &topic, nil
}

// ListReplies returns a topic's replies ordered oldest-first.
func (s *ForumService) ListReplies(ctx context.Context, topicID string) ([]model.Reply, error) {
	var replies []model.Reply
	err := s.client.From("replies").
		Select("*,profiles(*)").
		Eq("topic_id", topicID).
		Order("created_at", true).
		Get(ctx, "", &replies)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}

// IncrementViewCount bumps a topic's view counter server-side. Called once
// per topic page load.
func (s *ForumService) IncrementViewCount(ctx context.Context, topicID string) error {
	args := map[string]string{"topic_id_in": topicID}
	if err := s.client.RPC(ctx, "", "increment_view_count", args); err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

// CreateTopic validates the request and inserts a new topic. The author
// reference is the profile's own id, never the raw account id: the remote
// schema's foreign key points from topics to profiles.
//
// Invalid input is rejected here and never reaches the backend.
func (s *ForumService) CreateTopic(ctx context.Context, session *model.Session, profile *model.Profile, req model.NewTopicRequest) (*model.Topic, error) {
	if session == nil {
		return nil, model.ErrNotAuthenticated
	}
	if profile == nil {
		return nil, model.ErrProfileNotFound
	}
	if fieldErrs := req.FieldErrors(); len(fieldErrs) > 0 {
		return nil, model.ErrInvalidTopic
	}

	row := map[string]any{
		"title":       req.Title,
		"content":     req.Content,
		"category_id": req.CategoryID,
		"author_id":   profile.ID,
	}

	var topic model.Topic
	if err := s.client.Insert(ctx, session.AccessToken, "topics", row, &topic); err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	return &topic, nil
}

// CreateReply appends a reply to a topic. Same author rule as CreateTopic:
// the profile id is authoritative.
func (s *ForumService) CreateReply(ctx context.Context, session *model.Session, profile *model.Profile, topicID, content string) (*model.Reply, error) {
	if session == nil {
		return nil, model.ErrNotAuthenticated
	}
	if profile == nil {
		return nil, model.ErrProfileNotFound
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrReplyEmpty
	}
	if utf8.RuneCountInString(content) > model.MaxReplyLength {
		return nil, model.ErrReplyTooLong
	}

	row := map[string]any{
		"content":   content,
		"topic_id":  topicID,
		"author_id": profile.ID,
	}

	var reply model.Reply
	if err := s.client.Insert(ctx, session.AccessToken, "replies", row, &reply); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}
	return &reply, nil
}

// IsBackendError unwraps a *backend.APIError from err so handlers can show
// the backend-supplied message verbatim.
func IsBackendError(err error) (*backend.APIError, bool) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
