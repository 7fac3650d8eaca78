// Package forumapi is the typed client for the comment endpoints of the
// forum API. Every call goes through the session's authorized channel.
package forumapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/unisocial/services/client/internal/domain"
	"github.com/example/unisocial/services/client/internal/session"
)

var (
	ErrEmptyBody       = errors.New("forumapi: comment body is empty")
	ErrMissingID       = errors.New("forumapi: id is required")
	ErrUnknownReaction = errors.New("forumapi: unknown reaction")
	ErrUnknownKind     = errors.New("forumapi: unknown thread kind")
)

// Doer sends an authorized request. *session.Manager implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, body any) (*session.Response, error)
}

// ThreadKind selects which collection a comment thread hangs off.
type ThreadKind string

const (
	KindForum ThreadKind = "forum"
	KindPoll  ThreadKind = "poll"
)

func ParseThreadKind(s string) (ThreadKind, error) {
	switch k := ThreadKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindForum, KindPoll:
		return k, nil
	case "":
		return KindForum, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

type Reaction string

const (
	ReactionLike    Reaction = "begeni"
	ReactionDislike Reaction = "begenmeme"
)

func (r Reaction) Valid() bool { return r == ReactionLike || r == ReactionDislike }

// NewComment is the create payload. ParentID empty posts a top-level
// comment.
type NewComment struct {
	ThreadID    string   `json:"forum_id"`
	Body        string   `json:"icerik"`
	Attachments []string `json:"foto_urls"`
	ParentID    string   `json:"ust_yorum_id,omitempty"`
}

// ReactionCounts is what the react endpoint answers with.
type ReactionCounts struct {
	LikeCount    int `json:"begeni_sayisi"`
	DislikeCount int `json:"begenmeme_sayisi"`
}

type Client struct {
	doer Doer
}

func New(doer Doer) *Client {
	return &Client{doer: doer}
}

// ListComments returns the flat comment list of a forum or poll.
func (c *Client) ListComments(ctx context.Context, kind ThreadKind, threadID string) ([]domain.Comment, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, ErrMissingID
	}
	var base string
	switch kind {
	case KindForum, "":
		base = "/forums/"
	case KindPoll:
		base = "/polls/"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var out []domain.Comment
	if err := c.call(ctx, http.MethodGet, base+url.PathEscape(threadID)+"/comments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateComment posts a comment or reply and returns the stored record.
func (c *Client) CreateComment(ctx context.Context, in NewComment) (domain.Comment, error) {
	in.Body = strings.TrimSpace(in.Body)
	if in.Body == "" {
		return domain.Comment{}, ErrEmptyBody
	}
	if strings.TrimSpace(in.ThreadID) == "" {
		return domain.Comment{}, ErrMissingID
	}
	if in.Attachments == nil {
		in.Attachments = []string{}
	}

	var out domain.Comment
	if err := c.call(ctx, http.MethodPost, "/comments", in, &out); err != nil {
		return domain.Comment{}, err
	}
	return out, nil
}

// UpdateComment replaces the body of a comment. The reply is returned as a
// patch: fields the server left out stay nil.
func (c *Client) UpdateComment(ctx context.Context, id, body string) (domain.CommentPatch, error) {
	if strings.TrimSpace(id) == "" {
		return domain.CommentPatch{}, ErrMissingID
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.CommentPatch{}, ErrEmptyBody
	}

	var out domain.CommentPatch
	req := map[string]string{"icerik": body}
	if err := c.call(ctx, http.MethodPut, "/comments/"+url.PathEscape(id), req, &out); err != nil {
		return domain.CommentPatch{}, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return out, nil
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	return c.call(ctx, http.MethodDelete, "/comments/"+url.PathEscape(id), nil, nil)
}

// React records a like or dislike and returns the comment's new counts.
func (c *Client) React(ctx context.Context, id string, r Reaction) (ReactionCounts, error) {
	if strings.TrimSpace(id) == "" {
		return ReactionCounts{}, ErrMissingID
	}
	if !r.Valid() {
		return ReactionCounts{}, fmt.Errorf("%w: %q", ErrUnknownReaction, r)
	}

	var out ReactionCounts
	req := map[string]string{"reaction_type": string(r)}
	if err := c.call(ctx, http.MethodPost, "/comments/"+url.PathEscape(id)+"/react", req, &out); err != nil {
		return ReactionCounts{}, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, dst any) error {
	resp, err := c.doer.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &session.ServerError{StatusCode: resp.StatusCode, Message: resp.Message}
	}
	if dst == nil {
		return nil
	}
	if err := resp.Decode(dst); err != nil {
		return fmt.Errorf("forumapi: decode %s %s: %w", method, path, err)
	}
	return nil
}
