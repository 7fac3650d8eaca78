package store

import (
	"context"
	"time"
)

type Reaction string

const (
	ReactionLike    Reaction = "begeni"
	ReactionDislike Reaction = "begenmeme"
)

type Author struct {
	Username  string `json:"username"`
	AvatarURL string `json:"profil_resmi_url,omitempty"`
}

// Comment is a stored comment. Poll comments use ThreadID for the poll.
type Comment struct {
	ID           string     `json:"comment_id"`
	ParentID     string     `json:"ust_yorum_id,omitempty"`
	ThreadID     string     `json:"forum_id"`
	AuthorID     string     `json:"acan_kisi_id"`
	Author       *Author    `json:"acan_kisi,omitempty"`
	Body         string     `json:"icerik"`
	Attachments  []string   `json:"foto_urls"`
	CreatedAt    time.Time  `json:"acilis_tarihi"`
	UpdatedAt    *time.Time `json:"guncelleme_tarihi,omitempty"`
	LikeCount    int        `json:"begeni_sayisi"`
	DislikeCount int        `json:"begenmeme_sayisi"`
}

// CommentStore defines the contract for comment persistence.
type CommentStore interface {
	Create(ctx context.Context, c Comment) (Comment, error)
	// ListThread returns the thread flat: newest top-level comment first,
	// each followed by its replies oldest first.
	ListThread(ctx context.Context, threadID string) ([]Comment, error)
	UpdateBody(ctx context.Context, commentID, userID, body string) (Comment, error)
	// Delete removes the comment and, for a top-level comment, its replies.
	// It returns the removed ids.
	Delete(ctx context.Context, commentID, userID string) ([]string, error)
	React(ctx context.Context, commentID, userID string, r Reaction) (Comment, error)
}
