package domain

import (
	"encoding/json"
	"time"
)

// Author is the denormalized snapshot of a comment's writer.
type Author struct {
	Username  string `json:"username"`
	AvatarURL string `json:"profil_resmi_url,omitempty"`
}

// Comment is a comment record as served by the forum API. Poll comments
// reuse forum_id for the poll id.
type Comment struct {
	ID           string    `json:"comment_id"`
	ParentID     string    `json:"ust_yorum_id,omitempty"`
	ThreadID     string    `json:"forum_id"`
	AuthorID     string    `json:"acan_kisi_id,omitempty"`
	Author       *Author   `json:"acan_kisi,omitempty"`
	Body         string    `json:"icerik"`
	Attachments  []string  `json:"foto_urls,omitempty"`
	CreatedAt    time.Time `json:"acilis_tarihi"`
	LikeCount    int       `json:"begeni_sayisi"`
	DislikeCount int       `json:"begenmeme_sayisi"`
}

// IsTopLevel reports whether the comment has no parent. Empty and null
// parent references are equivalent.
func (c Comment) IsTopLevel() bool { return c.ParentID == "" }

// CommentPatch is a partial comment. Nil fields are absent and are left
// untouched when the patch is merged. ID selects the target; parent and
// thread are structural and cannot be patched.
type CommentPatch struct {
	ID           string     `json:"comment_id"`
	AuthorID     *string    `json:"acan_kisi_id,omitempty"`
	Author       *Author    `json:"acan_kisi,omitempty"`
	Body         *string    `json:"icerik,omitempty"`
	Attachments  *[]string  `json:"foto_urls,omitempty"`
	CreatedAt    *time.Time `json:"acilis_tarihi,omitempty"`
	LikeCount    *int       `json:"begeni_sayisi,omitempty"`
	DislikeCount *int       `json:"begenmeme_sayisi,omitempty"`
}

// Merge applies p over c (shallow) and returns the result.
func (p CommentPatch) Merge(c Comment) Comment {
	if p.AuthorID != nil {
		c.AuthorID = *p.AuthorID
	}
	if p.Author != nil {
		a := *p.Author
		c.Author = &a
	}
	if p.Body != nil {
		c.Body = *p.Body
	}
	if p.Attachments != nil {
		c.Attachments = append([]string(nil), (*p.Attachments)...)
	}
	if p.CreatedAt != nil {
		c.CreatedAt = *p.CreatedAt
	}
	if p.LikeCount != nil {
		c.LikeCount = *p.LikeCount
	}
	if p.DislikeCount != nil {
		c.DislikeCount = *p.DislikeCount
	}
	return c
}

// User is the current-user snapshot kept with the session.
type User struct {
	ID         string `json:"user_id"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	AvatarURL  string `json:"profil_resmi_url,omitempty"`
	University string `json:"universite,omitempty"`
	Gender     string `json:"cinsiyet,omitempty"`
}

// UnmarshalJSON accepts "id" as an alias of "user_id".
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	University string `json:"universite,omitempty"`
	Gender     string `json:"cinsiyet,omitempty"`
}

type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordReset completes a forgot-password flow with the token the user
// received out of band.
type PasswordReset struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
