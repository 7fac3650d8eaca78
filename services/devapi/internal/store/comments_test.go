package store

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryCommentStore_Create(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	c, err := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-a", Body: "hello", LikeCount: 9})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected non-empty id")
	}
	if c.LikeCount != 0 {
		t.Fatalf("counts must start at zero, got %d", c.LikeCount)
	}
	if c.Attachments == nil {
		t.Fatal("expected empty attachment list, not nil")
	}
}

func TestInMemoryCommentStore_CreateReplyValidation(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	root, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-a", Body: "root"})
	reply, err := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-b", ParentID: root.ID, Body: "reply"})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}

	if _, err := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-c", ParentID: reply.ID, Body: "deep"}); !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent for reply-to-reply, got %v", err)
	}
	if _, err := s.Create(ctx, Comment{ThreadID: "forum-2", AuthorID: "user-c", ParentID: root.ID, Body: "cross"}); !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent across threads, got %v", err)
	}
	if _, err := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-c", ParentID: "ghost", Body: "lost"}); !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent for missing parent, got %v", err)
	}
}

func TestInMemoryCommentStore_ListThread(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	root1, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-a", Body: "root 1"})
	root2, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-b", Body: "root 2"})
	r1, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-c", ParentID: root1.ID, Body: "reply 1"})
	r2, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-c", ParentID: root1.ID, Body: "reply 2"})
	_, _ = s.Create(ctx, Comment{ThreadID: "forum-2", AuthorID: "user-a", Body: "elsewhere"})

	got, err := s.ListThread(ctx, "forum-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{root2.ID, root1.ID, r1.ID, r2.ID}
	if len(got) != len(want) {
		t.Fatalf("expected %d comments, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestInMemoryCommentStore_UpdateBody_AuthorOnly(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	c, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-a", Body: "original"})

	if _, err := s.UpdateBody(ctx, c.ID, "user-b", "hacked"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	updated, err := s.UpdateBody(ctx, c.ID, "user-a", "edited")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Body != "edited" || updated.UpdatedAt == nil {
		t.Fatalf("unexpected comment %+v", updated)
	}
	if _, err := s.UpdateBody(ctx, "ghost", "user-a", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryCommentStore_DeleteCascades(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	root, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-a", Body: "root"})
	r1, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-b", ParentID: root.ID, Body: "r1"})
	r2, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-c", ParentID: root.ID, Body: "r2"})

	if _, err := s.Delete(ctx, root.ID, "user-b"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	removed, err := s.Delete(ctx, root.ID, "user-a")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(removed) != 3 || removed[0] != root.ID || removed[1] != r1.ID || removed[2] != r2.ID {
		t.Fatalf("unexpected removed ids %v", removed)
	}
	left, _ := s.ListThread(ctx, "forum-1")
	if len(left) != 0 {
		t.Fatalf("expected empty thread, got %d", len(left))
	}
}

func TestInMemoryCommentStore_DeleteReply(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	root, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-a", Body: "root"})
	r1, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-b", ParentID: root.ID, Body: "r1"})

	removed, err := s.Delete(ctx, r1.ID, "user-b")
	if err != nil || len(removed) != 1 {
		t.Fatalf("unexpected delete result %v (%v)", removed, err)
	}
	left, _ := s.ListThread(ctx, "forum-1")
	if len(left) != 1 || left[0].ID != root.ID {
		t.Fatalf("root should survive, got %+v", left)
	}
}

func TestInMemoryCommentStore_React(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	c, _ := s.Create(ctx, Comment{ThreadID: "forum-1", AuthorID: "user-a", Body: "hello"})

	got, _ := s.React(ctx, c.ID, "user-b", ReactionLike)
	if got.LikeCount != 1 {
		t.Fatalf("expected 1 like, got %d", got.LikeCount)
	}
	got, _ = s.React(ctx, c.ID, "user-b", ReactionLike)
	if got.LikeCount != 1 {
		t.Fatalf("repeating a reaction must not count twice, got %d", got.LikeCount)
	}
	got, _ = s.React(ctx, c.ID, "user-b", ReactionDislike)
	if got.LikeCount != 0 || got.DislikeCount != 1 {
		t.Fatalf("switching should move the count, got %d/%d", got.LikeCount, got.DislikeCount)
	}
	got, _ = s.React(ctx, c.ID, "user-c", ReactionDislike)
	if got.DislikeCount != 2 {
		t.Fatalf("expected 2 dislikes, got %d", got.DislikeCount)
	}

	if _, err := s.React(ctx, c.ID, "user-b", Reaction("love")); !errors.Is(err, ErrInvalidVote) {
		t.Fatalf("expected ErrInvalidVote, got %v", err)
	}
	if _, err := s.React(ctx, "ghost", "user-b", ReactionLike); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
