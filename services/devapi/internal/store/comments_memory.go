package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryCommentStore is a development-only in-memory implementation.
type InMemoryCommentStore struct {
	mu        sync.RWMutex
	comments  map[string]Comment
	seq       map[string]uint64
	next      uint64
	reactions map[string]map[string]Reaction // commentID -> userID -> reaction
	now       func() time.Time
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{
		comments:  make(map[string]Comment),
		seq:       make(map[string]uint64),
		reactions: make(map[string]map[string]Reaction),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryCommentStore) Create(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ParentID != "" {
		parent, ok := s.comments[c.ParentID]
		if !ok || parent.ParentID != "" || parent.ThreadID != c.ThreadID {
			return Comment{}, ErrInvalidParent
		}
	}

	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	c.UpdatedAt = nil
	c.LikeCount, c.DislikeCount = 0, 0
	if c.Attachments == nil {
		c.Attachments = []string{}
	}
	s.next++
	s.seq[c.ID] = s.next
	s.comments[c.ID] = c
	return c, nil
}

func (s *InMemoryCommentStore) ListThread(_ context.Context, threadID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var roots []Comment
	replies := make(map[string][]Comment)
	for _, c := range s.comments {
		if c.ThreadID != threadID {
			continue
		}
		if c.ParentID == "" {
			roots = append(roots, c)
		} else {
			replies[c.ParentID] = append(replies[c.ParentID], c)
		}
	}

	sort.Slice(roots, func(i, j int) bool { return s.seq[roots[i].ID] > s.seq[roots[j].ID] })

	out := make([]Comment, 0, len(roots))
	for _, root := range roots {
		out = append(out, root)
		rs := replies[root.ID]
		sort.Slice(rs, func(i, j int) bool { return s.seq[rs[i].ID] < s.seq[rs[j].ID] })
		out = append(out, rs...)
	}
	return out, nil
}

func (s *InMemoryCommentStore) UpdateBody(_ context.Context, commentID, userID, body string) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return Comment{}, ErrNotFound
	}
	if c.AuthorID != userID {
		return Comment{}, ErrForbidden
	}
	c.Body = body
	now := s.now()
	c.UpdatedAt = &now
	s.comments[commentID] = c
	return c, nil
}

func (s *InMemoryCommentStore) Delete(_ context.Context, commentID, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, ErrNotFound
	}
	if c.AuthorID != userID {
		return nil, ErrForbidden
	}

	removed := []string{commentID}
	if c.ParentID == "" {
		var children []string
		for id, other := range s.comments {
			if other.ParentID == commentID {
				children = append(children, id)
			}
		}
		sort.Slice(children, func(i, j int) bool { return s.seq[children[i]] < s.seq[children[j]] })
		removed = append(removed, children...)
	}
	for _, id := range removed {
		delete(s.comments, id)
		delete(s.seq, id)
		delete(s.reactions, id)
	}
	return removed, nil
}

// React records userID's reaction. Repeating the same reaction is a no-op;
// switching moves the user's count from one side to the other.
func (s *InMemoryCommentStore) React(_ context.Context, commentID, userID string, r Reaction) (Comment, error) {
	if r != ReactionLike && r != ReactionDislike {
		return Comment{}, ErrInvalidVote
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return Comment{}, ErrNotFound
	}
	if s.reactions[commentID] == nil {
		s.reactions[commentID] = make(map[string]Reaction)
	}

	prev := s.reactions[commentID][userID]
	if prev == r {
		return c, nil
	}
	switch prev {
	case ReactionLike:
		c.LikeCount--
	case ReactionDislike:
		c.DislikeCount--
	}
	if r == ReactionLike {
		c.LikeCount++
	} else {
		c.DislikeCount++
	}
	s.reactions[commentID][userID] = r
	s.comments[commentID] = c
	return c, nil
}
