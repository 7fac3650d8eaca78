// Package commentview owns the comment tree of one forum or poll thread.
// It loads the thread, forwards mutations to the API and applies the
// records the server confirms.
package commentview

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/example/unisocial/internal/platform/analytics"
	"github.com/example/unisocial/services/client/internal/commenttree"
	"github.com/example/unisocial/services/client/internal/domain"
	"github.com/example/unisocial/services/client/internal/forumapi"
)

var (
	// ErrViewClosed is returned for responses that arrive after Close. The
	// tree is left as it was.
	ErrViewClosed = errors.New("commentview: view closed")
	// ErrStaleLoad is returned by a Load overtaken by a newer Load.
	ErrStaleLoad = errors.New("commentview: superseded by a newer load")
)

// API is the subset of forumapi.Client the view calls.
type API interface {
	ListComments(ctx context.Context, kind forumapi.ThreadKind, threadID string) ([]domain.Comment, error)
	CreateComment(ctx context.Context, in forumapi.NewComment) (domain.Comment, error)
	UpdateComment(ctx context.Context, id, body string) (domain.CommentPatch, error)
	DeleteComment(ctx context.Context, id string) error
	React(ctx context.Context, id string, r forumapi.Reaction) (forumapi.ReactionCounts, error)
}

type Option func(*View)

func WithLogger(log *zap.Logger) Option {
	return func(v *View) {
		if log != nil {
			v.log = log
		}
	}
}

func WithPublisher(p *analytics.Publisher) Option {
	return func(v *View) { v.pub = p }
}

// View is safe for concurrent use. API calls run without holding the lock;
// their results are applied in the order they arrive.
type View struct {
	api      API
	kind     forumapi.ThreadKind
	threadID string
	log      *zap.Logger
	pub      *analytics.Publisher

	mu     sync.Mutex
	tree   *commenttree.Tree
	gen    uint64
	closed bool
}

func New(api API, kind forumapi.ThreadKind, threadID string, opts ...Option) *View {
	v := &View{api: api, kind: kind, threadID: threadID, log: zap.NewNop()}
	for _, o := range opts {
		o(v)
	}
	v.tree = commenttree.New(commenttree.WithLogger(v.log))
	return v
}

func (v *View) ThreadID() string { return v.threadID }

// Load fetches the thread and replaces the tree. Local mutations applied
// while the request was in flight are overwritten.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	comments, err := v.api.ListComments(ctx, v.kind, v.threadID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewClosed
	}
	if gen != v.gen {
		return ErrStaleLoad
	}
	if err != nil {
		return err
	}
	v.tree = commenttree.Build(comments, commenttree.WithLogger(v.log))
	if dropped := v.tree.Dropped(); len(dropped) > 0 {
		v.log.Info("commentview: replies without a visible parent",
			zap.String("thread_id", v.threadID), zap.Strings("comment_ids", dropped))
	}
	return nil
}

// Post creates a comment, or a reply when parentID is set, and inserts the
// server's record: new top-level comments go first, replies go last under
// their parent.
func (v *View) Post(ctx context.Context, body, parentID string, attachments []string) (domain.Comment, error) {
	if err := v.checkOpen(); err != nil {
		return domain.Comment{}, err
	}
	c, err := v.api.CreateComment(ctx, forumapi.NewComment{
		ThreadID:    v.threadID,
		Body:        body,
		Attachments: attachments,
		ParentID:    parentID,
	})
	if err != nil {
		return domain.Comment{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return c, ErrViewClosed
	}
	if c.IsTopLevel() {
		v.tree.AddTopLevel(c)
	} else {
		v.tree.AddReply(c)
	}
	v.pub.Publish(analytics.SubjectCommentPosted, "comment.posted", c.AuthorID, map[string]any{
		"thread_id": v.threadID,
		"reply":     !c.IsTopLevel(),
	})
	return c, nil
}

// Edit replaces a comment's body. The server's reply is merged onto the
// cached record, so fields it leaves out keep their values. The merged
// record is returned.
func (v *View) Edit(ctx context.Context, id, body string) (domain.Comment, error) {
	if err := v.checkOpen(); err != nil {
		return domain.Comment{}, err
	}
	p, err := v.api.UpdateComment(ctx, id, body)
	if err != nil {
		return domain.Comment{}, err
	}
	if p.ID == "" {
		p.ID = id
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return p.Merge(domain.Comment{ID: p.ID}), ErrViewClosed
	}
	if !v.tree.ApplyUpdate(p) {
		return p.Merge(domain.Comment{ID: p.ID}), nil
	}
	c, _ := v.tree.Comment(p.ID)
	return c, nil
}

// Delete removes a comment and returns every id dropped from the tree.
func (v *View) Delete(ctx context.Context, id string) ([]string, error) {
	if err := v.checkOpen(); err != nil {
		return nil, err
	}
	if err := v.api.DeleteComment(ctx, id); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, ErrViewClosed
	}
	removed := v.tree.ApplyDelete(id)
	v.pub.Publish(analytics.SubjectCommentDeleted, "comment.deleted", "", map[string]any{
		"thread_id": v.threadID,
		"removed":   len(removed),
	})
	return removed, nil
}

// React records a reaction and stores the returned counts on the comment.
func (v *View) React(ctx context.Context, id string, r forumapi.Reaction) (forumapi.ReactionCounts, error) {
	if err := v.checkOpen(); err != nil {
		return forumapi.ReactionCounts{}, err
	}
	counts, err := v.api.React(ctx, id, r)
	if err != nil {
		return forumapi.ReactionCounts{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return counts, ErrViewClosed
	}
	v.tree.ApplyUpdate(domain.CommentPatch{
		ID:           id,
		LikeCount:    &counts.LikeCount,
		DislikeCount: &counts.DislikeCount,
	})
	return counts, nil
}

// Tree returns a copy of the current tree.
func (v *View) Tree() *commenttree.Tree {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tree.Clone()
}

// Close tears the view down. Responses still in flight are discarded.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

func (v *View) checkOpen() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewClosed
	}
	return nil
}
