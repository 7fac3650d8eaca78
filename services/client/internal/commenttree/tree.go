// Package commenttree keeps a two-level view of a thread's comments: top-level
// comments in list order, each with the ordered ids of its direct replies.
//
// Nodes live in an index keyed by comment id, so updates and deletes are map
// lookups. A Tree is not safe for concurrent use; it belongs to the view that
// loaded the comments.
package commenttree

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/example/unisocial/services/client/internal/domain"
)

// Node is a comment plus the ids of its direct replies, in insertion order.
type Node struct {
	Comment domain.Comment
	Replies []string
}

type Tree struct {
	topLevel []string
	index    map[string]*Node
	dropped  []string
	log      *zap.Logger
}

type Option func(*Tree)

// WithLogger sets the logger used to report ignored input and no-op mutations.
func WithLogger(log *zap.Logger) Option {
	return func(t *Tree) {
		if log != nil {
			t.log = log
		}
	}
}

// New returns an empty tree.
func New(opts ...Option) *Tree {
	t := &Tree{index: make(map[string]*Node), log: zap.NewNop()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Build partitions comments into top-level comments, attached replies and
// dropped orphans. It runs two passes: every comment is registered first and
// replies are linked afterwards, so the result does not depend on whether a
// parent appears before or after its replies.
//
// A reply is attached only when its parent is present and is itself
// top-level. Anything else (missing parent, reply-to-reply, self reference)
// is dropped from the tree and reported by Dropped.
func Build(comments []domain.Comment, opts ...Option) *Tree {
	t := New(opts...)

	keep := make([]bool, len(comments))
	for i, c := range comments {
		if c.ID == "" {
			t.log.Warn("commenttree: comment without id ignored", zap.Int("position", i))
			continue
		}
		if _, dup := t.index[c.ID]; dup {
			t.log.Warn("commenttree: duplicate comment ignored", zap.String("comment_id", c.ID))
			continue
		}
		t.index[c.ID] = &Node{Comment: c}
		keep[i] = true
	}

	for i, c := range comments {
		if !keep[i] {
			continue
		}
		if c.IsTopLevel() {
			t.topLevel = append(t.topLevel, c.ID)
			continue
		}
		parent, ok := t.index[c.ParentID]
		if !ok || !parent.Comment.IsTopLevel() {
			delete(t.index, c.ID)
			t.dropped = append(t.dropped, c.ID)
			t.log.Warn("commenttree: orphan reply dropped",
				zap.String("comment_id", c.ID),
				zap.String("parent_id", c.ParentID),
				zap.Bool("parent_present", ok))
			continue
		}
		parent.Replies = append(parent.Replies, c.ID)
	}
	return t
}

// ApplyUpdate shallow-merges p into the node with id p.ID. The node keeps its
// position and its replies. Unknown ids are ignored and false is returned.
func (t *Tree) ApplyUpdate(p domain.CommentPatch) bool {
	n, ok := t.index[p.ID]
	if !ok {
		t.log.Warn("commenttree: update for unknown comment ignored", zap.String("comment_id", p.ID))
		return false
	}
	n.Comment = p.Merge(n.Comment)
	return true
}

// ApplyDelete removes id and returns every id removed from the index.
// Deleting a top-level comment also removes its direct replies. Unknown ids
// are ignored and nil is returned.
func (t *Tree) ApplyDelete(id string) []string {
	n, ok := t.index[id]
	if !ok {
		t.log.Warn("commenttree: delete for unknown comment ignored", zap.String("comment_id", id))
		return nil
	}

	if n.Comment.IsTopLevel() {
		t.topLevel = without(t.topLevel, id)
		removed := make([]string, 0, 1+len(n.Replies))
		removed = append(removed, id)
		delete(t.index, id)
		for _, rid := range n.Replies {
			delete(t.index, rid)
			removed = append(removed, rid)
		}
		return removed
	}

	parent, ok := t.index[n.Comment.ParentID]
	if !ok || !contains(parent.Replies, id) {
		// Linked replies always have an indexed top-level parent.
		t.log.Warn("commenttree: reply not linked to a parent", zap.String("comment_id", id))
		return nil
	}
	parent.Replies = without(parent.Replies, id)
	delete(t.index, id)
	return []string{id}
}

// AddReply appends c to its parent's replies. It is a no-op, returning
// false, when the parent is missing or not top-level, or when c is already
// in the tree.
func (t *Tree) AddReply(c domain.Comment) bool {
	if c.ID == "" || c.IsTopLevel() {
		t.log.Warn("commenttree: reply without id or parent ignored", zap.String("comment_id", c.ID))
		return false
	}
	if _, exists := t.index[c.ID]; exists {
		t.log.Warn("commenttree: reply already present", zap.String("comment_id", c.ID))
		return false
	}
	parent, ok := t.index[c.ParentID]
	if !ok || !parent.Comment.IsTopLevel() {
		t.log.Warn("commenttree: reply to unknown parent ignored",
			zap.String("comment_id", c.ID), zap.String("parent_id", c.ParentID))
		return false
	}
	parent.Replies = append(parent.Replies, c.ID)
	t.index[c.ID] = &Node{Comment: c}
	return true
}

// AddTopLevel puts a new top-level comment in front of the others, where a
// freshly posted comment is shown.
func (t *Tree) AddTopLevel(c domain.Comment) bool {
	if c.ID == "" || !c.IsTopLevel() {
		t.log.Warn("commenttree: top-level comment without id or with parent ignored", zap.String("comment_id", c.ID))
		return false
	}
	if _, exists := t.index[c.ID]; exists {
		t.log.Warn("commenttree: comment already present", zap.String("comment_id", c.ID))
		return false
	}
	t.topLevel = append([]string{c.ID}, t.topLevel...)
	t.index[c.ID] = &Node{Comment: c}
	return true
}

// TopLevelIDs returns the top-level ids in display order.
func (t *Tree) TopLevelIDs() []string {
	return append([]string(nil), t.topLevel...)
}

// Node returns a copy of the node for id.
func (t *Tree) Node(id string) (Node, bool) {
	n, ok := t.index[id]
	if !ok {
		return Node{}, false
	}
	return Node{Comment: n.Comment, Replies: append([]string(nil), n.Replies...)}, true
}

func (t *Tree) Comment(id string) (domain.Comment, bool) {
	n, ok := t.index[id]
	if !ok {
		return domain.Comment{}, false
	}
	return n.Comment, true
}

func (t *Tree) Replies(id string) []string {
	n, ok := t.index[id]
	if !ok {
		return nil
	}
	return append([]string(nil), n.Replies...)
}

// Len is the number of indexed comments.
func (t *Tree) Len() int { return len(t.index) }

// Dropped lists the orphan replies discarded by Build, in input order.
func (t *Tree) Dropped() []string {
	return append([]string(nil), t.dropped...)
}

// Walk visits comments in display order: each top-level comment (depth 0)
// followed by its replies (depth 1).
func (t *Tree) Walk(fn func(c domain.Comment, depth int)) {
	for _, id := range t.topLevel {
		n := t.index[id]
		fn(n.Comment, 0)
		for _, rid := range n.Replies {
			fn(t.index[rid].Comment, 1)
		}
	}
}

// Flatten returns the visible comments in display order.
func (t *Tree) Flatten() []domain.Comment {
	out := make([]domain.Comment, 0, len(t.index))
	t.Walk(func(c domain.Comment, _ int) { out = append(out, c) })
	return out
}

// Clone returns a deep copy sharing no mutable state with t.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		topLevel: append([]string(nil), t.topLevel...),
		index:    make(map[string]*Node, len(t.index)),
		dropped:  append([]string(nil), t.dropped...),
		log:      t.log,
	}
	for id, n := range t.index {
		cp := Node{Comment: n.Comment, Replies: append([]string(nil), n.Replies...)}
		c.index[id] = &cp
	}
	return c
}

// Equal reports whether both trees have the same top-level order, nodes and
// reply order.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !equalIDs(t.topLevel, o.topLevel) || len(t.index) != len(o.index) {
		return false
	}
	for id, n := range t.index {
		m, ok := o.index[id]
		if !ok || !equalIDs(n.Replies, m.Replies) || !reflect.DeepEqual(n.Comment, m.Comment) {
			return false
		}
	}
	return true
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
