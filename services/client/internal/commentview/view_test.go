package commentview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/unisocial/services/client/internal/domain"
	"github.com/example/unisocial/services/client/internal/forumapi"
)

// fakeAPI serves a fixed thread. A non-nil gate blocks the next call
// until it is closed.
type fakeAPI struct {
	mu       sync.Mutex
	comments []domain.Comment
	gate     chan struct{}
	entered  chan struct{}
	nextID   string
	failWith error
}

func (f *fakeAPI) wait() {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.gate, f.entered = nil, nil
	f.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}
}

func (f *fakeAPI) block() (release func(), entered <-chan struct{}) {
	gate := make(chan struct{})
	in := make(chan struct{})
	f.mu.Lock()
	f.gate, f.entered = gate, in
	f.mu.Unlock()
	return func() { close(gate) }, in
}

func (f *fakeAPI) ListComments(_ context.Context, _ forumapi.ThreadKind, _ string) ([]domain.Comment, error) {
	f.mu.Lock()
	out := append([]domain.Comment(nil), f.comments...)
	f.mu.Unlock()
	f.wait()
	return out, f.failWith
}

func (f *fakeAPI) CreateComment(_ context.Context, in forumapi.NewComment) (domain.Comment, error) {
	f.wait()
	if f.failWith != nil {
		return domain.Comment{}, f.failWith
	}
	return domain.Comment{ID: f.nextID, ThreadID: in.ThreadID, ParentID: in.ParentID, Body: in.Body, AuthorID: "u1"}, nil
}

// UpdateComment answers like a server that only echoes the id and body.
func (f *fakeAPI) UpdateComment(_ context.Context, id, body string) (domain.CommentPatch, error) {
	f.wait()
	return domain.CommentPatch{ID: id, Body: &body}, f.failWith
}

func (f *fakeAPI) DeleteComment(_ context.Context, _ string) error {
	f.wait()
	return f.failWith
}

func (f *fakeAPI) React(_ context.Context, _ string, r forumapi.Reaction) (forumapi.ReactionCounts, error) {
	f.wait()
	if r == forumapi.ReactionLike {
		return forumapi.ReactionCounts{LikeCount: 1}, f.failWith
	}
	return forumapi.ReactionCounts{DislikeCount: 1}, f.failWith
}

func thread() []domain.Comment {
	return []domain.Comment{
		{ID: "c1", ThreadID: "f1", Body: "first"},
		{ID: "r1", ThreadID: "f1", ParentID: "c1", Body: "reply"},
		{ID: "c2", ThreadID: "f1", Body: "second"},
	}
}

func loaded(t *testing.T, f *fakeAPI) *View {
	t.Helper()
	v := New(f, forumapi.KindForum, "f1")
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return v
}

// ─── Load ───

func TestLoad_BuildsTree(t *testing.T) {
	v := loaded(t, &fakeAPI{comments: thread()})
	tr := v.Tree()
	if ids := tr.TopLevelIDs(); len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Fatalf("unexpected top-level %v", ids)
	}
	if reps := tr.Replies("c1"); len(reps) != 1 || reps[0] != "r1" {
		t.Fatalf("unexpected replies %v", reps)
	}
}

func TestLoad_Error(t *testing.T) {
	boom := errors.New("boom")
	v := New(&fakeAPI{comments: thread(), failWith: boom}, forumapi.KindForum, "f1")
	if err := v.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if v.Tree().Len() != 0 {
		t.Fatal("failed load should leave the tree empty")
	}
}

func TestLoad_StaleResponseDiscarded(t *testing.T) {
	f := &fakeAPI{comments: thread()}
	v := New(f, forumapi.KindForum, "f1")

	release, entered := f.block()
	errc := make(chan error, 1)
	go func() { errc <- v.Load(context.Background()) }()
	<-entered

	f.mu.Lock()
	f.comments = thread()[:1]
	f.mu.Unlock()
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("second load: %v", err)
	}
	release()

	if err := <-errc; !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("expected ErrStaleLoad, got %v", err)
	}
	if v.Tree().Len() != 1 {
		t.Fatalf("newest load should win, got %d comments", v.Tree().Len())
	}
}

// ─── Mutations ───

func TestPost_TopLevelGoesFirst(t *testing.T) {
	f := &fakeAPI{comments: thread(), nextID: "c3"}
	v := loaded(t, f)

	if _, err := v.Post(context.Background(), "new", "", nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	if ids := v.Tree().TopLevelIDs(); ids[0] != "c3" || len(ids) != 3 {
		t.Fatalf("expected c3 first, got %v", ids)
	}
}

func TestPost_ReplyAppended(t *testing.T) {
	f := &fakeAPI{comments: thread(), nextID: "r2"}
	v := loaded(t, f)

	if _, err := v.Post(context.Background(), "me too", "c1", nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	if reps := v.Tree().Replies("c1"); len(reps) != 2 || reps[1] != "r2" {
		t.Fatalf("expected r2 appended, got %v", reps)
	}
}

func TestEdit_UpdatesInPlace(t *testing.T) {
	v := loaded(t, &fakeAPI{comments: thread()})

	if _, err := v.Edit(context.Background(), "c1", "edited"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	tr := v.Tree()
	n, _ := tr.Node("c1")
	if n.Comment.Body != "edited" || len(n.Replies) != 1 {
		t.Fatalf("unexpected node %+v", n)
	}
	if tr.TopLevelIDs()[0] != "c1" {
		t.Fatal("edit must not move the comment")
	}
}

func TestEdit_PartialReplyKeepsOtherFields(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	comments := thread()
	comments[0].AuthorID = "u1"
	comments[0].LikeCount = 7
	comments[0].DislikeCount = 2
	comments[0].CreatedAt = created
	comments[0].Author = &domain.Author{Username: "ayse"}
	v := loaded(t, &fakeAPI{comments: comments})

	got, err := v.Edit(context.Background(), "c1", "edited")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	c, _ := v.Tree().Comment("c1")
	for _, rec := range []domain.Comment{got, c} {
		if rec.Body != "edited" || rec.LikeCount != 7 || rec.DislikeCount != 2 {
			t.Fatalf("counts or body lost: %+v", rec)
		}
		if rec.AuthorID != "u1" || rec.Author == nil || rec.Author.Username != "ayse" || !rec.CreatedAt.Equal(created) {
			t.Fatalf("author or creation time lost: %+v", rec)
		}
	}
}

func TestDelete_Cascades(t *testing.T) {
	v := loaded(t, &fakeAPI{comments: thread()})

	removed, err := v.Delete(context.Background(), "c1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected c1 and r1 removed, got %v", removed)
	}
	if v.Tree().Len() != 1 {
		t.Fatalf("expected 1 comment left, got %d", v.Tree().Len())
	}
}

func TestDelete_APIErrorLeavesTree(t *testing.T) {
	f := &fakeAPI{comments: thread()}
	v := loaded(t, f)
	f.failWith = errors.New("forbidden")

	if _, err := v.Delete(context.Background(), "c1"); err == nil {
		t.Fatal("expected error")
	}
	if v.Tree().Len() != 3 {
		t.Fatal("tree changed despite API failure")
	}
}

func TestReact_StoresCounts(t *testing.T) {
	v := loaded(t, &fakeAPI{comments: thread()})

	if _, err := v.React(context.Background(), "r1", forumapi.ReactionDislike); err != nil {
		t.Fatalf("react: %v", err)
	}
	c, _ := v.Tree().Comment("r1")
	if c.DislikeCount != 1 || c.LikeCount != 0 || c.Body != "reply" {
		t.Fatalf("unexpected comment %+v", c)
	}
}

// ─── Close ───

func TestClose_DiscardsLateResponse(t *testing.T) {
	f := &fakeAPI{comments: thread(), nextID: "c3"}
	v := loaded(t, f)
	before := v.Tree()

	release, entered := f.block()
	errc := make(chan error, 1)
	go func() {
		_, err := v.Post(context.Background(), "late", "", nil)
		errc <- err
	}()
	<-entered
	v.Close()
	release()

	if err := <-errc; !errors.Is(err, ErrViewClosed) {
		t.Fatalf("expected ErrViewClosed, got %v", err)
	}
	if !v.Tree().Equal(before) {
		t.Fatal("late response must not touch the tree")
	}
}

func TestClose_RejectsNewCalls(t *testing.T) {
	v := loaded(t, &fakeAPI{comments: thread()})
	v.Close()

	if err := v.Load(context.Background()); !errors.Is(err, ErrViewClosed) {
		t.Fatalf("expected ErrViewClosed from Load, got %v", err)
	}
	if _, err := v.Edit(context.Background(), "c1", "x"); !errors.Is(err, ErrViewClosed) {
		t.Fatalf("expected ErrViewClosed from Edit, got %v", err)
	}
}
