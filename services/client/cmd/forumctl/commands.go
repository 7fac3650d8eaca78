package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/example/unisocial/internal/platform/analytics"
	"github.com/example/unisocial/services/client/internal/commenttree"
	"github.com/example/unisocial/services/client/internal/commentview"
	"github.com/example/unisocial/services/client/internal/domain"
	"github.com/example/unisocial/services/client/internal/forumapi"
	"github.com/example/unisocial/services/client/internal/session"
)

const usage = `usage: forumctl <command> [flags]

commands:
  login            -email E -password P
  register         -email E -username U -password P [-university X] [-gender X]
  logout
  whoami
  passwd           -current P -new P
  forgot-password  -email E
  reset-password   -token T -password P
  comments         -thread ID [-poll]
  post             -thread ID -body TEXT [-poll]
  reply            -thread ID -parent ID -body TEXT [-poll]
  edit             -thread ID -id ID -body TEXT [-poll]
  delete           -thread ID -id ID [-poll]
  react            -thread ID -id ID -type like|dislike [-poll]
`

var errUsage = errors.New("invalid usage")

type app struct {
	sess *session.Manager
	api  *forumapi.Client
	pub  *analytics.Publisher
	log  *zap.Logger
	out  io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "forgot-password":
		return a.forgotPassword(ctx, rest)
	case "reset-password":
		return a.resetPassword(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}

	if _, err := a.sess.Restore(ctx); err != nil {
		a.log.Warn("could not verify the saved session", zap.Error(err))
	}

	switch cmd {
	case "logout":
		a.sess.Logout(ctx)
		fmt.Fprintln(a.out, "logged out")
		return nil
	case "whoami":
		return a.whoami(ctx)
	case "passwd":
		return a.changePassword(ctx, rest)
	case "comments":
		return a.comments(ctx, rest)
	case "post":
		return a.post(ctx, rest, false)
	case "reply":
		return a.post(ctx, rest, true)
	case "edit":
		return a.edit(ctx, rest)
	case "delete":
		return a.remove(ctx, rest)
	case "react":
		return a.react(ctx, rest)
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string, required map[string]*string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	for name, v := range required {
		if strings.TrimSpace(*v) == "" {
			return fmt.Errorf("%w: %s: -%s is required", errUsage, fs.Name(), name)
		}
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := parse(fs, args, map[string]*string{"email": email, "password": password}); err != nil {
		return err
	}

	s, err := a.sess.Login(ctx, domain.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n", displayName(s.User))
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	email := fs.String("email", "", "account email")
	username := fs.String("username", "", "public username")
	password := fs.String("password", "", "account password")
	university := fs.String("university", "", "university")
	gender := fs.String("gender", "", "gender")
	if err := parse(fs, args, map[string]*string{"email": email, "username": username, "password": password}); err != nil {
		return err
	}

	s, err := a.sess.Register(ctx, domain.Registration{
		Email:      *email,
		Username:   *username,
		Password:   *password,
		University: *university,
		Gender:     *gender,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered and logged in as %s\n", displayName(s.User))
	return nil
}

// whoami prints the current user and saves the server's copy of the
// profile as the new snapshot.
func (a *app) whoami(ctx context.Context) error {
	s := a.sess.Session()
	if !s.IsAuthenticated() {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	if s.User != nil {
		if err := a.sess.UpdateUser(ctx, *s.User); err != nil {
			a.log.Warn("could not save the user snapshot", zap.Error(err))
		}
	}
	fmt.Fprintf(a.out, "%s\n", displayName(s.User))
	return nil
}

func (a *app) changePassword(ctx context.Context, args []string) error {
	fs := newFlagSet("passwd")
	current := fs.String("current", "", "current password")
	next := fs.String("new", "", "new password")
	if err := parse(fs, args, map[string]*string{"current": current, "new": next}); err != nil {
		return err
	}

	if err := a.sess.ChangePassword(ctx, domain.PasswordChange{CurrentPassword: *current, NewPassword: *next}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password changed")
	return nil
}

func (a *app) forgotPassword(ctx context.Context, args []string) error {
	fs := newFlagSet("forgot-password")
	email := fs.String("email", "", "account email")
	if err := parse(fs, args, map[string]*string{"email": email}); err != nil {
		return err
	}

	if err := a.sess.ForgotPassword(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "if the account exists, a reset token has been sent")
	return nil
}

func (a *app) resetPassword(ctx context.Context, args []string) error {
	fs := newFlagSet("reset-password")
	token := fs.String("token", "", "reset token")
	password := fs.String("password", "", "new password")
	if err := parse(fs, args, map[string]*string{"token": token, "password": password}); err != nil {
		return err
	}

	if err := a.sess.ResetPassword(ctx, domain.PasswordReset{Token: *token, NewPassword: *password}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password reset, log in with the new password")
	return nil
}

func (a *app) openView(ctx context.Context, thread string, poll bool) (*commentview.View, error) {
	kind := forumapi.KindForum
	if poll {
		kind = forumapi.KindPoll
	}
	v := commentview.New(a.api, kind, thread, commentview.WithLogger(a.log), commentview.WithPublisher(a.pub))
	if err := v.Load(ctx); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func (a *app) comments(ctx context.Context, args []string) error {
	fs := newFlagSet("comments")
	thread := fs.String("thread", "", "forum or poll id")
	poll := fs.Bool("poll", false, "thread is a poll")
	if err := parse(fs, args, map[string]*string{"thread": thread}); err != nil {
		return err
	}

	v, err := a.openView(ctx, *thread, *poll)
	if err != nil {
		return err
	}
	defer v.Close()
	printTree(a.out, v.Tree())
	return nil
}

func (a *app) post(ctx context.Context, args []string, isReply bool) error {
	name := "post"
	if isReply {
		name = "reply"
	}
	fs := newFlagSet(name)
	thread := fs.String("thread", "", "forum or poll id")
	parent := fs.String("parent", "", "top-level comment to reply to")
	body := fs.String("body", "", "comment text")
	poll := fs.Bool("poll", false, "thread is a poll")
	required := map[string]*string{"thread": thread, "body": body}
	if isReply {
		required["parent"] = parent
	}
	if err := parse(fs, args, required); err != nil {
		return err
	}
	if !isReply {
		*parent = ""
	}

	v, err := a.openView(ctx, *thread, *poll)
	if err != nil {
		return err
	}
	defer v.Close()

	if isReply {
		if n, ok := v.Tree().Node(*parent); !ok || !n.Comment.IsTopLevel() {
			return fmt.Errorf("comment %s is not a top-level comment of thread %s", *parent, *thread)
		}
	}

	c, err := v.Post(ctx, *body, *parent, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "posted %s\n\n", c.ID)
	printTree(a.out, v.Tree())
	return nil
}

// threadFlags registers the flags every single-comment command shares.
func threadFlags(fs *flag.FlagSet) (thread, id *string, poll *bool) {
	thread = fs.String("thread", "", "forum or poll id")
	id = fs.String("id", "", "comment id")
	poll = fs.Bool("poll", false, "thread is a poll")
	return thread, id, poll
}

// openComment loads the thread and checks that id belongs to it.
func (a *app) openComment(ctx context.Context, thread, id string, poll bool) (*commentview.View, error) {
	v, err := a.openView(ctx, thread, poll)
	if err != nil {
		return nil, err
	}
	if _, ok := v.Tree().Comment(id); !ok {
		v.Close()
		return nil, fmt.Errorf("comment %s is not in thread %s", id, thread)
	}
	return v, nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := newFlagSet("edit")
	thread, id, poll := threadFlags(fs)
	body := fs.String("body", "", "new text")
	if err := parse(fs, args, map[string]*string{"thread": thread, "id": id, "body": body}); err != nil {
		return err
	}

	v, err := a.openComment(ctx, *thread, *id, *poll)
	if err != nil {
		return err
	}
	defer v.Close()

	c, err := v.Edit(ctx, *id, *body)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated %s\n\n", c.ID)
	printTree(a.out, v.Tree())
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	thread, id, poll := threadFlags(fs)
	if err := parse(fs, args, map[string]*string{"thread": thread, "id": id}); err != nil {
		return err
	}

	v, err := a.openComment(ctx, *thread, *id, *poll)
	if err != nil {
		return err
	}
	defer v.Close()

	removed, err := v.Delete(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s\n\n", strings.Join(removed, ", "))
	printTree(a.out, v.Tree())
	return nil
}

func (a *app) react(ctx context.Context, args []string) error {
	fs := newFlagSet("react")
	thread, id, poll := threadFlags(fs)
	kind := fs.String("type", "like", "like or dislike")
	if err := parse(fs, args, map[string]*string{"thread": thread, "id": id}); err != nil {
		return err
	}

	var r forumapi.Reaction
	switch strings.ToLower(*kind) {
	case "like", string(forumapi.ReactionLike):
		r = forumapi.ReactionLike
	case "dislike", string(forumapi.ReactionDislike):
		r = forumapi.ReactionDislike
	default:
		return fmt.Errorf("%w: react: -type must be like or dislike", errUsage)
	}

	v, err := a.openComment(ctx, *thread, *id, *poll)
	if err != nil {
		return err
	}
	defer v.Close()

	counts, err := v.React(ctx, *id, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: +%d -%d\n", *id, counts.LikeCount, counts.DislikeCount)
	return nil
}

func printTree(w io.Writer, t *commenttree.Tree) {
	if t.Len() == 0 {
		fmt.Fprintln(w, "no comments yet")
		return
	}
	t.Walk(func(c domain.Comment, depth int) {
		indent := strings.Repeat("    ", depth)
		author := c.AuthorID
		if c.Author != nil && c.Author.Username != "" {
			author = c.Author.Username
		}
		fmt.Fprintf(w, "%s[%s] %s: %s (+%d -%d)\n", indent, c.ID, author, c.Body, c.LikeCount, c.DislikeCount)
	})
}

func displayName(u *domain.User) string {
	switch {
	case u == nil:
		return "unknown user"
	case u.Username != "":
		return u.Username
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

func exitCode(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "forumctl:", describe(err))
	if errors.Is(err, errUsage) {
		return 2
	}
	return 1
}

// describe turns client errors into one line for the terminal.
func describe(err error) string {
	var (
		authErr *session.AuthError
		srvErr  *session.ServerError
		netErr  *session.NetworkError
	)
	switch {
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.Is(err, session.ErrSessionExpired):
		return "not logged in or session expired"
	case errors.As(err, &srvErr):
		return fmt.Sprintf("server said %d: %s", srvErr.StatusCode, srvErr.Message)
	case errors.As(err, &netErr):
		return "cannot reach the forum API: " + netErr.Err.Error()
	default:
		return err.Error()
	}
}
