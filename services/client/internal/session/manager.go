// Package session owns the authentication session of the forum client: the
// bearer token, the current user snapshot, their durable copy, and the
// authorized request channel every other API call goes through.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/unisocial/internal/platform/analytics"
	"github.com/example/unisocial/internal/platform/api"
	"github.com/example/unisocial/internal/platform/auth"
	"github.com/example/unisocial/internal/platform/httpserver"
	"github.com/example/unisocial/internal/platform/kvstore"
	"github.com/example/unisocial/services/client/internal/domain"
)

// Durable store keys. Both are absent when nobody is logged in.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

const (
	DefaultBaseURL = "http://localhost:5000/api"
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Session is the in-memory session. User may be nil right after a restore
// that found no user snapshot.
type Session struct {
	Token string
	User  *domain.User
}

func (s Session) IsAuthenticated() bool { return s.Token != "" }

func (s Session) userID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// Response is a 2xx reply of the API, envelope unpacked.
type Response struct {
	StatusCode int
	Status     string
	Message    string
	Data       json.RawMessage
	Meta       json.RawMessage
}

// OK reports whether the envelope status is "success".
func (r *Response) OK() bool { return r.Status == api.StatusSuccess }

// Decode unmarshals the data member into dst.
func (r *Response) Decode(dst any) error {
	return api.RawEnvelope{Data: r.Data}.DecodeData(dst)
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Store holds the durable copy of the session. Nil means in-memory.
	Store     kvstore.Store
	Logger    *zap.Logger
	Publisher *analytics.Publisher
	// RefreshOnExpiry makes Do try /auth/refresh-token once before a 401
	// turns into a forced logout.
	RefreshOnExpiry bool
	Now             func() time.Time
}

type Manager struct {
	baseURL string
	http    *http.Client
	store   kvstore.Store
	log     *zap.Logger
	pub     *analytics.Publisher
	refresh bool
	now     func() time.Time

	mu   sync.RWMutex
	sess Session

	lmu       sync.Mutex
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func()
}

func New(opts Options) *Manager {
	m := &Manager{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		http:    opts.HTTPClient,
		store:   opts.Store,
		log:     opts.Logger,
		pub:     opts.Publisher,
		refresh: opts.RefreshOnExpiry,
		now:     opts.Now,
	}
	if m.baseURL == "" {
		m.baseURL = DefaultBaseURL
	}
	if m.http == nil {
		m.http = &http.Client{Timeout: defaultTimeout}
	}
	if m.store == nil {
		m.store = kvstore.NewMemory()
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sess
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.IsAuthenticated()
}

func (m *Manager) State() State {
	if m.IsAuthenticated() {
		return Authenticated
	}
	return Anonymous
}

// OnSessionExpired registers fn to run after every forced logout. The
// returned func removes the registration.
func (m *Manager) OnSessionExpired(fn func()) (unsubscribe func()) {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	return func() {
		m.lmu.Lock()
		defer m.lmu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Login authenticates with email and password.
func (m *Manager) Login(ctx context.Context, creds domain.Credentials) (Session, error) {
	return m.authenticate(ctx, "/auth/login", creds, analytics.SubjectSessionLoggedIn, "session.logged_in")
}

// Register creates an account and logs it in.
func (m *Manager) Register(ctx context.Context, reg domain.Registration) (Session, error) {
	return m.authenticate(ctx, "/auth/register", reg, analytics.SubjectSessionRegistered, "session.registered")
}

type authPayload struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// authenticate posts credentials without a bearer token. A 401 here is a
// credential rejection and never forces a logout.
func (m *Manager) authenticate(ctx context.Context, path string, body any, subject, event string) (Session, error) {
	rep, err := m.send(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return Session{}, err
	}
	if !rep.success() {
		return Session{}, &AuthError{StatusCode: rep.status, Message: rep.message()}
	}

	var p authPayload
	if err := rep.env.DecodeData(&p); err != nil || p.Token == "" {
		return Session{}, &AuthError{StatusCode: rep.status, Message: "response carried no token"}
	}

	sess := Session{Token: p.Token, User: p.User}
	if err := m.persist(ctx, sess); err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	m.sess = sess
	m.mu.Unlock()

	m.log.Info("session: authenticated", zap.String("path", path), zap.String("user_id", sess.userID()))
	m.pub.Publish(subject, event, sess.userID(), nil)
	return m.Session(), nil
}

// Logout clears the session locally and in the store. It never fails;
// store errors are logged.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	prev := m.sess
	m.sess = Session{}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, KeyToken, KeyUser); err != nil {
		m.log.Warn("session: clearing store failed", zap.Error(err))
	}
	if prev.IsAuthenticated() {
		m.pub.Publish(analytics.SubjectSessionLoggedOut, "session.logged_out", prev.userID(), nil)
	}
}

// UpdateUser replaces the current user snapshot in memory and in the store.
// The token is left as it is.
func (m *Manager) UpdateUser(ctx context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sess.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if err := m.persistUser(ctx, &u); err != nil {
		return err
	}
	m.sess.User = &u
	return nil
}

// ChangePassword changes the logged-in user's password. A wrong current
// password comes back as *AuthError and keeps the session.
func (m *Manager) ChangePassword(ctx context.Context, pc domain.PasswordChange) error {
	if !m.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if err := m.account(ctx, "/auth/change-password", pc); err != nil {
		return err
	}
	m.pub.Publish(analytics.SubjectPasswordChanged, "session.password_changed", m.Session().userID(), nil)
	return nil
}

// ForgotPassword asks the server to send a reset token to email.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.account(ctx, "/auth/forgot-password", map[string]string{"email": strings.TrimSpace(email)})
}

// ResetPassword sets a new password using a reset token. It does not log in.
func (m *Manager) ResetPassword(ctx context.Context, pr domain.PasswordReset) error {
	return m.account(ctx, "/auth/reset-password", pr)
}

// account posts a password operation through Do. Client errors and
// non-success envelopes become *AuthError; a 401 still forces a logout.
func (m *Manager) account(ctx context.Context, path string, body any) error {
	resp, err := m.Do(ctx, http.MethodPost, path, body)
	var srvErr *ServerError
	switch {
	case errors.As(err, &srvErr) && srvErr.StatusCode >= 400 && srvErr.StatusCode < 500:
		return &AuthError{StatusCode: srvErr.StatusCode, Message: srvErr.Message}
	case err != nil:
		return err
	case !resp.OK():
		return &AuthError{StatusCode: resp.StatusCode, Message: resp.Message}
	}
	return nil
}

// Restore loads the persisted session and checks it against /auth/me.
//
// A persisted JWT whose exp has passed is cleared without a request. Any
// HTTP answer other than success clears the session. A transport failure
// keeps the persisted session and returns the *NetworkError.
func (m *Manager) Restore(ctx context.Context) (Session, error) {
	tok, ok, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		return Session{}, fmt.Errorf("session: read token: %w", err)
	}
	if !ok || tok == "" {
		return Session{}, nil
	}
	if exp, ok := auth.TokenExpiry(tok); ok && !exp.After(m.now()) {
		m.log.Info("session: persisted token expired", zap.Time("exp", exp))
		m.clear(ctx)
		return Session{}, nil
	}

	sess := Session{Token: tok}
	if raw, ok, err := m.store.Get(ctx, KeyUser); err != nil {
		m.log.Warn("session: read user failed", zap.Error(err))
	} else if ok {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			m.log.Warn("session: persisted user unreadable", zap.Error(err))
		} else {
			sess.User = &u
		}
	}
	m.mu.Lock()
	m.sess = sess
	m.mu.Unlock()

	resp, err := m.Do(ctx, http.MethodGet, "/auth/me", nil)
	var netErr *NetworkError
	switch {
	case errors.As(err, &netErr):
		m.log.Warn("session: restore could not reach the server", zap.Error(err))
		return m.Session(), err
	case errors.Is(err, ErrSessionExpired):
		return Session{}, nil
	case err != nil:
		m.log.Info("session: restore rejected", zap.Error(err))
		m.clear(ctx)
		return Session{}, nil
	}

	var u domain.User
	if !resp.OK() || resp.Decode(&u) != nil || u.ID == "" {
		m.log.Info("session: restore got no user", zap.String("status", resp.Status))
		m.clear(ctx)
		return Session{}, nil
	}

	m.mu.Lock()
	if m.sess.Token == tok {
		m.sess.User = &u
	}
	m.mu.Unlock()
	return m.Session(), nil
}

// Do is the authorized request channel. It sends body as JSON with the
// current bearer token. A 401 clears the session, notifies the expiry
// listeners and returns an error matching ErrSessionExpired; other
// non-2xx replies return *ServerError and leave the session alone.
func (m *Manager) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	tok := m.token()
	rep, err := m.send(ctx, method, path, body, tok)
	if err != nil {
		return nil, err
	}

	if rep.status == http.StatusUnauthorized && m.refresh && tok != "" {
		if fresh, ok := m.refreshToken(ctx, tok); ok {
			tok = fresh
			if rep, err = m.send(ctx, method, path, body, tok); err != nil {
				return nil, err
			}
		}
	}

	if rep.status == http.StatusUnauthorized {
		m.expire(ctx, tok, path)
		return nil, fmt.Errorf("%w: %s %s: %s", ErrSessionExpired, method, path, rep.message())
	}
	if rep.status < 200 || rep.status > 299 {
		return nil, &ServerError{StatusCode: rep.status, Code: rep.env.Code, Message: rep.message()}
	}
	if rep.decodeErr != nil {
		return nil, &ServerError{StatusCode: rep.status, Code: "MALFORMED_RESPONSE", Message: rep.decodeErr.Error()}
	}
	return &Response{
		StatusCode: rep.status,
		Status:     rep.env.Status,
		Message:    rep.env.Message,
		Data:       rep.env.Data,
		Meta:       rep.env.Meta,
	}, nil
}

func (m *Manager) token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.Token
}

// refreshToken trades tok for a new one. ok is false when the server said
// no or the session moved on meanwhile.
func (m *Manager) refreshToken(ctx context.Context, tok string) (string, bool) {
	rep, err := m.send(ctx, http.MethodPost, "/auth/refresh-token", nil, tok)
	if err != nil || !rep.success() {
		m.log.Info("session: token refresh refused", zap.Int("status", rep.status), zap.Error(err))
		return "", false
	}
	var p authPayload
	if err := rep.env.DecodeData(&p); err != nil || p.Token == "" {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.Token != tok {
		return m.sess.Token, m.sess.Token != ""
	}
	next := Session{Token: p.Token, User: m.sess.User}
	if p.User != nil {
		next.User = p.User
	}
	if err := m.persist(ctx, next); err != nil {
		m.log.Warn("session: persisting refreshed token failed", zap.Error(err))
		return "", false
	}
	m.sess = next
	return next.Token, true
}

// expire performs the forced logout for a 401 received while holding tok.
// A session replaced in the meantime is left alone.
func (m *Manager) expire(ctx context.Context, tok, path string) {
	m.mu.Lock()
	if m.sess.Token != tok {
		m.mu.Unlock()
		return
	}
	prev := m.sess
	m.sess = Session{}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, KeyToken, KeyUser); err != nil {
		m.log.Warn("session: clearing store failed", zap.Error(err))
	}
	m.log.Info("session: expired", zap.String("path", path), zap.String("user_id", prev.userID()))
	m.pub.Publish(analytics.SubjectSessionExpired, "session.expired", prev.userID(), map[string]any{"path": path})

	m.lmu.Lock()
	fns := make([]func(), 0, len(m.listeners))
	for _, l := range m.listeners {
		fns = append(fns, l.fn)
	}
	m.lmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *Manager) clear(ctx context.Context) {
	m.mu.Lock()
	m.sess = Session{}
	m.mu.Unlock()
	if err := m.store.Delete(ctx, KeyToken, KeyUser); err != nil {
		m.log.Warn("session: clearing store failed", zap.Error(err))
	}
}

// persist writes s to the store. When the user write fails the previous
// token is put back, so the store never pairs a new token with an old user.
func (m *Manager) persist(ctx context.Context, s Session) error {
	prevTok, hadTok, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("session: read token: %w", err)
	}
	if err := m.store.Set(ctx, KeyToken, s.Token); err != nil {
		return fmt.Errorf("session: persist token: %w", err)
	}
	if err := m.persistUser(ctx, s.User); err != nil {
		var rbErr error
		if hadTok {
			rbErr = m.store.Set(ctx, KeyToken, prevTok)
		} else {
			rbErr = m.store.Delete(ctx, KeyToken)
		}
		if rbErr != nil {
			m.log.Error("session: restoring previous token failed", zap.Error(rbErr))
		}
		return err
	}
	return nil
}

func (m *Manager) persistUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		if err := m.store.Delete(ctx, KeyUser); err != nil {
			return fmt.Errorf("session: persist user: %w", err)
		}
		return nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	if err := m.store.Set(ctx, KeyUser, string(b)); err != nil {
		return fmt.Errorf("session: persist user: %w", err)
	}
	return nil
}

type reply struct {
	status    int
	env       api.RawEnvelope
	raw       []byte
	decodeErr error
}

func (r reply) success() bool {
	return r.status >= 200 && r.status <= 299 && r.decodeErr == nil && r.env.OK()
}

// message prefers the server's message and falls back to a body snippet.
func (r reply) message() string {
	if r.env.Message != "" {
		return r.env.Message
	}
	if len(r.raw) > 0 && r.decodeErr != nil {
		return string(r.raw[:min(len(r.raw), 200)])
	}
	return http.StatusText(r.status)
}

func (m *Manager) send(ctx context.Context, method, path string, body any, token string) (reply, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return reply{}, fmt.Errorf("session: encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, rdr)
	if err != nil {
		return reply{}, fmt.Errorf("session: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(httpserver.RequestIDHeader, uuid.NewString())
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := m.http.Do(req)
	if err != nil {
		return reply{}, &NetworkError{Err: err}
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return reply{}, &NetworkError{Err: err}
	}

	rep := reply{status: res.StatusCode, raw: b}
	if len(bytes.TrimSpace(b)) > 0 {
		if err := json.Unmarshal(b, &rep.env); err != nil {
			rep.decodeErr = fmt.Errorf("decode envelope: %w", err)
		}
	}
	m.log.Debug("session: request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.String("request_id", req.Header.Get(httpserver.RequestIDHeader)))
	return rep, nil
}
