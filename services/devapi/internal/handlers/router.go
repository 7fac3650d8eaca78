package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/unisocial/internal/platform/auth"
	"github.com/example/unisocial/internal/platform/httpserver"
	"github.com/example/unisocial/services/devapi/internal/store"
	"github.com/example/unisocial/services/devapi/internal/tokens"
)

type Deps struct {
	Users          store.UserStore
	Comments       store.CommentStore
	Tokens         tokens.Service
	BcryptCost     int
	ResetTokenTTL  time.Duration
	AllowedOrigins []string
	Log            *zap.Logger
}

// NewRouter mounts the forum API under /api. Reads are public; writes and
// /auth/me need a bearer token.
func NewRouter(d Deps) chi.Router {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	resetTTL := d.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{AllowedOrigins: d.AllowedOrigins})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", Register(d.Users, d.Tokens, d.BcryptCost, log))
		r.Post("/auth/login", Login(d.Users, d.Tokens, log))
		r.Post("/auth/refresh-token", RefreshToken(d.Users, d.Tokens, log))
		r.Post("/auth/forgot-password", ForgotPassword(d.Users, resetTTL, log))
		r.Post("/auth/reset-password", ResetPassword(d.Users, d.BcryptCost, log))
		r.Get("/forums/{thread_id}/comments", ListComments(d.Comments, log))
		r.Get("/polls/{thread_id}/comments", ListComments(d.Comments, log))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(d.Tokens.Verifier()))
			r.Get("/auth/me", Me(d.Users))
			r.Post("/auth/change-password", ChangePassword(d.Users, d.BcryptCost, log))
			r.Post("/comments", CreateComment(d.Comments, d.Users, log))
			r.Put("/comments/{comment_id}", UpdateComment(d.Comments, log))
			r.Delete("/comments/{comment_id}", DeleteComment(d.Comments, log))
			r.Post("/comments/{comment_id}/react", ReactComment(d.Comments, log))
		})
	})
	return r
}
