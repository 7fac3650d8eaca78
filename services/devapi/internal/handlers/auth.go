package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/unisocial/internal/platform/api"
	"github.com/example/unisocial/internal/platform/auth"
	"github.com/example/unisocial/internal/platform/httpserver"
	"github.com/example/unisocial/services/devapi/internal/store"
	"github.com/example/unisocial/services/devapi/internal/tokens"
)

var (
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.]{3,32}$`)
)

const minPasswordLen = 6

type registerRequest struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	University string `json:"universite"`
	Gender     string `json:"cinsiyet"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  store.User `json:"user"`
}

// Register handles POST /api/auth/register
func Register(users store.UserStore, tok tokens.Service, bcryptCost int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req registerRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		req.Username = strings.TrimSpace(req.Username)

		switch {
		case !emailRe.MatchString(req.Email):
			api.BadRequest(w, "VALIDATION_EMAIL", "Invalid email", rid)
			return
		case !usernameRe.MatchString(req.Username):
			api.BadRequest(w, "VALIDATION_USERNAME", "Username must be 3-32 letters, digits, '_' or '.'", rid)
			return
		case len(req.Password) < minPasswordLen:
			api.BadRequest(w, "VALIDATION_PASSWORD", "Password too short", rid)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			log.Error("bcrypt", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		u, err := users.CreateUser(r.Context(), store.CreateUserParams{
			Email:        req.Email,
			Username:     req.Username,
			PasswordHash: string(hash),
			University:   strings.TrimSpace(req.University),
			Gender:       strings.TrimSpace(req.Gender),
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				api.Conflict(w, "USER_ALREADY_EXISTS", "Email or username already in use", rid)
				return
			}
			log.Error("create user", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		writeSession(w, r, tok, u, http.StatusCreated, "Registration successful", log)
	}
}

// Login handles POST /api/auth/login
func Login(users store.UserStore, tok tokens.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req loginRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			api.BadRequest(w, "VALIDATION_LOGIN", "Email and password are required", rid)
			return
		}

		u, err := users.FindUserByEmail(r.Context(), req.Email)
		if err != nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			api.Unauthorized(w, "AUTH_INVALID_CREDENTIALS", "Invalid email or password", rid)
			return
		}

		writeSession(w, r, tok, u, http.StatusOK, "Login successful", log)
	}
}

// RefreshToken handles POST /api/auth/refresh-token. The bearer token may
// be expired as long as it is inside the refresh window.
func RefreshToken(users store.UserStore, tok tokens.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		raw, ok := auth.BearerToken(r)
		if !ok {
			api.Unauthorized(w, "AUTH_MISSING", "Authentication required", rid)
			return
		}
		claims, err := tok.ParseForRefresh(raw, time.Now())
		if err != nil {
			api.Unauthorized(w, "AUTH_INVALID_TOKEN", "Token expired or invalid", rid)
			return
		}
		u, err := users.GetUserByID(r.Context(), claims.Subject)
		if err != nil {
			api.Unauthorized(w, "AUTH_INVALID_TOKEN", "Token expired or invalid", rid)
			return
		}

		writeSession(w, r, tok, u, http.StatusOK, "Token refreshed", log)
	}
}

// Me handles GET /api/auth/me
func Me(users store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Authentication required", rid)
			return
		}
		u, err := users.GetUserByID(r.Context(), userID)
		if err != nil {
			api.Unauthorized(w, "AUTH_INVALID_TOKEN", "Token expired or invalid", rid)
			return
		}
		api.Success(w, http.StatusOK, "", u)
	}
}

func writeSession(w http.ResponseWriter, r *http.Request, tok tokens.Service, u store.User, status int, message string, log *zap.Logger) {
	access, _, err := tok.NewAccessToken(u.ID, u.Username, time.Now().UTC())
	if err != nil {
		log.Error("issue token", zap.Error(err))
		api.Internal(w, httpserver.RequestIDFromContext(r.Context()))
		return
	}
	api.Success(w, status, message, authResponse{Token: access, User: u})
}
