package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/unisocial/internal/platform/api"
	"github.com/example/unisocial/internal/platform/auth"
	"github.com/example/unisocial/internal/platform/httpserver"
	"github.com/example/unisocial/services/devapi/internal/store"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ChangePassword handles POST /api/auth/change-password
func ChangePassword(users store.UserStore, bcryptCost int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Authentication required", rid)
			return
		}
		var req changePasswordRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if len(req.NewPassword) < minPasswordLen {
			api.BadRequest(w, "VALIDATION_PASSWORD", "Password too short", rid)
			return
		}

		u, err := users.GetUserByID(r.Context(), userID)
		if err != nil {
			api.Unauthorized(w, "AUTH_INVALID_TOKEN", "Token expired or invalid", rid)
			return
		}
		// 400 so the client keeps its session.
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)) != nil {
			api.BadRequest(w, "AUTH_WRONG_PASSWORD", "Current password is incorrect", rid)
			return
		}
		if !setPassword(w, r, users, u.ID, req.NewPassword, bcryptCost, log) {
			return
		}
		api.Success(w, http.StatusOK, "Password changed", nil)
	}
}

// ForgotPassword handles POST /api/auth/forgot-password. The answer is the
// same whether or not the account exists. There is no mailer; the token
// is logged.
func ForgotPassword(users store.UserStore, ttl time.Duration, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req forgotPasswordRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if !emailRe.MatchString(strings.TrimSpace(req.Email)) {
			api.BadRequest(w, "VALIDATION_EMAIL", "Invalid email", rid)
			return
		}

		tok, u, err := users.IssueResetToken(r.Context(), req.Email, time.Now().Add(ttl))
		if err == nil {
			log.Info("password reset token issued",
				zap.String("user_id", u.ID),
				zap.String("reset_token", tok),
				zap.String("request_id", rid))
		}
		api.Success(w, http.StatusOK, "If the account exists, reset instructions have been sent", nil)
	}
}

// ResetPassword handles POST /api/auth/reset-password
func ResetPassword(users store.UserStore, bcryptCost int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req resetPasswordRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if len(req.NewPassword) < minPasswordLen {
			api.BadRequest(w, "VALIDATION_PASSWORD", "Password too short", rid)
			return
		}

		u, err := users.ConsumeResetToken(r.Context(), strings.TrimSpace(req.Token), time.Now())
		if err != nil {
			api.BadRequest(w, "RESET_TOKEN_INVALID", "Reset link is invalid or expired", rid)
			return
		}
		if !setPassword(w, r, users, u.ID, req.NewPassword, bcryptCost, log) {
			return
		}
		api.Success(w, http.StatusOK, "Password reset", nil)
	}
}

func setPassword(w http.ResponseWriter, r *http.Request, users store.UserStore, userID, password string, bcryptCost int, log *zap.Logger) bool {
	rid := httpserver.RequestIDFromContext(r.Context())
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		log.Error("bcrypt", zap.Error(err))
		api.Internal(w, rid)
		return false
	}
	if err := users.UpdatePassword(r.Context(), userID, string(hash)); err != nil {
		log.Error("update password", zap.Error(err))
		api.Internal(w, rid)
		return false
	}
	return true
}
