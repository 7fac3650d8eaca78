package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/unisocial/services/devapi/internal/store"
)

func newObservedServer(t *testing.T) (*httptest.Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	srv := httptest.NewServer(NewRouter(Deps{
		Users:      store.NewInMemoryUserStore(),
		Comments:   store.NewInMemoryCommentStore(),
		Tokens:     testTokens,
		BcryptCost: bcrypt.MinCost,
		Log:        zap.New(core),
	}))
	t.Cleanup(srv.Close)
	return srv, logs
}

func login(t *testing.T, srv *httptest.Server, email, password string) int {
	t.Helper()
	code, _ := call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	}, nil)
	return code
}

// ─── Change password ───

func TestChangePassword(t *testing.T) {
	srv := newTestServer(t)
	reg := register(t, srv, "ayse@uni.edu", "ayse")

	code, env := call(t, srv, http.MethodPost, "/api/auth/change-password", reg.Token, map[string]string{
		"current_password": "wrong-one", "new_password": "parola456",
	}, nil)
	if code != http.StatusBadRequest || env.Code != "AUTH_WRONG_PASSWORD" {
		t.Fatalf("expected AUTH_WRONG_PASSWORD, got %d %q", code, env.Code)
	}

	code, env = call(t, srv, http.MethodPost, "/api/auth/change-password", reg.Token, map[string]string{
		"current_password": "parola123", "new_password": "abc",
	}, nil)
	if code != http.StatusBadRequest || env.Code != "VALIDATION_PASSWORD" {
		t.Fatalf("expected VALIDATION_PASSWORD, got %d %q", code, env.Code)
	}

	code, env = call(t, srv, http.MethodPost, "/api/auth/change-password", reg.Token, map[string]string{
		"current_password": "parola123", "new_password": "parola456",
	}, nil)
	if code != http.StatusOK || !env.OK() {
		t.Fatalf("change: %d %q", code, env.Message)
	}
	if login(t, srv, "ayse@uni.edu", "parola123") != http.StatusUnauthorized {
		t.Fatal("old password still accepted")
	}
	if login(t, srv, "ayse@uni.edu", "parola456") != http.StatusOK {
		t.Fatal("new password rejected")
	}
}

func TestChangePassword_RequiresToken(t *testing.T) {
	srv := newTestServer(t)
	code, _ := call(t, srv, http.MethodPost, "/api/auth/change-password", "", map[string]string{
		"current_password": "parola123", "new_password": "parola456",
	}, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

// ─── Forgot / reset ───

func TestForgotAndResetPassword(t *testing.T) {
	srv, logs := newObservedServer(t)
	register(t, srv, "ayse@uni.edu", "ayse")

	code, env := call(t, srv, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nobody@uni.edu"}, nil)
	if code != http.StatusOK || !env.OK() {
		t.Fatalf("unknown email must look like success, got %d", code)
	}
	if logs.FilterMessage("password reset token issued").Len() != 0 {
		t.Fatal("no token expected for an unknown email")
	}

	code, _ = call(t, srv, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ayse@uni.edu"}, nil)
	if code != http.StatusOK {
		t.Fatalf("forgot: %d", code)
	}
	issued := logs.FilterMessage("password reset token issued").All()
	if len(issued) != 1 {
		t.Fatalf("expected one issued token, got %d", len(issued))
	}
	resetTok, _ := issued[0].ContextMap()["reset_token"].(string)
	if resetTok == "" {
		t.Fatal("reset token missing from log")
	}

	code, env = call(t, srv, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": "not-a-token", "new_password": "parola456",
	}, nil)
	if code != http.StatusBadRequest || env.Code != "RESET_TOKEN_INVALID" {
		t.Fatalf("expected RESET_TOKEN_INVALID, got %d %q", code, env.Code)
	}

	code, _ = call(t, srv, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": resetTok, "new_password": "parola456",
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("reset: %d", code)
	}
	if login(t, srv, "ayse@uni.edu", "parola456") != http.StatusOK {
		t.Fatal("new password rejected after reset")
	}

	code, _ = call(t, srv, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": resetTok, "new_password": "parola789",
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("reset token reused, got %d", code)
	}
}

func TestForgotPassword_InvalidEmail(t *testing.T) {
	srv := newTestServer(t)
	code, env := call(t, srv, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nope"}, nil)
	if code != http.StatusBadRequest || env.Code != "VALIDATION_EMAIL" {
		t.Fatalf("expected VALIDATION_EMAIL, got %d %q", code, env.Code)
	}
}
