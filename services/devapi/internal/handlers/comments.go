package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/unisocial/internal/platform/api"
	"github.com/example/unisocial/internal/platform/auth"
	"github.com/example/unisocial/internal/platform/httpserver"
	"github.com/example/unisocial/services/devapi/internal/store"
)

type createCommentRequest struct {
	ThreadID    string   `json:"forum_id"`
	Body        string   `json:"icerik"`
	Attachments []string `json:"foto_urls"`
	ParentID    string   `json:"ust_yorum_id"`
}

type updateCommentRequest struct {
	Body string `json:"icerik"`
}

type reactRequest struct {
	ReactionType store.Reaction `json:"reaction_type"`
}

type reactResponse struct {
	LikeCount    int `json:"begeni_sayisi"`
	DislikeCount int `json:"begenmeme_sayisi"`
}

type deleteResponse struct {
	DeletedIDs []string `json:"deleted_ids"`
}

// ListComments handles GET /api/forums/{thread_id}/comments and
// GET /api/polls/{thread_id}/comments
func ListComments(cs store.CommentStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		threadID := strings.TrimSpace(chi.URLParam(r, "thread_id"))
		if threadID == "" {
			api.BadRequest(w, "MISSING_ID", "thread id is required", rid)
			return
		}

		comments, err := cs.ListThread(r.Context(), threadID)
		if err != nil {
			log.Error("list comments", zap.String("thread_id", threadID), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		if comments == nil {
			comments = []store.Comment{}
		}
		api.Success(w, http.StatusOK, "", comments)
	}
}

// CreateComment handles POST /api/comments
func CreateComment(cs store.CommentStore, users store.UserStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid)
			return
		}

		var req createCommentRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if strings.TrimSpace(req.ThreadID) == "" {
			api.BadRequest(w, "MISSING_ID", "forum_id is required", rid)
			return
		}
		if strings.TrimSpace(req.Body) == "" {
			api.BadRequest(w, "EMPTY_BODY", "icerik must not be empty", rid)
			return
		}

		c := store.Comment{
			ThreadID:    strings.TrimSpace(req.ThreadID),
			ParentID:    strings.TrimSpace(req.ParentID),
			AuthorID:    userID,
			Body:        strings.TrimSpace(req.Body),
			Attachments: req.Attachments,
		}
		if u, err := users.GetUserByID(r.Context(), userID); err == nil {
			c.Author = &store.Author{Username: u.Username, AvatarURL: u.AvatarURL}
		}

		created, err := cs.Create(r.Context(), c)
		if err != nil {
			if errors.Is(err, store.ErrInvalidParent) {
				api.BadRequest(w, "INVALID_PARENT", err.Error(), rid)
				return
			}
			log.Error("create comment", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.Success(w, http.StatusCreated, "Comment created", created)
	}
}

// UpdateComment handles PUT /api/comments/{comment_id}
func UpdateComment(cs store.CommentStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid)
			return
		}
		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))

		var req updateCommentRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if strings.TrimSpace(req.Body) == "" {
			api.BadRequest(w, "EMPTY_BODY", "icerik must not be empty", rid)
			return
		}

		updated, err := cs.UpdateBody(r.Context(), commentID, userID, strings.TrimSpace(req.Body))
		if err != nil {
			writeStoreError(w, rid, err, log)
			return
		}
		api.Success(w, http.StatusOK, "Comment updated", updated)
	}
}

// DeleteComment handles DELETE /api/comments/{comment_id}
func DeleteComment(cs store.CommentStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid)
			return
		}
		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))

		removed, err := cs.Delete(r.Context(), commentID, userID)
		if err != nil {
			writeStoreError(w, rid, err, log)
			return
		}
		api.Success(w, http.StatusOK, "Comment deleted", deleteResponse{DeletedIDs: removed})
	}
}

// ReactComment handles POST /api/comments/{comment_id}/react
func ReactComment(cs store.CommentStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid)
			return
		}
		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))

		var req reactRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if req.ReactionType != store.ReactionLike && req.ReactionType != store.ReactionDislike {
			api.BadRequest(w, "INVALID_REACTION", store.ErrInvalidVote.Error(), rid)
			return
		}

		c, err := cs.React(r.Context(), commentID, userID, req.ReactionType)
		if err != nil {
			writeStoreError(w, rid, err, log)
			return
		}
		api.Success(w, http.StatusOK, "", reactResponse{LikeCount: c.LikeCount, DislikeCount: c.DislikeCount})
	}
}

func writeStoreError(w http.ResponseWriter, rid string, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "comment not found", rid)
	case errors.Is(err, store.ErrForbidden):
		api.Forbidden(w, "FORBIDDEN", "only the author may change this comment", rid)
	default:
		log.Error("comment store", zap.Error(err))
		api.Internal(w, rid)
	}
}
