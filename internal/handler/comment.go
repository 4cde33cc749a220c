package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/blog"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/comment"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/middleware"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/server"
	"github.com/gorilla/mux"
	"github.com/microcosm-cc/bluemonday"
	"github.com/segmentio/ksuid"
)

func muxVar(r *http.Request, key string) string {
	return mux.Vars(r)[key]
}

type commentRepository interface {
	Create(c comment.Comment) error
	GetByID(id string) (comment.Comment, error)
	UpdateText(id, text string) error
	Delete(id string) error
	AllForPost(postID string) ([]comment.Comment, error)
	All() ([]comment.Comment, error)
}

type postGetter interface {
	GetByID(id string) (*blog.BlogPost, error)
}

// CreateCommentHandler adds a comment to an existing post. Posts the caller
// cannot see, drafts of other authors included, report not found.
func CreateCommentHandler(svr server.Server, commentRepo commentRepository, blogRepo postGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
		if err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "not authorized, token missing or invalid")
			return
		}
		req := &struct {
			PostID string `json:"postId"`
			Text   string `json:"text"`
		}{}
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			svr.JSONError(w, http.StatusBadRequest, "request is invalid")
			return
		}
		req.Text = strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(req.Text))
		if req.PostID == "" || req.Text == "" {
			svr.JSONError(w, http.StatusBadRequest, "postId and text are required")
			return
		}
		b, err := blogRepo.GetByID(req.PostID)
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to fetch blog for comment")
			svr.JSONError(w, http.StatusInternalServerError, "unable to save comment")
			return
		}
		if !b.Published && !canSeeUnpublished(r, svr, b) {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		k, err := ksuid.NewRandom()
		if err != nil {
			svr.Log(err, "unable to generate comment id")
			svr.JSONError(w, http.StatusInternalServerError, "unable to save comment")
			return
		}
		t := time.Now().UTC()
		c := comment.Comment{
			ID:        k.String(),
			PostID:    req.PostID,
			UserID:    claims.UserID,
			Text:      req.Text,
			CreatedAt: t,
			UpdatedAt: t,
		}
		if err := commentRepo.Create(c); err != nil {
			svr.Log(err, "unable to save comment")
			svr.JSONError(w, http.StatusInternalServerError, "unable to save comment")
			return
		}
		saved, err := commentRepo.GetByID(c.ID)
		if err != nil {
			svr.Log(err, "unable to load saved comment")
			svr.JSONError(w, http.StatusInternalServerError, "unable to save comment")
			return
		}
		svr.JSON(w, http.StatusCreated, saved)
	}
}

// ListCommentsForPostHandler serves a post's comments, newest first. The
// post must be visible to the caller, so a draft's comments stay hidden.
func ListCommentsForPostHandler(svr server.Server, commentRepo commentRepository, blogRepo postGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := muxVar(r, "postId")
		b, err := blogRepo.GetByID(postID)
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to fetch blog for comments")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch comments")
			return
		}
		if !b.Published && !canSeeUnpublished(r, svr, b) {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		comments, err := commentRepo.AllForPost(postID)
		if err != nil {
			svr.Log(err, "unable to list comments")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch comments")
			return
		}
		svr.JSON(w, http.StatusOK, comments)
	}
}

// UpdateCommentHandler lets a comment's author edit it. Admins use the
// separate admin route, the author check here is strict.
func UpdateCommentHandler(svr server.Server, commentRepo commentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
		if err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "not authorized, token missing or invalid")
			return
		}
		c, ok := commentByID(w, svr, commentRepo, muxVar(r, "id"))
		if !ok {
			return
		}
		if c.UserID != claims.UserID {
			svr.JSONError(w, http.StatusForbidden, "not authorized")
			return
		}
		updateCommentText(w, r, svr, commentRepo, c)
	}
}

// DeleteCommentHandler lets a comment's author remove it.
func DeleteCommentHandler(svr server.Server, commentRepo commentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
		if err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "not authorized, token missing or invalid")
			return
		}
		c, ok := commentByID(w, svr, commentRepo, muxVar(r, "id"))
		if !ok {
			return
		}
		if c.UserID != claims.UserID {
			svr.JSONError(w, http.StatusForbidden, "not authorized")
			return
		}
		if err := commentRepo.Delete(c.ID); err != nil {
			svr.Log(err, "unable to delete comment")
			svr.JSONError(w, http.StatusInternalServerError, "unable to delete comment")
			return
		}
		svr.JSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
	}
}

// AdminListCommentsHandler serves every comment with commenter and post
// title populated.
func AdminListCommentsHandler(svr server.Server, commentRepo commentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		comments, err := commentRepo.All()
		if err != nil {
			svr.Log(err, "unable to list all comments")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch comments")
			return
		}
		svr.JSON(w, http.StatusOK, comments)
	}
}

// AdminUpdateCommentHandler edits any comment, bypassing the author check.
func AdminUpdateCommentHandler(svr server.Server, commentRepo commentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := commentByID(w, svr, commentRepo, muxVar(r, "id"))
		if !ok {
			return
		}
		updateCommentText(w, r, svr, commentRepo, c)
	}
}

// AdminDeleteCommentHandler removes any comment, bypassing the author check.
func AdminDeleteCommentHandler(svr server.Server, commentRepo commentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := commentByID(w, svr, commentRepo, muxVar(r, "id"))
		if !ok {
			return
		}
		if err := commentRepo.Delete(c.ID); err != nil {
			svr.Log(err, "unable to delete comment")
			svr.JSONError(w, http.StatusInternalServerError, "unable to delete comment")
			return
		}
		svr.JSON(w, http.StatusOK, map[string]string{"message": "comment deleted by admin"})
	}
}

func commentByID(w http.ResponseWriter, svr server.Server, commentRepo commentRepository, id string) (comment.Comment, bool) {
	c, err := commentRepo.GetByID(id)
	if err == sql.ErrNoRows {
		svr.JSONError(w, http.StatusNotFound, "comment not found")
		return c, false
	}
	if err != nil {
		svr.Log(err, "unable to fetch comment")
		svr.JSONError(w, http.StatusInternalServerError, "unable to fetch comment")
		return c, false
	}
	return c, true
}

func updateCommentText(w http.ResponseWriter, r *http.Request, svr server.Server, commentRepo commentRepository, c comment.Comment) {
	req := &struct {
		Text string `json:"text"`
	}{}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		svr.JSONError(w, http.StatusBadRequest, "request is invalid")
		return
	}
	req.Text = strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(req.Text))
	if req.Text == "" {
		svr.JSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	if err := commentRepo.UpdateText(c.ID, req.Text); err != nil {
		svr.Log(err, "unable to update comment")
		svr.JSONError(w, http.StatusInternalServerError, "unable to update comment")
		return
	}
	saved, err := commentRepo.GetByID(c.ID)
	if err != nil {
		svr.Log(err, "unable to load updated comment")
		svr.JSONError(w, http.StatusInternalServerError, "unable to update comment")
		return
	}
	svr.JSON(w, http.StatusOK, saved)
}
