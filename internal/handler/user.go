package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/imagemeta"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/middleware"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/server"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/storage"
	"github.com/microcosm-cc/bluemonday"
)

type profileUpdater interface {
	userByIDGetter
	UpdateProfile(id, name, bio string) error
}

type avatarUpdater interface {
	userByIDGetter
	UpdateAvatar(id, avatarURL string) error
}

// uploader is the object storage contract handlers depend on. Delete is
// best-effort everywhere it is called.
type uploader interface {
	Upload(ctx context.Context, r io.Reader, size int64, folder, ext, contentType string) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

// GetProfileHandler returns the authenticated user's profile.
func GetProfileHandler(svr server.Server, userRepo userByIDGetter) http.HandlerFunc {
	return MeHandler(svr, userRepo)
}

// UpdateProfileHandler updates the editable profile fields, name and bio.
// Unknown fields in the payload are rejected.
func UpdateProfileHandler(svr server.Server, userRepo profileUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
		if err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "not authorized, token missing or invalid")
			return
		}
		req := &struct {
			Name *string `json:"name"`
			Bio  *string `json:"bio"`
		}{}
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			svr.JSONError(w, http.StatusBadRequest, "request is invalid")
			return
		}
		u, err := userRepo.GetByID(claims.UserID)
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to look up user by id")
			svr.JSONError(w, http.StatusInternalServerError, "unable to update profile")
			return
		}
		name := u.Name
		if req.Name != nil && *req.Name != "" {
			name = bluemonday.StrictPolicy().Sanitize(*req.Name)
		}
		bio := u.Bio
		if req.Bio != nil {
			bio = bluemonday.StrictPolicy().Sanitize(*req.Bio)
		}
		if err := userRepo.UpdateProfile(u.ID, name, bio); err != nil {
			svr.Log(err, "unable to update profile")
			svr.JSONError(w, http.StatusInternalServerError, "unable to update profile")
			return
		}
		u.Name = name
		u.Bio = bio
		svr.JSON(w, http.StatusOK, map[string]interface{}{
			"message": "profile updated",
			"user":    profileResponse(u),
		})
	}
}

// UpdateAvatarHandler accepts a multipart avatar image, downscales it,
// uploads it to object storage and stores the resulting URL. The previous
// avatar object is left in place.
func UpdateAvatarHandler(svr server.Server, userRepo avatarUpdater, store uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
		if err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "not authorized, token missing or invalid")
			return
		}
		if _, err := userRepo.GetByID(claims.UserID); err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "user not found")
			return
		} else if err != nil {
			svr.Log(err, "unable to look up user by id")
			svr.JSONError(w, http.StatusInternalServerError, "unable to update avatar")
			return
		}
		file, _, err := r.FormFile("avatar")
		if err != nil {
			svr.JSONError(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		defer file.Close()
		img, size, contentType, ext, err := imagemeta.ShrinkAvatar(file)
		if err != nil {
			svr.JSONError(w, http.StatusBadRequest, "avatar must be a jpeg or png image")
			return
		}
		avatarURL, err := store.Upload(r.Context(), img, size, storage.FolderAvatars, ext, contentType)
		if err != nil {
			svr.Log(err, "unable to upload avatar")
			svr.JSONError(w, http.StatusInternalServerError, "unable to upload avatar")
			return
		}
		if err := userRepo.UpdateAvatar(claims.UserID, avatarURL); err != nil {
			svr.Log(err, "unable to save avatar url")
			svr.JSONError(w, http.StatusInternalServerError, "unable to update avatar")
			return
		}
		svr.JSON(w, http.StatusOK, map[string]string{
			"message": "avatar updated",
			"avatar":  avatarURL,
		})
	}
}
