package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/blog"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/category"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/server"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/tag"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/user"
)

type userAdminStore interface {
	userCreator
	All() ([]user.User, error)
	Delete(id string) error
}

type categoryAdminStore interface {
	Create(name string) (category.Category, error)
	All() ([]category.Category, error)
	Delete(id string) error
}

type tagAdminStore interface {
	Create(name string) (tag.Tag, error)
	AllRecent() ([]tag.Tag, error)
	Delete(id string) error
}

type entityCounter interface {
	CountAll() (int, error)
}

type createdSinceCounter interface {
	entityCounter
	CountCreatedSince(t time.Time) (int, error)
}

// AdminListUsersHandler returns every user, password hashes excluded.
func AdminListUsersHandler(svr server.Server, userRepo userAdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userRepo.All()
		if err != nil {
			svr.Log(err, "unable to list users")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch users")
			return
		}
		svr.JSON(w, http.StatusOK, users)
	}
}

// AdminCreateUserHandler creates an account on behalf of an admin. Unlike
// self-registration the role may be set to admin.
func AdminCreateUserHandler(svr server.Server, userRepo userAdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}{}
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			svr.JSONError(w, http.StatusBadRequest, "request is invalid")
			return
		}
		if req.Name == "" || req.Email == "" || req.Password == "" {
			svr.JSONError(w, http.StatusBadRequest, "name, email, and password are required")
			return
		}
		if !svr.IsEmail(req.Email) {
			svr.JSONError(w, http.StatusBadRequest, "email is invalid")
			return
		}
		role := user.RoleUser
		if req.Role == user.RoleAdmin {
			role = user.RoleAdmin
		}
		u, err := newUser(req.Name, req.Email, req.Password, role)
		if err != nil {
			svr.Log(err, "unable to build new user")
			svr.JSONError(w, http.StatusInternalServerError, "unable to create user")
			return
		}
		if err := userRepo.Create(u); err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				svr.JSONError(w, http.StatusConflict, "user with this email already exists")
				return
			}
			svr.Log(err, "unable to save new user")
			svr.JSONError(w, http.StatusInternalServerError, "unable to create user")
			return
		}
		svr.JSON(w, http.StatusCreated, map[string]interface{}{
			"message": "user created successfully",
			"user":    publicUser(u),
		})
	}
}

func AdminDeleteUserHandler(svr server.Server, userRepo userAdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := userRepo.Delete(muxVar(r, "id"))
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to delete user")
			svr.JSONError(w, http.StatusInternalServerError, "unable to delete user")
			return
		}
		svr.JSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
	}
}

// AdminListBlogsHandler returns every post, unpublished included.
func AdminListBlogsHandler(svr server.Server, blogRepo blogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := blogRepo.List(blog.ListOptions{})
		if err != nil {
			svr.Log(err, "unable to list blogs")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch blogs")
			return
		}
		svr.JSON(w, http.StatusOK, withHTMLAll(posts))
	}
}

// AdminDeleteBlogHandler removes any post regardless of authorship, with the
// same best-effort cover cleanup and comment cascade as the author route.
func AdminDeleteBlogHandler(svr server.Server, blogRepo blogRepository, store uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := blogRepo.GetByID(muxVar(r, "id"))
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to fetch blog")
			svr.JSONError(w, http.StatusInternalServerError, "unable to delete blog")
			return
		}
		if err := deleteBlogWithCover(r, svr, blogRepo, store, b); err != nil {
			svr.Log(err, "unable to delete blog")
			svr.JSONError(w, http.StatusInternalServerError, "unable to delete blog")
			return
		}
		svr.JSON(w, http.StatusOK, map[string]string{"message": "blog deleted"})
	}
}

// AdminListCategoriesHandler returns the category registry, newest first.
func AdminListCategoriesHandler(svr server.Server, categoryRepo categoryAdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := categoryRepo.All()
		if err != nil {
			svr.Log(err, "unable to list categories")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch categories")
			return
		}
		svr.JSON(w, http.StatusOK, categories)
	}
}

// AdminCreateCategoryHandler adds a category. Names are normalized before
// the uniqueness check, so the check is case-insensitive.
func AdminCreateCategoryHandler(svr server.Server, categoryRepo categoryAdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := decodeName(w, svr, r)
		if !ok {
			return
		}
		c, err := categoryRepo.Create(name)
		if errors.Is(err, category.ErrAlreadyExists) {
			svr.JSONError(w, http.StatusConflict, "category already exists")
			return
		}
		if err != nil {
			svr.Log(err, "unable to create category")
			svr.JSONError(w, http.StatusInternalServerError, "unable to create category")
			return
		}
		svr.CacheDelete(server.CacheKeyCategoriesWithCounts)
		svr.JSON(w, http.StatusCreated, c)
	}
}

func AdminDeleteCategoryHandler(svr server.Server, categoryRepo categoryAdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := categoryRepo.Delete(muxVar(r, "id"))
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "category not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to delete category")
			svr.JSONError(w, http.StatusInternalServerError, "unable to delete category")
			return
		}
		svr.CacheDelete(server.CacheKeyCategoriesWithCounts)
		svr.JSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
	}
}

// AdminListTagsHandler returns the tag vocabulary, newest first.
func AdminListTagsHandler(svr server.Server, tagRepo tagAdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := tagRepo.AllRecent()
		if err != nil {
			svr.Log(err, "unable to list tags")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch tags")
			return
		}
		svr.JSON(w, http.StatusOK, tags)
	}
}

func AdminCreateTagHandler(svr server.Server, tagRepo tagAdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := decodeName(w, svr, r)
		if !ok {
			return
		}
		t, err := tagRepo.Create(name)
		if errors.Is(err, tag.ErrAlreadyExists) {
			svr.JSONError(w, http.StatusConflict, "tag already exists")
			return
		}
		if err != nil {
			svr.Log(err, "unable to create tag")
			svr.JSONError(w, http.StatusInternalServerError, "unable to create tag")
			return
		}
		svr.JSON(w, http.StatusCreated, t)
	}
}

func AdminDeleteTagHandler(svr server.Server, tagRepo tagAdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := tagRepo.Delete(muxVar(r, "id"))
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "tag not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to delete tag")
			svr.JSONError(w, http.StatusInternalServerError, "unable to delete tag")
			return
		}
		svr.JSON(w, http.StatusOK, map[string]string{"message": "tag deleted"})
	}
}

// AdminStatsHandler aggregates the dashboard numbers: entity totals plus
// today's new users and posts.
func AdminStatsHandler(svr server.Server, userRepo createdSinceCounter, blogRepo createdSinceCounter, categoryRepo, tagRepo, commentRepo entityCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totalUsers, err := userRepo.CountAll()
		if err != nil {
			svr.Log(err, "unable to count users")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch stats")
			return
		}
		totalBlogs, err := blogRepo.CountAll()
		if err != nil {
			svr.Log(err, "unable to count blogs")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch stats")
			return
		}
		totalCategories, err := categoryRepo.CountAll()
		if err != nil {
			svr.Log(err, "unable to count categories")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch stats")
			return
		}
		totalTags, err := tagRepo.CountAll()
		if err != nil {
			svr.Log(err, "unable to count tags")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch stats")
			return
		}
		totalComments, err := commentRepo.CountAll()
		if err != nil {
			svr.Log(err, "unable to count comments")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch stats")
			return
		}
		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		newUsersToday, err := userRepo.CountCreatedSince(today)
		if err != nil {
			svr.Log(err, "unable to count today's users")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch stats")
			return
		}
		blogsToday, err := blogRepo.CountCreatedSince(today)
		if err != nil {
			svr.Log(err, "unable to count today's blogs")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch stats")
			return
		}
		svr.JSON(w, http.StatusOK, map[string]interface{}{
			"totalUsers":      totalUsers,
			"totalBlogs":      totalBlogs,
			"totalCategories": totalCategories,
			"totalTags":       totalTags,
			"totalComments":   totalComments,
			"newUsersToday":   newUsersToday,
			"blogsToday":      blogsToday,
		})
	}
}

func decodeName(w http.ResponseWriter, svr server.Server, r *http.Request) (string, bool) {
	req := &struct {
		Name string `json:"name"`
	}{}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		svr.JSONError(w, http.StatusBadRequest, "request is invalid")
		return "", false
	}
	if category.Normalize(req.Name) == "" {
		svr.JSONError(w, http.StatusBadRequest, "name is required")
		return "", false
	}
	return req.Name, true
}
