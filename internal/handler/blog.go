package handler

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/blog"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/category"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/markdown"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/middleware"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/server"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/storage"
	"github.com/gorilla/mux"
	"github.com/gosimple/slug"
	"github.com/segmentio/ksuid"
)

const maxUploadBytes = 32 << 20

type blogRepository interface {
	Create(b blog.BlogPost) error
	GetByID(id string) (*blog.BlogPost, error)
	GetBySlug(slug string) (*blog.BlogPost, error)
	List(opts blog.ListOptions) ([]*blog.BlogPost, error)
	Update(b blog.BlogPost) error
	Delete(id string) error
	ToggleLike(id, userID string) ([]string, error)
}

type categoryFindOrCreator interface {
	GetOrCreate(name string) (category.Category, error)
}

type categoryByNameGetter interface {
	GetByName(name string) (category.Category, error)
}

type categoryCounter interface {
	WithCounts() ([]category.WithCount, error)
}

// CreateBlogHandler creates a post from a multipart form. A cover image file
// is uploaded to object storage before the post is written, so a storage
// failure never leaves a record with a broken image reference.
func CreateBlogHandler(svr server.Server, blogRepo blogRepository, categoryRepo categoryFindOrCreator, store uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
		if err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "not authorized, token missing or invalid")
			return
		}
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			svr.JSONError(w, http.StatusBadRequest, "request is invalid")
			return
		}
		title := strings.TrimSpace(r.FormValue("title"))
		content := r.FormValue("content")
		if title == "" || content == "" {
			svr.JSONError(w, http.StatusBadRequest, "title and content are required")
			return
		}
		coverImage := r.FormValue("coverImage")
		if file, header, err := r.FormFile("coverImage"); err == nil {
			defer file.Close()
			coverImage, err = store.Upload(r.Context(), file, header.Size, storage.FolderBlogCovers, filepath.Ext(header.Filename), header.Header.Get("Content-Type"))
			if err != nil {
				svr.Log(err, "unable to upload cover image")
				svr.JSONError(w, http.StatusInternalServerError, "unable to upload cover image")
				return
			}
		}
		categoryIDs, err := resolveCategories(categoryRepo, r.FormValue("categories"))
		if err != nil {
			svr.Log(err, "unable to resolve categories")
			svr.JSONError(w, http.StatusInternalServerError, "unable to save blog")
			return
		}
		k, err := ksuid.NewRandom()
		if err != nil {
			svr.Log(err, "unable to generate blog id")
			svr.JSONError(w, http.StatusInternalServerError, "unable to save blog")
			return
		}
		published := true
		if publishedStr := r.FormValue("published"); publishedStr != "" {
			published, err = strconv.ParseBool(publishedStr)
			if err != nil {
				svr.JSONError(w, http.StatusBadRequest, "published must be a boolean")
				return
			}
		}
		t := time.Now().UTC()
		b := blog.BlogPost{
			ID:          k.String(),
			Title:       title,
			Content:     content,
			Excerpt:     r.FormValue("excerpt"),
			Slug:        slug.Make(title) + "-" + k.String(),
			AuthorID:    claims.UserID,
			CoverImage:  coverImage,
			Likes:       []string{},
			CategoryIDs: categoryIDs,
			Tags:        splitTags(r.FormValue("tags")),
			Published:   published,
			CreatedAt:   t,
			UpdatedAt:   t,
		}
		if err := blogRepo.Create(b); err != nil {
			svr.Log(err, "unable to save blog")
			svr.JSONError(w, http.StatusInternalServerError, "unable to save blog")
			return
		}
		svr.CacheDelete(server.CacheKeyCategoriesWithCounts)
		saved, err := blogRepo.GetByID(b.ID)
		if err != nil {
			svr.Log(err, "unable to load saved blog")
			svr.JSONError(w, http.StatusInternalServerError, "unable to save blog")
			return
		}
		svr.JSON(w, http.StatusCreated, withHTML(saved))
	}
}

// ListBlogsHandler serves the public listing, optionally narrowed by a
// case-insensitive search term and a category name.
func ListBlogsHandler(svr server.Server, blogRepo blogRepository, categoryRepo categoryByNameGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := blog.ListOptions{
			Search:        r.URL.Query().Get("search"),
			PublishedOnly: true,
		}
		if categoryName := r.URL.Query().Get("category"); categoryName != "" {
			c, err := categoryRepo.GetByName(categoryName)
			if err == sql.ErrNoRows {
				// unknown category matches nothing
				svr.JSON(w, http.StatusOK, []*blog.BlogPost{})
				return
			}
			if err != nil {
				svr.Log(err, "unable to look up category by name")
				svr.JSONError(w, http.StatusInternalServerError, "unable to fetch blogs")
				return
			}
			opts.CategoryID = c.ID
		}
		posts, err := blogRepo.List(opts)
		if err != nil {
			svr.Log(err, "unable to list blogs")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch blogs")
			return
		}
		svr.JSON(w, http.StatusOK, withHTMLAll(posts))
	}
}

// GetBlogHandler serves a single post. Unpublished posts are visible to
// their author and to admins only.
func GetBlogHandler(svr server.Server, blogRepo blogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		b, err := blogRepo.GetByID(vars["id"])
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to fetch blog")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch blog")
			return
		}
		if !b.Published && !canSeeUnpublished(r, svr, b) {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		svr.JSON(w, http.StatusOK, withHTML(b))
	}
}

// GetBlogBySlugHandler serves a published post by its slug.
func GetBlogBySlugHandler(svr server.Server, blogRepo blogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		b, err := blogRepo.GetBySlug(vars["slug"])
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to fetch blog by slug")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch blog")
			return
		}
		if !b.Published && !canSeeUnpublished(r, svr, b) {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		svr.JSON(w, http.StatusOK, withHTML(b))
	}
}

// UpdateBlogHandler lets the author edit a post. Omitted fields keep their
// stored value. A replacement cover image is uploaded and persisted before
// the old object is removed, so a failed upload never leaves the record
// pointing at a deleted object.
func UpdateBlogHandler(svr server.Server, blogRepo blogRepository, categoryRepo categoryFindOrCreator, store uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
		if err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "not authorized, token missing or invalid")
			return
		}
		vars := mux.Vars(r)
		b, err := blogRepo.GetByID(vars["id"])
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to fetch blog")
			svr.JSONError(w, http.StatusInternalServerError, "unable to update blog")
			return
		}
		if b.AuthorID != claims.UserID {
			svr.JSONError(w, http.StatusForbidden, "not authorized to edit this blog")
			return
		}
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			svr.JSONError(w, http.StatusBadRequest, "request is invalid")
			return
		}
		if title := strings.TrimSpace(r.FormValue("title")); title != "" {
			b.Title = title
		}
		if content := r.FormValue("content"); content != "" {
			b.Content = content
		}
		if excerpt := r.FormValue("excerpt"); excerpt != "" {
			b.Excerpt = excerpt
		}
		if categories := r.FormValue("categories"); categories != "" {
			b.CategoryIDs, err = resolveCategories(categoryRepo, categories)
			if err != nil {
				svr.Log(err, "unable to resolve categories")
				svr.JSONError(w, http.StatusInternalServerError, "unable to update blog")
				return
			}
		}
		if tags := r.FormValue("tags"); tags != "" {
			b.Tags = splitTags(tags)
		}
		if publishedStr := r.FormValue("published"); publishedStr != "" {
			b.Published, err = strconv.ParseBool(publishedStr)
			if err != nil {
				svr.JSONError(w, http.StatusBadRequest, "published must be a boolean")
				return
			}
		}
		oldCover := ""
		if file, header, err := r.FormFile("coverImage"); err == nil {
			defer file.Close()
			newCover, err := store.Upload(r.Context(), file, header.Size, storage.FolderBlogCovers, filepath.Ext(header.Filename), header.Header.Get("Content-Type"))
			if err != nil {
				svr.Log(err, "unable to upload cover image")
				svr.JSONError(w, http.StatusInternalServerError, "unable to upload cover image")
				return
			}
			oldCover = b.CoverImage
			b.CoverImage = newCover
		} else if coverImage := r.FormValue("coverImage"); coverImage != "" {
			b.CoverImage = coverImage
		}
		if err := blogRepo.Update(*b); err != nil {
			svr.Log(err, "unable to update blog")
			svr.JSONError(w, http.StatusInternalServerError, "unable to update blog")
			return
		}
		// the record now references the new object, removing the old one is
		// best-effort
		if oldCover != "" && oldCover != b.CoverImage {
			if err := store.Delete(r.Context(), oldCover); err != nil {
				svr.Log(err, "unable to delete old cover image")
			}
		}
		svr.CacheDelete(server.CacheKeyCategoriesWithCounts)
		saved, err := blogRepo.GetByID(b.ID)
		if err != nil {
			svr.Log(err, "unable to load updated blog")
			svr.JSONError(w, http.StatusInternalServerError, "unable to update blog")
			return
		}
		svr.JSON(w, http.StatusOK, withHTML(saved))
	}
}

// DeleteBlogHandler removes a post and its comments. Author only, the
// admin surface has its own deletion route.
func DeleteBlogHandler(svr server.Server, blogRepo blogRepository, store uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
		if err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "not authorized, token missing or invalid")
			return
		}
		vars := mux.Vars(r)
		b, err := blogRepo.GetByID(vars["id"])
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to fetch blog")
			svr.JSONError(w, http.StatusInternalServerError, "unable to delete blog")
			return
		}
		if b.AuthorID != claims.UserID {
			svr.JSONError(w, http.StatusForbidden, "not authorized to delete this blog")
			return
		}
		if err := deleteBlogWithCover(r, svr, blogRepo, store, b); err != nil {
			svr.Log(err, "unable to delete blog")
			svr.JSONError(w, http.StatusInternalServerError, "unable to delete blog")
			return
		}
		svr.JSON(w, http.StatusOK, map[string]string{"message": "blog deleted successfully"})
	}
}

// ToggleLikeHandler flips the caller's membership in the post's likes set.
func ToggleLikeHandler(svr server.Server, blogRepo blogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
		if err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "not authorized, token missing or invalid")
			return
		}
		vars := mux.Vars(r)
		likes, err := blogRepo.ToggleLike(vars["id"], claims.UserID)
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "blog not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to toggle like")
			svr.JSONError(w, http.StatusInternalServerError, "unable to toggle like")
			return
		}
		svr.JSON(w, http.StatusOK, map[string]interface{}{"likes": likes})
	}
}

// CategoriesWithCountsHandler serves every category with its post count,
// zero counts included. The aggregate is cached and invalidated on writes.
func CategoriesWithCountsHandler(svr server.Server, categoryRepo categoryCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cached, ok := svr.CacheGet(server.CacheKeyCategoriesWithCounts); ok {
			var counts []category.WithCount
			dec := gob.NewDecoder(bytes.NewReader(cached))
			if err := dec.Decode(&counts); err == nil {
				svr.JSON(w, http.StatusOK, counts)
				return
			}
			svr.CacheDelete(server.CacheKeyCategoriesWithCounts)
		}
		counts, err := categoryRepo.WithCounts()
		if err != nil {
			svr.Log(err, "unable to aggregate category counts")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch categories")
			return
		}
		buf := &bytes.Buffer{}
		if err := gob.NewEncoder(buf).Encode(counts); err != nil {
			svr.Log(err, "unable to encode category counts")
		} else if err := svr.CacheSet(server.CacheKeyCategoriesWithCounts, buf.Bytes()); err != nil {
			svr.Log(err, "unable to cache category counts")
		}
		svr.JSON(w, http.StatusOK, counts)
	}
}

// resolveCategories normalizes each comma-separated name and finds or
// creates its category, returning the collected ids.
func resolveCategories(categoryRepo categoryFindOrCreator, names string) ([]string, error) {
	ids := make([]string, 0)
	for _, name := range strings.Split(names, ",") {
		if category.Normalize(name) == "" {
			continue
		}
		c, err := categoryRepo.GetOrCreate(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// splitTags keeps tags as plain trimmed strings, they are not resolved
// against the tag registry.
func splitTags(tags string) []string {
	out := make([]string, 0)
	for _, t := range strings.Split(tags, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func withHTML(b *blog.BlogPost) *blog.BlogPost {
	b.ContentHTML = markdown.ToHTML(b.Content)
	return b
}

func withHTMLAll(posts []*blog.BlogPost) []*blog.BlogPost {
	for _, b := range posts {
		withHTML(b)
	}
	return posts
}

func canSeeUnpublished(r *http.Request, svr server.Server, b *blog.BlogPost) bool {
	claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
	if err != nil {
		return false
	}
	return claims.IsAdmin || claims.UserID == b.AuthorID
}

// deleteBlogWithCover attempts a best-effort cover image removal and then
// deletes the post. Storage failures are logged, never surfaced.
func deleteBlogWithCover(r *http.Request, svr server.Server, blogRepo blogRepository, store uploader, b *blog.BlogPost) error {
	if b.CoverImage != "" {
		if err := store.Delete(r.Context(), b.CoverImage); err != nil {
			svr.Log(err, "unable to delete cover image")
		}
	}
	if err := blogRepo.Delete(b.ID); err != nil {
		return err
	}
	svr.CacheDelete(server.CacheKeyCategoriesWithCounts)
	return nil
}
