package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/blog"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/user"

	"github.com/gorilla/mux"
)

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	return multipartBodyWithFile(t, fields, "", "")
}

func multipartBodyWithFile(t *testing.T, fields map[string]string, fileField, filename string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := fw.Write([]byte("image bytes")); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return buf, mw.FormDataContentType()
}

func routed(path string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	m := mux.NewRouter()
	m.HandleFunc(path, h)
	w := httptest.NewRecorder()
	m.ServeHTTP(w, req)
	return w
}

func TestCreateBlogResolvesCategories(t *testing.T) {
	svr := testServer(t)
	blogs := &memBlogStore{}
	categories := &memCategoryStore{}
	store := &memUploader{}
	author := user.User{ID: "u1", Name: "Alice", Email: "alice@example.com"}

	body, contentType := multipartBody(t, map[string]string{
		"title":      "My First Post",
		"content":    "# Hello",
		"categories": " Tech , tech, LIFE",
		"tags":       "go, backend",
	})
	req := authedRequest(t, http.MethodPost, "/blogs", body, author)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	CreateBlogHandler(svr, blogs, categories, store)(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create code %d: %s", w.Code, w.Body.String())
	}

	var created blog.BlogPost
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode created blog: %v", err)
	}
	if created.Slug == "" {
		t.Fatalf("no slug generated")
	}
	if created.ContentHTML == "" {
		t.Fatalf("no rendered content")
	}
	if !created.Published {
		t.Fatalf("published should default to true")
	}
	// "Tech", "tech" and " Tech " are the same category after normalization
	if len(categories.categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories.categories))
	}
	if len(blogs.posts) != 1 || len(blogs.posts[0].CategoryIDs) != 2 {
		t.Fatalf("category ids not stored")
	}
	if len(blogs.posts[0].Tags) != 2 {
		t.Fatalf("tags not stored, got %v", blogs.posts[0].Tags)
	}
}

func TestCreateBlogRequiresTitleAndContent(t *testing.T) {
	svr := testServer(t)
	blogs := &memBlogStore{}
	author := user.User{ID: "u1"}

	body, contentType := multipartBody(t, map[string]string{"title": "  ", "content": ""})
	req := authedRequest(t, http.MethodPost, "/blogs", body, author)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	CreateBlogHandler(svr, blogs, &memCategoryStore{}, &memUploader{})(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListBlogsFilters(t *testing.T) {
	svr := testServer(t)
	blogs := &memBlogStore{}
	categories := &memCategoryStore{}
	tech, _ := categories.GetOrCreate("tech")
	blogs.Create(blog.BlogPost{ID: "b1", Title: "Intro to Go", Content: "x", Published: true, CategoryIDs: []string{tech.ID}})
	blogs.Create(blog.BlogPost{ID: "b2", Title: "Cooking", Content: "x", Published: true})
	blogs.Create(blog.BlogPost{ID: "b3", Title: "Draft", Content: "x", Published: false})

	// public listing hides unpublished posts
	req := httptest.NewRequest(http.MethodGet, "/blogs", nil)
	w := httptest.NewRecorder()
	ListBlogsHandler(svr, blogs, categories)(w, req)
	var posts []blog.BlogPost
	if err := json.NewDecoder(w.Body).Decode(&posts); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 published posts, got %d", len(posts))
	}

	// category filter, name is normalized before lookup
	req = httptest.NewRequest(http.MethodGet, "/blogs?category=TECH", nil)
	w = httptest.NewRecorder()
	ListBlogsHandler(svr, blogs, categories)(w, req)
	posts = nil
	if err := json.NewDecoder(w.Body).Decode(&posts); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "b1" {
		t.Fatalf("category filter failed, got %+v", posts)
	}

	// unknown category matches nothing, not an error
	req = httptest.NewRequest(http.MethodGet, "/blogs?category=missing", nil)
	w = httptest.NewRecorder()
	ListBlogsHandler(svr, blogs, categories)(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("unknown category code %d", w.Code)
	}
	posts = nil
	if err := json.NewDecoder(w.Body).Decode(&posts); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("unknown category should match nothing, got %d posts", len(posts))
	}

	// search is case-insensitive
	req = httptest.NewRequest(http.MethodGet, "/blogs?search=cooking", nil)
	w = httptest.NewRecorder()
	ListBlogsHandler(svr, blogs, categories)(w, req)
	posts = nil
	if err := json.NewDecoder(w.Body).Decode(&posts); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "b2" {
		t.Fatalf("search failed, got %+v", posts)
	}
}

func TestGetBlogUnpublishedVisibility(t *testing.T) {
	svr := testServer(t)
	blogs := &memBlogStore{}
	blogs.Create(blog.BlogPost{ID: "b1", Title: "Draft", Content: "x", AuthorID: "u1", Published: false})
	author := user.User{ID: "u1"}
	stranger := user.User{ID: "u2"}
	admin := user.User{ID: "u3", Role: user.RoleAdmin}

	// anonymous gets 404
	req := httptest.NewRequest(http.MethodGet, "/blogs/b1", nil)
	w := routed("/blogs/{id}", GetBlogHandler(svr, blogs), req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("anonymous: expected 404, got %d", w.Code)
	}

	// another user gets 404 too
	req = authedRequest(t, http.MethodGet, "/blogs/b1", nil, stranger)
	w = routed("/blogs/{id}", GetBlogHandler(svr, blogs), req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("stranger: expected 404, got %d", w.Code)
	}

	// author and admin see the draft
	for _, u := range []user.User{author, admin} {
		req = authedRequest(t, http.MethodGet, "/blogs/b1", nil, u)
		w = routed("/blogs/{id}", GetBlogHandler(svr, blogs), req)
		if w.Code != http.StatusOK {
			t.Fatalf("user %s: expected 200, got %d", u.ID, w.Code)
		}
	}
}

func TestUpdateBlogAuthorOnly(t *testing.T) {
	svr := testServer(t)
	blogs := &memBlogStore{}
	blogs.Create(blog.BlogPost{ID: "b1", Title: "Post", Content: "x", AuthorID: "u1", Published: true})

	body, contentType := multipartBody(t, map[string]string{"title": "Hijacked"})
	req := authedRequest(t, http.MethodPut, "/blogs/b1", body, user.User{ID: "u2"})
	req.Header.Set("Content-Type", contentType)
	w := routed("/blogs/{id}", UpdateBlogHandler(svr, blogs, &memCategoryStore{}, &memUploader{}), req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	body, contentType = multipartBody(t, map[string]string{"title": "Renamed"})
	req = authedRequest(t, http.MethodPut, "/blogs/b1", body, user.User{ID: "u1"})
	req.Header.Set("Content-Type", contentType)
	w = routed("/blogs/{id}", UpdateBlogHandler(svr, blogs, &memCategoryStore{}, &memUploader{}), req)
	if w.Code != http.StatusOK {
		t.Fatalf("author update code %d: %s", w.Code, w.Body.String())
	}
	if blogs.posts[0].Title != "Renamed" {
		t.Fatalf("title not updated, got %q", blogs.posts[0].Title)
	}
	if blogs.posts[0].Content != "x" {
		t.Fatalf("omitted content should keep stored value")
	}
}

func TestUpdateBlogKeepsOldCoverWhenUploadFails(t *testing.T) {
	svr := testServer(t)
	blogs := &memBlogStore{}
	oldCover := "http://storage.local/bucket/blog_covers/old.jpg"
	blogs.Create(blog.BlogPost{ID: "b1", Title: "Post", Content: "x", AuthorID: "u1", CoverImage: oldCover, Published: true})
	store := &memUploader{failNext: true}

	body, contentType := multipartBodyWithFile(t, nil, "coverImage", "new.jpg")
	req := authedRequest(t, http.MethodPut, "/blogs/b1", body, user.User{ID: "u1"})
	req.Header.Set("Content-Type", contentType)
	w := routed("/blogs/{id}", UpdateBlogHandler(svr, blogs, &memCategoryStore{}, store), req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("failed upload code %d: %s", w.Code, w.Body.String())
	}
	if len(store.deleted) != 0 {
		t.Fatalf("old cover must survive a failed upload, deleted %v", store.deleted)
	}
	if blogs.posts[0].CoverImage != oldCover {
		t.Fatalf("stored cover changed to %q", blogs.posts[0].CoverImage)
	}
}

func TestUpdateBlogReplacesCoverAfterPersist(t *testing.T) {
	svr := testServer(t)
	blogs := &memBlogStore{}
	oldCover := "http://storage.local/bucket/blog_covers/old.jpg"
	blogs.Create(blog.BlogPost{ID: "b1", Title: "Post", Content: "x", AuthorID: "u1", CoverImage: oldCover, Published: true})
	store := &memUploader{}

	body, contentType := multipartBodyWithFile(t, nil, "coverImage", "new.jpg")
	req := authedRequest(t, http.MethodPut, "/blogs/b1", body, user.User{ID: "u1"})
	req.Header.Set("Content-Type", contentType)
	w := routed("/blogs/{id}", UpdateBlogHandler(svr, blogs, &memCategoryStore{}, store), req)
	if w.Code != http.StatusOK {
		t.Fatalf("replace cover code %d: %s", w.Code, w.Body.String())
	}
	if blogs.posts[0].CoverImage == oldCover || blogs.posts[0].CoverImage == "" {
		t.Fatalf("new cover not stored, got %q", blogs.posts[0].CoverImage)
	}
	if len(store.deleted) != 1 || store.deleted[0] != oldCover {
		t.Fatalf("old cover not cleaned up, deleted %v", store.deleted)
	}
}

func TestDeleteBlogAuthorOnly(t *testing.T) {
	svr := testServer(t)
	blogs := &memBlogStore{}
	store := &memUploader{}
	blogs.Create(blog.BlogPost{ID: "b1", AuthorID: "u1", CoverImage: "http://storage.local/bucket/blog_covers/obj-1.jpg", Published: true})

	req := authedRequest(t, http.MethodDelete, "/blogs/b1", nil, user.User{ID: "u2"})
	w := routed("/blogs/{id}", DeleteBlogHandler(svr, blogs, store), req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	req = authedRequest(t, http.MethodDelete, "/blogs/b1", nil, user.User{ID: "u1"})
	w = routed("/blogs/{id}", DeleteBlogHandler(svr, blogs, store), req)
	if w.Code != http.StatusOK {
		t.Fatalf("author delete code %d: %s", w.Code, w.Body.String())
	}
	if len(blogs.posts) != 0 {
		t.Fatalf("post not deleted")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("cover image not deleted, got %v", store.deleted)
	}
}

func TestToggleLike(t *testing.T) {
	svr := testServer(t)
	blogs := &memBlogStore{}
	blogs.Create(blog.BlogPost{ID: "b1", Likes: []string{}, Published: true})
	u := user.User{ID: "u1"}

	likesAfter := func() []string {
		req := authedRequest(t, http.MethodPut, "/blogs/b1/like", nil, u)
		w := routed("/blogs/{id}/like", ToggleLikeHandler(svr, blogs), req)
		if w.Code != http.StatusOK {
			t.Fatalf("toggle code %d: %s", w.Code, w.Body.String())
		}
		var res struct {
			Likes []string `json:"likes"`
		}
		if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
			t.Fatalf("decode likes: %v", err)
		}
		return res.Likes
	}

	if likes := likesAfter(); len(likes) != 1 || likes[0] != "u1" {
		t.Fatalf("first toggle should add the like, got %v", likes)
	}
	if likes := likesAfter(); len(likes) != 0 {
		t.Fatalf("second toggle should remove the like, got %v", likes)
	}

	req := authedRequest(t, http.MethodPut, "/blogs/missing/like", nil, u)
	w := routed("/blogs/{id}/like", ToggleLikeHandler(svr, blogs), req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing post: expected 404, got %d", w.Code)
	}
}

func TestCategoriesWithCountsCached(t *testing.T) {
	svr := testServer(t)
	categories := &memCategoryStore{counts: map[string]int{}}
	tech, _ := categories.GetOrCreate("tech")
	categories.GetOrCreate("life")
	categories.counts[tech.ID] = 3

	req := httptest.NewRequest(http.MethodGet, "/blogs/categories", nil)
	w := httptest.NewRecorder()
	CategoriesWithCountsHandler(svr, categories)(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("counts code %d: %s", w.Code, w.Body.String())
	}
	var first []struct {
		Name      string `json:"name"`
		BlogCount int    `json:"blogCount"`
	}
	if err := json.NewDecoder(w.Body).Decode(&first); err != nil {
		t.Fatalf("decode counts: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("zero-count categories must be included, got %d", len(first))
	}

	// the second response comes from cache and should match
	w = httptest.NewRecorder()
	CategoriesWithCountsHandler(svr, categories)(w, httptest.NewRequest(http.MethodGet, "/blogs/categories", nil))
	var second []struct {
		Name      string `json:"name"`
		BlogCount int    `json:"blogCount"`
	}
	if err := json.NewDecoder(w.Body).Decode(&second); err != nil {
		t.Fatalf("decode cached counts: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("cached response differs: %d vs %d entries", len(second), len(first))
	}
}

func TestSplitTags(t *testing.T) {
	got := splitTags(" go , backend ,, Web Dev ")
	want := []string{"go", "backend", "Web Dev"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if tags := splitTags(""); len(tags) != 0 {
		t.Fatalf("empty input should give no tags, got %v", tags)
	}
}
