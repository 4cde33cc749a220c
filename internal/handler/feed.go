package handler

import (
	"net/http"
	"time"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/blog"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/category"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/markdown"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/server"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/tag"
	"github.com/gorilla/feeds"
	"github.com/snabb/sitemap"
)

const feedItems = 20

type publishedLister interface {
	RecentPublished(n int) ([]*blog.BlogPost, error)
}

type categoryLister interface {
	All() ([]category.Category, error)
}

type tagLister interface {
	All() ([]tag.Tag, error)
}

// ListCategoriesHandler serves the public category registry, newest first.
func ListCategoriesHandler(svr server.Server, categoryRepo categoryLister) http.HandlerFunc {
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

// ListTagsHandler serves the public tag vocabulary, sorted by name.
func ListTagsHandler(svr server.Server, tagRepo tagLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := tagRepo.All()
		if err != nil {
			svr.Log(err, "unable to list tags")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch tags")
			return
		}
		svr.JSON(w, http.StatusOK, tags)
	}
}

// FeedHandler serves an RSS 2.0 feed of the most recent published posts.
func FeedHandler(svr server.Server, blogRepo publishedLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := svr.GetConfig()
		posts, err := blogRepo.RecentPublished(feedItems)
		if err != nil {
			svr.Log(err, "unable to load posts for feed")
			svr.JSONError(w, http.StatusInternalServerError, "unable to build feed")
			return
		}
		feed := &feeds.Feed{
			Title:       cfg.SiteName,
			Link:        &feeds.Link{Href: cfg.URLProtocol + cfg.SiteHost},
			Description: cfg.SiteName + " latest posts",
			Created:     time.Now(),
		}
		for _, p := range posts {
			item := &feeds.Item{
				Id:          p.ID,
				Title:       p.Title,
				Link:        &feeds.Link{Href: cfg.URLProtocol + cfg.SiteHost + "/blogs/slug/" + p.Slug},
				Description: markdown.ToHTML(p.Content),
				Created:     p.CreatedAt,
			}
			if p.Author != nil {
				item.Author = &feeds.Author{Name: p.Author.Name}
			}
			feed.Items = append(feed.Items, item)
		}
		rssFeed, err := feed.ToRss()
		if err != nil {
			svr.Log(err, "unable to render rss feed")
			svr.JSONError(w, http.StatusInternalServerError, "unable to build feed")
			return
		}
		svr.XML(w, http.StatusOK, []byte(rssFeed))
	}
}

// SitemapHandler serves a sitemap of all published posts.
func SitemapHandler(svr server.Server, blogRepo blogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := svr.GetConfig()
		posts, err := blogRepo.List(blog.ListOptions{PublishedOnly: true})
		if err != nil {
			svr.Log(err, "unable to load posts for sitemap")
			svr.JSONError(w, http.StatusInternalServerError, "unable to build sitemap")
			return
		}
		sm := sitemap.New()
		now := time.Now().UTC()
		sm.Add(&sitemap.URL{
			Loc:     cfg.URLProtocol + cfg.SiteHost,
			LastMod: &now,
		})
		for _, p := range posts {
			lastMod := p.UpdatedAt
			sm.Add(&sitemap.URL{
				Loc:     cfg.URLProtocol + cfg.SiteHost + "/blogs/slug/" + p.Slug,
				LastMod: &lastMod,
			})
		}
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusOK)
		if _, err := sm.WriteTo(w); err != nil {
			svr.Log(err, "unable to write sitemap")
		}
	}
}

// HealthHandler reports whether the database is reachable.
func HealthHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svr.Conn.Ping(); err != nil {
			svr.Log(err, "health check db ping failed")
			svr.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		svr.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
