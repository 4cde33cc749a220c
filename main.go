package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/blog"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/category"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/comment"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/config"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/database"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/handler"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/middleware"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/server"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/storage"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/tag"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/user"

	"github.com/gorilla/mux"
	"github.com/segmentio/ksuid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("unable to load config: %+v", err)
	}
	conn, err := database.GetDbConn(cfg.DatabaseUser, cfg.DatabasePassword, cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseName, cfg.DatabaseSSLMode)
	if err != nil {
		log.Fatalf("unable to connect to postgres: %v", err)
	}
	defer database.CloseDbConn(conn)
	store, err := storage.New(cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageBucket, cfg.StorageSecure)
	if err != nil {
		log.Fatalf("unable to connect to object storage: %v", err)
	}

	userRepo := user.NewRepository(conn)
	blogRepo := blog.NewRepository(conn)
	categoryRepo := category.NewRepository(conn)
	tagRepo := tag.NewRepository(conn)
	commentRepo := comment.NewRepository(conn)

	if err := ensureAdmin(cfg, userRepo); err != nil {
		log.Fatalf("unable to seed admin user: %v", err)
	}

	svr := server.NewServer(cfg, conn, mux.NewRouter())
	jwtKey := cfg.JwtSigningKey

	svr.RegisterRoute("/healthz", handler.HealthHandler(svr), []string{"GET"})
	svr.RegisterRoute("/feed", handler.FeedHandler(svr, blogRepo), []string{"GET"})
	svr.RegisterRoute("/sitemap.xml", handler.SitemapHandler(svr, blogRepo), []string{"GET"})

	//
	// user routes
	//

	svr.RegisterRoute("/users/register", handler.RegisterHandler(svr, userRepo), []string{"POST"})
	svr.RegisterRoute("/users/login", handler.LoginHandler(svr, userRepo), []string{"POST"})
	svr.RegisterRoute("/users/me", middleware.UserAuthenticatedMiddleware(jwtKey, handler.MeHandler(svr, userRepo)), []string{"GET"})
	svr.RegisterRoute("/users/profile", middleware.UserAuthenticatedMiddleware(jwtKey, handler.GetProfileHandler(svr, userRepo)), []string{"GET"})
	svr.RegisterRoute("/users/profile", middleware.UserAuthenticatedMiddleware(jwtKey, handler.UpdateProfileHandler(svr, userRepo)), []string{"PUT"})
	svr.RegisterRoute("/users/avatar", middleware.UserAuthenticatedMiddleware(jwtKey, handler.UpdateAvatarHandler(svr, userRepo, store)), []string{"PUT"})

	//
	// blog routes, specific paths before the {id} catch-all
	//

	svr.RegisterRoute("/blogs/categories", handler.CategoriesWithCountsHandler(svr, categoryRepo), []string{"GET"})
	svr.RegisterRoute("/blogs/slug/{slug}", handler.GetBlogBySlugHandler(svr, blogRepo), []string{"GET"})
	svr.RegisterRoute("/blogs", handler.ListBlogsHandler(svr, blogRepo, categoryRepo), []string{"GET"})
	svr.RegisterRoute("/blogs", middleware.UserAuthenticatedMiddleware(jwtKey, handler.CreateBlogHandler(svr, blogRepo, categoryRepo, store)), []string{"POST"})
	svr.RegisterRoute("/blogs/{id}/like", middleware.UserAuthenticatedMiddleware(jwtKey, handler.ToggleLikeHandler(svr, blogRepo)), []string{"PUT"})
	svr.RegisterRoute("/blogs/{id}", handler.GetBlogHandler(svr, blogRepo), []string{"GET"})
	svr.RegisterRoute("/blogs/{id}", middleware.UserAuthenticatedMiddleware(jwtKey, handler.UpdateBlogHandler(svr, blogRepo, categoryRepo, store)), []string{"PUT"})
	svr.RegisterRoute("/blogs/{id}", middleware.UserAuthenticatedMiddleware(jwtKey, handler.DeleteBlogHandler(svr, blogRepo, store)), []string{"DELETE"})

	//
	// comment routes
	//

	svr.RegisterRoute("/comments", middleware.UserAuthenticatedMiddleware(jwtKey, handler.CreateCommentHandler(svr, commentRepo, blogRepo)), []string{"POST"})
	svr.RegisterRoute("/comments", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminListCommentsHandler(svr, commentRepo)), []string{"GET"})
	svr.RegisterRoute("/comments/admin/{id}", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminDeleteCommentHandler(svr, commentRepo)), []string{"DELETE"})
	svr.RegisterRoute("/comments/{postId}", handler.ListCommentsForPostHandler(svr, commentRepo, blogRepo), []string{"GET"})
	svr.RegisterRoute("/comments/{id}", middleware.UserAuthenticatedMiddleware(jwtKey, handler.UpdateCommentHandler(svr, commentRepo)), []string{"PUT"})
	svr.RegisterRoute("/comments/{id}", middleware.UserAuthenticatedMiddleware(jwtKey, handler.DeleteCommentHandler(svr, commentRepo)), []string{"DELETE"})

	//
	// public registries
	//

	svr.RegisterRoute("/categories", handler.ListCategoriesHandler(svr, categoryRepo), []string{"GET"})
	svr.RegisterRoute("/tags", handler.ListTagsHandler(svr, tagRepo), []string{"GET"})

	//
	// admin routes
	// protected by jwt auth with the admin role
	//

	svr.RegisterRoute("/admin/users", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminListUsersHandler(svr, userRepo)), []string{"GET"})
	svr.RegisterRoute("/admin/users", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminCreateUserHandler(svr, userRepo)), []string{"POST"})
	svr.RegisterRoute("/admin/users/{id}", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminDeleteUserHandler(svr, userRepo)), []string{"DELETE"})

	svr.RegisterRoute("/admin/blogs", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminListBlogsHandler(svr, blogRepo)), []string{"GET"})
	svr.RegisterRoute("/admin/blogs/{id}", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminDeleteBlogHandler(svr, blogRepo, store)), []string{"DELETE"})

	svr.RegisterRoute("/admin/categories", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminListCategoriesHandler(svr, categoryRepo)), []string{"GET"})
	svr.RegisterRoute("/admin/categories", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminCreateCategoryHandler(svr, categoryRepo)), []string{"POST"})
	svr.RegisterRoute("/admin/categories/{id}", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminDeleteCategoryHandler(svr, categoryRepo)), []string{"DELETE"})

	svr.RegisterRoute("/admin/tags", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminListTagsHandler(svr, tagRepo)), []string{"GET"})
	svr.RegisterRoute("/admin/tags", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminCreateTagHandler(svr, tagRepo)), []string{"POST"})
	svr.RegisterRoute("/admin/tags/{id}", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminDeleteTagHandler(svr, tagRepo)), []string{"DELETE"})

	svr.RegisterRoute("/admin/comments", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminListCommentsHandler(svr, commentRepo)), []string{"GET"})
	svr.RegisterRoute("/admin/comments/{id}", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminUpdateCommentHandler(svr, commentRepo)), []string{"PUT"})
	svr.RegisterRoute("/admin/comments/{id}", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminDeleteCommentHandler(svr, commentRepo)), []string{"DELETE"})

	svr.RegisterRoute("/admin/stats", middleware.AdminAuthenticatedMiddleware(jwtKey, handler.AdminStatsHandler(svr, userRepo, blogRepo, categoryRepo, tagRepo, commentRepo)), []string{"GET"})

	log.Fatal(svr.Run())
}

// ensureAdmin bootstraps the admin account when the seed env vars are set
// and no user with that email exists yet.
func ensureAdmin(cfg config.Config, userRepo *user.Repository) error {
	if cfg.AdminSeedEmail == "" || cfg.AdminSeedPassword == "" {
		return nil
	}
	_, err := userRepo.GetByEmail(cfg.AdminSeedEmail)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminSeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	k, err := ksuid.NewRandom()
	if err != nil {
		return err
	}
	name := cfg.AdminSeedName
	if name == "" {
		name = "Admin"
	}
	t := time.Now().UTC()
	return userRepo.Create(user.User{
		ID:        k.String(),
		Name:      name,
		Email:     cfg.AdminSeedEmail,
		Password:  string(hashed),
		Role:      user.RoleAdmin,
		CreatedAt: t,
		UpdatedAt: t,
	})
}
