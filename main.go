package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/calebwren/inkwell/backend/api/v1/database"
	"github.com/calebwren/inkwell/backend/api/v1/handlers"
	authmw "github.com/calebwren/inkwell/backend/api/v1/middleware"
	"github.com/calebwren/inkwell/backend/api/v1/uploads"
	"github.com/calebwren/inkwell/backend/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	pool, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	files, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("failed to prepare upload directory: %v", err)
	}

	users := database.NewUserStore(pool)
	posts := database.NewPostStore(pool)
	session := authmw.NewSessionAuth(cfg.SessionSecret, cfg.SessionTTL)

	authHandler := &handlers.AuthHandler{Users: users, Files: files, Auth: session}
	postHandler := &handlers.PostHandler{Posts: posts, Files: files}
	authorHandler := &handlers.AuthorHandler{Users: users}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", handlers.HomeHandler)
	r.Get("/health", handlers.HealthHandler)

	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)
	r.With(session.OptionalAuth).Get("/profile", authHandler.Profile)

	r.With(session.RequireAuth).Post("/newpost", postHandler.CreatePost)
	r.Get("/post", postHandler.ListPosts)
	r.Get("/post/{id}", postHandler.GetPost)
	r.With(session.RequireAuth).Put("/post/{id}", postHandler.UpdatePost)
	r.Get("/author/{id}", authorHandler.GetAuthor)

	// Uploaded covers are served straight off disk.
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(files.Dir())))
	r.Handle("/uploads/*", fileServer)

	log.Printf("Starting server on port %s", cfg.Port)
	err = http.ListenAndServe(cfg.Addr(), r)
	if err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
