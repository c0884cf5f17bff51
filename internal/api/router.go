package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"reviewhub/internal/auth"
	"reviewhub/internal/config"
	"reviewhub/internal/db"
)

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(cfg *config.Config, database *db.DB, sender CodeSender) *Server {
	users := db.NewUserRepository(database)
	categories := db.NewCategoryRepository(database)
	genres := db.NewGenreRepository(database)
	titles := db.NewTitleRepository(database)
	reviews := db.NewReviewRepository(database)
	comments := db.NewCommentRepository(database)

	tokenService := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	codeService := auth.NewCodeService(
		cfg.Auth.JWTSecret,
		cfg.Auth.ConfirmationCodeStep,
		cfg.Auth.ConfirmationCodeTTL,
	)

	authHandler := NewAuthHandler(users, codeService, tokenService, sender, cfg.Auth.ConfirmationCodeTTL)
	userHandler := NewUserHandler(users)
	categoryHandler := NewCategoryHandler(categories)
	genreHandler := NewGenreHandler(genres)
	titleHandler := NewTitleHandler(titles, categories, genres)
	reviewHandler := NewReviewHandler(reviews, titles)
	commentHandler := NewCommentHandler(comments, reviews)
	healthHandler := NewHealthHandler(database)

	authMiddleware := NewAuthMiddleware(tokenService, users)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB
		r.Use(authMiddleware.Identify)

		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.Limit(5, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusTooManyRequests, ErrCodeRateLimitExceeded, "Too many requests, slow down")
				}),
			))
			r.Post("/email", authHandler.RequestCode)
			r.Post("/token", authHandler.ObtainToken)
		})

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Get("/me", userHandler.GetMe)
				r.Patch("/me", userHandler.UpdateMe)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAdmin)
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Get("/{username}", userHandler.Get)
				r.Patch("/{username}", userHandler.Update)
				r.Delete("/{username}", userHandler.Delete)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.List)
			r.Post("/", categoryHandler.Create)
			r.Delete("/{slug}", categoryHandler.Delete)
		})

		r.Route("/genres", func(r chi.Router) {
			r.Get("/", genreHandler.List)
			r.Post("/", genreHandler.Create)
			r.Delete("/{slug}", genreHandler.Delete)
		})

		r.Route("/titles", func(r chi.Router) {
			r.Get("/", titleHandler.List)
			r.Post("/", titleHandler.Create)

			r.Route("/{titleID}", func(r chi.Router) {
				r.Get("/", titleHandler.Get)
				r.Patch("/", titleHandler.Update)
				r.Delete("/", titleHandler.Delete)

				r.Route("/reviews", func(r chi.Router) {
					r.Get("/", reviewHandler.List)
					r.Post("/", reviewHandler.Create)

					r.Route("/{reviewID}", func(r chi.Router) {
						r.Get("/", reviewHandler.Get)
						r.Patch("/", reviewHandler.Update)
						r.Delete("/", reviewHandler.Delete)

						r.Route("/comments", func(r chi.Router) {
							r.Get("/", commentHandler.List)
							r.Post("/", commentHandler.Create)
							r.Get("/{commentID}", commentHandler.Get)
							r.Patch("/{commentID}", commentHandler.Update)
							r.Delete("/{commentID}", commentHandler.Delete)
						})
					})
				})
			})
		})
	})

	return &Server{
		router: r,
		config: cfg,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
