package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/aiquiz/internal/auth"
	authmw "github.com/mind-engage/aiquiz/internal/auth/middleware"
	"github.com/mind-engage/aiquiz/internal/files"
	"github.com/mind-engage/aiquiz/internal/grading"
	"github.com/mind-engage/aiquiz/internal/logger"
	"github.com/mind-engage/aiquiz/internal/quiz"
	"github.com/mind-engage/aiquiz/internal/rbac"
	"github.com/mind-engage/aiquiz/internal/users"
)

type Deps struct {
	DB       *sql.DB
	Log      *logger.Logger
	Auth     *auth.Manager
	Users    *users.Service
	Quizzes  *quiz.Service
	Grader   *grading.Engine
	Files    *files.Service
	Cookies  authmw.CookieOptions
	Origins  []string
	MaxBytes int64
	Timeout  time.Duration
}

// NewRouter mounts the whole API under /api/v1 plus the health probes.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.MaxBytes <= 0 {
		d.MaxBytes = 10 << 20
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, Trace("aiquiz"), RequestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(d.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.PingContext(ctx); err != nil {
				d.Log.Warn("readiness check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", RegisterHandler(d.Auth))
			ar.Post("/login", LoginHandler(d.Auth, d.Cookies))
			ar.Post("/refresh", RefreshHandler(d.Auth, d.Cookies))
			ar.Post("/logout", LogoutHandler(d.Auth, d.Cookies))
		})

		// Protected API (token → user + principal in context → RBAC)
		api.Group(func(pr chi.Router) {
			pr.Use(authmw.RequireUser(d.Auth))

			pr.Get("/users/me", MeHandler())
			pr.Put("/users/me", UpdateMeHandler(d.Users))
			pr.With(rbac.Require("user:change_password")).
				Post("/users/me/password", ChangePasswordHandler(d.Auth))
			pr.With(rbac.Require(rbac.PermUserList)).
				Get("/users", ListUsersHandler(d.Users))
			pr.With(rbac.Require(rbac.PermUserAdm)).
				Patch("/users/{userID}/active", AdminSetActiveHandler(d.Auth))

			pr.Route("/banks", func(br chi.Router) {
				br.Use(rbac.RequireAny("bank:own", rbac.PermBankAny))
				br.Post("/", CreateBankHandler(d.Quizzes))
				br.Get("/", ListBanksHandler(d.Quizzes))
				br.Get("/{bankID}", GetBankHandler(d.Quizzes))
				br.Put("/{bankID}", UpdateBankHandler(d.Quizzes))
				br.Delete("/{bankID}", DeleteBankHandler(d.Quizzes))
				br.Post("/{bankID}/questions", CreateQuestionHandler(d.Quizzes))
				br.Get("/{bankID}/questions", ListQuestionsHandler(d.Quizzes))
			})
			pr.Route("/questions", func(qr chi.Router) {
				qr.Use(rbac.RequireAny("bank:own", rbac.PermBankAny))
				qr.Get("/{questionID}", GetQuestionHandler(d.Quizzes))
				qr.Put("/{questionID}", UpdateQuestionHandler(d.Quizzes))
				qr.Delete("/{questionID}", DeleteQuestionHandler(d.Quizzes))
			})
			pr.Route("/quizzes", func(qr chi.Router) {
				qr.Use(rbac.RequireAny("quiz:own", rbac.PermQuizAny))
				qr.Post("/", CreateQuizHandler(d.Quizzes))
				qr.Get("/", ListQuizzesHandler(d.Quizzes))
				qr.Get("/{quizID}", GetQuizHandler(d.Quizzes))
				qr.Put("/{quizID}", UpdateQuizHandler(d.Quizzes))
				qr.Delete("/{quizID}", DeleteQuizHandler(d.Quizzes))
				qr.Post("/{quizID}/submit", SubmitQuizHandler(d.Grader))
				qr.Get("/{quizID}/submissions", ListSubmissionsHandler(d.Quizzes))
			})
			if d.Files != nil {
				pr.Route("/files", func(fr chi.Router) {
					fr.Use(rbac.RequireAny("file:own", rbac.PermFileAny))
					fr.Post("/", UploadFileHandler(d.Files, d.MaxBytes))
					fr.Post("/upload", UploadFileHandler(d.Files, d.MaxBytes))
					fr.Get("/", ListFilesHandler(d.Files))
					fr.Get("/download/{fileID}", DownloadFileHandler(d.Files))
					fr.Get("/{fileID}", GetFileHandler(d.Files))
					fr.Get("/{fileID}/content", DownloadFileHandler(d.Files))
					fr.Patch("/{fileID}", RenameFileHandler(d.Files))
					fr.Delete("/{fileID}", DeleteFileHandler(d.Files))
				})
			}
		})
	})
	return r
}
