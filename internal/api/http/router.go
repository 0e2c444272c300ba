package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	authmw "github.com/mind-engage/classroom-gateway/internal/auth/middleware"
	"github.com/mind-engage/classroom-gateway/internal/exam"
	"github.com/mind-engage/classroom-gateway/internal/logging"
	"github.com/mind-engage/classroom-gateway/internal/rbac"
	"github.com/mind-engage/classroom-gateway/internal/timegrid"
)

type Deps struct {
	Auth    *authmw.AuthService
	Users   *authmw.Users // nil disables /auth/login
	RoleDB  *sql.DB       // when set, the stored role overrides the token's
	Service *exam.Service
	Grid    timegrid.Grid
	Log     *zap.Logger

	CORSOrigins []string
	// AllowClaimRole keeps the token role for subjects without a users row.
	AllowClaimRole bool

	Metrics http.Handler
	Ready   map[string]Pinger
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.RequestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(d.Ready))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	if d.Users != nil {
		r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Users, d.Log))
	}

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))
		if d.RoleDB != nil {
			pr.Use(authmw.AttachRoleFromDB(d.RoleDB, d.AllowClaimRole))
		}

		pr.With(rbac.Require(rbac.PermAttemptStart)).
			Post("/tests/{testID}/attempts", StartAttemptHandler(d.Service, d.Log))
		pr.With(rbac.Require(rbac.PermAttemptSubmit)).
			Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(d.Service, d.Log))
		// ownership and classroom staff checks happen in the service
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/tests/{testID}/attempts", ListAttemptsHandler(d.Service, d.Log))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts/{attemptID}", GetAttemptHandler(d.Service, d.Log))

		pr.Route("/calendar", func(cr chi.Router) {
			cr.Use(rbac.Require(rbac.PermCalendarUse))
			cr.Post("/selection", SelectionHandler(d.Grid))
			cr.Post("/layout", LayoutHandler(d.Grid))
		})
	})
	return r
}
