package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/royalbook/royalbook/internal/auth"
	"github.com/royalbook/royalbook/internal/config"
	"github.com/royalbook/royalbook/internal/http/handlers"
	"github.com/royalbook/royalbook/internal/http/middlewares"
	"github.com/royalbook/royalbook/internal/observability"
	"github.com/royalbook/royalbook/internal/payments"
	"github.com/royalbook/royalbook/internal/reconcile"
	"github.com/royalbook/royalbook/internal/repo/postgres"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func NewRouter(log *slog.Logger, cfg config.Config, pool *pgxpool.Pool, denylist *auth.Denylist, prom *observability.Prom) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware("royalbook-api"))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// health
	healthHandler := handlers.NewHealthHandler(pool)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	booksRepo := postgres.NewBooksRepo(pool, prom)
	bookingsRepo := postgres.NewBookingsRepo(pool, prom)
	paymentsRepo := postgres.NewPaymentsRepo(pool, prom)
	reportsRepo := postgres.NewReportsRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	gateway := payments.NewClient(cfg.StripeBaseURL, cfg.StripeSecretKey, prom)
	reconciler := reconcile.New(bookingsRepo, booksRepo, paymentsRepo, jobsRepo)

	// a nil *auth.Denylist must stay a nil interface inside the middleware
	var sessions middlewares.SessionDenylist
	var revoker handlers.SessionRevoker
	if denylist != nil {
		sessions = denylist
		revoker = denylist
	}

	authMiddleware := middlewares.NewAuthMiddleware(jwtManager, sessions, usersRepo)

	// wire up handlers
	usersHandler := handlers.NewUsersHandler(usersRepo, jwtManager, revoker)
	booksHandler := handlers.NewBooksHandler(booksRepo, jobsRepo)
	bookingsHandler := handlers.NewBookingsHandler(bookingsRepo)
	paymentsHandler := handlers.NewPaymentsHandler(gateway, reconciler, bookingsRepo)
	reportsHandler := handlers.NewReportsHandler(reportsRepo, booksRepo)

	// account upsert is unauthenticated, keep it from being hammered
	upsertLimiter := middlewares.NewRateLimiter(10, time.Minute)

	// public storefront
	r.PUT("/user/:email", upsertLimiter.RateLimiterMiddleware(middlewares.KeyByIP), usersHandler.Upsert)
	r.GET("/verify-seller/:email", usersHandler.VerifySeller)
	r.GET("/categories", booksHandler.Categories)
	r.GET("/categories/:name", booksHandler.ListByCategory)
	r.GET("/books/:id", booksHandler.Get)
	r.GET("/reportbook", reportsHandler.List)

	// authenticated
	authed := r.Group("/", authMiddleware.RequireAuth())

	authed.GET("/user/:email", authMiddleware.RequireSelf("email"), usersHandler.GetUser)
	authed.GET("/seller/books/:email", authMiddleware.RequireSelf("email"), booksHandler.ListBySeller)
	authed.POST("/books", booksHandler.Create)
	authed.DELETE("/books/:id", booksHandler.Delete)
	authed.PUT("/books/:id/advertise", booksHandler.ToggleAdvertise)
	authed.POST("/bookings", bookingsHandler.Create)
	authed.GET("/bookings/:email", authMiddleware.RequireSelf("email"), bookingsHandler.ListForUser)
	authed.GET("/payment/:id", bookingsHandler.Get)
	authed.POST("/create-payment-intent", paymentsHandler.CreateIntent)
	authed.PUT("/payments", paymentsHandler.RecordPayment)
	authed.POST("/reportbook", reportsHandler.Create)

	// admin
	admin := authed.Group("/", authMiddleware.RequireAdmin())

	admin.GET("/users/sellers", usersHandler.ListSellers)
	admin.GET("/users/buyers", usersHandler.ListBuyers)
	admin.PUT("/users/verify/:id", usersHandler.Verify)
	admin.DELETE("/users/:id", usersHandler.Delete)
	admin.DELETE("/reportbook/:bookId", reportsHandler.DeleteReportedBook)

	return r
}
