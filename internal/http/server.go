package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/contact-desk/internal/config"
	"github.com/jmehdipour/contact-desk/internal/http/middleware"
	"github.com/jmehdipour/contact-desk/internal/metrics"
	"github.com/jmehdipour/contact-desk/internal/repository"
	"github.com/jmehdipour/contact-desk/internal/service/contact"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the collaborators of the HTTP server. Counter and Reports may be
// nil: rate limiting and the analytics report are then disabled.
type Deps struct {
	Config   config.Config
	DB       *sqlx.DB
	Contacts *contact.Service
	Reports  repository.CHContactsRepository
	Counter  middleware.Counter
	Log      *zap.Logger
	// Notifies reports whether submissions trigger confirmation emails.
	Notifies bool
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(d Deps) *Server {
	lg := d.Log
	if lg == nil {
		lg = zap.NewNop()
	}
	cfg := d.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLogLevel(cfg.Log.Level))
	e.HTTPErrorHandler = errorHandler(lg)

	bodyLimit := cfg.HTTP.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "10M"
	}
	e.Use(
		echoMid.Recover(),
		requestLogger(lg),
		echoMid.SecureWithConfig(echoMid.SecureConfig{
			XSSProtection:      "0",
			ContentTypeNosniff: "nosniff",
			XFrameOptions:      "SAMEORIGIN",
			HSTSMaxAge:         15552000, // 180 days, sent only over TLS
			ReferrerPolicy:     "no-referrer",
		}),
		echoMid.CORSWithConfig(echoMid.CORSConfig{
			AllowOrigins:     cfg.HTTP.AllowedOrigins,
			AllowCredentials: true,
		}),
		echoMid.BodyLimit(bodyLimit),
	)

	metrics.MustRegister(prometheus.DefaultRegisterer)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	sys := &systemHandlers{db: d.DB, version: cfg.Version, brand: cfg.Notifier.Brand}
	e.GET("/health", sys.health)

	window := cfg.RateLimit.Window
	contactLimit := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Counter:        d.Counter,
		Max:            cfg.RateLimit.ContactMax,
		KeyPrefix:      "rl:contact:",
		Window:         window,
		Message:        "Too many contact form submissions. Please try again later.",
		RetryAfterHint: true,
	})
	apiLimit := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Counter:        d.Counter,
		Max:            cfg.RateLimit.APIMax,
		KeyPrefix:      "rl:api:",
		Window:         window,
		RetryAfterHint: true,
	})
	adminKey := middleware.AdminKeyMiddleware(cfg.Admin.APIKeys)

	h := &contactHandlers{svc: d.Contacts, log: lg, notifies: d.Notifies}

	// routes
	e.POST("/contact", h.submit, contactLimit)

	api := e.Group("/api", apiLimit)
	api.GET("", sys.catalogue)

	contacts := api.Group("/contacts", adminKey)
	contacts.GET("", h.list)
	contacts.GET("/search", h.search)
	contacts.GET("/stats", h.stats)
	contacts.GET("/recent", h.recent)
	contacts.GET("/unread", h.unread)
	contacts.GET("/reports/daily", dailyVolumeHandler(d.Reports, lg))
	contacts.GET("/:id", h.get)
	contacts.PATCH("/:id", h.transition)

	return &Server{e: e, log: lg}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func requestLogger(lg *zap.Logger) echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echoMid.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				lg.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			lg.Info("request", fields...)
			return nil
		},
	})
}

func echoLogLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "info":
		return log.INFO
	case "error":
		return log.ERROR
	default:
		return log.WARN
	}
}

type systemHandlers struct {
	db      *sqlx.DB
	version string
	brand   string
}

// health reports process liveness and database connectivity.
func (h *systemHandlers) health(c echo.Context) error {
	database := "Disconnected"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if h.db.PingContext(ctx) == nil {
			database = "Connected"
		}
	}
	return ok(c, http.StatusOK, map[string]any{
		"message":   h.brand + " backend is running",
		"timestamp": time.Now().UTC(),
		"database":  database,
		"version":   h.version,
	})
}

func (h *systemHandlers) catalogue(c echo.Context) error {
	return ok(c, http.StatusOK, map[string]any{
		"message": h.brand + " API",
		"version": h.version,
		"endpoints": map[string]string{
			"POST /contact":                   "Submit contact form",
			"GET /api/contacts":               "List contacts (admin; page, limit, status, priority)",
			"GET /api/contacts/:id":           "Get a contact (admin; marks new contacts as read)",
			"PATCH /api/contacts/:id":         "Apply an action: markAsRead, markAsReplied, markAsArchived, setPriority, addNote",
			"GET /api/contacts/search":        "Search contacts by name, email, subject or message (admin)",
			"GET /api/contacts/stats":         "Contact statistics (admin)",
			"GET /api/contacts/recent":        "Most recent contacts (admin)",
			"GET /api/contacts/unread":        "Unread contacts (admin)",
			"GET /api/contacts/reports/daily": "Daily submission volume from ClickHouse (admin)",
			"GET /health":                     "Health check",
			"GET /api":                        "API information",
		},
	})
}
