package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/citc/clubhub/docs"
	httpHandlers "github.com/citc/clubhub/internal/adapters/http"
	"github.com/citc/clubhub/internal/application/services"
	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/config"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

// Store is the health surface shared by the file and Mongo backends
type Store interface {
	Ping() error
	HealthCheck() error
	GetConnectionInfo() map[string]interface{}
}

// storeCounters is implemented by backends that count their own I/O
type storeCounters interface {
	Loads() int64
	Writes() int64
	Failures() int64
}

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	store  Store
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator used for request bodies
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type handlers struct {
	auth    *httpHandlers.AuthHandler
	users   *httpHandlers.UserHandler
	events  *httpHandlers.EventHandler
	team    *httpHandlers.TeamHandler
	project *httpHandlers.ProjectHandler
}

// New creates a new server instance on top of an opened backend
func New(cfg *config.Config, store Store, repos ports.Repositories, appLogger *logger.Logger) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("server requires a store")
	}

	e := echo.New()
	e.Validator = NewValidator()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.App.IsDevelopment()
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	if !cfg.Google.GoogleEnabled() {
		appLogger.Warnw("GOOGLE_CLIENT_ID is not set, Google sign-in is disabled")
	}

	// Initialize services
	authService := services.NewAuthService(repos.Users, cfg.JWT, cfg.Google, appLogger)
	userService := services.NewUserService(repos.Users, appLogger)
	eventService := services.NewEventService(repos.Events, repos.Users, appLogger)
	teamService := services.NewTeamService(repos.Teams, appLogger)
	projectService := services.NewProjectService(repos.Projects, repos.Users, appLogger)

	// Initialize handlers
	h := handlers{
		auth:    httpHandlers.NewAuthHandler(authService, userService, appLogger),
		users:   httpHandlers.NewUserHandler(userService, appLogger),
		events:  httpHandlers.NewEventHandler(eventService, appLogger),
		team:    httpHandlers.NewTeamHandler(teamService, appLogger),
		project: httpHandlers.NewProjectHandler(projectService, appLogger),
	}

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		store:  store,
	}

	server.setupMiddleware()
	server.setupRoutes(h, authService)

	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
				"request_id", values.RequestID,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	if s.config.Security.RateLimitRequests > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(s.config.Security.RateLimitRequests),
					Burst:     s.config.Security.RateLimitRequests,
					ExpiresIn: s.config.Security.RateLimitWindow,
				},
			),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(context echo.Context, err error) error {
				return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
			},
		}))
	}

	// HSTS only in production; a zero max age leaves the header off.
	hstsMaxAge := 0
	if s.config.App.IsProduction() {
		hstsMaxAge = 31536000
	}
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         hstsMaxAge,
	}))

	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h handlers, authService *services.AuthService) {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	s.echo.GET("/docs/*", echoSwagger.WrapHandler)

	if dir := s.config.Database.MediaDir; dir != "" {
		s.echo.Static("/media", dir)
	}

	auth := s.authMiddleware(authService)
	admin := s.requireRole(entities.UserRoleAdmin)
	editors := s.requireRole(entities.UserRoleAdmin, entities.UserRoleMentor)

	api := s.echo.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.auth.Register)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/google-login", h.auth.GoogleLogin)
	authGroup.GET("/me", h.auth.Me, auth)
	authGroup.PUT("/me", h.auth.UpdateMe, auth)

	userGroup := api.Group("/users", auth, admin)
	userGroup.GET("", h.users.ListUsers)
	userGroup.PUT("/:id/role", h.users.SetRole)

	// "/years" is static and wins over an event whose slug is "years"
	eventGroup := api.Group("/events")
	eventGroup.GET("", h.events.ListEvents)
	eventGroup.GET("/years", h.events.ListYears)
	eventGroup.GET("/:slug", h.events.GetEvent)
	eventGroup.POST("", h.events.CreateEvent, auth, editors)
	eventGroup.PUT("/:id", h.events.UpdateEvent, auth, editors)
	eventGroup.DELETE("/:id", h.events.DeleteEvent, auth, admin)
	eventGroup.POST("/:id/rsvp", h.events.RSVP, auth)

	teamGroup := api.Group("/team")
	teamGroup.GET("", h.team.Directory)
	teamGroup.GET("/grouped", h.team.Grouped)
	teamGroup.GET("/teams", h.team.ListTeams)
	teamGroup.POST("/teams", h.team.CreateTeam, auth, admin)
	teamGroup.GET("/:id", h.team.GetMember)
	teamGroup.POST("", h.team.CreateMember, auth, admin)
	teamGroup.PUT("/:id", h.team.UpdateMember, auth, admin)
	teamGroup.DELETE("/:id", h.team.DeleteMember, auth, admin)

	projectGroup := api.Group("/projects")
	projectGroup.GET("", h.project.ListProjects)
	projectGroup.GET("/:id", h.project.GetProject)
	projectGroup.POST("", h.project.CreateProject, auth)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	if counters, ok := s.store.(storeCounters); ok {
		registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "clubhub_store_loads_total",
				Help: "Record files loaded from disk",
			}, func() float64 { return float64(counters.Loads()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "clubhub_store_writes_total",
				Help: "Record files written to disk",
			}, func() float64 { return float64(counters.Writes()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "clubhub_store_failures_total",
				Help: "Failed record file loads and writes",
			}, func() float64 { return float64(counters.Failures()) }),
		)
	}

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	})

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	if err := s.store.HealthCheck(); err != nil {
		status = "error"
		checks["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["store"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.store.GetConnectionInfo(),
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.store.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "store_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address, "driver", s.config.Database.Driver)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler renders every error as {"message": ...}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if m, isString := he.Message.(string); isString {
				msg = map[string]string{"message": m}
			} else {
				msg = map[string]interface{}{"message": he.Message}
			}
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if e, ok := err.(validator.ValidationErrors); ok {
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": e.Error()}
		} else {
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
