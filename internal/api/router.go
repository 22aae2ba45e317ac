package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/messagely/messagely/docs" // registers the OpenAPI document
	"github.com/messagely/messagely/internal/api/handler"
	"github.com/messagely/messagely/internal/api/middleware"
	"github.com/messagely/messagely/internal/core/ports"
	"github.com/messagely/messagely/internal/infrastructure/http/handlers"
)

// Dependencies are the services and probes the router exposes.
type Dependencies struct {
	Auth      ports.AuthService
	Users     ports.UserService
	Messages  ports.MessageService
	Readiness map[string]handlers.PingFunc
	Log       zerolog.Logger
	// Registerer receives the HTTP request metrics. Defaults to the
	// global Prometheus registerer.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "messagely",
		Registerer: deps.Registerer,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Users)
	messageHandler := handler.NewMessageHandler(deps.Messages)
	requireAuth := middleware.Auth(deps.Auth)
	requireSelf := middleware.EnsureCorrectUser("username")

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- User routes ---
	users := e.Group("/users", requireAuth)
	users.GET("", userHandler.List)
	users.GET("/:username", userHandler.Get, requireSelf)
	users.GET("/:username/to", userHandler.Inbox, requireSelf)
	users.GET("/:username/from", userHandler.Outbox, requireSelf)

	// --- Message routes ---
	messages := e.Group("/messages", requireAuth)
	messages.POST("", messageHandler.Send)
	messages.GET("/:id", messageHandler.Get)
	messages.POST("/:id/read", messageHandler.MarkRead)

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
