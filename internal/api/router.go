package api

import (
	"fmt"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/socis/member-portal/docs"
	"github.com/socis/member-portal/internal/api/handler"
	"github.com/socis/member-portal/internal/api/middleware"
	"github.com/socis/member-portal/internal/core/ports"
)

// bodyOverhead covers the JSON envelope around a base64 avatar.
const bodyOverhead = 64 * 1024

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Users ports.UserService
	// Health lists the dependencies checked by /health/ready.
	Health []handler.Dependency
	// Blobs is set when avatars live in process memory and must be served
	// by the API itself.
	Blobs handler.BlobReader
	// MaxImageBytes bounds the decoded avatar; the request body limit is
	// derived from it.
	MaxImageBytes int64
	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "portal",
		Registerer: deps.Registerer,
	}))

	// --- RPC procedures ---
	users := handler.NewUserHandler(deps.Users)
	rpc := e.Group("/rpc",
		echomiddleware.BodyLimit(bodyLimit(deps.MaxImageBytes)),
		middleware.AccessToken(),
	)
	rpc.POST("/listUsers", users.ListUsers)
	rpc.POST("/updateUser", users.UpdateUser)
	rpc.POST("/deleteUser", users.DeleteUser)
	rpc.POST("/getProfile", users.GetProfile)
	rpc.POST("/updateProfileImage", users.UpdateProfileImage)

	if deps.Blobs != nil {
		e.GET("/blobs/*", handler.NewBlobHandler(deps.Blobs).Get)
	}

	// --- Health probes, metrics and docs (no auth required) ---
	health := handler.NewHealthHandler(deps.Health...)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// bodyLimit sizes the request limit to a base64 avatar of maxImageBytes.
func bodyLimit(maxImageBytes int64) string {
	if maxImageBytes <= 0 {
		maxImageBytes = 5 * 1024 * 1024
	}
	encoded := (maxImageBytes + 2) / 3 * 4
	// Data URL prefixes and the JSON envelope fit in the overhead.
	return fmt.Sprintf("%dK", (encoded+bodyOverhead+1023)/1024)
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second
