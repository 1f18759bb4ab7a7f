package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/usuarios/registry/docs"
	"github.com/usuarios/registry/internal/api/handler"
	"github.com/usuarios/registry/internal/api/middleware"
	"github.com/usuarios/registry/internal/app/form"
	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/ports"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Users  ports.UserService
	Forms  *form.Manager
	Stream handler.StreamServer

	// Readiness lists the dependencies checked by /health/ready, by name.
	Readiness map[string]handler.Pinger

	// JWTSecret enables bearer auth on the /v1 routes when non-empty.
	JWTSecret string

	// Registry receives the HTTP metrics and backs /metrics. Nil means the
	// Prometheus default registry, which also holds the domain metrics.
	Registry *prometheus.Registry

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "registry",
		Registerer: registerer,
	}))

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Readiness)

	e.GET("/health", healthHandler.Liveness)           // liveness: is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- API v1 ---
	v1 := e.Group("/v1")
	write := []echo.MiddlewareFunc{}
	if d.JWTSecret != "" {
		v1.Use(middleware.Auth(d.JWTSecret))
		write = append(write, middleware.RBAC(domain.RoleAdmin, domain.RoleEditor))
	}

	users := handler.NewUserHandler(d.Users)
	v1.GET("/options", users.Options)
	v1.GET("/users", users.List)
	v1.GET("/users/:id", users.Get)
	v1.POST("/users/validate", users.Validate)
	v1.POST("/users", users.Create, write...)
	v1.PUT("/users/:id", users.Update, write...)
	v1.DELETE("/users/:id", users.Delete, write...)

	if d.Stream != nil {
		v1.GET("/users/stream", handler.NewStreamHandler(d.Stream).Stream)
	}

	if d.Forms != nil {
		forms := handler.NewFormHandler(d.Forms)
		f := v1.Group("/forms", write...)
		f.POST("", forms.Open)
		f.GET("/:fid", forms.State)
		f.DELETE("/:fid", forms.Close)
		f.PATCH("/:fid/draft", forms.PatchDraft)
		f.POST("/:fid/submit", forms.Submit)
		f.POST("/:fid/edit/:id", forms.BeginEdit)
		f.PATCH("/:fid/edit", forms.PatchEdit)
		f.DELETE("/:fid/edit", forms.Dismiss)
		f.POST("/:fid/save", forms.Save)
		f.DELETE("/:fid/users/:id", forms.DeleteUser)
	}

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "http").Logger()
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
