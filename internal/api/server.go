package api

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/storylinehq/storyline/internal/apierr"
	"github.com/storylinehq/storyline/internal/health"
	"github.com/storylinehq/storyline/internal/metrics"
	"github.com/storylinehq/storyline/internal/requestid"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr    string
	ServiceSecret string
}

// Server is the public API Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   ServerConfig
}

// NewServer creates and configures the API server.
func NewServer(
	cfg ServerConfig,
	handlers *Handlers,
	checker *health.Checker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "api_server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(m, logger)
	s.setupRoutes(checker, m)

	return s
}

func (s *Server) setupMiddleware(m *metrics.Metrics, logger zerolog.Logger) {
	// Recovery middleware
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware
	s.app.Use(func(c *fiber.Ctx) error {
		ctx, reqID := requestid.New(c.UserContext())
		c.SetUserContext(ctx)
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	// Permissive CORS. Preflight answers 200 with no body, matching the
	// published contract.
	s.app.Use(func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		c.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusOK)
		}
		return c.Next()
	})

	// Request metrics and logging (skip noisy probes)
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		m.RequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

		status := c.Response().StatusCode()
		m.RecordRequest(path, strconv.Itoa(status))

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Int("status", status).
			Str("ip", c.IP()).
			Str("request_id", requestid.FromContext(c.UserContext())).
			Msg("api request")

		return err
	})
}

func (s *Server) setupRoutes(checker *health.Checker, m *metrics.Metrics) {
	// Probe endpoints
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/readyz", func(c *fiber.Ctx) error {
		if checker != nil && !checker.IsReady(c.UserContext()) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not_ready"})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// Prometheus metrics
	s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// Public endpoints: POST only, each with the structured 405 envelope.
	s.app.All("/v1/ingest-logs", postOnly(s.handlers.IngestLogs))
	s.app.All("/v1/chat-question", postOnly(s.handlers.ChatQuestion))
	s.app.All("/v1/query-user-story", postOnly(s.handlers.QueryUserStory))

	// Internal trigger target, service-token guarded.
	internal := s.app.Group("/internal/v1", NewServiceAuthMiddleware(s.config.ServiceSecret, s.logger))
	internal.All("/generate-user-story", postOnly(s.handlers.GenerateUserStory))
}

// postOnly rejects everything but POST with the structured envelope.
// Preflight OPTIONS never reaches here; the CORS middleware answers it.
func postOnly(h fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return errorCode(c, apierr.CodeMethodNotAllowed, "Method not allowed. Use POST.")
		}
		return h(c)
	}
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("api server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		return c.Status(code).JSON(ErrorResponse{
			Success:   false,
			Error:     "Internal server error",
			ErrorCode: string(apierr.CodeInternalError),
		})
	}
}
