package detectionHandler

import (
	detectionService "ProjectDetect/internal/api/detection/service"
	"ProjectDetect/internal/middleware"
	"ProjectDetect/pkg/handlerUtil"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const defaultAPITimeout = 30 * time.Second

type DetectionHandler struct {
	log              *logrus.Logger
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	errHandler       *handlerUtil.ErrorHandler
	apiTimeout       time.Duration
}

type Option func(*DetectionHandler)

// WithAPITimeout bounds how long /api/v1/detect waits before answering 408.
func WithAPITimeout(d time.Duration) Option {
	return func(h *DetectionHandler) {
		if d > 0 {
			h.apiTimeout = d
		}
	}
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	opts ...Option,
) *DetectionHandler {
	h := &DetectionHandler{
		log:              log,
		middleware:       middleware,
		detectionService: ds,
		errHandler:       handlerUtil.New(log),
		apiTimeout:       defaultAPITimeout,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Get("/", h.Index)
	srv.Post("/detect", h.middleware.NewRateLimiter, h.Detect)
	srv.Get("/warmup", h.Warmup)
	srv.Get("/healthz", h.Health)

	api := srv.Group("/api/v1")
	api.Post("/detect", h.middleware.NewRateLimiter, h.DetectJSON)

	ws := srv.Group("/ws")
	ws.Use("/detect", wsMiddleware)
	ws.Get("/detect", websocket.New(h.handleStream))
}
