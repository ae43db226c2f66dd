package middleware

import (
	"ProjectDetect/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const RequestIDKey = "X-Request-ID"

type Middleware interface {
	NewRateLimiter(ctx *fiber.Ctx) error
	NewLoggingMiddleware(ctx *fiber.Ctx) error
	NewRequestIDMiddleware() fiber.Handler
	GetRequestID(ctx *fiber.Ctx) string
	AddFlash(ctx *fiber.Ctx, message string) error
	PopFlashes(ctx *fiber.Ctx) ([]string, error)
}

type Option func(*middleware)

// WithRateLimit sets the per-IP token bucket used by NewRateLimiter.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(m *middleware) {
		m.rateLimitter = newRateLimiter(r, burst)
	}
}

// WithIDSource replaces the ULID generator behind NewRequestIDMiddleware.
func WithIDSource(ids utils.IUtils) Option {
	return func(m *middleware) {
		m.ids = ids
	}
}

type middleware struct {
	rateLimitter *rateLimiter
	ids          utils.IUtils
	sessions     *session.Store
	log          *logrus.Logger
}

// New builds the middleware set. sessions backs the flash messages; a nil
// store falls back to an in-memory one.
func New(logger *logrus.Logger, sessions *session.Store, opts ...Option) Middleware {
	if sessions == nil {
		sessions = session.New()
	}

	m := &middleware{
		rateLimitter: newRateLimiter(5, 10),
		ids:          utils.New(),
		sessions:     sessions,
		log:          logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *middleware) GetRequestID(ctx *fiber.Ctx) string {
	requestID, ok := ctx.Locals(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

// NewRequestIDMiddleware reuses an incoming X-Request-ID or mints a ULID,
// falling back to a UUID if the entropy source fails.
func (m *middleware) NewRequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)

		if requestID == "" {
			id, err := m.ids.NewULIDFromTimestamp(time.Now())
			if err != nil {
				m.log.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Warn("Failed to generate ULID request id")
				id = uuid.NewString()
			}
			requestID = id
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)

		return c.Next()
	}
}
