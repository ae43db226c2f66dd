package config

import (
	detectionHandler "ProjectDetect/internal/api/detection/handler"
	detectionRepository "ProjectDetect/internal/api/detection/repository"
	detectionService "ProjectDetect/internal/api/detection/service"
	"ProjectDetect/internal/middleware"
	"ProjectDetect/internal/model"
	"ProjectDetect/pkg/redis"
	"ProjectDetect/pkg/s3"
	"ProjectDetect/pkg/utils"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const uploadsPrefix = "/static/uploads"

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	log        *logrus.Logger
	env        *Env
	middleware middleware.Middleware
	utils      utils.IUtils
	sessions   *session.Store
	storage    fiber.Storage
	s3Client   s3.ItfS3
	models     *model.Provider
	handlers   []handler
	routed     bool
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.env == nil {
		return nil, fmt.Errorf("environment is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}
	if server.models == nil {
		return nil, fmt.Errorf("model provider is required")
	}
	if server.utils == nil {
		server.utils = server.newUtils()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithEnv(env *Env) ServerOption {
	return func(s *Server) error {
		s.env = env
		return nil
	}
}

// WithSessionStore keeps sessions in Redis when REDIS_ADDRESS is set and in
// process memory otherwise.
func WithSessionStore() ServerOption {
	return func(s *Server) error {
		if s.env == nil {
			return fmt.Errorf("environment must be loaded before the session store")
		}

		cfg := session.Config{
			Expiration:     24 * time.Hour,
			KeyLookup:      "cookie:session_id",
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
		}
		if s.env.RedisAddress != "" {
			s.storage = redis.New()
			cfg.Storage = s.storage
		}

		s.sessions = session.New(cfg)
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}

		var opts []middleware.Option
		if s.env != nil {
			opts = append(opts, middleware.WithRateLimit(rate.Limit(s.env.RateLimit), s.env.RateBurst))
		}

		s.middleware = middleware.New(s.log, s.sessions, opts...)
		return nil
	}
}

// WithS3Client mirrors uploads to S3. Without AWS_BUCKET_NAME it does nothing.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if s.env == nil || s.env.S3Bucket == "" {
			return nil
		}

		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

// WithModelProvider prepares the lazy model. Nothing is loaded here; the
// first detection or /warmup does that.
func WithModelProvider() ServerOption {
	return func(s *Server) error {
		if s.env == nil || s.log == nil {
			return fmt.Errorf("environment and logger must be initialized before the model provider")
		}
		env := s.env

		var locator model.Locator
		if env.InferenceWSURL != "" {
			locator = &model.ServiceLocator{URL: env.InferenceWSURL}
		} else {
			locator = &model.FileLocator{
				LocalPath: env.ModelPath,
				DockerEnv: env.DockerEnv,
				RemoteURL: env.ModelURL,
				CacheDir:  env.ModelCacheDir,
			}
		}

		loader := model.NewLoader(model.LoaderConfig{
			InputSize:  env.InputSize,
			LabelsPath: env.ModelLabels,
			RuntimeLib: env.OnnxRuntimeLib,
			Threads:    env.OnnxThreads,
		}, s.log)

		s.models = model.NewProvider(s.log, locator, loader, env.Thresholds())
		return nil
	}
}

// WithProvider injects a ready provider, e.g. one with a stub loader.
func WithProvider(p *model.Provider) ServerOption {
	return func(s *Server) error {
		s.models = p
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		if s.env == nil {
			return fmt.Errorf("environment must be set before utils")
		}
		s.utils = s.newUtils()
		return nil
	}
}

func (s *Server) newUtils() utils.IUtils {
	return utils.New(utils.WithMaxFileSize(int64(s.env.BodyLimitMB) << 20))
}

func (s *Server) RegisterHandler() error {
	// Detection
	uploadRepo, err := detectionRepository.New(s.env.UploadDir, s.log, s.s3Client)
	if err != nil {
		return fmt.Errorf("failed to prepare upload directory: %w", err)
	}
	detectionServices := detectionService.NewDetectionService(s.log, uploadRepo, s.models, s.utils, uploadsPrefix)
	detectionHandlers := detectionHandler.New(s.log, s.middleware, detectionServices,
		detectionHandler.WithAPITimeout(time.Duration(s.env.APITimeoutS)*time.Second))

	s.handlers = append(s.handlers, detectionHandlers)
	return nil
}

// Routes mounts the middleware chain, the upload directory and every
// registered handler. It is called by Run and may be called directly to
// drive the app through fiber's Test.
func (s *Server) Routes() {
	if s.routed {
		return
	}
	s.routed = true

	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware)
	s.engine.Use(encryptcookie.New(encryptcookie.Config{
		Key: cookieKey(s.env.Secret),
	}))

	s.engine.Static(uploadsPrefix, s.env.UploadDir, fiber.Static{
		Browse: false,
	})

	for _, h := range s.handlers {
		h.Start(s.engine)
	}
}

func (s *Server) Run() error {
	s.Routes()

	s.log.WithFields(logrus.Fields{
		"port":       s.env.Port,
		"upload_dir": s.env.UploadDir,
	}).Info("Starting server")

	return s.engine.Listen(fmt.Sprintf(":%d", s.env.Port))
}

// Shutdown stops accepting requests, then releases the model and the
// session storage.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.engine.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}
	if err := s.models.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close model: %w", err))
	}
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session storage: %w", err))
		}
	}

	return errors.Join(errs...)
}

// cookieKey derives the 32-byte AES key encryptcookie wants from an
// arbitrary-length secret.
func cookieKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}
