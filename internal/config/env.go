package config

import (
	"ProjectDetect/internal/model"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Env is the process configuration. Every field comes from the environment,
// optionally seeded from a .env file.
type Env struct {
	AppEnv    string
	Port      int    `validate:"min=1,max=65535"`
	Secret    string `validate:"required"`
	DockerEnv bool

	Confidence float32 `validate:"gte=0,lte=1"`
	IoU        float32 `validate:"gte=0,lte=1"`

	UploadDir      string `validate:"required"`
	ModelPath      string
	ModelURL       string `validate:"omitempty,url"`
	ModelCacheDir  string
	ModelLabels    string
	InputSize      int `validate:"min=32,max=4096"`
	OnnxRuntimeLib string
	OnnxThreads    int    `validate:"gte=0"`
	InferenceWSURL string `validate:"omitempty,url"`

	RedisAddress string
	S3Bucket     string

	BodyLimitMB int     `validate:"min=1"`
	RateLimit   float64 `validate:"gt=0"`
	RateBurst   int     `validate:"min=1"`
	APITimeoutS int     `validate:"min=1"`
}

// LoadEnv reads the environment. Unparseable or out-of-range values are
// reported instead of being replaced by defaults.
func LoadEnv(v *validator.Validate) (*Env, error) {
	r := envReader{}

	env := &Env{
		AppEnv:    r.str("APP_ENV", "development"),
		Port:      r.integer("PORT", 8000),
		Secret:    r.str("FLASK_SECRET", "dev-secret"),
		DockerEnv: r.boolean("DOCKER_ENV"),

		Confidence: r.num32("YOLO_CONF", model.DefaultConfidence),
		IoU:        r.num32("YOLO_IOU", model.DefaultIoU),

		UploadDir:      r.str("UPLOAD_DIR", "static/uploads"),
		ModelPath:      r.str("MODEL_PATH", "/app/models/best.onnx"),
		ModelURL:       r.str("MODEL_URL", model.DefaultModelURL),
		ModelCacheDir:  r.str("MODEL_CACHE_DIR", ""),
		ModelLabels:    r.str("MODEL_LABELS", ""),
		InputSize:      r.integer("MODEL_INPUT_SIZE", model.DefaultInputSize),
		OnnxRuntimeLib: r.str("ONNXRUNTIME_LIB", ""),
		OnnxThreads:    r.integer("ONNX_THREADS", 0),
		InferenceWSURL: r.str("INFERENCE_WS_URL", ""),

		RedisAddress: r.str("REDIS_ADDRESS", ""),
		S3Bucket:     r.str("AWS_BUCKET_NAME", ""),

		BodyLimitMB: r.integer("BODY_LIMIT_MB", 16),
		RateLimit:   r.num("RATE_LIMIT", 5),
		RateBurst:   r.integer("RATE_BURST", 10),
		APITimeoutS: r.integer("API_TIMEOUT_SECONDS", 30),
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(r.errs, "; "))
	}

	if err := v.Struct(env); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	return env, nil
}

func (e *Env) Thresholds() model.Thresholds {
	return model.Thresholds{Confidence: e.Confidence, IoU: e.IoU}
}

type envReader struct {
	errs []string
}

func (r *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s=%q is not an integer", key, raw))
		return def
	}
	return v
}

func (r *envReader) num(key string, def float64) float64 {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s=%q is not a number", key, raw))
		return def
	}
	return v
}

func (r *envReader) num32(key string, def float32) float32 {
	return float32(r.num(key, float64(def)))
}

// boolean treats 1/true/yes/on (any case) as set.
func (r *envReader) boolean(key string) bool {
	switch strings.ToLower(r.str(key, "")) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
