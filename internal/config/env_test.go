package config

import (
	"testing"

	"ProjectDetect/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"APP_ENV", "PORT", "FLASK_SECRET", "DOCKER_ENV", "YOLO_CONF", "YOLO_IOU",
	"UPLOAD_DIR", "MODEL_PATH", "MODEL_URL", "MODEL_CACHE_DIR", "MODEL_LABELS",
	"MODEL_INPUT_SIZE", "ONNXRUNTIME_LIB", "ONNX_THREADS", "INFERENCE_WS_URL",
	"REDIS_ADDRESS", "AWS_BUCKET_NAME", "BODY_LIMIT_MB", "RATE_LIMIT", "RATE_BURST",
	"API_TIMEOUT_SECONDS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	clearEnv(t)

	env, err := LoadEnv(NewValidator())
	require.NoError(t, err)

	assert.Equal(t, 8000, env.Port)
	assert.Equal(t, "dev-secret", env.Secret)
	assert.False(t, env.DockerEnv)
	assert.Equal(t, 30, env.APITimeoutS)
	assert.Equal(t, model.DefaultThresholds(), env.Thresholds())
	assert.Equal(t, "static/uploads", env.UploadDir)
	assert.Equal(t, "/app/models/best.onnx", env.ModelPath)
	assert.Equal(t, model.DefaultModelURL, env.ModelURL)
	assert.Equal(t, 640, env.InputSize)
	assert.Empty(t, env.InferenceWSURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("FLASK_SECRET", "s3cr3t")
	t.Setenv("DOCKER_ENV", "True")
	t.Setenv("YOLO_CONF", "0.5")
	t.Setenv("YOLO_IOU", "0.3")
	t.Setenv("INFERENCE_WS_URL", "ws://infer:9000/detect")

	env, err := LoadEnv(NewValidator())
	require.NoError(t, err)

	assert.Equal(t, 9090, env.Port)
	assert.Equal(t, "s3cr3t", env.Secret)
	assert.True(t, env.DockerEnv)
	assert.Equal(t, model.Thresholds{Confidence: 0.5, IoU: 0.3}, env.Thresholds())
	assert.Equal(t, "ws://infer:9000/detect", env.InferenceWSURL)
}

func TestLoadEnvRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"non-numeric port":     {"PORT", "eighty"},
		"port out of range":    {"PORT", "70000"},
		"confidence above one": {"YOLO_CONF", "1.5"},
		"negative iou":         {"YOLO_IOU", "-0.1"},
		"garbage iou":          {"YOLO_IOU", "high"},
		"tiny input":           {"MODEL_INPUT_SIZE", "8"},
		"service url":          {"INFERENCE_WS_URL", "not a url"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := LoadEnv(NewValidator())
			assert.Error(t, err)
		})
	}
}

func TestCookieKeyIsValidAESKey(t *testing.T) {
	a := cookieKey("dev-secret")
	assert.Len(t, a, 44)
	assert.Equal(t, a, cookieKey("dev-secret"))
	assert.NotEqual(t, a, cookieKey("other"))
}
