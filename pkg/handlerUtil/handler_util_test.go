package handlerUtil

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"ProjectDetect/internal/api/detection"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(err error) *fiber.App {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := New(logger)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return h.Handle(c, "req-1", err, c.Path(), "test")
	})
	return app
}

func call(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()

	resp, e := newApp(err).Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, e)
	defer resp.Body.Close()

	var body ErrorResponse
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
		code    string
		details string
		traced  bool
	}{
		{"no file part", detection.ErrNoFilePart, 400, "No file part.", "NO_FILE_PART", "", false},
		{"unsupported", fmt.Errorf("validate: %w", detection.ErrUnsupportedFileType), 400, "Unsupported file type. Upload JPG/PNG/BMP.", "UNSUPPORTED_FILE_TYPE", "", false},
		{"too large", fmt.Errorf("%w: 20 MB", detection.ErrFileTooLarge), 413, "File too large.", "FILE_TOO_LARGE", "", false},
		{"model", fmt.Errorf("%w: weights missing", detection.ErrModelUnavailable), 503, "Model not available", "MODEL_UNAVAILABLE", "Model not available: weights missing", true},
		{"inference", fmt.Errorf("%w: boom", detection.ErrInferenceFailed), 500, "Inference failed", "INFERENCE_FAILED", "Inference failed: boom", true},
		{"internal", fmt.Errorf("%w: disk full", detection.ErrInternalServerError), 500, "internal server error", "", "", true},
		{"plain", errors.New("something odd"), 500, unexpectedError, "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.message, body.Error)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.details, body.Details)
			if tc.traced {
				assert.Equal(t, "req-1", body.TraceID)
			} else {
				assert.Empty(t, body.TraceID)
			}
		})
	}
}

func TestHandleRequestTimeout(t *testing.T) {
	h := New(logrus.New())
	app := fiber.New()
	app.Get("/", h.HandleRequestTimeout)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body ErrorResponse
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, fiber.StatusRequestTimeout, resp.StatusCode)
	assert.Equal(t, "Request Timeout", body.Error)
}

func TestFlashMessage(t *testing.T) {
	assert.Equal(t, "No file selected.", FlashMessage(detection.ErrNoFileSelected))
	assert.Equal(t, "Uploaded file is not a readable image.", FlashMessage(fmt.Errorf("%w: bad header", detection.ErrInvalidImage)))
	assert.Equal(t, "Model not available: no weights", FlashMessage(fmt.Errorf("%w: no weights", detection.ErrModelUnavailable)))
	assert.Equal(t, "Inference failed: panic", FlashMessage(fmt.Errorf("%w: panic", detection.ErrInferenceFailed)))
	assert.Equal(t, unexpectedError, FlashMessage(fmt.Errorf("%w: disk", detection.ErrInternalServerError)))
	assert.Equal(t, unexpectedError, FlashMessage(errors.New("x")))
}
