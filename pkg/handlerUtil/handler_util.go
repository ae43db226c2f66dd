package handlerUtil

import (
	"ProjectDetect/internal/api/detection"
	"ProjectDetect/pkg/log"
	"ProjectDetect/pkg/response"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

const unexpectedError = "An unexpected error occurred"

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// Handle writes err as a JSON error body. Domain errors keep their status and
// public message; the wrapped detail only reaches the log, except for model
// and inference failures where the detail is what the caller needs to see.
// Server errors carry the trace ID they were logged under.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	var respErr *response.Error
	if !errors.As(err, &respErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   unexpectedError,
			TraceID: log.ErrorWithTraceID(fields, "Unexpected error"),
		})
	}

	fields["code"] = respErr.Code
	body := ErrorResponse{Error: respErr.Error(), Code: codeOf(err)}

	switch {
	case errors.Is(err, detection.ErrModelUnavailable):
		body.TraceID = log.ErrorWithTraceID(fields, "Model not available")
		body.Details = err.Error()
	case errors.Is(err, detection.ErrInferenceFailed):
		body.TraceID = log.ErrorWithTraceID(fields, "Inference failed")
		body.Details = err.Error()
	case respErr.Code >= fiber.StatusInternalServerError:
		body.TraceID = log.ErrorWithTraceID(fields, "Operation failed with server error")
	default:
		h.logger.WithFields(fields).Warn("Operation failed with error response")
	}

	return c.Status(respErr.Code).JSON(body)
}

// FlashMessage is the user-facing text for err on the HTML pages.
func FlashMessage(err error) string {
	if errors.Is(err, detection.ErrModelUnavailable) || errors.Is(err, detection.ErrInferenceFailed) {
		return err.Error()
	}

	var respErr *response.Error
	if errors.As(err, &respErr) && respErr.Code < fiber.StatusInternalServerError {
		return respErr.Error()
	}

	return unexpectedError
}

func codeOf(err error) string {
	switch {
	case errors.Is(err, detection.ErrNoFilePart):
		return "NO_FILE_PART"
	case errors.Is(err, detection.ErrNoFileSelected):
		return "NO_FILE_SELECTED"
	case errors.Is(err, detection.ErrUnsupportedFileType):
		return "UNSUPPORTED_FILE_TYPE"
	case errors.Is(err, detection.ErrInvalidImage):
		return "INVALID_IMAGE"
	case errors.Is(err, detection.ErrFileTooLarge):
		return "FILE_TOO_LARGE"
	case errors.Is(err, detection.ErrModelUnavailable):
		return "MODEL_UNAVAILABLE"
	case errors.Is(err, detection.ErrInferenceFailed):
		return "INFERENCE_FAILED"
	default:
		return ""
	}
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
		Error: utils.StatusMessage(fiber.StatusRequestTimeout),
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
