package detection

import (
	"ProjectDetect/pkg/response"
	"net/http"
)

var (
	ErrNoFilePart          = response.NewError(http.StatusBadRequest, "No file part.")
	ErrNoFileSelected      = response.NewError(http.StatusBadRequest, "No file selected.")
	ErrUnsupportedFileType = response.NewError(http.StatusBadRequest, "Unsupported file type. Upload JPG/PNG/BMP.")
	ErrInvalidImage        = response.NewError(http.StatusBadRequest, "Uploaded file is not a readable image.")
	ErrFileTooLarge        = response.NewError(http.StatusRequestEntityTooLarge, "File too large.")
	ErrModelUnavailable    = response.NewError(http.StatusServiceUnavailable, "Model not available")
	ErrInferenceFailed     = response.NewError(http.StatusInternalServerError, "Inference failed")
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
)
