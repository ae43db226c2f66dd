package detection

import (
	"ProjectDetect/internal/entity"
	"time"
)

// DetectionItem is a detection as shown to users: label and confidence
// rounded to three decimals.
type DetectionItem struct {
	Label string             `json:"label"`
	Conf  float64            `json:"conf"`
	Box   entity.BoundingBox `json:"box"`
}

type DetectResponse struct {
	InputImage  string          `json:"input_image"`
	OutputImage string          `json:"output_image"`
	Detections  []DetectionItem `json:"detections"`
}

type FrameResponse struct {
	Detections []DetectionItem `json:"detections"`
	Error      string          `json:"error,omitempty"`
}

type WarmupResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status     string     `json:"status"`
	Model      string     `json:"model"`
	ModelError string     `json:"model_error,omitempty"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
	Confidence float32    `json:"confidence"`
	IoU        float32    `json:"iou"`
}
