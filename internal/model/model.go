// Package model wraps the pretrained object detector behind a typed adapter
// and loads it lazily, once per process.
package model

import (
	"context"
	"fmt"
	"image"

	"ProjectDetect/internal/entity"
)

// Detector is the only surface the rest of the application sees of the
// upstream model.
type Detector interface {
	Infer(ctx context.Context, img image.Image) (entity.DetectionList, error)
	Close() error
}

type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	DefaultConfidence = 0.25
	DefaultIoU        = 0.45
	DefaultInputSize  = 640
	maxDetections     = 1000
)

// Thresholds are applied after inference: candidates below Confidence are
// dropped and overlapping boxes above IoU are suppressed.
type Thresholds struct {
	Confidence float32 `validate:"gte=0,lte=1"`
	IoU        float32 `validate:"gte=0,lte=1"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Confidence: DefaultConfidence, IoU: DefaultIoU}
}

type SourceKind int

const (
	// SourceLocal is a weights file baked into the deployment image.
	SourceLocal SourceKind = iota
	// SourceRemote is a weights file fetched from MODEL_URL into the cache.
	SourceRemote
	// SourceService is an external inference service reached over websocket.
	SourceService
)

func (k SourceKind) String() string {
	switch k {
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	case SourceService:
		return "service"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

type Source struct {
	Kind SourceKind
	Path string
	URL  string
}

func (s Source) String() string {
	if s.Kind == SourceService {
		return fmt.Sprintf("%s(%s)", s.Kind, s.URL)
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.Path)
}

type Locator interface {
	Locate(ctx context.Context) (Source, error)
}

// Loader turns a located source into a ready Detector.
type Loader func(ctx context.Context, src Source, th Thresholds) (Detector, error)
