package detectionService

import (
	"ProjectDetect/internal/api/detection"
	"ProjectDetect/internal/entity"
	"ProjectDetect/internal/model"
	contextPkg "ProjectDetect/pkg/context"
	"ProjectDetect/pkg/utils"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"mime/multipart"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const annotatedSuffix = "_pred.jpg"

func (s *detectionService) Detect(ctx context.Context, file *multipart.FileHeader) (*detection.DetectResponse, error) {
	if err := s.utils.ValidateImageFile(file); err != nil {
		return nil, validationError(err)
	}

	name := s.utils.StampedFilename(file.Filename)

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %v", detection.ErrInternalServerError, err)
	}
	defer src.Close()

	stored, err := s.repo.Save(ctx, name, src)
	if err != nil {
		return nil, fmt.Errorf("%w: store upload: %v", detection.ErrInternalServerError, err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"original":   file.Filename,
		"stored":     stored.Name,
		"size":       stored.Size,
	}).Info("Upload stored")

	detector, err := s.models.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrModelUnavailable, err)
	}

	img, err := decodeFile(stored.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrInvalidImage, err)
	}

	dets, err := infer(ctx, detector, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrInferenceFailed, err)
	}

	outName := strings.TrimSuffix(name, filepath.Ext(name)) + annotatedSuffix
	if _, err := s.repo.SaveAnnotated(ctx, outName, model.Annotate(img, dets)); err != nil {
		return nil, fmt.Errorf("%w: store annotated image: %v", detection.ErrInternalServerError, err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"stored":     stored.Name,
		"annotated":  outName,
		"detections": len(dets),
	}).Info("Detection finished")

	return &detection.DetectResponse{
		InputImage:  s.fileURL(name),
		OutputImage: s.fileURL(outName),
		Detections:  toItems(dets),
	}, nil
}

func (s *detectionService) DetectFrame(ctx context.Context, frame []byte) (*detection.FrameResponse, error) {
	if len(frame) == 0 {
		return nil, detection.ErrNoFileSelected
	}

	detector, err := s.models.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrModelUnavailable, err)
	}

	img, err := model.DecodeBytes(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrInvalidImage, err)
	}

	dets, err := infer(ctx, detector, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrInferenceFailed, err)
	}

	return &detection.FrameResponse{Detections: toItems(dets)}, nil
}

func (s *detectionService) Warmup(ctx context.Context) error {
	_, err := s.models.Get(ctx)
	return err
}

func (s *detectionService) Health() detection.HealthResponse {
	th := s.models.Thresholds()
	resp := detection.HealthResponse{
		Status:     "ok",
		Model:      s.models.State().String(),
		Confidence: th.Confidence,
		IoU:        th.IoU,
	}
	if err := s.models.Err(); err != nil {
		resp.ModelError = err.Error()
	}
	if at := s.models.LoadedAt(); !at.IsZero() && resp.Model == model.StateLoaded.String() {
		resp.LoadedAt = &at
	}
	return resp
}

func (s *detectionService) fileURL(name string) string {
	return path.Join(s.urlPrefix, url.PathEscape(name))
}

// infer runs the detector and turns a panic inside the model into an error
// so a bad request never takes the process down.
func infer(ctx context.Context, detector model.Detector, img image.Image) (dets entity.DetectionList, err error) {
	defer func() {
		if r := recover(); r != nil {
			dets = nil
			err = fmt.Errorf("panic during inference: %v", r)
		}
	}()

	return detector.Infer(ctx, img)
}

func decodeFile(p string) (image.Image, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return model.DecodeImage(f)
}

func validationError(err error) error {
	switch {
	case errors.Is(err, utils.ErrNoFile):
		return detection.ErrNoFilePart
	case errors.Is(err, utils.ErrEmptyFilename):
		return detection.ErrNoFileSelected
	case errors.Is(err, utils.ErrUnsupportedExtension):
		return detection.ErrUnsupportedFileType
	case errors.Is(err, utils.ErrFileTooLarge):
		return detection.ErrFileTooLarge
	default:
		return fmt.Errorf("%w: %v", detection.ErrUnsupportedFileType, err)
	}
}

// roundConf rounds to 3 decimals with ties to even. The product is exact for
// any float32, so 0.0625 becomes 0.062.
func roundConf(c float32) float64 {
	return math.RoundToEven(float64(c)*1000) / 1000
}

func toItems(dets entity.DetectionList) []detection.DetectionItem {
	items := make([]detection.DetectionItem, 0, len(dets))
	for _, d := range dets {
		items = append(items, detection.DetectionItem{
			Label: d.Label,
			Conf:  roundConf(d.Confidence),
			Box:   d.Box,
		})
	}
	return items
}
