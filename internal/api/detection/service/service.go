package detectionService

import (
	"ProjectDetect/internal/api/detection"
	detectionRepository "ProjectDetect/internal/api/detection/repository"
	"ProjectDetect/internal/model"
	"ProjectDetect/pkg/utils"
	"context"
	"mime/multipart"
	"time"

	"github.com/sirupsen/logrus"
)

type IDetectionService interface {
	Detect(ctx context.Context, file *multipart.FileHeader) (*detection.DetectResponse, error)
	DetectFrame(ctx context.Context, frame []byte) (*detection.FrameResponse, error)
	Warmup(ctx context.Context) error
	Health() detection.HealthResponse
}

// ModelProvider is the part of *model.Provider the service depends on.
type ModelProvider interface {
	Get(ctx context.Context) (model.Detector, error)
	State() model.State
	Err() error
	LoadedAt() time.Time
	Thresholds() model.Thresholds
}

type detectionService struct {
	log       *logrus.Logger
	repo      detectionRepository.IUploadRepository
	models    ModelProvider
	utils     utils.IUtils
	urlPrefix string
}

// NewDetectionService wires the service. urlPrefix is the public path the
// upload directory is served under, e.g. "/static/uploads".
func NewDetectionService(
	log *logrus.Logger,
	repo detectionRepository.IUploadRepository,
	models ModelProvider,
	utils utils.IUtils,
	urlPrefix string,
) IDetectionService {
	return &detectionService{
		log:       log,
		repo:      repo,
		models:    models,
		utils:     utils,
		urlPrefix: urlPrefix,
	}
}
