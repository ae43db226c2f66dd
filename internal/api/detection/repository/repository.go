package detectionRepository

import (
	"ProjectDetect/internal/entity"
	"ProjectDetect/pkg/s3"
	"context"
	"errors"
	"image"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var ErrFileExists = errors.New("stored file already exists")

// IUploadRepository persists uploads and their annotated copies in one flat
// directory. Nothing is ever pruned.
type IUploadRepository interface {
	Save(ctx context.Context, name string, src io.Reader) (*entity.StoredFile, error)
	SaveAnnotated(ctx context.Context, name string, img image.Image) (*entity.StoredFile, error)
	Path(name string) (string, error)
	Dir() string
}

type uploadRepository struct {
	dir    string
	log    *logrus.Logger
	mirror s3.ItfS3
}

// New prepares dir and returns a repository rooted there. mirror may be nil.
func New(dir string, log *logrus.Logger, mirror s3.ItfS3) (IUploadRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &uploadRepository{
		dir:    dir,
		log:    log,
		mirror: mirror,
	}, nil
}

func (r *uploadRepository) Dir() string {
	return r.dir
}
