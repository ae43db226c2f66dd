package detectionRepository

import (
	"ProjectDetect/internal/entity"
	"ProjectDetect/internal/model"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

func (r *uploadRepository) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid stored file name %q", name)
	}
	return filepath.Join(r.dir, name), nil
}

func (r *uploadRepository) Save(ctx context.Context, name string, src io.Reader) (*entity.StoredFile, error) {
	path, err := r.Path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, name)
		}
		return nil, err
	}

	size, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write %s: %w", name, err)
	}

	stored := &entity.StoredFile{
		Name:      name,
		Path:      path,
		Size:      size,
		CreatedAt: time.Now().UTC(),
	}
	r.mirrorFile(ctx, stored)

	return stored, nil
}

func (r *uploadRepository) SaveAnnotated(ctx context.Context, name string, img image.Image) (*entity.StoredFile, error) {
	path, err := r.Path(name)
	if err != nil {
		return nil, err
	}

	if err := model.SaveJPEG(img, path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	stored := &entity.StoredFile{
		Name:      name,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: time.Now().UTC(),
	}
	r.mirrorFile(ctx, stored)

	return stored, nil
}

// mirrorFile copies a stored file to S3 when a mirror is configured.
// Failures are logged; the local copy is authoritative.
func (r *uploadRepository) mirrorFile(ctx context.Context, file *entity.StoredFile) {
	if r.mirror == nil {
		return
	}

	location, err := r.mirror.UploadPath(ctx, file.Name, file.Path)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"file":  file.Name,
			"error": err.Error(),
		}).Warn("Failed to mirror upload to S3")
		return
	}

	r.log.WithFields(logrus.Fields{
		"file":     file.Name,
		"location": location,
	}).Debug("Mirrored upload to S3")
}
