package model

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"
	"github.com/pkg/errors"
)

// DefaultModelURL points at the stock YOLOv5s ONNX export used when no
// weights are baked into the image.
const DefaultModelURL = "https://github.com/ultralytics/yolov5/releases/download/v7.0/yolov5s.onnx"

// FetchFunc downloads src into the file dst.
type FetchFunc func(ctx context.Context, dst, src string) error

// FileLocator prefers weights baked into the container and falls back to a
// remote copy that is downloaded once into CacheDir.
type FileLocator struct {
	LocalPath string
	// DockerEnv forces the local path; a missing file is then an error
	// rather than a reason to go to the network.
	DockerEnv bool
	RemoteURL string
	CacheDir  string
	Fetch     FetchFunc
}

func (l *FileLocator) Locate(ctx context.Context) (Source, error) {
	if l.DockerEnv || fileExists(l.LocalPath) {
		if !fileExists(l.LocalPath) {
			return Source{}, fmt.Errorf("model weights not found at %s", l.LocalPath)
		}
		return Source{Kind: SourceLocal, Path: l.LocalPath}, nil
	}

	if l.RemoteURL == "" {
		return Source{}, fmt.Errorf("no model at %s and no remote url configured", l.LocalPath)
	}

	name, err := cacheName(l.RemoteURL)
	if err != nil {
		return Source{}, err
	}

	cacheDir := l.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "detector-models")
	}
	dst := filepath.Join(cacheDir, name)

	if fileExists(dst) {
		return Source{Kind: SourceRemote, Path: dst, URL: l.RemoteURL}, nil
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Source{}, errors.Wrap(err, "create model cache dir")
	}

	fetch := l.Fetch
	if fetch == nil {
		fetch = GetterFetch
	}

	partial := dst + ".part"
	if err := fetch(ctx, partial, l.RemoteURL); err != nil {
		_ = os.Remove(partial)
		return Source{}, errors.Wrapf(err, "fetch %s", l.RemoteURL)
	}
	if err := os.Rename(partial, dst); err != nil {
		return Source{}, errors.Wrap(err, "move fetched model into cache")
	}

	return Source{Kind: SourceRemote, Path: dst, URL: l.RemoteURL}, nil
}

// GetterFetch downloads a single file with go-getter, which understands
// http(s), s3, gcs and local paths.
func GetterFetch(ctx context.Context, dst, src string) error {
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Mode: getter.ClientModeFile,
	}
	return client.Get()
}

// ServiceLocator points at an external inference service.
type ServiceLocator struct {
	URL string
}

func (l *ServiceLocator) Locate(context.Context) (Source, error) {
	if l.URL == "" {
		return Source{}, errors.New("inference service url is empty")
	}
	return Source{Kind: SourceService, URL: l.URL}, nil
}

func cacheName(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "parse model url")
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("model url %q has no file name", raw)
	}
	return name, nil
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
