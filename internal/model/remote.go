package model

import (
	"bytes"
	"context"
	"image"

	"ProjectDetect/internal/entity"
	websocketPkg "ProjectDetect/pkg/websocket"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// remoteDetector forwards frames to an external inference service. Boxes are
// trusted as returned; the confidence threshold is re-applied locally.
type remoteDetector struct {
	client     websocketPkg.IInferenceClient
	thresholds Thresholds
}

func NewRemoteDetector(client websocketPkg.IInferenceClient, th Thresholds) Detector {
	return &remoteDetector{client: client, thresholds: th}
}

func (d *remoteDetector) Infer(ctx context.Context, img image.Image) (entity.DetectionList, error) {
	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, img); err != nil {
		return nil, errors.Wrap(err, "encode frame")
	}

	dets, err := d.client.Detect(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}

	kept := dets[:0]
	for _, det := range dets {
		if det.Confidence >= d.thresholds.Confidence {
			kept = append(kept, det)
		}
	}
	return kept, nil
}

func (d *remoteDetector) Close() error {
	d.client.Close()
	return nil
}

type LoaderConfig struct {
	InputSize  int
	LabelsPath string
	RuntimeLib string
	Threads    int
}

// NewLoader returns the loader used in production: ONNX for weight files,
// websocket for an inference service.
func NewLoader(cfg LoaderConfig, log *logrus.Logger) Loader {
	return func(ctx context.Context, src Source, th Thresholds) (Detector, error) {
		switch src.Kind {
		case SourceLocal, SourceRemote:
			var labels []string
			if cfg.LabelsPath != "" {
				var err error
				labels, err = LoadLabels(cfg.LabelsPath)
				if err != nil {
					return nil, err
				}
			}
			return NewOnnxDetector(src.Path, OnnxOptions{
				InputSize:  cfg.InputSize,
				Labels:     labels,
				RuntimeLib: cfg.RuntimeLib,
				Threads:    cfg.Threads,
				Thresholds: th,
			})
		case SourceService:
			client, err := websocketPkg.Dial(ctx, src.URL, log)
			if err != nil {
				return nil, err
			}
			return NewRemoteDetector(client, th), nil
		default:
			return nil, errors.Errorf("unsupported model source %s", src)
		}
	}
}
