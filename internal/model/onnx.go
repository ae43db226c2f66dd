package model

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"ProjectDetect/internal/entity"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var ortMu sync.Mutex

// initRuntime loads the onnxruntime shared library once per process.
func initRuntime(libPath string) error {
	ortMu.Lock()
	defer ortMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "initialize onnxruntime")
	}
	return nil
}

type OnnxOptions struct {
	InputSize  int
	Labels     []string
	RuntimeLib string
	Threads    int
	Thresholds Thresholds
}

// onnxDetector runs a YOLOv5 ONNX export. The session and its tensors are
// shared, so Infer holds mu for the whole run.
type onnxDetector struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	size       int
	rowLen     int
	labels     []string
	thresholds Thresholds
}

func NewOnnxDetector(modelPath string, opts OnnxOptions) (Detector, error) {
	if err := initRuntime(opts.RuntimeLib); err != nil {
		return nil, err
	}

	size := opts.InputSize
	if size <= 0 {
		size = DefaultInputSize
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "read model io info")
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("expected 1 input and at least 1 output, got %d and %d", len(inputs), len(outputs))
	}

	labels := opts.Labels
	if len(labels) == 0 {
		labels = CocoLabels()
	}

	rows, rowLen := outputGeometry(outputs[0].Dimensions, size, len(labels))
	labels = fitLabels(labels, rowLen-5)

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), make([]float32, 3*size*size))
	if err != nil {
		return nil, errors.Wrap(err, "allocate input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(rows), int64(rowLen)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "allocate output tensor")
	}

	sessOpts, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer sessOpts.Destroy()

	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if err := sessOpts.SetIntraOpNumThreads(threads); err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "set intra op threads")
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{input},
		[]ort.Value{output},
		sessOpts,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "create onnx session")
	}

	return &onnxDetector{
		session:    session,
		input:      input,
		output:     output,
		size:       size,
		rowLen:     rowLen,
		labels:     labels,
		thresholds: opts.Thresholds,
	}, nil
}

// outputGeometry resolves the [1, rows, 5+classes] output shape, filling in
// dynamic dimensions from the input size and label count.
func outputGeometry(dims ort.Shape, size, classes int) (rows, rowLen int) {
	if len(dims) == 3 {
		rows, rowLen = int(dims[1]), int(dims[2])
	}
	if rows <= 0 {
		s8, s16, s32 := size/8, size/16, size/32
		rows = 3 * (s8*s8 + s16*s16 + s32*s32)
	}
	if rowLen <= 0 {
		rowLen = 5 + classes
	}
	return rows, rowLen
}

func (d *onnxDetector) Infer(ctx context.Context, img image.Image) (entity.DetectionList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lb := newLetterbox(img, d.size)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, ErrNotLoaded
	}

	lb.fillCHW(d.input.GetData())
	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run onnx session")
	}

	cands := decodeYOLOv5(d.output.GetData(), d.rowLen, d.thresholds.Confidence)
	kept := nonMaxSuppression(cands, d.thresholds.IoU, maxDetections)

	dets := make(entity.DetectionList, 0, len(kept))
	for _, c := range kept {
		dets = append(dets, entity.Detection{
			Label:      d.labels[c.class],
			ClassID:    c.class,
			Confidence: c.score,
			Box:        entity.BoxFromRect(lb.toSource(c.box)),
		})
	}

	return dets, nil
}

func (d *onnxDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}

	err := d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	d.session = nil

	return err
}
