package model

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"ProjectDetect/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestAnnotateDrawsBoxes(t *testing.T) {
	src := solidImage(120, 80, color.Black)
	dets := entity.DetectionList{
		{Label: "dog", ClassID: 0, Confidence: 0.91, Box: entity.BoundingBox{X1: 20, Y1: 30, X2: 100, Y2: 70}},
	}

	out := Annotate(src, dets)
	require.Equal(t, src.Bounds().Size(), out.Bounds().Size())

	r, g, b, _ := out.At(60, 70).RGBA()
	assert.NotEqual(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b}, "bottom edge of the box is drawn")

	r, g, b, _ = out.At(60, 50).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b}, "box interior is untouched")

	// the source is not modified
	assert.Equal(t, color.RGBA{A: 255}, src.RGBAAt(60, 70))
}

func TestSaveJPEGAndDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out_pred.jpg")
	require.NoError(t, SaveJPEG(solidImage(32, 16, color.White), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := DecodeImage(f)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(32, 16), img.Bounds().Size())
}

func TestDecodeBytesRejectsGarbage(t *testing.T) {
	_, err := DecodeBytes([]byte("definitely not an image"))
	assert.Error(t, err)
}

type fakeInferenceClient struct {
	frames [][]byte
	reply  entity.DetectionList
	closed bool
}

func (f *fakeInferenceClient) Detect(_ context.Context, frame []byte) (entity.DetectionList, error) {
	f.frames = append(f.frames, frame)
	return f.reply, nil
}
func (f *fakeInferenceClient) IsConnected() bool { return !f.closed }
func (f *fakeInferenceClient) Reconnect(context.Context) error { return nil }
func (f *fakeInferenceClient) Close() { f.closed = true }

func TestRemoteDetectorFiltersByConfidence(t *testing.T) {
	client := &fakeInferenceClient{reply: entity.DetectionList{
		{Label: "cat", Confidence: 0.8},
		{Label: "cup", Confidence: 0.1},
	}}
	det := NewRemoteDetector(client, DefaultThresholds())

	got, err := det.Infer(context.Background(), solidImage(8, 8, color.White))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cat", got[0].Label)

	require.Len(t, client.frames, 1)
	assert.True(t, bytes.HasPrefix(client.frames[0], []byte{0xFF, 0xD8}), "frame is JPEG encoded")

	require.NoError(t, det.Close())
	assert.True(t, client.closed)
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("# custom\nhelmet\n\nvest\n"), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"helmet", "vest"}, labels)

	assert.Equal(t, []string{"helmet", "vest", "class2"}, fitLabels(labels, 3))
	assert.Equal(t, []string{"helmet"}, fitLabels(labels, 1))
	assert.Len(t, CocoLabels(), 80)
}
