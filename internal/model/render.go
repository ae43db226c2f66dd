package model

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"ProjectDetect/internal/entity"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"
)

const annotatedQuality = 95

var labelFont *truetype.Font

func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// palette is the Ultralytics box palette, indexed by class id.
var palette = []color.RGBA{
	hex(0xFF3838), hex(0xFF9D97), hex(0xFF701F), hex(0xFFB21D), hex(0xCFD231),
	hex(0x48F90A), hex(0x92CC17), hex(0x3DDB86), hex(0x1A9334), hex(0x00D4BB),
	hex(0x2C99A8), hex(0x00C2FF), hex(0x344593), hex(0x6473FF), hex(0x0018EC),
	hex(0x8438FF), hex(0x520085), hex(0xCB38FF), hex(0xFF95C8), hex(0xFF37C7),
}

func hex(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

func colorFor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

// Annotate draws every detection's box and a "label conf" caption onto a
// copy of img.
func Annotate(img image.Image, dets entity.DetectionList) image.Image {
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)

	lineWidth := float64(max(2, (b.Dx()+b.Dy())/600))
	fontSize := max(12, lineWidth*6)
	dc.SetFontFace(truetype.NewFace(labelFont, &truetype.Options{Size: fontSize}))

	for _, d := range dets {
		r := d.Box.Rect().Sub(b.Min)
		c := colorFor(d.ClassID)

		dc.SetColor(c)
		dc.SetLineWidth(lineWidth)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()

		caption := fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
		tw, th := dc.MeasureString(caption)
		pad := lineWidth

		top := float64(r.Min.Y) - th - 2*pad
		if top < 0 {
			top = float64(r.Min.Y)
		}

		dc.SetColor(c)
		dc.DrawRectangle(float64(r.Min.X), top, tw+2*pad, th+2*pad)
		dc.Fill()

		dc.SetColor(color.White)
		dc.DrawStringAnchored(caption, float64(r.Min.X)+pad, top+pad, 0, 1)
	}

	return dc.Image()
}

// SaveJPEG writes img to path as a quality-95 JPEG.
func SaveJPEG(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(annotatedQuality)); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}

// EncodeJPEG writes img to w as a quality-95 JPEG.
func EncodeJPEG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(annotatedQuality))
}

// DecodeImage decodes jpeg/png/bmp data, applying the EXIF orientation.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return img, nil
}

func DecodeBytes(data []byte) (image.Image, error) {
	return DecodeImage(bytes.NewReader(data))
}
