package model

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

var letterboxFill = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// letterbox is an image scaled to fit a size×size square, centered on grey
// padding, plus what is needed to map boxes back to the source image.
type letterbox struct {
	img    *image.RGBA
	scale  float32
	padX   int
	padY   int
	source image.Rectangle
}

func newLetterbox(src image.Image, size int) letterbox {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: letterboxFill}, image.Point{}, draw.Src)

	padX := (size - nw) / 2
	padY := (size - nh) / 2

	scaled := resize.Resize(uint(nw), uint(nh), src, resize.Bilinear)
	draw.Draw(canvas, image.Rect(padX, padY, padX+nw, padY+nh), scaled, scaled.Bounds().Min, draw.Src)

	return letterbox{
		img:    canvas,
		scale:  float32(scale),
		padX:   padX,
		padY:   padY,
		source: b,
	}
}

// fillCHW writes the letterboxed pixels into dst as planar RGB scaled to [0,1].
func (l letterbox) fillCHW(dst []float32) {
	size := l.img.Bounds().Dx()
	plane := size * size
	pix := l.img.Pix

	for y := 0; y < size; y++ {
		row := y * l.img.Stride
		for x := 0; x < size; x++ {
			i := row + x*4
			j := y*size + x
			dst[j] = float32(pix[i]) / 255
			dst[plane+j] = float32(pix[i+1]) / 255
			dst[2*plane+j] = float32(pix[i+2]) / 255
		}
	}
}

// toSource maps a box in letterbox coordinates back onto the source image,
// clamped to its bounds.
func (l letterbox) toSource(box [4]float32) image.Rectangle {
	w := float32(l.source.Dx())
	h := float32(l.source.Dy())

	x1 := clamp((box[0]-float32(l.padX))/l.scale, 0, w)
	y1 := clamp((box[1]-float32(l.padY))/l.scale, 0, h)
	x2 := clamp((box[2]-float32(l.padX))/l.scale, 0, w)
	y2 := clamp((box[3]-float32(l.padY))/l.scale, 0, h)

	return image.Rect(
		l.source.Min.X+int(math.Round(float64(x1))),
		l.source.Min.Y+int(math.Round(float64(y1))),
		l.source.Min.X+int(math.Round(float64(x2))),
		l.source.Min.Y+int(math.Round(float64(y2))),
	)
}
