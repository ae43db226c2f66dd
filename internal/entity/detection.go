package entity

import (
	"image"
	"time"
)

type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

func BoxFromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Detection is one recognized object instance.
type Detection struct {
	Label      string      `json:"label"`
	ClassID    int         `json:"class_id"`
	Confidence float32     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

type DetectionList []Detection

type StoredFile struct {
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
