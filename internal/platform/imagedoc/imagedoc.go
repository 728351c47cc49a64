// Package imagedoc exposes raster images as single-page documents.
package imagedoc

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/Paintersrp/folio/internal/platform"
)

// Extensions handled by the decoder.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff"}

type Decoder struct{}

// Document is a decoded raster image.
type Document struct {
	img image.Image
}

var (
	_ platform.Decoder      = Decoder{}
	_ platform.PageRenderer = (*Document)(nil)
)

func (Decoder) Decode(name string, data []byte) (platform.Document, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", name, err)
	}
	return &Document{img: img}, nil
}

func (d *Document) PageCount() int {
	if d.img == nil || d.img.Bounds().Empty() {
		return 0
	}
	return 1
}

func (d *Document) PageSize(index int) (float64, float64) {
	if index != 0 || d.img == nil {
		return 0, 0
	}
	b := d.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (d *Document) Outline() []platform.OutlineEntry {
	return nil
}

func (d *Document) RenderFirstPage(width, height int) (image.Image, error) {
	if d.img == nil {
		return nil, fmt.Errorf("empty image")
	}
	return imaging.Resize(d.img, width, height, imaging.Lanczos), nil
}
