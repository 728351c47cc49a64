package imagedoc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeReportsSinglePage(t *testing.T) {
	doc, err := Decoder{}.Decode("red.png", encodePNG(t, 40, 20))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if doc.PageCount() != 1 {
		t.Fatalf("expected 1 page, got %d", doc.PageCount())
	}
	w, h := doc.PageSize(0)
	if w != 40 || h != 20 {
		t.Fatalf("expected 40x20 page, got %vx%v", w, h)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := (Decoder{}).Decode("bad.png", []byte("not an image")); err == nil {
		t.Fatal("expected error for invalid image data")
	}
}

func TestRenderFirstPageUsesRequestedSize(t *testing.T) {
	doc, err := Decoder{}.Decode("red.png", encodePNG(t, 40, 20))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	img, err := doc.(*Document).RenderFirstPage(20, 10)
	if err != nil {
		t.Fatalf("RenderFirstPage returned error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Fatalf("expected 20x10 render, got %v", b)
	}
}
