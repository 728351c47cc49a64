package thumbnail

import (
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	gradientTop    = color.NRGBA{R: 250, G: 250, B: 252, A: 255}
	gradientBottom = color.NRGBA{R: 226, G: 230, B: 238, A: 255}
	borderColor    = color.NRGBA{R: 170, G: 176, B: 188, A: 255}
	lineColor      = color.NRGBA{R: 200, G: 205, B: 214, A: 255}

	badgePalette = []color.NRGBA{
		{R: 192, G: 57, B: 43, A: 255},
		{R: 41, G: 128, B: 185, A: 255},
		{R: 39, G: 174, B: 96, A: 255},
		{R: 142, G: 68, B: 173, A: 255},
		{R: 211, G: 84, B: 0, A: 255},
	}
)

// Synthetic draws a placeholder page for path. It does no I/O and the same
// inputs always produce the same image.
func Synthetic(path string, width, height int) image.Image {
	width, height = max(width, 1), max(height, 1)
	canvas := imaging.New(width, height, gradientTop)

	for y := 0; y < height; y++ {
		c := lerp(gradientTop, gradientBottom, float64(y)/float64(max(height-1, 1)))
		draw.Draw(canvas, image.Rect(0, y, width, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}

	drawBorder(canvas, borderColor)

	margin := max(width/8, 2)
	lineHeight := max(height/40, 1)
	gap := max(height/16, lineHeight+1)
	for i, y := 0, height/6; y+lineHeight < height*3/4; i, y = i+1, y+gap {
		right := width - margin
		if i%3 == 2 {
			right = margin + (width-2*margin)*2/3
		}
		if right <= margin {
			break
		}
		draw.Draw(canvas, image.Rect(margin, y, right, y+lineHeight), image.NewUniform(lineColor), image.Point{}, draw.Src)
	}

	drawBadge(canvas, badgeLabel(path), margin)
	return canvas
}

func drawBorder(img draw.Image, c color.Color) {
	b := img.Bounds()
	u := image.NewUniform(c)
	draw.Draw(img, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+1), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(b.Min.X, b.Max.Y-1, b.Max.X, b.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+1, b.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(b.Max.X-1, b.Min.Y, b.Max.X, b.Max.Y), u, image.Point{}, draw.Src)
}

func badgeLabel(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "DOC"
	}
	ext = strings.ToUpper(ext)
	if len(ext) > 4 {
		ext = ext[:4]
	}
	return ext
}

func badgeColor(label string) color.NRGBA {
	h := fnv.New32a()
	h.Write([]byte(label))
	return badgePalette[h.Sum32()%uint32(len(badgePalette))]
}

func drawBadge(img draw.Image, label string, margin int) {
	face := basicfont.Face7x13
	pad := 3
	textWidth := len(label) * face.Advance
	w := textWidth + 2*pad
	h := face.Height + 2*pad

	b := img.Bounds()
	if w+2*margin > b.Dx() || h+2*margin > b.Dy() {
		return
	}

	rect := image.Rect(margin, b.Dy()-margin-h, margin+w, b.Dy()-margin)
	draw.Draw(img, rect, image.NewUniform(badgeColor(label)), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(rect.Min.X+pad, rect.Min.Y+pad+face.Ascent),
	}
	drawer.DrawString(label)
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
