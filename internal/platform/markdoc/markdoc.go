// Package markdoc decodes Markdown files into paged documents. Pages are split
// on top-level thematic breaks and the outline is built from headings.
package markdoc

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Paintersrp/folio/internal/platform"
)

// Extensions handled by the decoder.
var Extensions = []string{".md", ".markdown"}

const (
	pageWidth  = 612
	pageHeight = 792
	margin     = 36
	lineHeight = 16
)

type Decoder struct {
	md goldmark.Markdown
}

func NewDecoder() *Decoder {
	return &Decoder{md: goldmark.New()}
}

// Page holds the text lines of one page.
type Page struct {
	Lines []string
}

// Document is a parsed Markdown file.
type Document struct {
	Pages   []Page
	outline []platform.OutlineEntry
}

var (
	_ platform.Decoder      = (*Decoder)(nil)
	_ platform.PageRenderer = (*Document)(nil)
)

type heading struct {
	level    int
	label    string
	page     int
	children []*heading
}

func (h *heading) entry() platform.OutlineEntry {
	e := platform.OutlineEntry{Label: h.label, Page: platform.IntPtr(h.page)}
	for _, c := range h.children {
		e.Children = append(e.Children, c.entry())
	}
	return e
}

func (d *Decoder) Decode(name string, data []byte) (platform.Document, error) {
	root := d.md.Parser().Parse(text.NewReader(data))

	doc := &Document{}
	current := Page{}
	var roots []*heading
	var stack []*heading

	flush := func() {
		if len(current.Lines) > 0 {
			doc.Pages = append(doc.Pages, current)
		}
		current = Page{}
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() == ast.KindThematicBreak {
			flush()
			continue
		}

		lines := blockLines(n, data)
		if h, ok := n.(*ast.Heading); ok {
			node := &heading{
				level: h.Level,
				label: strings.TrimSpace(strings.Join(lines, " ")),
				page:  len(doc.Pages),
			}
			for len(stack) > 0 && stack[len(stack)-1].level >= h.Level {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				roots = append(roots, node)
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			}
			stack = append(stack, node)
		}
		current.Lines = append(current.Lines, lines...)
	}
	flush()

	for _, r := range roots {
		doc.outline = append(doc.outline, r.entry())
	}
	return doc, nil
}

func blockLines(n ast.Node, src []byte) []string {
	switch n.Kind() {
	case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
		var lines []string
		segs := n.Lines()
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			lines = append(lines, strings.TrimRight(string(seg.Value(src)), "\n"))
		}
		return lines
	case ast.KindList:
		var lines []string
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			for child := item.FirstChild(); child != nil; child = child.NextSibling() {
				for _, l := range blockLines(child, src) {
					lines = append(lines, "- "+l)
				}
			}
		}
		return lines
	}

	if n.Type() == ast.TypeBlock && n.HasChildren() && n.FirstChild().Type() == ast.TypeBlock {
		var lines []string
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			lines = append(lines, blockLines(child, src)...)
		}
		return lines
	}

	line := strings.TrimSpace(string(n.Text(src)))
	if line == "" {
		return nil
	}
	return []string{line}
}

func (d *Document) PageCount() int {
	return len(d.Pages)
}

func (d *Document) PageSize(index int) (float64, float64) {
	if index < 0 || index >= len(d.Pages) {
		return 0, 0
	}
	return pageWidth, pageHeight
}

func (d *Document) Outline() []platform.OutlineEntry {
	return d.outline
}

func (d *Document) RenderFirstPage(width, height int) (image.Image, error) {
	canvas := image.NewNRGBA(image.Rect(0, 0, pageWidth, pageHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	if len(d.Pages) > 0 {
		drawer := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(color.Black),
			Face: basicfont.Face7x13,
		}
		maxChars := (pageWidth - 2*margin) / basicfont.Face7x13.Advance
		y := margin + lineHeight
		for _, line := range d.Pages[0].Lines {
			for _, chunk := range wrap(line, maxChars) {
				if y > pageHeight-margin {
					break
				}
				drawer.Dot = fixed.P(margin, y)
				drawer.DrawString(chunk)
				y += lineHeight
			}
		}
	}

	return imaging.Resize(canvas, width, height, imaging.Lanczos), nil
}

func wrap(line string, width int) []string {
	if width <= 0 || len(line) <= width {
		return []string{line}
	}
	var out []string
	for len(line) > width {
		cut := strings.LastIndex(line[:width], " ")
		if cut <= 0 {
			cut = width
		}
		out = append(out, strings.TrimSpace(line[:cut]))
		line = strings.TrimSpace(line[cut:])
	}
	if line != "" {
		out = append(out, line)
	}
	return out
}
