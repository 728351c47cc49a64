// Package platform declares the opaque decode, render and preview services the
// caches depend on, plus a registry that routes by file extension.
package platform

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsupported is returned when no decoder handles a file type.
var ErrUnsupported = errors.New("unsupported document format")

// ErrNotConfigured is returned by services that have nothing to run.
var ErrNotConfigured = errors.New("platform service not configured")

// OutlineEntry is a node of a document's native table of contents.
type OutlineEntry struct {
	Label    string
	Page     *int
	Children []OutlineEntry
}

// Document is a decoded document handle.
type Document interface {
	PageCount() int
	// PageSize returns the bounds of the page at index in points.
	PageSize(index int) (width, height float64)
	Outline() []OutlineEntry
}

// Decoder turns raw bytes into a Document.
type Decoder interface {
	Decode(name string, data []byte) (Document, error)
}

// Renderer rasterizes the first page of a document at exactly width x height.
type Renderer interface {
	RenderFirstPage(doc Document, width, height int) (image.Image, error)
}

// Previewer asks an external service for a thumbnail of the file at path.
type Previewer interface {
	Thumbnail(ctx context.Context, path string, width, height int, scale float64) (image.Image, error)
}

// PageRenderer is implemented by documents that can rasterize themselves.
type PageRenderer interface {
	RenderFirstPage(width, height int) (image.Image, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(name string, data []byte) (Document, error)

func (f DecoderFunc) Decode(name string, data []byte) (Document, error) {
	return f(name, data)
}

// PreviewerFunc adapts a function to Previewer.
type PreviewerFunc func(ctx context.Context, path string, width, height int, scale float64) (image.Image, error)

func (f PreviewerFunc) Thumbnail(ctx context.Context, path string, width, height int, scale float64) (image.Image, error) {
	return f(ctx, path, width, height, scale)
}

// Registry routes decoding by extension and rendering to self-rendering documents.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register associates d with each extension (".md", ".png", ...).
func (r *Registry) Register(d Decoder, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range exts {
		r.decoders[strings.ToLower(ext)] = d
	}
}

// Supports reports whether a decoder is registered for name's extension.
func (r *Registry) Supports(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.decoders[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extensions lists the registered extensions.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}
	return exts
}

func (r *Registry) Decode(name string, data []byte) (Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	r.mu.RLock()
	d, ok := r.decoders[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return d.Decode(name, data)
}

func (r *Registry) RenderFirstPage(doc Document, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid render size %dx%d", width, height)
	}
	pr, ok := doc.(PageRenderer)
	if !ok {
		return nil, fmt.Errorf("%w: document cannot be rendered", ErrUnsupported)
	}
	return pr.RenderFirstPage(width, height)
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int {
	return &v
}
