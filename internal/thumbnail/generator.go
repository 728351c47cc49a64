// Package thumbnail produces first-page thumbnails through an ordered
// fallback of generation tiers and caches every outcome.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Paintersrp/folio/internal/constants"
	"github.com/Paintersrp/folio/internal/dispatch"
	"github.com/Paintersrp/folio/internal/metrics"
	"github.com/Paintersrp/folio/internal/pathutil"
	"github.com/Paintersrp/folio/internal/platform"
)

// ErrGenerationTimeout is the tier failure recorded when the external
// previewer does not answer in time.
var ErrGenerationTimeout = errors.New("thumbnail generation timed out")

// Tier identifies which strategy produced a thumbnail.
type Tier int

const (
	TierRender Tier = iota + 1
	TierPreview
	// TierSynthetic marks a drawn placeholder. It is informational, not a
	// failure.
	TierSynthetic
)

func (t Tier) String() string {
	switch t {
	case TierRender:
		return "render"
	case TierPreview:
		return "preview"
	case TierSynthetic:
		return "synthetic"
	default:
		return "unknown"
	}
}

// Size is a thumbnail bounding box in pixels.
type Size struct {
	Width  int
	Height int
}

// Result is a generated or cached thumbnail.
type Result struct {
	Image  image.Image
	Tier   Tier
	Cached bool
}

// SyntheticFallbackUsed reports whether the placeholder tier was used.
func (r Result) SyntheticFallbackUsed() bool {
	return r.Tier == TierSynthetic
}

// FileAccess brackets reads of a path with a scoped grant.
type FileAccess interface {
	WithFile(path string, fn func(resolved string) error) error
}

type Generator struct {
	cache     *Cache
	files     FileAccess
	decoder   platform.Decoder
	renderer  platform.Renderer
	previewer platform.Previewer
	scale     float64
	timeout   time.Duration
	pool      *dispatch.Pool
	ui        dispatch.Executor
	logger    *zap.Logger
	group     singleflight.Group

	readFile func(string) ([]byte, error)
}

type Option func(*Generator)

// WithPreviewer enables the external tier. scale is capped at
// constants.MaxThumbnailScale.
func WithPreviewer(previewer platform.Previewer, scale float64) Option {
	return func(g *Generator) {
		g.previewer = previewer
		if scale > 0 {
			g.scale = scale
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(g *Generator) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

func WithPool(pool *dispatch.Pool) Option {
	return func(g *Generator) {
		if pool != nil {
			g.pool = pool
		}
	}
}

func WithExecutor(ui dispatch.Executor) Option {
	return func(g *Generator) {
		if ui != nil {
			g.ui = ui
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGenerator(cache *Cache, files FileAccess, decoder platform.Decoder, renderer platform.Renderer, opts ...Option) *Generator {
	defaultTimeout, _ := time.ParseDuration(constants.DefaultThumbnailTimeout)
	g := &Generator{
		cache:    cache,
		files:    files,
		decoder:  decoder,
		renderer: renderer,
		scale:    constants.DefaultThumbnailScale,
		timeout:  defaultTimeout,
		ui:       dispatch.Immediate{},
		logger:   zap.NewNop(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.scale = min(g.scale, constants.MaxThumbnailScale)
	if g.pool == nil {
		g.pool = dispatch.NewPool(constants.DefaultWorkers)
	}
	return g
}

// Cache returns the cache the generator fills.
func (g *Generator) Cache() *Cache {
	return g.cache
}

// Generate always returns an image.
func (g *Generator) Generate(ctx context.Context, path string, size Size) image.Image {
	return g.GenerateResult(ctx, path, size).Image
}

// GenerateResult returns the thumbnail for (path, size), running the tiers
// on a miss. Concurrent requests for the same key share one generation.
func (g *Generator) GenerateResult(ctx context.Context, path string, size Size) Result {
	key := g.key(path, size)
	if img, tier, ok := g.cache.Get(key); ok {
		return Result{Image: img, Tier: tier, Cached: true}
	}
	return g.shared(ctx, key)
}

// shared joins or starts the generation for key. The generation runs
// detached from ctx so one caller giving up never caches a placeholder for
// everyone; that caller gets an uncached placeholder instead.
func (g *Generator) shared(ctx context.Context, key Key) Result {
	flight := fmt.Sprintf("%s\x00%d\x00%d", key.Path, key.Width, key.Height)
	detached := context.WithoutCancel(ctx)
	ch := g.group.DoChan(flight, func() (interface{}, error) {
		if img, tier, ok := g.cache.Peek(key); ok {
			return Result{Image: img, Tier: tier, Cached: true}, nil
		}
		res := g.generate(detached, key)
		g.cache.Put(key, res.Image, res.Tier)
		return res, nil
	})

	select {
	case r := <-ch:
		return r.Val.(Result)
	case <-ctx.Done():
		return Result{Image: Synthetic(key.Path, key.Width, key.Height), Tier: TierSynthetic}
	}
}

// GenerateAsync runs generation on the worker pool and hands the result to
// deliver on the UI executor.
func (g *Generator) GenerateAsync(path string, size Size, deliver func(Result)) {
	key := g.key(path, size)
	if img, tier, ok := g.cache.Get(key); ok {
		g.post(deliver, Result{Image: img, Tier: tier, Cached: true})
		return
	}

	err := g.pool.Go(context.Background(), func(ctx context.Context) {
		g.post(deliver, g.shared(ctx, key))
	})
	if err != nil {
		g.post(deliver, Result{Image: Synthetic(key.Path, key.Width, key.Height), Tier: TierSynthetic})
	}
}

// Invalidate forgets every cached size of path.
func (g *Generator) Invalidate(path string) int {
	return g.cache.Invalidate(g.key(path, Size{}).Path)
}

// Wait blocks until background generations have finished.
func (g *Generator) Wait() {
	g.pool.Wait()
}

func (g *Generator) post(deliver func(Result), res Result) {
	if deliver == nil {
		return
	}
	g.ui.Post(func() { deliver(res) })
}

func (g *Generator) key(path string, size Size) Key {
	abs, err := pathutil.Absolute(path)
	if err != nil || abs == "" {
		abs = path
	}
	return Key{Path: abs, Width: max(size.Width, 1), Height: max(size.Height, 1)}
}

func (g *Generator) generate(ctx context.Context, key Key) Result {
	img, err := g.render(key)
	if err == nil {
		metrics.RecordThumbnailTier(TierRender.String())
		return Result{Image: img, Tier: TierRender}
	}
	g.tierFailed(TierRender, key, err)

	img, err = g.preview(ctx, key)
	if err == nil {
		metrics.RecordThumbnailTier(TierPreview.String())
		return Result{Image: img, Tier: TierPreview}
	}
	g.tierFailed(TierPreview, key, err)

	metrics.RecordThumbnailTier(TierSynthetic.String())
	return Result{Image: Synthetic(key.Path, key.Width, key.Height), Tier: TierSynthetic}
}

func (g *Generator) tierFailed(tier Tier, key Key, err error) {
	metrics.RecordThumbnailTierFailure(tier.String())
	if errors.Is(err, platform.ErrNotConfigured) {
		return
	}
	g.logger.Debug("thumbnail tier failed",
		zap.String("tier", tier.String()),
		zap.String("path", key.Path),
		zap.String("size", strconv.Itoa(key.Width)+"x"+strconv.Itoa(key.Height)),
		zap.Error(err),
	)
}

// render decodes the document in process and rasterizes its first page.
func (g *Generator) render(key Key) (img image.Image, err error) {
	if g.decoder == nil || g.renderer == nil {
		return nil, platform.ErrNotConfigured
	}
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("render panic: %v", r)
		}
	}()

	err = g.files.WithFile(key.Path, func(resolved string) error {
		data, err := g.readFile(resolved)
		if err != nil {
			return err
		}
		doc, err := g.decoder.Decode(resolved, data)
		if err != nil {
			return err
		}
		if doc.PageCount() <= 0 {
			return errors.New("document has no pages")
		}
		pw, ph := doc.PageSize(0)
		if !(pw > 0) || !(ph > 0) {
			return fmt.Errorf("first page has empty bounds %vx%v", pw, ph)
		}

		w, h := fitSize(pw, ph, key.Width, key.Height)
		page, err := g.renderer.RenderFirstPage(doc, w, h)
		if err != nil {
			return err
		}
		img = onWhite(page, w, h)
		return nil
	})
	return img, err
}

// preview asks the external previewer, bounded by the generator timeout.
// The previewer keeps its guard until it returns, even after a timeout.
func (g *Generator) preview(ctx context.Context, key Key) (image.Image, error) {
	if g.previewer == nil {
		return nil, platform.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type outcome struct {
		img image.Image
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: fmt.Errorf("previewer panic: %v", r)}
			}
			done <- out
		}()
		out.err = g.files.WithFile(key.Path, func(resolved string) error {
			img, err := g.previewer.Thumbnail(ctx, resolved, key.Width, key.Height, g.scale)
			out.img = img
			return err
		})
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				return nil, ErrGenerationTimeout
			}
			return nil, out.err
		}
		if out.img == nil || out.img.Bounds().Empty() {
			return nil, errors.New("previewer returned an empty image")
		}
		fitted := imaging.Fit(out.img, key.Width, key.Height, imaging.Lanczos)
		b := fitted.Bounds()
		return onWhite(fitted, b.Dx(), b.Dy()), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrGenerationTimeout
		}
		return nil, ctx.Err()
	}
}

// fitSize scales a page into the box preserving its aspect ratio.
func fitSize(pageW, pageH float64, boxW, boxH int) (int, int) {
	scale := math.Min(float64(boxW)/pageW, float64(boxH)/pageH)
	w := int(math.Round(pageW * scale))
	h := int(math.Round(pageH * scale))
	return min(max(w, 1), boxW), min(max(h, 1), boxH)
}

// onWhite fills the background before compositing so transparent pages do
// not render dark.
func onWhite(page image.Image, w, h int) image.Image {
	if b := page.Bounds(); b.Dx() != w || b.Dy() != h {
		page = imaging.Resize(page, w, h, imaging.Lanczos)
	}
	canvas := imaging.New(w, h, color.White)
	return imaging.Overlay(canvas, page, image.Pt(0, 0), 1.0)
}
