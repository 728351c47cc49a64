// Package preview runs an external thumbnailing command, such as qlmanage or
// pdftoppm, and reads back the image it writes.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/Paintersrp/folio/internal/platform"
)

// Command is an external previewer. Args may contain the placeholders
// {path}, {out}, {width}, {height} and {scale}.
type Command struct {
	Exec string
	Args []string
}

var _ platform.Previewer = (*Command)(nil)

func (c *Command) Thumbnail(
	ctx context.Context,
	path string,
	width, height int,
	scale float64,
) (image.Image, error) {
	if c == nil || strings.TrimSpace(c.Exec) == "" {
		return nil, platform.ErrNotConfigured
	}

	dir, err := os.MkdirTemp("", "folio-preview-*")
	if err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "thumb.png")
	pxWidth := int(math.Round(float64(width) * scale))
	pxHeight := int(math.Round(float64(height) * scale))

	replacer := strings.NewReplacer(
		"{path}", path,
		"{out}", out,
		"{dir}", dir,
		"{width}", strconv.Itoa(pxWidth),
		"{height}", strconv.Itoa(pxHeight),
		"{scale}", strconv.FormatFloat(scale, 'f', -1, 64),
	)
	args := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		args = append(args, replacer.Replace(arg))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Exec, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w: %s", c.Exec, err, strings.TrimSpace(stderr.String()))
	}

	img, err := imaging.Open(findOutput(dir, out))
	if err != nil {
		return nil, fmt.Errorf("read preview output: %w", err)
	}
	return img, nil
}

// findOutput returns out if it exists, otherwise the first image written to
// dir. Some tools append their own suffix to the output name.
func findOutput(dir, out string) string {
	if _, err := os.Stat(out); err == nil {
		return out
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(dir, e.Name())
		}
	}
	return out
}
