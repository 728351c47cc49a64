package fzf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/muesli/termenv"

	"github.com/Paintersrp/folio/internal/pathutil"
)

// ErrNoSelection is returned when the picker is aborted.
var ErrNoSelection = errors.New("no file selected")

// Item is one pickable document.
type Item struct {
	Path   string
	Label  string
	Detail string
}

// FileAccess brackets reads of a path with a scoped grant.
type FileAccess interface {
	WithFile(path string, fn func(resolved string) error) error
}

// FuzzyFinder picks one document from a list.
type FuzzyFinder struct {
	Header string
	items  []Item
	files  FileAccess
	find   func(items []Item, label func(int) string, opts ...fuzzyfinder.Option) (int, error)
}

func NewFuzzyFinder(files FileAccess, items []Item, header string) *FuzzyFinder {
	return &FuzzyFinder{
		Header: header,
		items:  items,
		files:  files,
		find: func(items []Item, label func(int) string, opts ...fuzzyfinder.Option) (int, error) {
			return fuzzyfinder.Find(items, label, opts...)
		},
	}
}

// ItemsFromPaths labels paths relative to root when they live under it.
func ItemsFromPaths(root string, paths []string) []Item {
	items := make([]Item, 0, len(paths))
	for _, p := range paths {
		label := filepath.Base(p)
		if root != "" && pathutil.Within(root, p) {
			if rel, err := pathutil.WorkspaceRelative(root, p); err == nil {
				label = rel
			}
		}
		items = append(items, Item{Path: p, Label: label})
	}
	return items
}

func (f *FuzzyFinder) Run() (string, error) {
	return f.RunWithQuery("")
}

func (f *FuzzyFinder) RunWithQuery(query string) (string, error) {
	if len(f.items) == 0 {
		return "", ErrNoSelection
	}

	options := []fuzzyfinder.Option{
		fuzzyfinder.WithPreviewWindow(f.renderPreview),
	}
	if query != "" {
		options = append(options, fuzzyfinder.WithQuery(query))
	}
	if f.Header != "" {
		options = append(options, fuzzyfinder.WithHeader(f.Header))
	}

	idx, err := f.find(f.items, f.label, options...)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return "", ErrNoSelection
		}
		return "", fmt.Errorf("error selecting file: %w", err)
	}
	if idx < 0 || idx >= len(f.items) {
		return "", ErrNoSelection
	}

	return f.items[idx].Path, nil
}

func (f *FuzzyFinder) label(i int) string {
	item := f.items[i]
	if item.Detail == "" {
		return item.Label
	}
	return fmt.Sprintf("%s [%s]", item.Label, item.Detail)
}

func (f *FuzzyFinder) renderPreview(i, w, h int) string {
	if i < 0 || i >= len(f.items) {
		return ""
	}
	return Preview(f.files, f.items[i].Path, w)
}

// Preview renders Markdown through glamour and summarizes other files. The
// file is only touched while files grants access to it.
func Preview(files FileAccess, path string, width int) string {
	var (
		info    os.FileInfo
		content []byte
	)
	isMarkdown := pathutil.HasExtension(path, []string{".md", ".markdown"})
	err := files.WithFile(path, func(resolved string) error {
		var err error
		if info, err = os.Stat(resolved); err != nil {
			return err
		}
		if isMarkdown {
			content, err = os.ReadFile(resolved)
		}
		return err
	})
	if err != nil {
		return "Error reading file"
	}

	if !isMarkdown {
		return fmt.Sprintf(
			"%s\n\nType:     %s\nSize:     %d bytes\nModified: %s\n",
			filepath.Base(path),
			strings.ToUpper(strings.TrimPrefix(filepath.Ext(path), ".")),
			info.Size(),
			info.ModTime().Format("2006-01-02 15:04"),
		)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dracula"),
		glamour.WithWordWrap(max(min(width, 100), 20)),
		glamour.WithColorProfile(termenv.ANSI256),
	)
	if err != nil {
		return string(content)
	}

	markdown, err := r.Render(string(content))
	if err != nil {
		return "Error rendering markdown"
	}

	return markdown
}
