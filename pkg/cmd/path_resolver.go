package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Paintersrp/folio/internal/fzf"
	"github.com/Paintersrp/folio/internal/pathutil"
	"github.com/Paintersrp/folio/internal/state"
)

// ResolveDocumentPath turns a command argument into an absolute path.
// Relative arguments name a file under the workspace root when one exists
// there, and are otherwise taken from the working directory.
func ResolveDocumentPath(s *state.State, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("a path argument is required")
	}
	if filepath.IsAbs(arg) {
		return pathutil.NormalizePath(arg), nil
	}

	if root := workspaceRoot(s); root != "" {
		candidate := filepath.Join(root, pathutil.NormalizePath(arg))
		if pathutil.Within(root, candidate) {
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	return pathutil.Absolute(arg)
}

func workspaceRoot(s *state.State) string {
	if s == nil || s.Config == nil {
		return ""
	}
	root, _ := s.Config.WorkspaceToken()
	return root
}

// PickerItems lists workspace documents followed by recent files that live
// outside the workspace.
func PickerItems(ctx context.Context, s *state.State) ([]fzf.Item, error) {
	files, err := s.Workspace.Files(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(files))
	items := make([]fzf.Item, 0, len(files))
	for _, f := range files {
		seen[f.Path] = struct{}{}
		items = append(items, fzf.Item{Path: f.Path, Label: f.Rel})
	}

	for _, item := range fzf.ItemsFromPaths(workspaceRoot(s), s.Config.Recents()) {
		if _, ok := seen[item.Path]; ok {
			continue
		}
		item.Detail = "recent"
		items = append(items, item)
	}
	return items, nil
}

// PickDocument lets the user choose a document with the fuzzy finder.
func PickDocument(ctx context.Context, s *state.State, query string) (string, error) {
	items, err := PickerItems(ctx, s)
	if err != nil {
		return "", err
	}
	finder := fzf.NewFuzzyFinder(s.Access, items, "Select a document to open.")
	if query == "" {
		return finder.Run()
	}
	return finder.RunWithQuery(query)
}
