package outline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Paintersrp/folio/internal/constants"
)

// SidecarVersion is the schema version written by SaveSidecar.
const SidecarVersion = 1

// ErrSidecarVersion is returned for sidecars written by a newer schema.
var ErrSidecarVersion = errors.New("unsupported outline sidecar version")

type sidecarFile struct {
	Version  int           `yaml:"version"`
	Document string        `yaml:"document"`
	Nodes    []sidecarNode `yaml:"nodes"`
}

type sidecarNode struct {
	ID       string        `yaml:"id"`
	Label    string        `yaml:"label"`
	Page     *int          `yaml:"page,omitempty"`
	Expanded bool          `yaml:"expanded,omitempty"`
	Children []sidecarNode `yaml:"children,omitempty"`
}

// FileAccess brackets reads of a path with a scoped grant.
type FileAccess interface {
	WithFile(path string, fn func(resolved string) error) error
}

// SidecarPath is where the outline of docPath is saved.
func SidecarPath(docPath string) string {
	return docPath + constants.SidecarSuffix
}

// SaveSidecar writes the forest next to docPath while holding access to the
// document. The document itself is never modified.
func (m *Manager) SaveSidecar(files FileAccess, docPath string) error {
	m.mu.RLock()
	file := sidecarFile{
		Version:  SidecarVersion,
		Document: filepath.Base(docPath),
		Nodes:    toSidecar(m.roots),
	}
	m.mu.RUnlock()

	data, err := yaml.Marshal(&file)
	if err != nil {
		return err
	}

	return files.WithFile(docPath, func(resolved string) error {
		path := SidecarPath(resolved)
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return err
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return err
		}
		return nil
	})
}

// LoadSidecar replaces the forest with the sidecar saved for docPath. It
// reports false, with the forest untouched, when no sidecar exists.
func (m *Manager) LoadSidecar(files FileAccess, docPath string) (bool, error) {
	var data []byte
	err := files.WithFile(docPath, func(resolved string) error {
		var err error
		data, err = os.ReadFile(SidecarPath(resolved))
		return err
	})
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var file sidecarFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return false, fmt.Errorf("parse outline sidecar: %w", err)
	}
	if file.Version > SidecarVersion {
		return false, fmt.Errorf("%w: %d", ErrSidecarVersion, file.Version)
	}

	roots := fromSidecar(file.Nodes, make(map[uuid.UUID]struct{}))
	m.mu.Lock()
	m.roots = roots
	m.mu.Unlock()
	return true, nil
}

func toSidecar(nodes []*Node) []sidecarNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]sidecarNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, sidecarNode{
			ID:       n.ID.String(),
			Label:    n.Label,
			Page:     copyPage(n.PageRef),
			Expanded: n.Expanded,
			Children: toSidecar(n.Children),
		})
	}
	return out
}

// fromSidecar rebuilds nodes, minting new IDs for missing, malformed or
// duplicated ones so every ID stays unique.
func fromSidecar(nodes []sidecarNode, seen map[uuid.UUID]struct{}) []*Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(nodes))
	for _, sn := range nodes {
		id, err := uuid.Parse(sn.ID)
		if _, dup := seen[id]; err != nil || dup {
			id = uuid.New()
		}
		seen[id] = struct{}{}
		out = append(out, &Node{
			ID:       id,
			Label:    sn.Label,
			PageRef:  copyPage(sn.Page),
			Expanded: sn.Expanded,
			Children: fromSidecar(sn.Children, seen),
		})
	}
	return out
}
