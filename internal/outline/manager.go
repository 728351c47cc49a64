// Package outline manages an editable forest of table-of-contents nodes.
package outline

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/Paintersrp/folio/internal/platform"
)

var (
	ErrNilNode        = errors.New("node is nil")
	ErrNodeNotFound   = errors.New("node is not in the outline")
	ErrParentNotFound = errors.New("parent is not in the outline")
	ErrAttached       = errors.New("node is already in the outline")
	ErrNotRoot        = errors.New("node is not a root")
	ErrCycle          = errors.New("node cannot be moved under itself")
)

// Row is a visible node and its depth, in display order.
type Row struct {
	Node  *Node
	Depth int
}

// Manager owns the forest. Structural edits are serialized.
type Manager struct {
	mu    sync.RWMutex
	roots []*Node
}

func NewManager() *Manager {
	return &Manager{}
}

// LoadFrom replaces the forest with doc's native outline, keeping order.
func (m *Manager) LoadFrom(doc platform.Document) {
	var roots []*Node
	if doc != nil {
		roots = convert(doc.Outline())
	}
	m.mu.Lock()
	m.roots = roots
	m.mu.Unlock()
}

func convert(entries []platform.OutlineEntry) []*Node {
	if len(entries) == 0 {
		return nil
	}
	nodes := make([]*Node, 0, len(entries))
	for _, e := range entries {
		n := NewNode(e.Label, copyPage(e.Page))
		n.Children = convert(e.Children)
		nodes = append(nodes, n)
	}
	return nodes
}

func copyPage(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Roots returns the root list. The slice is a copy; the nodes are shared.
func (m *Manager) Roots() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Node(nil), m.roots...)
}

// Len counts every node in the forest.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, r := range m.roots {
		total += r.Count()
	}
	return total
}

func (m *Manager) containsLocked(target *Node) bool {
	for _, r := range m.roots {
		if r.contains(target) {
			return true
		}
	}
	return false
}

// AddRoot appends n to the root list.
func (m *Manager) AddRoot(n *Node) error {
	if n == nil {
		return ErrNilNode
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.containsLocked(n) {
		return ErrAttached
	}
	m.roots = append(m.roots, n)
	return nil
}

// AddChild appends n to parent's children.
func (m *Manager) AddChild(n, parent *Node) error {
	if n == nil {
		return ErrNilNode
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if parent == nil || !m.containsLocked(parent) {
		return ErrParentNotFound
	}
	if m.containsLocked(n) {
		return ErrAttached
	}
	parent.Children = append(parent.Children, n)
	return nil
}

// Remove detaches n wherever it lives and reports whether it was found.
func (m *Manager) Remove(n *Node) bool {
	if n == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(n)
}

func (m *Manager) removeLocked(n *Node) bool {
	var removed bool
	if m.roots, removed = removeFrom(m.roots, n); removed {
		return true
	}
	for _, r := range m.roots {
		if removeDescendant(r, n) {
			return true
		}
	}
	return false
}

func removeDescendant(parent, target *Node) bool {
	var removed bool
	if parent.Children, removed = removeFrom(parent.Children, target); removed {
		return true
	}
	for _, child := range parent.Children {
		if removeDescendant(child, target) {
			return true
		}
	}
	return false
}

// Move reorders a root. toIndex is clamped to [0, count]; a target past
// the end of the list without n is pulled back by one so n lands last.
func (m *Manager) Move(n *Node, toIndex int) error {
	if n == nil {
		return ErrNilNode
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	from := -1
	for i, r := range m.roots {
		if r == n {
			from = i
			break
		}
	}
	if from < 0 {
		return ErrNotRoot
	}

	count := len(m.roots)
	toIndex = min(max(toIndex, 0), count)

	rest := append(m.roots[:from:from], m.roots[from+1:]...)
	if toIndex > len(rest) {
		toIndex--
	}

	reordered := make([]*Node, 0, count)
	reordered = append(reordered, rest[:toIndex]...)
	reordered = append(reordered, n)
	reordered = append(reordered, rest[toIndex:]...)
	m.roots = reordered
	return nil
}

// Reparent moves n under newParent, or to the end of the root list when
// newParent is nil.
func (m *Manager) Reparent(n, newParent *Node) error {
	if n == nil {
		return ErrNilNode
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.containsLocked(n) {
		return ErrNodeNotFound
	}
	if newParent != nil {
		if !m.containsLocked(newParent) {
			return ErrParentNotFound
		}
		if n.contains(newParent) {
			return ErrCycle
		}
	}

	m.removeLocked(n)
	if newParent == nil {
		m.roots = append(m.roots, n)
	} else {
		newParent.Children = append(newParent.Children, n)
	}
	return nil
}

// Find returns the node with id, or nil.
func (m *Manager) Find(id uuid.UUID) *Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.roots {
		if found := r.find(id); found != nil {
			return found
		}
	}
	return nil
}

// Rename sets the label and ends editing.
func (m *Manager) Rename(n *Node, label string) error {
	if n == nil {
		return ErrNilNode
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.containsLocked(n) {
		return ErrNodeNotFound
	}
	n.Label = label
	n.Editing = false
	return nil
}

// Flatten lists visible nodes depth-first. Children of collapsed nodes are
// skipped.
func (m *Manager) Flatten() []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rows []Row
	for _, r := range m.roots {
		rows = flatten(rows, r, 0)
	}
	return rows
}

func flatten(rows []Row, n *Node, depth int) []Row {
	rows = append(rows, Row{Node: n, Depth: depth})
	if n.Expanded {
		for _, child := range n.Children {
			rows = flatten(rows, child, depth+1)
		}
	}
	return rows
}

// ExpandAll expands every node.
func (m *Manager) ExpandAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			n.Expanded = true
			walk(n.Children)
		}
	}
	walk(m.roots)
}
