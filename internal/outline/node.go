package outline

import "github.com/google/uuid"

// Node is one table-of-contents entry. A node lives in exactly one children
// list, or in the manager's root list.
type Node struct {
	ID       uuid.UUID
	Label    string
	Children []*Node
	Expanded bool
	PageRef  *int
	Editing  bool
}

// NewNode creates a detached node with a fresh ID.
func NewNode(label string, page *int) *Node {
	return &Node{ID: uuid.New(), Label: label, PageRef: page}
}

func (n *Node) Toggle() {
	n.Expanded = !n.Expanded
}

func (n *Node) Expand() {
	n.Expanded = true
}

func (n *Node) Collapse() {
	n.Expanded = false
}

// Count returns the number of nodes in n's subtree, n included.
func (n *Node) Count() int {
	count := 1
	for _, child := range n.Children {
		count += child.Count()
	}
	return count
}

func (n *Node) contains(target *Node) bool {
	if n == target {
		return true
	}
	for _, child := range n.Children {
		if child.contains(target) {
			return true
		}
	}
	return false
}

func (n *Node) find(id uuid.UUID) *Node {
	if n.ID == id {
		return n
	}
	for _, child := range n.Children {
		if found := child.find(id); found != nil {
			return found
		}
	}
	return nil
}

func removeFrom(list []*Node, target *Node) ([]*Node, bool) {
	for i, n := range list {
		if n == target {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}
