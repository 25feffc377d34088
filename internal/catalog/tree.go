package catalog

import "strings"

type node struct {
	track *Track
	left  *node
	right *node
}

// titleTree is a plain (unbalanced) BST keyed by lowercase title.
// Equal keys go right, so traversal keeps insertion order among ties.
type titleTree struct {
	root *node
}

func (tr *titleTree) insert(t *Track) {
	n := &node{track: t}
	if tr.root == nil {
		tr.root = n
		return
	}
	key := strings.ToLower(t.Title)
	cur := tr.root
	for {
		if key < strings.ToLower(cur.track.Title) {
			if cur.left == nil {
				cur.left = n
				return
			}
			cur = cur.left
		} else {
			if cur.right == nil {
				cur.right = n
				return
			}
			cur = cur.right
		}
	}
}

// match walks every node pre-order (node, left, right). Substring matching
// gives no ordering guarantee, so no subtree can be pruned.
func (tr *titleTree) match(query string, visit func(*Track)) {
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		t := n.track
		if strings.Contains(strings.ToLower(t.Title), query) ||
			strings.Contains(strings.ToLower(t.Artist), query) ||
			strings.Contains(strings.ToLower(t.Genre), query) {
			visit(t)
		}
		walk(n.left)
		walk(n.right)
	}
	walk(tr.root)
}

// inOrder yields tracks in case-insensitive title order.
func (tr *titleTree) inOrder(visit func(*Track)) {
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		walk(n.left)
		visit(n.track)
		walk(n.right)
	}
	walk(tr.root)
}
