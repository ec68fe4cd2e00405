package memdom

import (
	"fmt"
	"sort"
	"strings"

	tp "github.com/xlab/treeprint"

	"github.com/vango-dev/loom/pkg/vdom"
)

// TextTag is the tag of text nodes.
const TextTag = "#text"

// Node is a node of a Document.
type Node struct {
	ID        int
	Tag       string
	Text      string         // Text nodes only
	Attrs     map[string]any // Raw prop values
	Listeners map[string]any // Event name -> handler
	Parent    *Node
	Children  []*Node

	root bool
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool {
	return n.Tag == TextTag
}

// Connected reports whether n is reachable from a root node.
func (n *Node) Connected() bool {
	for p := n; p != nil; p = p.Parent {
		if p.root {
			return true
		}
	}
	return false
}

// Attr returns the string form of an attribute.
func (n *Node) Attr(name string) string {
	return vdom.PropToString(n.Attrs[name])
}

// TextContent returns the concatenated text of n and its descendants.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	var sb strings.Builder
	for _, c := range n.Children {
		sb.WriteString(c.TextContent())
	}
	return sb.String()
}

// Find returns the first node in n's subtree, n included, for which match
// returns true.
func (n *Node) Find(match func(*Node) bool) *Node {
	if match(n) {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(match); found != nil {
			return found
		}
	}
	return nil
}

// FindTag returns the first node with the given tag.
func (n *Node) FindTag(tag string) *Node {
	return n.Find(func(x *Node) bool { return x.Tag == tag })
}

// SortedAttrs returns the attribute names in sorted order.
func (n *Node) SortedAttrs() []string {
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the subtree compactly, e.g. div(id=a)[span["x"]].
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.IsText() {
		return fmt.Sprintf("%q", n.Text)
	}
	var sb strings.Builder
	sb.WriteString(n.Tag)
	if len(n.Attrs) > 0 {
		sb.WriteByte('(')
		for i, k := range n.SortedAttrs() {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(k + "=" + n.Attr(k))
		}
		sb.WriteByte(')')
	}
	if len(n.Children) > 0 {
		sb.WriteByte('[')
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(c.String())
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// Dump renders the subtree as an indented tree.
func Dump(n *Node) string {
	p := tp.New()
	dumpNode(p, n)
	return p.String()
}

func dumpNode(p tp.Tree, n *Node) {
	label := fmt.Sprintf("%d %s", n.ID, n.Tag)
	if n.IsText() {
		label = fmt.Sprintf("%d %q", n.ID, n.Text)
	}
	for _, k := range n.SortedAttrs() {
		label += fmt.Sprintf(" %s=%q", k, n.Attr(k))
	}
	if len(n.Children) == 0 {
		p.AddNode(label)
		return
	}
	branch := p.AddBranch(label)
	for _, c := range n.Children {
		dumpNode(branch, c)
	}
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}
