package memdom

import (
	"fmt"

	"github.com/vango-dev/loom/pkg/vdom"
)

// OpKind is the kind of a logged operation.
type OpKind uint8

const (
	OpCreate OpKind = iota + 1
	OpSetAttr
	OpRemoveAttr
	OpSetText
	OpListen
	OpUnlisten
	OpAttach
	OpInsert
	OpDetach
)

// String returns the string representation of the OpKind.
func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpSetAttr:
		return "set"
	case OpRemoveAttr:
		return "remove"
	case OpSetText:
		return "text"
	case OpListen:
		return "listen"
	case OpUnlisten:
		return "unlisten"
	case OpAttach:
		return "attach"
	case OpInsert:
		return "insert"
	case OpDetach:
		return "detach"
	default:
		return "unknown"
	}
}

// Op is one logged surface operation.
type Op struct {
	Kind   OpKind
	Node   int
	Parent int    // Attach, Insert, Detach
	Key    string // Tag, attribute or event name
	Value  string // Attribute or text value

	// Visible is set when the operation changed a node reachable from a
	// root at the time it ran.
	Visible bool

	// Commit is the sequence number of the enclosing commit, 0 outside.
	Commit int
}

// String returns a compact form such as "attach 3 -> 1".
func (o Op) String() string {
	switch o.Kind {
	case OpAttach, OpInsert, OpDetach:
		return fmt.Sprintf("%s %d -> %d", o.Kind, o.Node, o.Parent)
	case OpSetAttr, OpSetText:
		return fmt.Sprintf("%s %d %s=%q", o.Kind, o.Node, o.Key, o.Value)
	default:
		return fmt.Sprintf("%s %d %s", o.Kind, o.Node, o.Key)
	}
}

// IsStructural reports whether the op changes the tree shape.
func (o Op) IsStructural() bool {
	return o.Kind == OpAttach || o.Kind == OpInsert || o.Kind == OpDetach
}

// Document creates and mutates Nodes.
type Document struct {
	nodes   []*Node
	log     []Op
	commits int
	commit  int

	fail   map[OpKind]error
	onFlush func(commit int, ops []Op)
}

// New creates an empty document.
func New() *Document {
	return &Document{}
}

// NewRoot creates a root node, which counts as visible.
func (d *Document) NewRoot(tag string) *Node {
	n := d.newNode(tag)
	n.root = true
	return n
}

// Node returns the node with the given id, or nil.
func (d *Document) Node(id int) *Node {
	if id < 1 || id > len(d.nodes) {
		return nil
	}
	return d.nodes[id-1]
}

// Len returns the number of nodes ever created.
func (d *Document) Len() int {
	return len(d.nodes)
}

// Log returns the operations recorded so far.
func (d *Document) Log() []Op {
	return d.log
}

// ResetLog clears the operation log.
func (d *Document) ResetLog() {
	d.log = nil
}

// Commits returns the number of completed commits.
func (d *Document) Commits() int {
	return d.commits
}

// FailOn makes the next operation of the given kind fail with err.
func (d *Document) FailOn(kind OpKind, err error) {
	if d.fail == nil {
		d.fail = make(map[OpKind]error)
	}
	d.fail[kind] = err
}

// OnFlush registers fn to receive the operations of every commit at
// EndCommit.
func (d *Document) OnFlush(fn func(commit int, ops []Op)) {
	d.onFlush = fn
}

func (d *Document) newNode(tag string) *Node {
	n := &Node{ID: len(d.nodes) + 1, Tag: tag}
	d.nodes = append(d.nodes, n)
	return n
}

func (d *Document) check(kind OpKind) error {
	if err, ok := d.fail[kind]; ok {
		delete(d.fail, kind)
		return err
	}
	return nil
}

func (d *Document) record(op Op, n *Node) {
	op.Visible = n.Connected()
	op.Commit = d.commit
	d.log = append(d.log, op)
}

func (d *Document) asNode(v any) (*Node, error) {
	n, ok := v.(*Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("memdom: %T is not a memdom node", v)
	}
	if n.ID < 1 || n.ID > len(d.nodes) || d.nodes[n.ID-1] != n {
		return nil, fmt.Errorf("memdom: node %d belongs to another document", n.ID)
	}
	return n, nil
}

// CreateNode creates a detached node.
func (d *Document) CreateNode(t vdom.Type) (any, error) {
	if err := d.check(OpCreate); err != nil {
		return nil, err
	}
	var n *Node
	switch t.Kind {
	case vdom.KindHost:
		n = d.newNode(t.Tag)
	case vdom.KindText:
		n = d.newNode(TextTag)
	default:
		return nil, fmt.Errorf("memdom: cannot create a node for %s", t)
	}
	d.record(Op{Kind: OpCreate, Node: n.ID, Key: n.Tag}, n)
	return n, nil
}

// ApplyProps applies the diff between prev and next and rebinds listeners
// from next.
func (d *Document) ApplyProps(v any, prev, next vdom.Props) error {
	n, err := d.asNode(v)
	if err != nil {
		return err
	}
	changes := vdom.DiffProps(prev, next)
	for _, c := range changes {
		kind := opKindFor(n, c)
		if err := d.check(kind); err != nil {
			return err
		}
		op := Op{Kind: kind, Node: n.ID, Key: c.Name}
		switch kind {
		case OpSetText:
			n.Text = vdom.PropToString(c.Value)
			op.Value = n.Text
		case OpSetAttr:
			if n.Attrs == nil {
				n.Attrs = make(map[string]any)
			}
			n.Attrs[c.Name] = c.Value
			op.Value = vdom.PropToString(c.Value)
		case OpRemoveAttr:
			delete(n.Attrs, c.Name)
		case OpUnlisten:
			delete(n.Listeners, c.Name)
		}
		d.record(op, n)
	}
	n.Listeners = vdom.Listeners(next)
	return nil
}

func opKindFor(n *Node, c vdom.PropChange) OpKind {
	switch c.Op {
	case vdom.PropSet:
		if n.IsText() && c.Name == vdom.TextValueProp {
			return OpSetText
		}
		return OpSetAttr
	case vdom.PropRemove:
		if n.IsText() && c.Name == vdom.TextValueProp {
			return OpSetText
		}
		return OpRemoveAttr
	case vdom.PropListen:
		return OpListen
	default:
		return OpUnlisten
	}
}

// Attach appends child to parent.
func (d *Document) Attach(p, c any) error {
	return d.InsertBefore(p, c, nil)
}

// InsertBefore inserts child into parent before the given sibling, or at the
// end when before is nil.
func (d *Document) InsertBefore(p, c, before any) error {
	parent, err := d.asNode(p)
	if err != nil {
		return err
	}
	child, err := d.asNode(c)
	if err != nil {
		return err
	}
	kind := OpAttach
	idx := len(parent.Children)
	if before != nil {
		kind = OpInsert
		b, err := d.asNode(before)
		if err != nil {
			return err
		}
		if idx = parent.indexOf(b); idx < 0 {
			return fmt.Errorf("memdom: node %d is not a child of %d", b.ID, parent.ID)
		}
	}
	if err := d.check(kind); err != nil {
		return err
	}
	if parent.IsText() {
		return fmt.Errorf("memdom: text node %d cannot have children", parent.ID)
	}
	if child.Parent != nil {
		return fmt.Errorf("memdom: node %d is already attached to %d", child.ID, child.Parent.ID)
	}
	for a := parent; a != nil; a = a.Parent {
		if a == child {
			return fmt.Errorf("memdom: attaching %d to %d would create a cycle", child.ID, parent.ID)
		}
	}

	parent.Children = append(parent.Children, nil)
	copy(parent.Children[idx+1:], parent.Children[idx:])
	parent.Children[idx] = child
	child.Parent = parent
	d.record(Op{Kind: kind, Node: child.ID, Parent: parent.ID}, parent)
	return nil
}

// Detach removes child from parent.
func (d *Document) Detach(p, c any) error {
	parent, err := d.asNode(p)
	if err != nil {
		return err
	}
	child, err := d.asNode(c)
	if err != nil {
		return err
	}
	if err := d.check(OpDetach); err != nil {
		return err
	}
	i := parent.indexOf(child)
	if i < 0 {
		return fmt.Errorf("memdom: node %d is not a child of %d", child.ID, parent.ID)
	}
	parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
	child.Parent = nil
	d.record(Op{Kind: OpDetach, Node: child.ID, Parent: parent.ID}, parent)
	return nil
}

// BeginCommit opens a commit; operations until EndCommit carry its number.
func (d *Document) BeginCommit() {
	d.commits++
	d.commit = d.commits
}

// EndCommit closes the commit.
func (d *Document) EndCommit() error {
	commit := d.commit
	d.commit = 0
	if d.onFlush != nil {
		var ops []Op
		for _, op := range d.log {
			if op.Commit == commit {
				ops = append(ops, op)
			}
		}
		d.onFlush(commit, ops)
	}
	return nil
}

// Dispatch invokes the listener for event on n. It returns false when n has
// no usable listener for the event.
func (d *Document) Dispatch(n *Node, event, value string) bool {
	h, ok := n.Listeners[event]
	if !ok {
		return false
	}
	return vdom.CallListener(h, vdom.Event{Name: event, Value: value})
}
