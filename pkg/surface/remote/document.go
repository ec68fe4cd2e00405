package remote

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vango-dev/loom/pkg/protocol"
	"github.com/vango-dev/loom/pkg/vdom"
)

// RootID is the node id of the client's mount point.
const RootID uint32 = 1

// Dispatch errors.
var (
	ErrUnknownNode = errors.New("remote: unknown node")
	ErrNoListener  = errors.New("remote: no listener")
)

// Sink receives encoded frames.
type Sink interface {
	WriteFrame(f *protocol.Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f *protocol.Frame) error

// WriteFrame implements Sink.
func (fn SinkFunc) WriteFrame(f *protocol.Frame) error { return fn(f) }

// Node mirrors one client node.
type Node struct {
	ID  uint32
	Tag string // Element tag, or "#text"

	text      string
	attrs     map[string]string
	listeners map[string]any
	parent    *Node
	children  []*Node
	live      bool // materialized on the client
}

const textTag = "#text"

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n.Tag == textTag }

// Live reports whether n exists on the client.
func (n *Node) Live() bool { return n.live }

// Parent returns n's parent, or nil.
func (n *Node) Parent() *Node { return n.parent }

// Children returns n's children.
func (n *Node) Children() []*Node { return n.children }

func (n *Node) indexOf(c *Node) int {
	for i, x := range n.children {
		if x == c {
			return i
		}
	}
	return -1
}

// Stats counts patches sent by a Document.
type Stats struct {
	Frames  int
	Commits int
	Patches map[protocol.PatchOp]int
}

// Document is a fiber surface backed by a remote client.
type Document struct {
	sink    Sink
	nodes   map[uint32]*Node
	nextID  uint32
	root    *Node
	seq     uint64
	batch   []protocol.Patch
	fresh   []*Node // created since the last commit
	dropped []*Node // detached since the last commit
	stats   Stats
}

// New creates a document whose mount point has RootID.
func New(sink Sink) *Document {
	root := &Node{ID: RootID, Tag: "#root", live: true}
	return &Document{
		sink:   sink,
		nodes:  map[uint32]*Node{RootID: root},
		nextID: RootID + 1,
		root:   root,
		stats:  Stats{Patches: make(map[protocol.PatchOp]int)},
	}
}

// Root returns the mount point.
func (d *Document) Root() *Node { return d.root }

// Node returns the node with the given id, or nil.
func (d *Document) Node(id uint32) *Node { return d.nodes[id] }

// Len returns the number of tracked nodes, the root included.
func (d *Document) Len() int { return len(d.nodes) }

// Seq returns the sequence number of the last commit sent.
func (d *Document) Seq() uint64 { return d.seq }

// Stats returns the patch counters.
func (d *Document) Stats() Stats { return d.stats }

func (d *Document) asNode(v any) (*Node, error) {
	n, ok := v.(*Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("remote: %T is not a remote node", v)
	}
	if d.nodes[n.ID] != n {
		return nil, fmt.Errorf("remote: node %d belongs to another document", n.ID)
	}
	return n, nil
}

func (d *Document) emit(p protocol.Patch) {
	d.batch = append(d.batch, p)
}

// CreateNode creates a local node. Nothing is sent until it is attached
// under a live parent.
func (d *Document) CreateNode(t vdom.Type) (any, error) {
	var tag string
	switch t.Kind {
	case vdom.KindHost:
		tag = t.Tag
	case vdom.KindText:
		tag = textTag
	default:
		return nil, fmt.Errorf("remote: cannot create a node for %s", t)
	}
	n := &Node{ID: d.nextID, Tag: tag}
	d.nextID++
	d.nodes[n.ID] = n
	d.fresh = append(d.fresh, n)
	return n, nil
}

// ApplyProps applies the diff between prev and next and rebinds listeners
// from next. Live nodes emit one patch per change.
func (d *Document) ApplyProps(v any, prev, next vdom.Props) error {
	n, err := d.asNode(v)
	if err != nil {
		return err
	}
	for _, c := range vdom.DiffProps(prev, next) {
		if n.IsText() && c.Name == vdom.TextValueProp {
			n.text = vdom.PropToString(c.Value)
			if n.live {
				d.emit(protocol.NewSetTextPatch(n.ID, n.text))
			}
			continue
		}
		switch c.Op {
		case vdom.PropSet, vdom.PropRemove:
			d.setAttr(n, vdom.AttrName(c.Name), c.Value, c.Op == vdom.PropSet)
		case vdom.PropListen:
			if n.live {
				d.emit(protocol.NewListenPatch(n.ID, c.Name))
			}
		case vdom.PropUnlisten:
			if n.live {
				d.emit(protocol.NewUnlistenPatch(n.ID, c.Name))
			}
		}
	}
	n.listeners = vdom.Listeners(next)
	return nil
}

// setAttr stores an attribute. Boolean true is an empty attribute and
// boolean false removes it.
func (d *Document) setAttr(n *Node, name string, value any, set bool) {
	if b, ok := value.(bool); ok && set {
		set = b
		value = ""
	}
	if !set || value == nil {
		if _, ok := n.attrs[name]; ok {
			delete(n.attrs, name)
			if n.live {
				d.emit(protocol.NewRemoveAttrPatch(n.ID, name))
			}
		}
		return
	}
	s := vdom.PropToString(value)
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = s
	if n.live {
		d.emit(protocol.NewSetAttrPatch(n.ID, name, s))
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
	idx := len(parent.children)
	var b *Node
	if before != nil {
		if b, err = d.asNode(before); err != nil {
			return err
		}
		if idx = parent.indexOf(b); idx < 0 {
			return fmt.Errorf("remote: node %d is not a child of %d", b.ID, parent.ID)
		}
	}
	switch {
	case parent.IsText():
		return fmt.Errorf("remote: text node %d cannot have children", parent.ID)
	case child.parent != nil:
		return fmt.Errorf("remote: node %d is already attached to %d", child.ID, child.parent.ID)
	case child == d.root:
		return fmt.Errorf("remote: the mount point cannot be attached")
	}
	for a := parent; a != nil; a = a.parent {
		if a == child {
			return fmt.Errorf("remote: attaching %d to %d would create a cycle", child.ID, parent.ID)
		}
	}

	parent.children = append(parent.children, nil)
	copy(parent.children[idx+1:], parent.children[idx:])
	parent.children[idx] = child
	child.parent = parent

	if !parent.live {
		return nil
	}
	if !child.live {
		d.materialize(child)
	}
	if b != nil {
		d.emit(protocol.NewInsertPatch(child.ID, parent.ID, b.ID))
	} else {
		d.emit(protocol.NewAttachPatch(child.ID, parent.ID))
	}
	return nil
}

// materialize sends n and its local subtree to the client. n itself is
// attached by the caller; descendants are attached here in order.
func (d *Document) materialize(n *Node) {
	n.live = true
	if n.IsText() {
		d.emit(protocol.NewCreateTextPatch(n.ID, n.text))
	} else {
		d.emit(protocol.NewCreateElementPatch(n.ID, n.Tag))
		names := make([]string, 0, len(n.attrs))
		for name := range n.attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			d.emit(protocol.NewSetAttrPatch(n.ID, name, n.attrs[name]))
		}
		events := make([]string, 0, len(n.listeners))
		for ev := range n.listeners {
			events = append(events, ev)
		}
		sort.Strings(events)
		for _, ev := range events {
			d.emit(protocol.NewListenPatch(n.ID, ev))
		}
	}
	for _, c := range n.children {
		d.materialize(c)
		d.emit(protocol.NewAttachPatch(c.ID, n.ID))
	}
}

// Detach removes child from parent. A detached subtree that is still
// parentless at EndCommit is released on both sides.
func (d *Document) Detach(p, c any) error {
	parent, err := d.asNode(p)
	if err != nil {
		return err
	}
	child, err := d.asNode(c)
	if err != nil {
		return err
	}
	i := parent.indexOf(child)
	if i < 0 {
		return fmt.Errorf("remote: node %d is not a child of %d", child.ID, parent.ID)
	}
	parent.children = append(parent.children[:i], parent.children[i+1:]...)
	child.parent = nil
	if child.live {
		d.emit(protocol.NewDetachPatch(child.ID, parent.ID))
	}
	d.dropped = append(d.dropped, child)
	return nil
}

// BeginCommit implements fiber.CommitBatcher. Patches are collected until
// EndCommit.
func (d *Document) BeginCommit() {}

// EndCommit sends the patches collected since the previous commit. Nodes
// created since the previous commit that are still not live belong to an
// abandoned pass and are released.
func (d *Document) EndCommit() error {
	for _, n := range d.dropped {
		if n.parent == nil {
			d.release(n)
		}
	}
	d.dropped = d.dropped[:0]
	for _, n := range d.fresh {
		if !n.live {
			delete(d.nodes, n.ID)
		}
	}
	d.fresh = d.fresh[:0]

	if len(d.batch) == 0 {
		return nil
	}
	d.seq++
	pf := &protocol.PatchesFrame{Seq: d.seq, Patches: d.batch}
	d.batch = nil

	var flags protocol.FrameFlags
	if d.stats.Commits == 0 {
		flags = protocol.FlagInitial
	}
	d.stats.Commits++
	for _, p := range pf.Patches {
		d.stats.Patches[p.Op]++
	}

	frames, err := protocol.PatchFrames(pf, flags)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := d.sink.WriteFrame(f); err != nil {
			return err
		}
		d.stats.Frames++
	}
	return nil
}

func (d *Document) release(n *Node) {
	delete(d.nodes, n.ID)
	for _, c := range n.children {
		d.release(c)
	}
}

// Dispatch invokes the listener for ev.
func (d *Document) Dispatch(ev *protocol.Event) error {
	n := d.nodes[ev.NodeID]
	if n == nil || !n.live {
		return fmt.Errorf("%w %d", ErrUnknownNode, ev.NodeID)
	}
	h, ok := n.listeners[ev.Name]
	if !ok || !vdom.CallListener(h, vdom.Event{Name: ev.Name, Value: ev.Value}) {
		return fmt.Errorf("%w for %s on node %d", ErrNoListener, ev.Name, ev.NodeID)
	}
	return nil
}
