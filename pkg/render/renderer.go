package render

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vango-dev/loom/pkg/surface/memdom"
	"github.com/vango-dev/loom/pkg/vdom"
)

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Pretty enables pretty-printed HTML output with indentation.
	// Should only be used in development as it increases output size.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string

	// OmitListenerMarkers disables data-lid and data-on-* attributes,
	// for fully static output.
	OmitListenerMarkers bool
}

// Renderer renders memdom nodes to HTML.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// RenderToString renders a node tree to an HTML string.
func (r *Renderer) RenderToString(node *memdom.Node) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams a node tree to the given writer.
func (r *Renderer) RenderToWriter(w io.Writer, node *memdom.Node) error {
	return r.renderNode(w, node, 0)
}

// RenderChildren renders the children of node without node itself, as
// needed for a mount point.
func (r *Renderer) RenderChildren(w io.Writer, node *memdom.Node) error {
	for _, c := range node.Children {
		if err := r.renderNode(w, c, 0); err != nil {
			return err
		}
	}
	return nil
}

// renderNode dispatches rendering based on node kind.
func (r *Renderer) renderNode(w io.Writer, node *memdom.Node, depth int) error {
	if node == nil {
		return nil
	}
	if node.IsText() {
		_, err := io.WriteString(w, escapeHTML(node.Text))
		return err
	}
	if node.Tag == "" || strings.ContainsAny(node.Tag, " <>\"'/=") {
		return fmt.Errorf("render: invalid tag %q", node.Tag)
	}
	return r.renderElement(w, node, depth)
}

// renderElement renders an HTML element with its attributes and children.
func (r *Renderer) renderElement(w io.Writer, node *memdom.Node, depth int) error {
	tag := node.Tag

	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}

	if _, err := io.WriteString(w, "<"+tag); err != nil {
		return err
	}
	if err := r.renderAttributes(w, node); err != nil {
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}

	if vdom.IsVoidElement(tag) {
		if len(node.Children) > 0 {
			return fmt.Errorf("render: void element <%s> has children", tag)
		}
		if r.config.Pretty {
			io.WriteString(w, "\n")
		}
		return nil
	}

	// Newline after opening tag if has children and pretty printing
	hasBlockChildren := len(node.Children) > 0 && !isInlineElement(tag)
	if r.config.Pretty && hasBlockChildren {
		io.WriteString(w, "\n")
	}

	for _, child := range node.Children {
		if err := r.renderNode(w, child, depth+1); err != nil {
			return err
		}
	}

	if r.config.Pretty && hasBlockChildren {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "</%s>", tag); err != nil {
		return err
	}
	if r.config.Pretty {
		io.WriteString(w, "\n")
	}
	return nil
}

// renderAttributes renders all attributes for an element.
func (r *Renderer) renderAttributes(w io.Writer, node *memdom.Node) error {
	for _, key := range node.SortedAttrs() {
		value := node.Attrs[key]

		// Event props never reach Attrs, but guard against raw "on*"
		// attributes carrying script.
		if vdom.IsEventProp(key) || strings.HasPrefix(key, "_") {
			continue
		}

		key = vdom.AttrName(key)

		if isBooleanAttr(key) {
			if b, ok := value.(bool); ok {
				if b {
					if _, err := fmt.Fprintf(w, " %s", key); err != nil {
						return err
					}
				}
				continue
			}
		}

		if s := vdom.PropToString(value); s != "" {
			if _, err := fmt.Fprintf(w, ` %s="%s"`, key, escapeAttr(s)); err != nil {
				return err
			}
		}
	}

	if r.config.OmitListenerMarkers || len(node.Listeners) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, ` data-lid="%d"`, node.ID); err != nil {
		return err
	}
	events := make([]string, 0, len(node.Listeners))
	for name := range node.Listeners {
		events = append(events, name)
	}
	sort.Strings(events)
	for _, name := range events {
		if _, err := fmt.Fprintf(w, ` data-on-%s="true"`, escapeAttr(name)); err != nil {
			return err
		}
	}
	return nil
}

// writeIndent writes indentation for pretty printing.
func (r *Renderer) writeIndent(w io.Writer, depth int) {
	io.WriteString(w, strings.Repeat(r.config.Indent, depth))
}
