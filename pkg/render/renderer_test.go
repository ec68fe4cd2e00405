package render

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/surface/memdom"
	"github.com/vango-dev/loom/pkg/vdom"
)

func mount(t *testing.T, el *vdom.Element) *memdom.Node {
	t.Helper()
	root, err := Mount(el, fiber.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return root
}

func renderChildren(t *testing.T, r *Renderer, root *memdom.Node) string {
	t.Helper()
	var buf bytes.Buffer
	if err := r.RenderChildren(&buf, root); err != nil {
		t.Fatalf("RenderChildren() error = %v", err)
	}
	return buf.String()
}

func TestRenderElements(t *testing.T) {
	tests := []struct {
		name string
		el   *vdom.Element
		want string
	}{
		{
			name: "text escaping",
			el:   vdom.P("<script>alert('xss')</script>"),
			want: "<p>&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;</p>",
		},
		{
			name: "nested with sorted attributes",
			el:   vdom.Div(vdom.Class("container"), vdom.ID("main"), vdom.H1("Title"), vdom.P("Content")),
			want: `<div class="container" id="main"><h1>Title</h1><p>Content</p></div>`,
		},
		{
			name: "void element",
			el:   vdom.Div(vdom.Input(vdom.InputType("text"), vdom.Value("x")), vdom.Br()),
			want: `<div><input type="text" value="x"><br></div>`,
		},
		{
			name: "boolean attributes",
			el:   vdom.Button(vdom.Disabled(), vdom.Hidden(), vdom.Checked(false), "Go"),
			want: `<button disabled hidden>Go</button>`,
		},
		{
			name: "attribute escaping",
			el:   vdom.A(vdom.Href(`/x?a=1&b="2"`), "link"),
			want: `<a href="/x?a=1&amp;b=&quot;2&quot;">link</a>`,
		},
		{
			name: "className alias",
			el:   vdom.Span(vdom.Props{"className": "c"}),
			want: `<span class="c"></span>`,
		},
	}

	r := NewRenderer(RendererConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderChildren(t, r, mount(t, tt.el)); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestRenderListenerMarkers(t *testing.T) {
	root := mount(t, vdom.Button(vdom.OnClick(func() {}), vdom.OnKeyDown(func() {}), "+"))
	btn := root.FindTag("button")

	got := renderChildren(t, NewRenderer(RendererConfig{}), root)
	want := `<button data-lid="` + strconv.Itoa(btn.ID) + `" data-on-click="true" data-on-keydown="true">+</button>`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}

	got = renderChildren(t, NewRenderer(RendererConfig{OmitListenerMarkers: true}), root)
	if got != `<button>+</button>` {
		t.Errorf("static render = %s", got)
	}
}

func TestRenderPretty(t *testing.T) {
	root := mount(t, vdom.Ul(vdom.Li("a"), vdom.Li(vdom.Strong("b"))))
	got := renderChildren(t, NewRenderer(RendererConfig{Pretty: true}), root)
	for _, want := range []string{"<ul>\n", "  <li>", "    <strong>b</strong>\n", "  </li>\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("pretty output missing %q:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "</ul>\n") {
		t.Errorf("pretty output should end with </ul>:\n%s", got)
	}
}

func TestRenderInvalidTag(t *testing.T) {
	doc := memdom.New()
	root := doc.NewRoot("body")
	n, err := doc.CreateNode(vdom.HostType(`x onload="1"`))
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.Attach(root, n); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRenderer(RendererConfig{}).RenderToString(root); err == nil {
		t.Error("RenderToString() error = nil, want invalid tag error")
	}
}

func TestRenderToString(t *testing.T) {
	root := mount(t, vdom.P("x"))
	got, err := NewRenderer(RendererConfig{}).RenderToString(root)
	if err != nil {
		t.Fatal(err)
	}
	if got != "<body><p>x</p></body>" {
		t.Errorf("RenderToString() = %s", got)
	}
}

func TestRenderPage(t *testing.T) {
	root := mount(t, vdom.Main(vdom.H1("Hi")))
	var buf bytes.Buffer
	err := NewRenderer(RendererConfig{}).RenderPage(&buf, PageData{
		Body:         root,
		Title:        "Loom <demo>",
		Meta:         []MetaTag{{Name: "description", Content: "d"}},
		StyleSheets:  []string{"/app.css"},
		ClientScript: "/_loom/loom.js",
		SocketPath:   "/ws",
	})
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="en">`,
		"<title>Loom &lt;demo&gt;</title>",
		`<meta name="description" content="d">`,
		`<link rel="stylesheet" href="/app.css">`,
		`<div id="loom-root" data-loom-ws="/ws"><main><h1>Hi</h1></main></div>`,
		`<script src="/_loom/loom.js" defer></script>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q:\n%s", want, html)
		}
	}

	buf.Reset()
	if err := NewRenderer(RendererConfig{}).RenderPage(&buf, PageData{Lang: "fr", MountID: "app"}); err != nil {
		t.Fatal(err)
	}
	if html := buf.String(); !strings.Contains(html, `<html lang="fr">`) || !strings.Contains(html, `<div id="app"></div>`) || strings.Contains(html, "<script") {
		t.Errorf("static page = %s", html)
	}
}

func TestMountErrors(t *testing.T) {
	quiet := fiber.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if _, err := Mount(nil, quiet); !errors.Is(err, fiber.ErrMalformedElement) {
		t.Errorf("Mount(nil) error = %v, want %v", err, fiber.ErrMalformedElement)
	}

	broken := vdom.Define("Broken", func(h vdom.Hooks, p vdom.Props) *vdom.Element {
		panic("boom")
	})
	if _, err := Mount(vdom.C(broken, nil), quiet); !errors.Is(err, fiber.ErrComponentPanic) {
		t.Errorf("Mount(panicking) error = %v, want %v", err, fiber.ErrComponentPanic)
	}
}
