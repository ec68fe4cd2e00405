package export

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"

	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/render"
	"github.com/vango-dev/loom/pkg/vdom"
)

// ErrInvalidKey is returned for keys that are empty, absolute or escape the
// store root.
var ErrInvalidKey = errors.New("export: invalid key")

// ContentTypeHTML is the content type of snapshots.
const ContentTypeHTML = "text/html; charset=utf-8"

// Store persists rendered pages.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// CleanKey validates key and returns it in canonical slash form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

// Options configures Snapshot.
type Options struct {
	// Title is the page title.
	Title string

	// Lang is the html lang attribute. Default: "en".
	Lang string

	// StyleSheets are linked from the page head.
	StyleSheets []string

	// Pretty indents the output.
	Pretty bool

	// Engine configures the one-shot engine.
	Engine fiber.Options
}

// Render renders el to a complete static HTML page.
func Render(el *vdom.Element, opts Options) ([]byte, error) {
	body, err := render.Mount(el, opts.Engine)
	if err != nil {
		return nil, err
	}
	r := render.NewRenderer(render.RendererConfig{
		Pretty:              opts.Pretty,
		OmitListenerMarkers: true,
	})
	var buf bytes.Buffer
	err = r.RenderPage(&buf, render.PageData{
		Body:        body,
		Title:       opts.Title,
		Lang:        opts.Lang,
		StyleSheets: opts.StyleSheets,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Snapshot renders el and stores the page under key.
func Snapshot(ctx context.Context, store Store, key string, el *vdom.Element, opts Options) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	page, err := Render(el, opts)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, ContentTypeHTML, page)
}
