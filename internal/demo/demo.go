// Package demo holds the example applications served and exported by the
// loom command.
package demo

import (
	"sort"
	"strings"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/vdom"
)

// App builds the root element of a demo. Each call returns a fresh tree so
// every session gets its own component state.
type App func() *vdom.Element

var apps = map[string]App{
	"counter": func() *vdom.Element { return vdom.C(Counter, vdom.Props{"start": 0}) },
	"todo":    func() *vdom.Element { return vdom.C(Todo, nil) },
}

// Names returns the registered demo names, sorted.
func Names() []string {
	names := make([]string, 0, len(apps))
	for name := range apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the demo registered under name.
func Lookup(name string) (App, error) {
	app, ok := apps[name]
	if !ok {
		return nil, errors.New("E030").
			WithDetailf("no demo named %q", name).
			WithSuggestion("Available demos: " + strings.Join(Names(), ", "))
	}
	return app, nil
}
