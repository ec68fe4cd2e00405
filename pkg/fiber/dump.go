package fiber

import (
	"fmt"

	tp "github.com/xlab/treeprint"

	"github.com/vango-dev/loom/pkg/vdom"
)

// Dump renders a generation as an indented tree, one line per fiber:
//
//	.
//	└── #root [Update]
//	    └── <Counter> [Update] hooks=1
//	        └── button [Update]
//	            └── "Count: 1" [Update]
func Dump(g *Generation) string {
	p := tp.New()
	if g.Len() == 0 {
		p.AddNode("<empty>")
		return p.String()
	}
	dumpFiber(p, g, 0)
	return p.String()
}

func dumpFiber(p tp.Tree, g *Generation, h Handle) {
	f := g.At(h)
	if f.Child == None {
		p.AddNode(fiberLabel(f))
		return
	}
	branch := p.AddBranch(fiberLabel(f))
	for c := f.Child; c != None; c = g.At(c).Sibling {
		dumpFiber(branch, g, c)
	}
}

func fiberLabel(f *Fiber) string {
	var s string
	if f.Type.Kind == vdom.KindText {
		s = fmt.Sprintf("%q", f.Props[vdom.TextValueProp])
	} else {
		s = f.Type.String()
	}
	s += " [" + f.Effect.String() + "]"
	if n := len(f.Hooks); n > 0 {
		s += fmt.Sprintf(" hooks=%d", n)
	}
	return s
}
