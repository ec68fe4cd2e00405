package fiber

import (
	"math"
	"time"

	"github.com/vango-dev/loom/pkg/vdom"
)

// Surface is the rendering surface the engine mutates.
//
// CreateNode and ApplyProps(node, nil, props) run during the render phase on
// nodes that are not attached yet. Attach, Detach and ApplyProps on attached
// nodes only run during commit.
type Surface interface {
	// CreateNode creates a detached node for a host or text type.
	CreateNode(t vdom.Type) (HostNode, error)

	// ApplyProps applies the difference between prev and next to n.
	// Listeners must always be bound from next, even when vdom.DiffProps
	// reports no change for them.
	ApplyProps(n HostNode, prev, next vdom.Props) error

	// Attach appends child to parent's children.
	Attach(parent, child HostNode) error

	// Detach removes child from parent.
	Detach(parent, child HostNode) error
}

// Inserter is implemented by surfaces that can insert a node before an
// existing sibling. Without it placements are appended, which keeps the
// order of freshly mounted trees but not of mixed updates and placements.
type Inserter interface {
	InsertBefore(parent, child, before HostNode) error
}

// CommitBatcher is implemented by surfaces that want to know where a commit
// starts and ends, for example to flush all mutations as one message.
type CommitBatcher interface {
	BeginCommit()
	EndCommit() error
}

// Deadline reports how much time the host allows the current slice of work.
type Deadline interface {
	TimeRemaining() time.Duration
}

// IdleScheduler is the host's cooperative scheduling primitive.
type IdleScheduler interface {
	RequestIdleCallback(fn func(Deadline))
}

// DeadlineFunc adapts a function to Deadline.
type DeadlineFunc func() time.Duration

// TimeRemaining implements Deadline.
func (f DeadlineFunc) TimeRemaining() time.Duration { return f() }

// Unlimited never asks the engine to yield.
var Unlimited Deadline = DeadlineFunc(func() time.Duration { return math.MaxInt64 })

// Budget returns a Deadline that allows exactly n units of work: it reports
// time remaining for the first n-1 samples and none afterwards.
func Budget(n int) Deadline {
	left := n
	return DeadlineFunc(func() time.Duration {
		left--
		if left > 0 {
			return time.Hour
		}
		return 0
	})
}

// At returns a Deadline expiring at t.
func At(t time.Time) Deadline {
	return DeadlineFunc(func() time.Duration { return time.Until(t) })
}
