package fiber

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// commit applies the finished work-in-progress generation to the surface and
// promotes it to current. Deletions are applied first. On failure the
// generation is dropped and the previous current generation is kept. Host
// nodes placed by the failed pass are detached again and deleted subtrees that
// already left the surface are unlinked from the current generation, so the
// surface and the current generation agree for the next pass. Prop updates are
// not rolled back.
func (e *Engine) commit() error {
	e.state = StateCommitting
	e.busy = true
	defer func() { e.busy = false }()

	_, span := e.tracer.Start(context.Background(), "loom.commit")
	defer span.End()

	start := time.Now()
	stats := CommitStats{Units: e.units}

	batcher, _ := e.surface.(CommitBatcher)
	if batcher != nil {
		batcher.BeginCommit()
	}
	var placed []placement
	applied, err := e.commitDeletions(&stats)
	if err == nil {
		placed, err = e.commitWork(&stats)
	}
	if err != nil {
		e.revertPlacements(placed)
	}
	if batcher != nil {
		if endErr := batcher.EndCommit(); endErr != nil && err == nil {
			err = surfaceError("flush", endErr)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		for _, d := range e.deletions[:applied] {
			e.current.unlink(d.h)
		}
		e.abandon()
		return err
	}

	e.current = e.wip
	e.current.compactHooks()
	e.wip = nil
	e.next = None
	e.deletions = nil
	e.state = StateIdle
	stats.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("loom.units", stats.Units),
		attribute.Int("loom.placements", stats.Placements),
		attribute.Int("loom.updates", stats.Updates),
		attribute.Int("loom.deletions", stats.Deletions),
	)
	e.logger.Debug("committed",
		"units", stats.Units,
		"placements", stats.Placements,
		"updates", stats.Updates,
		"deletions", stats.Deletions,
		"render", time.Since(e.started)-stats.Duration,
		"commit", stats.Duration,
	)
	if e.opts.Observer != nil {
		e.opts.Observer.Committed(stats)
	}

	if e.pending {
		e.pending = false
		e.busy = false
		e.scheduleUpdate()
	}
	return nil
}

// commitDeletions detaches the top host nodes of every deleted subtree from
// the nearest host ancestor in the current generation. It returns how many
// deletions reached the surface, a partially detached subtree included.
func (e *Engine) commitDeletions(stats *CommitStats) (int, error) {
	var hosts []HostNode
	for i, d := range e.deletions {
		parent := e.current.hostParent(d.h)
		if parent == nil {
			continue
		}
		hosts = e.current.topHosts(d.h, hosts[:0])
		for j, n := range hosts {
			if err := e.surface.Detach(parent, n); err != nil {
				if j > 0 {
					i++
				}
				return i, surfaceError("detach", err)
			}
			stats.Deletions++
		}
	}
	return len(e.deletions), nil
}

type placement struct {
	parent, node HostNode
}

// revertPlacements detaches placed nodes in reverse order. Failures are
// logged and skipped.
func (e *Engine) revertPlacements(placed []placement) {
	for i := len(placed) - 1; i >= 0; i-- {
		p := placed[i]
		if err := e.surface.Detach(p.parent, p.node); err != nil {
			e.logger.Warn("revert placement failed", "error", err)
		}
	}
}

// commitWork walks the work-in-progress tree in pre-order and applies
// placements and updates. It returns the placements that reached the surface.
func (e *Engine) commitWork(stats *CommitStats) ([]placement, error) {
	var placed []placement
	g := e.wip
	inserter, _ := e.surface.(Inserter)

	for h := g.At(0).Child; h != None; h = g.nextPreOrder(h, true) {
		f := g.At(h)
		if f.Host == nil {
			continue
		}
		switch f.Effect {
		case EffectPlace:
			parent := g.hostParent(h)
			if parent == nil {
				continue
			}
			var err error
			if before := e.hostSibling(h); before != nil && inserter != nil {
				err = inserter.InsertBefore(parent, f.Host, before)
			} else {
				err = e.surface.Attach(parent, f.Host)
			}
			if err != nil {
				return placed, surfaceError("attach", err)
			}
			placed = append(placed, placement{parent, f.Host})
			stats.Placements++
		case EffectUpdate:
			prev := e.current.At(f.Alternate).Props
			if err := e.surface.ApplyProps(f.Host, prev, f.Props); err != nil {
				return placed, surfaceError("props", err)
			}
			stats.Updates++
		}
	}
	return placed, nil
}

// hostSibling returns the host node that a placement at h must be inserted
// before: the first following host node under the same host parent that is
// already on the surface. Placed fibers are skipped since they are not
// attached yet; components are searched through.
func (e *Engine) hostSibling(h Handle) HostNode {
	g := e.wip
	node := h
siblings:
	for {
		for g.At(node).Sibling == None {
			p := g.At(node).Parent
			if p == None || g.At(p).Host != nil {
				return nil
			}
			node = p
		}
		node = g.At(node).Sibling
		for g.At(node).Host == nil {
			f := g.At(node)
			if f.Effect == EffectPlace || f.Child == None {
				continue siblings
			}
			node = f.Child
		}
		if g.At(node).Effect != EffectPlace {
			return g.At(node).Host
		}
	}
}
