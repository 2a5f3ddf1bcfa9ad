package flowz

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

// validate performs the execute-entry checks: every connected port belongs
// to a graph member, every component has been initialized, and cycles with
// no producer are flagged. Cycle detection is best effort; the runtime
// deadlock detector is authoritative.
func (g *Graph) validate(log *slog.Logger) error {
	names := maps.Keys(g.components)
	slices.Sort(names)
	for _, name := range names {
		c := g.components[name]
		if c.state != StateInitialized {
			return fmt.Errorf("%w: %s is %s", ErrNotInitialized, name, c.state)
		}
	}

	for _, n := range g.conns {
		if err := g.owns(n.src.component); err != nil {
			return fmt.Errorf("connection %s: %w", n.id(), err)
		}
		if err := g.owns(n.dst.component); err != nil {
			return fmt.Errorf("connection %s: %w", n.id(), err)
		}
	}

	for _, name := range names {
		for _, in := range g.components[name].Inputs() {
			if in.conn == nil && len(in.iips) == 0 && !in.optional {
				log.Warn("input port has no connection and no initial packets; receives yield end of stream immediately",
					"port", in.id())
			}
		}
	}

	g.warnProducerlessCycles(log)
	return nil
}

// warnProducerlessCycles flags cycles whose members receive no feed from
// outside the cycle and hold no initial packets. Such cycles cannot start
// and will be reported as a deadlock at runtime.
func (g *Graph) warnProducerlessCycles(log *slog.Logger) {
	children := map[string][]string{}
	for _, n := range g.conns {
		src := n.src.component.name
		children[src] = append(children[src], n.dst.component.name)
	}

	visited := map[string]bool{}
	onStack := map[string]bool{}
	reported := map[string]bool{}

	var dfs func(name string, path []string)
	dfs = func(name string, path []string) {
		visited[name] = true
		onStack[name] = true
		path = append(path, name)

		for _, child := range children[name] {
			if !visited[child] {
				dfs(child, path)
			} else if onStack[child] {
				cycle := extractCycle(path, child)
				g.reportCycle(cycle, reported, log)
			}
		}

		onStack[name] = false
	}

	names := maps.Keys(g.components)
	slices.Sort(names)
	for _, name := range names {
		if !visited[name] {
			dfs(name, nil)
		}
	}
}

// extractCycle returns the suffix of path beginning at the repeated node.
func extractCycle(path []string, start string) []string {
	for i, name := range path {
		if name == start {
			return path[i:]
		}
	}
	return path
}

func (g *Graph) reportCycle(cycle []string, reported map[string]bool, log *slog.Logger) {
	members := map[string]bool{}
	for _, name := range cycle {
		members[name] = true
	}

	// A cycle can start if any member holds IIPs or is fed from outside it.
	for _, name := range cycle {
		for _, in := range g.components[name].Inputs() {
			if len(in.iips) > 0 {
				return
			}
			if in.conn != nil && !members[in.conn.src.component.name] {
				return
			}
		}
	}

	sorted := make([]string, len(cycle))
	copy(sorted, cycle)
	slices.Sort(sorted)
	key := strings.Join(sorted, ",")
	if reported[key] {
		return
	}
	reported[key] = true
	log.Warn("cycle has no producer and may deadlock at runtime",
		"components", strings.Join(sorted, ", "))
}
