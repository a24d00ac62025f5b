package manifest

import (
	"fmt"
	"sort"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// extendsGraph maps a model name to the model it extends, if any.
type extendsGraph map[string][]string

// resolveOrder returns declaration names with every parent ahead of its
// children. Siblings keep declaration order.
func resolveOrder(decls []decl, byName map[string]*decl) ([]string, error) {
	graph := make(extendsGraph, len(decls))
	for _, d := range decls {
		graph[d.name] = []string{}
		if d.extends == "" {
			continue
		}
		if _, ok := byName[d.extends]; !ok {
			return nil, &Error{
				Code:    ErrCodeUnknownParent,
				Model:   d.name,
				Message: fmt.Sprintf("extends undeclared model %q", d.extends),
				Pos:     d.pos,
			}
		}
		graph[d.name] = append(graph[d.name], d.extends)
	}

	if cycle := findCycle(graph); cycle != nil {
		first := byName[cycle[0]]
		return nil, &Error{
			Code:    ErrCodeCycle,
			Model:   first.name,
			Message: "extends cycle: " + strings.Join(cycle, " → "),
			Pos:     first.pos,
		}
	}

	order := make([]string, 0, len(decls))
	placed := make(map[string]bool, len(decls))
	var place func(name string)
	place = func(name string) {
		if placed[name] {
			return
		}
		if parent := byName[name].extends; parent != "" {
			place(parent)
		}
		placed[name] = true
		order = append(order, name)
	}
	for _, d := range decls {
		place(d.name)
	}
	return order, nil
}

// findCycle returns the first extends cycle as a closed path, or nil.
func findCycle(graph extendsGraph) []string {
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			return cyclePath(scc, graph)
		}
	}
	return nil
}

func hasSelfLoop(node string, graph extendsGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components. Nodes are visited in
// sorted order so the reported cycle is stable.
func tarjanSCC(graph extendsGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cyclePath walks the single outgoing edge of each member from the
// smallest name until it returns to the start.
func cyclePath(scc []string, graph extendsGraph) []string {
	start := scc[0]
	for _, node := range scc[1:] {
		if node < start {
			start = node
		}
	}

	path := []string{start}
	for current := start; ; {
		next := graph[current][0]
		path = append(path, next)
		if next == start {
			return path
		}
		current = next
	}
}

// cueError wraps a CUE error, keeping its first position.
func cueError(code ErrorCode, model, context string, err error) *Error {
	e := &Error{Code: code, Model: model, Message: context, Err: err}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		e.Message += ": " + err.Error()
		return e
	}
	format, args := errs[0].Msg()
	e.Message += ": " + fmt.Sprintf(format, args...)
	if path := errs[0].Path(); len(path) > 0 {
		e.Message += " (at " + strings.Join(path, ".") + ")"
	}
	if positions := cueerrors.Positions(errs[0]); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
