package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/sexp"
)

// Growth warning levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// GrowthWarning describes a group of rules that can trigger each other.
type GrowthWarning struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// AnalyzeGrowth reports groups of rules that may keep re-triggering each
// other.
//
// Rule a feeds rule b when a's right-hand side builds an operator that
// roots b's left-hand side, or when b's left-hand side is a bare variable
// and a builds anything at all. Every strongly connected group of the
// resulting graph (and every rule that feeds itself) is reported. A group
// containing a rule whose right-hand side is larger than its left-hand
// side can enlarge the graph indefinitely and is reported at
// LevelWarning; other groups only shuffle equal terms and are LevelInfo.
//
// Rules that fail to parse are skipped; run Validate first.
func AnalyzeGrowth(rs *RuleSet) []GrowthWarning {
	lang, err := Lang(rs.Language)
	if err != nil {
		return nil
	}
	type parsed struct {
		lhs, rhs *pattern.Pattern
	}
	var (
		names []string
		pats  []parsed
	)
	for _, r := range rs.Rules {
		lhs, lerr := sexp.ParsePattern(lang, r.LHS)
		rhs, rerr := sexp.ParsePattern(lang, r.RHS)
		if lerr != nil || rerr != nil {
			continue
		}
		names = append(names, r.Name)
		pats = append(pats, parsed{lhs, rhs})
		if r.Bidirectional {
			names = append(names, r.Name+"-rev")
			pats = append(pats, parsed{rhs, lhs})
		}
	}

	graph := make([][]int, len(pats))
	for a, pa := range pats {
		built := builtOps(pa.rhs)
		if len(built) == 0 {
			continue
		}
		for b, pb := range pats {
			if pb.lhs.IsVar() || built[opKey(pb.lhs)] {
				graph[a] = append(graph[a], b)
			}
		}
	}

	var warnings []GrowthWarning
	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 && !hasSelfLoop(graph, scc[0]) {
			continue
		}
		level := LevelInfo
		for _, i := range scc {
			if pats[i].rhs.Size() > pats[i].lhs.Size() {
				level = LevelWarning
				break
			}
		}
		path := cyclePath(graph, scc)
		named := make([]string, len(path))
		for i, n := range path {
			named[i] = names[n]
		}
		msg := "rules feed each other: " + strings.Join(named, " -> ")
		if level == LevelWarning {
			msg = "rules can grow the graph without bound: " + strings.Join(named, " -> ")
		}
		warnings = append(warnings, GrowthWarning{Path: named, Message: msg, Level: level})
	}
	return warnings
}

// opKey identifies the root operator of a non-variable pattern.
func opKey(p *pattern.Pattern) string {
	return fmt.Sprintf("%s/%d", p.Op, len(p.Args))
}

// builtOps returns the operators a right-hand side constructs.
func builtOps(p *pattern.Pattern) map[string]bool {
	ops := make(map[string]bool)
	var walk func(*pattern.Pattern)
	walk = func(q *pattern.Pattern) {
		if q.IsVar() {
			return
		}
		ops[opKey(q)] = true
		for _, a := range q.Args {
			walk(a)
		}
	}
	walk(p)
	return ops
}

func hasSelfLoop(graph [][]int, n int) bool {
	for _, m := range graph[n] {
		if m == n {
			return true
		}
	}
	return false
}

// tarjanSCC returns the strongly connected components of graph. Nodes are
// visited in index order so the output is deterministic; each component
// is sorted ascending.
func tarjanSCC(graph [][]int) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, len(graph))
		lowlink = make([]int, len(graph))
		onStack = make([]bool, len(graph))
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var connect func(int)
	connect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if indices[w] < 0 {
				connect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for v := range graph {
		if indices[v] < 0 {
			connect(v)
		}
	}
	return sccs
}

// cyclePath walks a cycle through scc starting at its first member.
func cyclePath(graph [][]int, scc []int) []int {
	start := scc[0]
	if len(scc) == 1 {
		return []int{start, start}
	}
	in := make(map[int]bool, len(scc))
	for _, n := range scc {
		in[n] = true
	}
	path := []int{start}
	visited := map[int]bool{start: true}
	current := start
	for {
		next := -1
		for _, m := range graph[current] {
			if in[m] && m != current && (!visited[m] || m == start) {
				next = m
				break
			}
		}
		if next < 0 {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}
