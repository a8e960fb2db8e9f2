package parse

import "github.com/tedgoddard/Stanford/internal/config"

// Selection names the strategies preferred for the canonical tree and the
// canonical dependencies.
type Selection struct {
	TreeStrategy       string
	DependencyStrategy string
}

// Canonical is the outcome of selection. TreeIndex is the position of the
// candidate that supplied Tree.
type Canonical struct {
	Tree         string
	Dependencies string
	Strategy     string
	TreeIndex    int
}

// Select picks the canonical tree and dependencies from candidates in
// generation order. A preference with no matching candidate falls back to
// PCFG, and then to the first candidate carrying the field.
func Select(candidates []Candidate, sel Selection) (Canonical, error) {
	hasTree := func(c Candidate) bool { return c.Tree != "" }
	hasDeps := func(c Candidate) bool { return c.Dependencies != "" }

	ti := pick(candidates, hasTree, sel.TreeStrategy, config.StrategyPCFG)
	if ti < 0 {
		return Canonical{}, ErrNoCanonicalTree
	}
	out := Canonical{
		Tree:      candidates[ti].Tree,
		Strategy:  candidates[ti].Strategy,
		TreeIndex: ti,
	}
	if di := pick(candidates, hasDeps, sel.DependencyStrategy, config.StrategyPCFG); di >= 0 {
		out.Dependencies = candidates[di].Dependencies
	}
	return out, nil
}

func pick(candidates []Candidate, has func(Candidate) bool, ids ...string) int {
	for _, id := range ids {
		for i, c := range candidates {
			if c.Strategy == id && has(c) {
				return i
			}
		}
	}
	for i, c := range candidates {
		if has(c) {
			return i
		}
	}
	return -1
}
