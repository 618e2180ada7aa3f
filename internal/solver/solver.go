// Package solver provides a small exact solver for binary integer programs:
// minimize a linear objective over 0/1 variables subject to linear
// (in)equality constraints. Problems produced by the arbitrage compiler are
// tiny (one variable per market outcome), so an exhaustive branch-and-bound
// search with cost pruning is both exact and fast.
package solver

import (
	"fmt"
)

// Sense is the comparison direction of a linear constraint.
type Sense int

const (
	LE Sense = iota // sum <= rhs
	GE              // sum >= rhs
	EQ              // sum == rhs
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	default:
		return "?"
	}
}

// Term is one coefficient*variable entry in a constraint's left-hand side.
type Term struct {
	Var   int
	Coeff float64
}

// Constraint is a linear constraint over the problem's binary variables.
type Constraint struct {
	Label string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a binary minimization program. Objective holds one cost
// coefficient per variable; every variable is implicitly constrained to
// {0, 1}.
type Problem struct {
	NumVars     int
	Objective   []float64
	Constraints []Constraint
}

// AddConstraint appends a constraint and returns the problem for chaining.
func (p *Problem) AddConstraint(label string, terms []Term, sense Sense, rhs float64) {
	p.Constraints = append(p.Constraints, Constraint{Label: label, Terms: terms, Sense: sense, RHS: rhs})
}

// Validate checks internal consistency of the problem definition.
func (p Problem) Validate() error {
	if p.NumVars <= 0 {
		return fmt.Errorf("solver: problem has no variables")
	}
	if len(p.Objective) != p.NumVars {
		return fmt.Errorf("solver: objective has %d coefficients for %d variables", len(p.Objective), p.NumVars)
	}
	for _, c := range p.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= p.NumVars {
				return fmt.Errorf("solver: constraint %q references unknown variable %d", c.Label, t.Var)
			}
		}
	}
	return nil
}

// Solution is an optimal assignment found by Solve.
type Solution struct {
	Objective float64
	Values    []int // 0 or 1 per variable
}
