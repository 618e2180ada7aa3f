package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apurv101/openbet/internal/domain"
)

// exactlyOne builds a sum(vars) == 1 constraint.
func exactlyOne(label string, vars ...int) Constraint {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coeff: 1}
	}
	return Constraint{Label: label, Terms: terms, Sense: EQ, RHS: 1}
}

func TestSolveUnconstrainedPicksCheapestPerGroup(t *testing.T) {
	// Two groups of outcomes, structural exactly-one each, no logical links.
	p := Problem{
		NumVars:   4,
		Objective: []float64{0.48, 0.52, 0.32, 0.68},
		Constraints: []Constraint{
			exactlyOne("group_a", 0, 1),
			exactlyOne("group_b", 2, 3),
		},
	}

	sol, err := Solve(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 0.48+0.32, sol.Objective, 1e-9)
	assert.Equal(t, []int{1, 0, 1, 0}, sol.Values)
}

func TestSolveImplicationConstraint(t *testing.T) {
	// Vars: 0=A-yes 1=A-no 2=B-yes 3=B-no, with B-yes => A-yes (x2 <= x0).
	p := Problem{
		NumVars:   4,
		Objective: []float64{0.48, 0.52, 0.32, 0.68},
		Constraints: []Constraint{
			exactlyOne("group_a", 0, 1),
			exactlyOne("group_b", 2, 3),
			{Label: "b_yes_implies_a_yes", Terms: []Term{{Var: 2, Coeff: 1}, {Var: 0, Coeff: -1}}, Sense: LE, RHS: 0},
		},
	}

	sol, err := Solve(context.Background(), p)
	require.NoError(t, err)
	// Feasible combos: (A=yes,B=yes)=0.80, (A=yes,B=no)=1.16, (A=no,B=no)=1.20.
	assert.InDelta(t, 0.80, sol.Objective, 1e-9)
	assert.Equal(t, []int{1, 0, 1, 0}, sol.Values)
}

func TestSolveInfeasible(t *testing.T) {
	// x0 == 1 and x0 == 0 simultaneously.
	p := Problem{
		NumVars:   1,
		Objective: []float64{0.5},
		Constraints: []Constraint{
			{Label: "force_on", Terms: []Term{{Var: 0, Coeff: 1}}, Sense: GE, RHS: 1},
			{Label: "force_off", Terms: []Term{{Var: 0, Coeff: 1}}, Sense: LE, RHS: 0},
		},
	}

	_, err := Solve(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrSolverInfeasible)
}

func TestSolveContradictoryLogicalConstraints(t *testing.T) {
	// B-yes => A-yes combined with mutual exclusion of the same pair, with
	// B-yes forced: no assignment satisfies both.
	p := Problem{
		NumVars:   4,
		Objective: []float64{0.4, 0.6, 0.3, 0.7},
		Constraints: []Constraint{
			exactlyOne("group_a", 0, 1),
			exactlyOne("group_b", 2, 3),
			{Label: "implies", Terms: []Term{{Var: 2, Coeff: 1}, {Var: 0, Coeff: -1}}, Sense: LE, RHS: 0},
			{Label: "excludes", Terms: []Term{{Var: 2, Coeff: 1}, {Var: 0, Coeff: 1}}, Sense: LE, RHS: 1},
			{Label: "force_b_yes", Terms: []Term{{Var: 2, Coeff: 1}}, Sense: GE, RHS: 1},
		},
	}

	_, err := Solve(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrSolverInfeasible)
}

func TestSolveTimeout(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	// Large enough that the search cannot finish before the first deadline
	// poll with an already-expired context.
	n := 24
	obj := make([]float64, n)
	for i := range obj {
		obj[i] = float64(i%7)/10 + 0.01
	}
	p := Problem{NumVars: n, Objective: obj}

	_, err := Solve(ctx, p)
	assert.ErrorIs(t, err, domain.ErrSolverTimeout)
}

func TestValidateRejectsBadProblems(t *testing.T) {
	_, err := Solve(context.Background(), Problem{})
	assert.Error(t, err)

	p := Problem{
		NumVars:   1,
		Objective: []float64{0.1},
		Constraints: []Constraint{
			{Label: "bad_var", Terms: []Term{{Var: 3, Coeff: 1}}, Sense: LE, RHS: 1},
		},
	}
	_, err = Solve(context.Background(), p)
	assert.Error(t, err)
}
