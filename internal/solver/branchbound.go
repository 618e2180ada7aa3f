package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/apurv101/openbet/internal/domain"
)

// deadlineCheckInterval controls how often the search polls the context.
const deadlineCheckInterval = 256

// Solve finds a minimum-cost feasible 0/1 assignment for the problem.
// It returns domain.ErrSolverInfeasible when no assignment satisfies all
// constraints, and domain.ErrSolverTimeout when the context expires before
// the search completes.
func Solve(ctx context.Context, p Problem) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{}, err
	}
	select {
	case <-ctx.Done():
		return Solution{}, fmt.Errorf("%w: %v", domain.ErrSolverTimeout, ctx.Err())
	default:
	}

	s := &search{
		p:      p,
		assign: make([]int, p.NumVars),
		best:   math.Inf(1),
	}
	for i := range s.assign {
		s.assign[i] = -1 // unassigned
	}

	if err := s.branch(ctx, 0, 0); err != nil {
		return Solution{}, err
	}
	if s.bestAssign == nil {
		return Solution{}, domain.ErrSolverInfeasible
	}
	return Solution{Objective: s.best, Values: s.bestAssign}, nil
}

type search struct {
	p          Problem
	assign     []int
	best       float64
	bestAssign []int
	nodes      int
}

// branch explores assignments for variables idx..n-1. cost is the objective
// contribution of the variables assigned so far; since all remaining
// variables may take value 0, cost is a valid lower bound only when no
// objective coefficient is negative, so negative coefficients contribute
// their value to the bound up front.
func (s *search) branch(ctx context.Context, idx int, cost float64) error {
	s.nodes++
	if s.nodes%deadlineCheckInterval == 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrSolverTimeout, ctx.Err())
		default:
		}
	}

	if bound := cost + s.negativeTail(idx); bound >= s.best {
		return nil
	}
	if !s.feasiblePartial() {
		return nil
	}

	if idx == s.p.NumVars {
		// Full assignment; feasiblePartial already verified every constraint
		// with no remaining slack.
		if cost < s.best {
			s.best = cost
			s.bestAssign = append([]int(nil), s.assign...)
		}
		return nil
	}

	// Try the cheaper value first so the incumbent tightens early.
	order := [2]int{0, 1}
	if s.p.Objective[idx] < 0 {
		order = [2]int{1, 0}
	}
	for _, v := range order {
		s.assign[idx] = v
		next := cost
		if v == 1 {
			next += s.p.Objective[idx]
		}
		if err := s.branch(ctx, idx+1, next); err != nil {
			s.assign[idx] = -1
			return err
		}
	}
	s.assign[idx] = -1
	return nil
}

// negativeTail returns the sum of negative objective coefficients among
// variables not yet assigned, the most those variables could still reduce
// the objective by.
func (s *search) negativeTail(idx int) float64 {
	var tail float64
	for i := idx; i < s.p.NumVars; i++ {
		if s.p.Objective[i] < 0 {
			tail += s.p.Objective[i]
		}
	}
	return tail
}

// feasiblePartial reports whether the current partial assignment can still
// be extended to satisfy every constraint. For each constraint it computes
// the minimum and maximum achievable left-hand side given the fixed
// variables and prunes when the constraint is already violated in every
// extension.
func (s *search) feasiblePartial() bool {
	const eps = 1e-9
	for _, c := range s.p.Constraints {
		var lo, hi float64
		for _, t := range c.Terms {
			switch s.assign[t.Var] {
			case 1:
				lo += t.Coeff
				hi += t.Coeff
			case -1:
				if t.Coeff > 0 {
					hi += t.Coeff
				} else {
					lo += t.Coeff
				}
			}
		}
		switch c.Sense {
		case LE:
			if lo > c.RHS+eps {
				return false
			}
		case GE:
			if hi < c.RHS-eps {
				return false
			}
		case EQ:
			if lo > c.RHS+eps || hi < c.RHS-eps {
				return false
			}
		}
	}
	return true
}
