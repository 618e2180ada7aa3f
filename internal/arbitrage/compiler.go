// Package arbitrage compiles verified logical constraints between two events
// into a binary integer program and extracts the minimum-cost covering
// portfolio from its solution.
package arbitrage

import (
	"strings"
	"unicode"

	"github.com/apurv101/openbet/internal/domain"
	"github.com/apurv101/openbet/internal/solver"
)

// Link is a constraint whose endpoints have been resolved to concrete outcome
// indices: index A in the first event's outcome set, index B in the second's.
// For implications, Reversed marks B's outcome as the antecedent.
type Link struct {
	Kind     domain.ConstraintKind
	AIndex   int
	BIndex   int
	Reversed bool
	Source   domain.Constraint
}

// ResolveLinks maps verdict constraints onto outcome indices of the two sets.
// An outcome is matched when its ticker or label appears in the constraint's
// description or formal expression (case-insensitive). For binary yes/no sets
// with no outcome named, the YES outcome of each event is assumed, matching
// how estimators phrase event-level relations. Constraints below minConfidence
// or with an unknown kind are dropped; the second return value counts drops.
func ResolveLinks(setA, setB domain.OutcomeSet, constraints []domain.Constraint, minConfidence float64) ([]Link, int) {
	links := make([]Link, 0, len(constraints))
	dropped := 0
	for _, c := range constraints {
		if c.Confidence < minConfidence || !domain.KnownConstraintKind(c.Kind) {
			dropped++
			continue
		}
		text := strings.ToLower(c.Description + " " + c.FormalExpression)
		ai := matchOutcome(setA, text)
		bi := matchOutcome(setB, text)
		if ai < 0 || bi < 0 {
			dropped++
			continue
		}
		l := Link{Kind: c.Kind, AIndex: ai, BIndex: bi, Source: c}
		if c.Kind == domain.ConstraintImplication {
			l.Reversed = antecedentIsB(c, setA.Outcomes[ai], setB.Outcomes[bi])
		}
		links = append(links, l)
	}
	return links, dropped
}

var implicationMarkers = []string{"=>", "->", "⇒", " implies ", " then "}

// antecedentIsB reports whether the implication's antecedent refers to event
// B's outcome rather than event A's. The text left of the implication marker
// is matched against both resolved outcomes; when no marker or no match is
// found the A outcome is taken as the antecedent.
func antecedentIsB(c domain.Constraint, a, b domain.Outcome) bool {
	for _, text := range []string{c.FormalExpression, c.Description} {
		text = strings.ToLower(text)
		for _, marker := range implicationMarkers {
			idx := strings.Index(text, marker)
			if idx < 0 {
				continue
			}
			lhs := text[:idx]
			if refersTo(lhs, b) && !refersTo(lhs, a) {
				return true
			}
			return false
		}
	}
	return false
}

func refersTo(text string, o domain.Outcome) bool {
	tokens := tokenize(text)
	if o.Ticker != "" && tokens[strings.ToLower(o.Ticker)] {
		return true
	}
	return o.Label != "" && tokens[strings.ToLower(o.Label)]
}

// matchOutcome returns the index of the outcome referenced in text, the YES
// (or first) outcome as a fallback for binary sets, or -1 when the set is
// empty or ambiguous. Tickers and labels must appear as whole tokens so that
// short labels like "No" cannot match inside unrelated words.
func matchOutcome(set domain.OutcomeSet, text string) int {
	if len(set.Outcomes) == 0 {
		return -1
	}
	tokens := tokenize(text)
	for i, o := range set.Outcomes {
		if o.Ticker != "" && tokens[strings.ToLower(o.Ticker)] {
			return i
		}
	}
	for i, o := range set.Outcomes {
		if o.Label != "" && tokens[strings.ToLower(o.Label)] {
			return i
		}
	}
	if len(set.Outcomes) == 2 {
		for i, o := range set.Outcomes {
			if strings.EqualFold(o.Label, "yes") {
				return i
			}
		}
		return 0
	}
	return -1
}

// tokenize splits lowercased text into a token set, keeping hyphens so that
// ticker references survive intact.
func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[strings.Trim(f, "-")] = true
	}
	return tokens
}

// Compile builds the binary program for the two outcome sets and resolved
// links. Variables 0..len(A)-1 are event A's outcomes, the rest event B's;
// each takes value 1 iff that outcome is bought.
//
// Encodings, applied uniformly:
//
//	implication       x_a <= x_b (antecedent <= consequent, per Link.Reversed)
//	mutual exclusion  x_a + x_b <= 1
//	conjunction       x_a <= x_b and x_b <= x_a (the two implications)
//	equivalence       both implication directions (same encoding as conjunction)
func Compile(setA, setB domain.OutcomeSet, links []Link) solver.Problem {
	nA := len(setA.Outcomes)
	nB := len(setB.Outcomes)
	p := solver.Problem{
		NumVars:   nA + nB,
		Objective: make([]float64, nA+nB),
	}
	for i, o := range setA.Outcomes {
		p.Objective[i] = o.Price
	}
	for i, o := range setB.Outcomes {
		p.Objective[nA+i] = o.Price
	}

	// Structural: each event resolves to exactly one outcome.
	aVars := make([]solver.Term, nA)
	for i := range aVars {
		aVars[i] = solver.Term{Var: i, Coeff: 1}
	}
	p.AddConstraint("one_outcome_"+setA.EventTicker, aVars, solver.EQ, 1)

	bVars := make([]solver.Term, nB)
	for i := range bVars {
		bVars[i] = solver.Term{Var: nA + i, Coeff: 1}
	}
	p.AddConstraint("one_outcome_"+setB.EventTicker, bVars, solver.EQ, 1)

	for _, l := range links {
		a := l.AIndex
		b := nA + l.BIndex
		switch l.Kind {
		case domain.ConstraintImplication:
			if l.Reversed {
				p.AddConstraint("implication", implies(b, a), solver.LE, 0)
			} else {
				p.AddConstraint("implication", implies(a, b), solver.LE, 0)
			}
		case domain.ConstraintMutualExclusion:
			p.AddConstraint("mutual_exclusion",
				[]solver.Term{{Var: a, Coeff: 1}, {Var: b, Coeff: 1}}, solver.LE, 1)
		case domain.ConstraintConjunction, domain.ConstraintEquivalence:
			p.AddConstraint("equiv_fwd", implies(a, b), solver.LE, 0)
			p.AddConstraint("equiv_rev", implies(b, a), solver.LE, 0)
		}
	}
	return p
}

// implies builds the left-hand side of x_from - x_to <= 0.
func implies(from, to int) []solver.Term {
	return []solver.Term{{Var: from, Coeff: 1}, {Var: to, Coeff: -1}}
}
