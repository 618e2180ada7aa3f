package domain

import "strings"

// ConstraintKind classifies a logical relation between outcomes of two events.
type ConstraintKind string

const (
	ConstraintImplication     ConstraintKind = "implication"
	ConstraintMutualExclusion ConstraintKind = "mutual_exclusion"
	ConstraintConjunction     ConstraintKind = "conjunction"
	ConstraintEquivalence     ConstraintKind = "equivalence"
)

// KnownConstraintKind reports whether k is one of the supported kinds.
func KnownConstraintKind(k ConstraintKind) bool {
	switch k {
	case ConstraintImplication, ConstraintMutualExclusion, ConstraintConjunction, ConstraintEquivalence:
		return true
	}
	return false
}

// kindPriority is the fixed tie-break order for dominant-kind votes.
var kindPriority = map[ConstraintKind]int{
	ConstraintImplication:     0,
	ConstraintMutualExclusion: 1,
	ConstraintConjunction:     2,
	ConstraintEquivalence:     3,
}

// KindPriority returns the fixed priority rank of a kind; lower wins ties.
// Unknown kinds sort last.
func KindPriority(k ConstraintKind) int {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return len(kindPriority)
}

// Constraint is a typed logical relation between outcomes of the two events
// in a pair. Constraints are immutable once attached to a verdict.
type Constraint struct {
	Kind             ConstraintKind
	Description      string
	FormalExpression string // e.g. "A => B" or "A ∧ B = FALSE"
	Confidence       float64
}

// DedupKey returns the identity used for deduplication: the kind plus the
// normalized description.
func (c Constraint) DedupKey() string {
	return string(c.Kind) + "|" + NormalizeDescription(c.Description)
}

// NormalizeDescription lowercases a constraint description and collapses
// internal whitespace so cosmetically different duplicates compare equal.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DedupeConstraints merges constraints by (kind, normalized description),
// keeping the highest confidence among duplicates. Order of first appearance
// is preserved.
func DedupeConstraints(constraints []Constraint) []Constraint {
	seen := make(map[string]int, len(constraints))
	out := make([]Constraint, 0, len(constraints))
	for _, c := range constraints {
		key := c.DedupKey()
		if i, ok := seen[key]; ok {
			if c.Confidence > out[i].Confidence {
				out[i].Confidence = c.Confidence
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}
	return out
}
