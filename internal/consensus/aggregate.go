package consensus

import (
	"github.com/apurv101/openbet/internal/domain"
)

// aggregateScore returns the arithmetic mean of round-2 dependency scores.
func aggregateScore(judgments map[string]domain.Judgment) float64 {
	if len(judgments) == 0 {
		return 0
	}
	var sum float64
	for _, j := range judgments {
		sum += j.DependencyScore
	}
	return sum / float64(len(judgments))
}

// majorityKind picks the consensus relation kind from round-2 judgments.
// Vote count wins; ties fall to the kind whose voters carried the highest
// average constraint confidence, then to the fixed priority order. Judgments
// with no known kind abstain; no votes at all yields the empty kind.
func majorityKind(judgments map[string]domain.Judgment) domain.ConstraintKind {
	votes := map[domain.ConstraintKind]int{}
	confSum := map[domain.ConstraintKind]float64{}
	for _, j := range judgments {
		if j.Kind == "" {
			continue
		}
		votes[j.Kind]++
		confSum[j.Kind] += kindConfidence(j)
	}
	if len(votes) == 0 {
		return ""
	}

	var winner domain.ConstraintKind
	for kind := range votes {
		if winner == "" {
			winner = kind
			continue
		}
		if beats(kind, winner, votes, confSum) {
			winner = kind
		}
	}
	return winner
}

func beats(a, b domain.ConstraintKind, votes map[domain.ConstraintKind]int, confSum map[domain.ConstraintKind]float64) bool {
	if votes[a] != votes[b] {
		return votes[a] > votes[b]
	}
	avgA := confSum[a] / float64(votes[a])
	avgB := confSum[b] / float64(votes[b])
	if avgA != avgB {
		return avgA > avgB
	}
	return domain.KindPriority(a) < domain.KindPriority(b)
}

// kindConfidence is the average confidence of a judgment's constraints
// matching its own kind vote.
func kindConfidence(j domain.Judgment) float64 {
	var sum float64
	n := 0
	for _, c := range j.Constraints {
		if c.Kind == j.Kind {
			sum += c.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// mergeConstraints unions round-2 constraint sets and deduplicates them by
// (kind, normalized description), keeping the highest confidence.
func mergeConstraints(judgments map[string]domain.Judgment, providers []string) []domain.Constraint {
	var all []domain.Constraint
	// Iterate in a stable provider order so dedup keeps a deterministic
	// first-appearance ordering.
	for _, name := range providers {
		j, ok := judgments[name]
		if !ok {
			continue
		}
		all = append(all, j.Constraints...)
	}
	return domain.DedupeConstraints(all)
}

// convergence reports the mean and max absolute score shift for providers
// present in both rounds.
func convergence(round1, round2 map[string]domain.Judgment) domain.ConvergenceMetrics {
	var shifts []float64
	for name, r2 := range round2 {
		r1, ok := round1[name]
		if !ok {
			continue
		}
		shift := r2.DependencyScore - r1.DependencyScore
		if shift < 0 {
			shift = -shift
		}
		shifts = append(shifts, shift)
	}
	if len(shifts) == 0 {
		return domain.ConvergenceMetrics{}
	}

	var sum, max float64
	for _, s := range shifts {
		sum += s
		if s > max {
			max = s
		}
	}
	return domain.ConvergenceMetrics{
		MeanScoreShift: sum / float64(len(shifts)),
		MaxScoreShift:  max,
	}
}
