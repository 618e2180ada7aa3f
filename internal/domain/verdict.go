package domain

import "time"

// AnalysisMode distinguishes full two-round consensus verdicts from cheap
// single-provider screening verdicts. The two are stored and queried
// separately and never conflated.
type AnalysisMode string

const (
	ModeFull      AnalysisMode = "full"
	ModeScreening AnalysisMode = "screening"
)

// DependenceThreshold is the dependency score at or above which a pair is
// considered dependent.
const DependenceThreshold = 0.5

// Judgment is one estimator's structured answer for a pair: how dependent
// the two events are and which logical constraints link them.
type Judgment struct {
	Provider        string
	DependencyScore float64
	Dependent       bool
	Kind            ConstraintKind
	Constraints     []Constraint
	Rationale       string
}

// ConvergenceMetrics summarizes how much estimator scores moved between
// consensus rounds.
type ConvergenceMetrics struct {
	MeanScoreShift float64
	MaxScoreShift  float64
}

// Verdict is the consensus engine's full two-round output for a pair.
// A verdict is never updated in place except to attach human verification;
// re-analysis inserts a new verdict and leaves prior ones intact.
type Verdict struct {
	ID              string
	PairKey         string
	Mode            AnalysisMode
	DependencyScore float64
	Dependent       bool
	Kind            ConstraintKind
	Constraints     []Constraint
	Round1          map[string]Judgment // provider -> round-1 judgment, kept for audit
	Round2          map[string]Judgment // provider -> round-2 judgment
	Convergence     ConvergenceMetrics
	ProviderCount   int
	Verified        bool
	VerifiedNote    string
	FromCache       bool
	CreatedAt       time.Time
}

// ScreeningVerdict is the degraded single-provider, single-round result used
// to triage large candidate pools. It carries no constraints.
type ScreeningVerdict struct {
	ID              string
	PairKey         string
	DependencyScore float64
	Dependent       bool
	Provider        string
	Rationale       string
	CreatedAt       time.Time
}

// Mode always reports ModeScreening; it exists so both verdict types can be
// filtered by the mode that produced them.
func (ScreeningVerdict) Mode() AnalysisMode { return ModeScreening }
