package consensus

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/apurv101/openbet/internal/domain"
)

// pairContext renders the public description of a pair for a prompt. Only
// information both estimators may see goes here.
func pairContext(pair domain.EventPair) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EVENT A:\n  Ticker: %s\n  Title: %s\n", pair.A.Ticker, pair.A.Title)
	if pair.A.Category != "" {
		fmt.Fprintf(&b, "  Category: %s\n", pair.A.Category)
	}
	fmt.Fprintf(&b, "\nEVENT B:\n  Ticker: %s\n  Title: %s\n", pair.B.Ticker, pair.B.Title)
	if pair.B.Category != "" {
		fmt.Fprintf(&b, "  Category: %s\n", pair.B.Category)
	}
	if pair.SameSeries() {
		b.WriteString("\nBoth events belong to the same series.\n")
	}
	return b.String()
}

const judgmentFormat = `{
    "dependency_score": <0.0 to 1.0>,
    "is_dependent": <true/false>,
    "dependency_type": "causal|correlated|inverse|independent",
    "constraints": [
        {
            "constraint_type": "implication|mutual_exclusion|conjunction|equivalence",
            "description": "Clear explanation",
            "formal_expression": "A => B or A ∧ B = FALSE",
            "confidence": <0.0 to 1.0>
        }
    ],
    "reasoning": "Detailed explanation of your analysis"
}`

// buildRound1Prompt asks for an independent judgment with no peer context.
func buildRound1Prompt(pair domain.EventPair) string {
	return fmt.Sprintf(`Analyze if these two prediction market events are logically dependent.

%s
Two events are DEPENDENT if:
1. One event causally influences the other (causal dependency)
2. They are mutually exclusive (cannot both happen)
3. One event implies the other (logical implication)
4. They share underlying factors that correlate outcomes

Respond in JSON format:
%s

Guidelines:
- dependency_score: 0.0 = completely independent, 1.0 = strongly dependent
- Only set is_dependent=true if dependency_score >= 0.5
- constraints: list ALL logical constraints you can identify
- Be conservative - only flag clear dependencies, not weak correlations
`, pairContext(pair), judgmentFormat)
}

// peer is one anonymized round-1 judgment shown to another estimator.
type peer struct {
	Label    string
	Judgment domain.Judgment
}

// buildRound2Prompt asks one estimator to revise its round-1 judgment after
// reading the anonymized judgments of its peers.
func buildRound2Prompt(pair domain.EventPair, own domain.Judgment, peers []peer) string {
	var peerText strings.Builder
	for _, p := range peers {
		fmt.Fprintf(&peerText, "%s:\n- Dependent: %t (score: %.2f)\n- Constraints found: %d\n- Reasoning: %s\n\n",
			p.Label, p.Judgment.Dependent, p.Judgment.DependencyScore, len(p.Judgment.Constraints), p.Judgment.Rationale)
	}

	return fmt.Sprintf(`You previously analyzed these prediction market events for logical dependencies.
Now review the other analysts' reasoning and revise your judgment if warranted.

%s
PEER ANALYSES FROM ROUND 1:
%s
YOUR PREVIOUS ANALYSIS:
- Dependent: %t (score: %.2f)
- Reasoning: %s

Consider:
- Did any analyst identify constraints you missed?
- Where do you disagree with the consensus and why?
- Should you adjust your score based on the new perspectives?

Respond in JSON format:
%s
`, pairContext(pair), peerText.String(), own.Dependent, own.DependencyScore, own.Rationale, judgmentFormat)
}

// buildScreeningPrompt is the cheap titles-only triage prompt.
func buildScreeningPrompt(pair domain.EventPair) string {
	return fmt.Sprintf(`You are analyzing whether two prediction market events are likely dependent.

Event A: %s
Event B: %s

Two events are DEPENDENT if one's outcome makes the other more or less likely.

Analyze based on TITLES ONLY and respond in JSON:
{
    "dependency_score": <0.0 to 1.0>,
    "is_dependent": <true/false>,
    "dependency_type": "causal|correlated|independent",
    "constraints": [],
    "reasoning": "<brief explanation>"
}

Be concise. Focus on obvious dependencies.`, pair.A.Title, pair.B.Title)
}

// anonymizeLabels assigns "Analyst A/B/C..." labels to providers. The
// assignment is ordered by a hash of provider and pair key, so labels leak
// no provider identity yet stay reproducible for a given pair.
func anonymizeLabels(pairKey string, providers []string) map[string]string {
	ordered := append([]string(nil), providers...)
	sort.Slice(ordered, func(i, j int) bool {
		return labelHash(pairKey, ordered[i]) < labelHash(pairKey, ordered[j])
	})

	labels := make(map[string]string, len(ordered))
	for i, name := range ordered {
		labels[name] = fmt.Sprintf("Analyst %c", 'A'+i)
	}
	return labels
}

func labelHash(pairKey, provider string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(pairKey))
	h.Write([]byte{0})
	h.Write([]byte(provider))
	return h.Sum64()
}
