// Package accountant implements the Token Accountant: a cheap,
// deterministic upper-bound estimator for token counts, and the
// per-layer budget allocator the Context Orchestrator relies on.
package accountant

import (
	"math"
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// MinPerLayer is the floor Allocate raises a requested layer's
// proportional share to (spec §4.1). The floor holds only while budget
// remains: a layer never receives more than what is left, and the last
// requested layer receives exactly the remainder, which may be below
// MinPerLayer (or zero) when the budget is tight.
const MinPerLayer = 64

// Accountant produces token estimates and layer allocations. The zero
// value is usable and estimates via the char/4 heuristic alone; call
// NewPrecise to additionally load a tiktoken codec.
type Accountant struct {
	codec tokenizer.Codec
}

// New returns an Accountant that only ever uses the char/4 fallback.
// This alone satisfies spec §4.1's contract (over-count ≤25%, under-count
// ≤10% for English text).
func New() *Accountant {
	return &Accountant{}
}

// NewPrecise attempts to load a tiktoken codec for model, falling back
// silently to the char/4 heuristic on any error — mirroring the
// teacher's TokenCounter constructor, which never fails outright on an
// unrecognized or unavailable codec.
func NewPrecise(model string) *Accountant {
	a := &Accountant{}
	enc, err := codecForModel(model)
	if err == nil {
		a.codec = enc
	}
	return a
}

// codecForModel maps a model name to a tiktoken model; every provider
// MCAE talks to (Claude, GPT, Gemini, local Ollama models) is
// approximated with GPT-4 encoding, matching the teacher's own
// TokenCounter which does the same for Claude.
func codecForModel(model string) (tokenizer.Codec, error) {
	_ = strings.ToLower(model)
	return tokenizer.ForModel(tokenizer.GPT4)
}

// Estimate returns ceil(len(text)/4) when no precise codec is loaded,
// or the codec's own token count when one is. Never returns an error:
// any codec failure falls back to the char heuristic for that call.
func (a *Accountant) Estimate(text string) int {
	if a.codec != nil {
		if count, err := a.codec.Count(text); err == nil {
			return count
		}
	}
	return estimateHeuristic(text)
}

func estimateHeuristic(text string) int {
	return int(math.Ceil(float64(len(text)) / 4))
}

// Allocate distributes totalBudget across the requested layers
// proportional to weights, each floored at MinPerLayer while budget
// remains (see MinPerLayer), summing to at most totalBudget (spec §4.1).
// The last requested layer takes whatever is left, so the Headroom
// weight is not reserved separately. Layers with a zero or absent weight are
// omitted from the result entirely (they were not "requested").
func (a *Accountant) Allocate(totalBudget int, weights capability.ModeWeights) map[capability.SectionKind]int {
	type entry struct {
		kind   capability.SectionKind
		weight float64
	}
	entries := []entry{
		{capability.SectionRecentDialogue, weights.RecentDialogue},
		{capability.SectionArtifact, weights.Artifacts},
		{capability.SectionSummary, weights.Summary},
		{capability.SectionProject, weights.Project},
	}

	requested := make([]entry, 0, len(entries))
	weightSum := 0.0
	for _, e := range entries {
		if e.weight > 0 {
			requested = append(requested, e)
			weightSum += e.weight
		}
	}

	result := make(map[capability.SectionKind]int, len(requested)+1)
	if weightSum <= 0 || totalBudget <= 0 {
		return result
	}

	remaining := totalBudget
	allocated := 0
	for i, e := range requested {
		var share int
		if i == len(requested)-1 {
			// Last layer absorbs the rounding remainder so the sum
			// never exceeds totalBudget.
			share = remaining
		} else {
			share = int(math.Floor(float64(totalBudget) * e.weight / weightSum))
			if share < MinPerLayer {
				share = MinPerLayer
			}
			if share > remaining {
				share = remaining
			}
			remaining -= share
		}
		result[e.kind] = share
		allocated += share
	}

	return result
}
