package accountant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-labs/mcae/pkg/capability"
)

func TestEstimateHeuristicCeiling(t *testing.T) {
	a := New()

	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"abcdefgh", 2},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, a.Estimate(tc.text), "text=%q", tc.text)
	}
}

func TestEstimateSubadditiveWithinSlack(t *testing.T) {
	a := New()
	texts := []struct{ a, b string }{
		{"the quick brown fox", "jumps over the lazy dog"},
		{"", "non-empty tail"},
		{"short", ""},
	}
	for _, tc := range texts {
		combined := a.Estimate(tc.a + tc.b)
		sum := a.Estimate(tc.a) + a.Estimate(tc.b)
		assert.LessOrEqual(t, combined, sum+1, "a=%q b=%q", tc.a, tc.b)
	}
}

func TestAllocateSumsUnderBudgetAndRespectsFloor(t *testing.T) {
	a := New()
	weights := capability.DefaultModeWeights()

	alloc := a.Allocate(4096, weights)
	require.NotEmpty(t, alloc)

	total := 0
	for kind, tokens := range alloc {
		assert.GreaterOrEqualf(t, tokens, MinPerLayer, "layer %s below floor", kind)
		total += tokens
	}
	assert.LessOrEqual(t, total, 4096)
}

func TestAllocateNeverExceedsBudgetUnderTightFloor(t *testing.T) {
	a := New()
	weights := capability.ModeWeights{RecentDialogue: 0.5, Project: 0.5}

	alloc := a.Allocate(100, weights)
	require.Len(t, alloc, 2)

	total := 0
	for _, tokens := range alloc {
		total += tokens
	}
	assert.LessOrEqual(t, total, 100, "allocation must never exceed the requested budget")
}

func TestAllocateOmitsUnrequestedLayers(t *testing.T) {
	a := New()
	weights := capability.ModeWeights{RecentDialogue: 1.0}

	alloc := a.Allocate(1000, weights)
	assert.Contains(t, alloc, capability.SectionRecentDialogue)
	assert.NotContains(t, alloc, capability.SectionArtifact)
	assert.NotContains(t, alloc, capability.SectionSummary)
	assert.NotContains(t, alloc, capability.SectionProject)
}

func TestAllocateZeroBudgetReturnsEmpty(t *testing.T) {
	a := New()
	alloc := a.Allocate(0, capability.DefaultModeWeights())
	assert.Empty(t, alloc)
}

func TestNewPreciseFallsBackSilently(t *testing.T) {
	a := NewPrecise("unknown-model-xyz")
	require.NotNil(t, a)
	// Must never panic and must return a sane estimate either way.
	assert.Greater(t, a.Estimate("some moderately long fragment of text"), 0)
}
