package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolutionsGroupMatchesMultiplePatterns(t *testing.T) {
	content := "solution: set X=1. Solution: set Y=2. the fix is to restart. this fixes it."
	group := patternGroups[0]
	assert.Equal(t, "solutions", group.name)

	matchCount := 0
	for _, p := range group.patterns {
		if p.MatchString(content) {
			matchCount++
		}
	}
	assert.Greater(t, matchCount, 1, "multiple patterns should match, but group contributes once via weightSum logic in score()")
}

func TestTechnicalTermBonusCapsAtSix(t *testing.T) {
	content := "api database schema migration endpoint token cache config docker kubernetes"
	bonus := technicalTermBonus(content)
	assert.Equal(t, 6, bonus)
}

func TestTechnicalTermBonusZeroWhenAbsent(t *testing.T) {
	bonus := technicalTermBonus("nothing special in this sentence at all")
	assert.Equal(t, 0, bonus)
}

func TestNumberedStepsDetected(t *testing.T) {
	content := "Steps:\n1. Do this\n2. Do that\n"
	assert.True(t, numberedStepsRe.MatchString(content))
}

func TestCodeBlockDetected(t *testing.T) {
	assert.True(t, codeBlockRe.MatchString("some text ``` code ```"))
	assert.False(t, codeBlockRe.MatchString("no markers here"))
}
