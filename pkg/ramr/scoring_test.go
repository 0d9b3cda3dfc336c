package ramr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecideAdmissionClampsToRange(t *testing.T) {
	high := 20
	decision := decideAdmission([]byte("```code```"), "code", &high, 2000)
	assert.Equal(t, 10, decision.priority)
}

func TestDecideAdmissionCasualPenalty(t *testing.T) {
	decision := decideAdmission([]byte("just chatting"), "casual", nil, 10)
	assert.Equal(t, 3, decision.priority)
	assert.False(t, decision.shouldCache)
}

func TestDecideAdmissionThresholdAtFour(t *testing.T) {
	priority := 4
	decision := decideAdmission([]byte("v"), "", &priority, 10)
	assert.True(t, decision.shouldCache)

	priority = 3
	decision = decideAdmission([]byte("v"), "", &priority, 10)
	assert.False(t, decision.shouldCache)
}

func TestTTLDefaultsByType(t *testing.T) {
	assert.Equal(t, 24*time.Hour, ttlForType("code"))
	assert.Equal(t, 24*time.Hour, ttlForType("solution"))
	assert.Equal(t, 12*time.Hour, ttlForType("configuration"))
	assert.Equal(t, 30*time.Minute, ttlForType("conversation_context"))
	assert.Equal(t, 6*time.Hour, ttlForType("summary"))
	assert.Equal(t, time.Hour, ttlForType("anything_else"))
}

func TestLexicalOverlapFullMatch(t *testing.T) {
	score := lexicalOverlap("database migration", "a database migration guide")
	assert.Equal(t, 1.0, score)
}

func TestLexicalOverlapNoMatch(t *testing.T) {
	score := lexicalOverlap("database migration", "totally different words")
	assert.Equal(t, 0.0, score)
}

func TestRecencyDecayMonotonicallyDecreasing(t *testing.T) {
	now := time.Now()
	recent := recencyDecay(now.Add(-time.Minute), now)
	old := recencyDecay(now.Add(-10*time.Hour), now)
	assert.Greater(t, recent, old)
}

func TestEvictionScoreHigherForLowPriorityAndOld(t *testing.T) {
	// Eviction picks the entry with the highest score, so a low-priority,
	// stale entry must score above a high-priority, recently-used one.
	highPriorityRecent := evictionScore(9, 0.0)
	lowPriorityOld := evictionScore(1, 1.0)
	assert.Less(t, highPriorityRecent, lowPriorityOld)
	assert.Greater(t, lowPriorityOld, highPriorityRecent)
}
