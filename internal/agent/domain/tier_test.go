package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateLevelPromotesAtThreshold(t *testing.T) {
	assert.Equal(t, LevelL1, EvaluateLevel(LevelL1, 0, DefaultPromotionThreshold))
	assert.Equal(t, LevelL1, EvaluateLevel(LevelL1, 499_999, DefaultPromotionThreshold))
	assert.Equal(t, LevelL2, EvaluateLevel(LevelL1, 500_000, DefaultPromotionThreshold))
	assert.Equal(t, LevelL2, EvaluateLevel(LevelL1, 550_000, DefaultPromotionThreshold))
}

func TestEvaluateLevelNeverDemotes(t *testing.T) {
	for _, total := range []int64{-10, 0, 50_000, 499_999, 500_000} {
		assert.Equal(t, LevelL2, EvaluateLevel(LevelL2, total, DefaultPromotionThreshold))
	}
}

func TestEvaluateLevelIsIdempotent(t *testing.T) {
	level := LevelL1
	for i := 0; i < 3; i++ {
		level = EvaluateLevel(level, 600_000, DefaultPromotionThreshold)
	}
	assert.Equal(t, LevelL2, level)
	assert.False(t, ShouldPromote(LevelL2, 600_000, DefaultPromotionThreshold))
	assert.True(t, ShouldPromote(LevelL1, 600_000, DefaultPromotionThreshold))
}

func TestLevelValid(t *testing.T) {
	assert.True(t, LevelL1.Valid())
	assert.True(t, LevelL2.Valid())
	assert.False(t, Level("L3").Valid())
}
