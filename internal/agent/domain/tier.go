package domain

// DefaultPromotionThreshold is the cumulative sales total at which an L1 agent becomes L2.
const DefaultPromotionThreshold int64 = 500_000

// EvaluateLevel applies the tier rule to the current total. Promotion is
// one-way: an L2 agent stays L2 whatever the total.
func EvaluateLevel(current Level, totalSales, threshold int64) Level {
	if current.rank() >= LevelL2.rank() {
		return LevelL2
	}
	if totalSales >= threshold {
		return LevelL2
	}
	return LevelL1
}

// ShouldPromote reports whether EvaluateLevel would change the level.
func ShouldPromote(current Level, totalSales, threshold int64) bool {
	return EvaluateLevel(current, totalSales, threshold) != current
}
