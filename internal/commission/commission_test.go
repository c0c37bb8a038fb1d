package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func pct(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeSplitsAmount(t *testing.T) {
	cases := []struct {
		name      string
		amount    int64
		agent     string
		org       string
		wantAgent int64
		wantOrg   int64
	}{
		{"seventy thirty", 100000, "70", "30", 70000, 30000},
		{"default split", 450000, "60", "40", 270000, 180000},
		{"all to agent", 1234, "100", "0", 1234, 0},
		{"all to org", 1234, "0", "100", 0, 1234},
		{"half rounds up", 5, "50", "50", 3, 2},
		{"fractional percentage", 1000, "33.33", "66.67", 333, 667},
		{"odd unit", 1, "60", "40", 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.amount, pct(tc.agent), pct(tc.org))
			assert.Equal(t, tc.wantAgent, got.AgentAmount)
			assert.Equal(t, tc.wantOrg, got.OrgAmount)
		})
	}
}

func TestComputeZeroAmountShortCircuits(t *testing.T) {
	assert.Equal(t, Split{}, Compute(0, pct("70"), pct("30")))
	assert.Equal(t, Split{}, Compute(-50, pct("70"), pct("30")))
}

func TestComputeReconcilesWithAmount(t *testing.T) {
	splits := [][2]string{{"60", "40"}, {"33.3", "66.7"}, {"12.5", "87.5"}, {"99.99", "0.01"}}
	for _, s := range splits {
		for amount := int64(1); amount <= 2000; amount += 7 {
			got := Compute(amount, pct(s[0]), pct(s[1]))
			if got.Total() != amount {
				t.Fatalf("split %v amount %d: got %d + %d", s, amount, got.AgentAmount, got.OrgAmount)
			}
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	first := Compute(987654, pct("42.5"), pct("57.5"))
	second := Compute(987654, pct("42.5"), pct("57.5"))
	assert.Equal(t, first, second)
}

func TestValidateSplit(t *testing.T) {
	assert.NoError(t, ValidateSplit(pct("60"), pct("40")))
	assert.NoError(t, ValidateSplit(pct("0"), pct("100")))
	assert.ErrorIs(t, ValidateSplit(pct("60"), pct("50")), ErrInvalidSplit)
	assert.ErrorIs(t, ValidateSplit(pct("-10"), pct("110")), ErrInvalidPercentage)
	assert.ErrorIs(t, ValidateSplit(pct("100.5"), pct("-0.5")), ErrInvalidPercentage)
}

func TestValidateSplitRejectsExtraPrecision(t *testing.T) {
	assert.NoError(t, ValidateSplit(pct("33.33"), pct("66.67")))
	assert.NoError(t, ValidateSplit(pct("12.50"), pct("87.5")))
	assert.ErrorIs(t, ValidateSplit(pct("33.335"), pct("66.665")), ErrInvalidPercentage)
	assert.ErrorIs(t, ValidatePercentage(pct("0.001")), ErrInvalidPercentage)
}

func TestComplement(t *testing.T) {
	assert.True(t, Complement(pct("72.5")).Equal(pct("27.5")))
}
