package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerPolicyDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewLedgerPolicyHolder(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLedgerPolicy(), holder.Get())
}

func TestLedgerPolicyReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yml")
	content := []byte("ledger:\n  promotionThreshold: 750000\n  countCancelledSales: false\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewLedgerPolicyHolder(Config{LedgerConfigPath: path})
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, int64(750000), policy.PromotionThreshold)
	assert.False(t, policy.CountCancelledSales)
	assert.Equal(t, float64(60), policy.DefaultAgentPercentage)
}

func TestLedgerPolicyRejectsInvalidThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yml")
	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  promotionThreshold: 0\n"), 0o600))

	_, err := NewLedgerPolicyHolder(Config{LedgerConfigPath: path})
	assert.Error(t, err)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *LedgerPolicyHolder
	assert.Equal(t, DefaultLedgerPolicy(), holder.Get())
}

func TestSetKeepsPolicyOnInvalidInput(t *testing.T) {
	holder := NewStaticLedgerPolicy(DefaultLedgerPolicy())

	updated := DefaultLedgerPolicy()
	updated.CountCancelledSales = false
	require.NoError(t, holder.Set(updated))
	assert.False(t, holder.Get().CountCancelledSales)

	updated.PromotionThreshold = -1
	assert.Error(t, holder.Set(updated))
	assert.Equal(t, int64(500_000), holder.Get().PromotionThreshold)
}

func TestLedgerPolicyRejectsFineDefaultPercentage(t *testing.T) {
	policy := DefaultLedgerPolicy()
	policy.DefaultAgentPercentage = 62.125
	assert.Error(t, validateLedgerPolicy(policy))

	policy.DefaultAgentPercentage = 62.5
	assert.NoError(t, validateLedgerPolicy(policy))
}
