package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStatement(t *testing.T) {
	provider := New()

	reader, err := provider.GenerateStatement(context.Background(), StatementData{
		AgentName:       "Jane Agent",
		AgentEmail:      "jane@example.com",
		Level:           "L1",
		TotalSales:      "450,000",
		TargetRemaining: "50,000",
		CommissionSplit: "70 / 30",
		Lines: []StatementLine{
			{Date: "2025-01-02", Customer: "Budi", Product: "Lot 7", Status: "completed", Amount: "450,000", AgentCommission: "315,000", OrganizationCommission: "135,000"},
		},
		TotalAmount:                 "450,000",
		TotalAgentCommission:        "315,000",
		TotalOrganizationCommission: "135,000",
	})
	require.NoError(t, err)

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, len(body) > 4)
	assert.Equal(t, "%PDF", string(body[:4]))
}

func TestGenerateStatementRequiresAgent(t *testing.T) {
	_, err := New().GenerateStatement(context.Background(), StatementData{})
	assert.ErrorIs(t, err, ErrEmptyStatement)
}
