package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/smallbiznis/realtyledger/internal/providers/pdf"
	"github.com/smallbiznis/realtyledger/internal/report/domain"
	saledomain "github.com/smallbiznis/realtyledger/internal/sale/domain"
	"github.com/smallbiznis/realtyledger/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type agentsStub struct {
	agentdomain.Service
	mock.Mock
}

func (m *agentsStub) GetByID(ctx context.Context, id string) (agentdomain.Agent, error) {
	args := m.Called(id)
	return args.Get(0).(agentdomain.Agent), args.Error(1)
}

type salesStub struct {
	saledomain.Service
	mock.Mock
}

func (m *salesStub) ListByAgent(ctx context.Context, agentID string, req saledomain.ListSaleRequest) (saledomain.ListSaleResponse, error) {
	args := m.Called(agentID, req.PageToken)
	return args.Get(0).(saledomain.ListSaleResponse), args.Error(1)
}

func (m *salesStub) Summarize(ctx context.Context, req saledomain.SummaryRequest) (saledomain.Summary, error) {
	args := m.Called(req)
	return args.Get(0).(saledomain.Summary), args.Error(1)
}

func saleView(id int64, amount, agentAmt int64) saledomain.SaleView {
	return saledomain.SaleView{Sale: saledomain.Sale{
		ID:                           snowflake.ID(id),
		CustomerName:                 "Customer",
		ProductName:                  "House",
		Status:                       saledomain.StatusCompleted,
		SaleDate:                     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Amount:                       amount,
		AgentCommissionAmount:        agentAmt,
		OrganizationCommissionAmount: amount - agentAmt,
	}}
}

func newTestService(agents *agentsStub, sales *salesStub) domain.Service {
	return NewService(Params{
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		Agents: agents,
		Sales:  sales,
		Policy: config.NewStaticLedgerPolicy(config.DefaultLedgerPolicy()),
		PDF:    pdf.New(),
	})
}

func TestAgentStatementWalksAllPages(t *testing.T) {
	agents := &agentsStub{}
	sales := &salesStub{}
	svc := newTestService(agents, sales)

	agents.On("GetByID", "10").Return(agentdomain.Agent{
		ID:                               snowflake.ID(10),
		Name:                             "Jane Agent",
		Level:                            agentdomain.LevelL1,
		TotalSales:                       450_000,
		AgentCommissionPercentage:        decimal.NewFromInt(70),
		OrganizationCommissionPercentage: decimal.NewFromInt(30),
	}, nil)
	sales.On("ListByAgent", "10", "").Return(saledomain.ListSaleResponse{
		PageInfo: pagination.PageInfo{NextPageToken: "next", HasMore: true},
		Sales:    []saledomain.SaleView{saleView(1, 100_000, 70_000)},
	}, nil)
	sales.On("ListByAgent", "10", "next").Return(saledomain.ListSaleResponse{
		Sales: []saledomain.SaleView{saleView(2, 350_000, 245_000)},
	}, nil)

	statement, err := svc.AgentStatement(context.Background(), domain.StatementRequest{AgentID: "10"})
	require.NoError(t, err)
	assert.Len(t, statement.Lines, 2)
	assert.Equal(t, int64(450_000), statement.TotalAmount)
	assert.Equal(t, int64(315_000), statement.TotalAgentCommission)
	assert.Equal(t, int64(135_000), statement.TotalOrganizationCommission)
	assert.Equal(t, int64(50_000), statement.TargetRemaining)
	sales.AssertExpectations(t)

	reader, err := svc.RenderStatement(context.Background(), statement)
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(body[:4]))
}

func TestAgentStatementTargetRemainingNeverNegative(t *testing.T) {
	agents := &agentsStub{}
	sales := &salesStub{}
	svc := newTestService(agents, sales)

	agents.On("GetByID", "11").Return(agentdomain.Agent{ID: snowflake.ID(11), Name: "Top", Level: agentdomain.LevelL2, TotalSales: 900_000}, nil)
	sales.On("ListByAgent", "11", "").Return(saledomain.ListSaleResponse{}, nil)

	statement, err := svc.AgentStatement(context.Background(), domain.StatementRequest{AgentID: "11"})
	require.NoError(t, err)
	assert.Zero(t, statement.TargetRemaining)
	assert.Empty(t, statement.Lines)
}

func TestAgentStatementMapsAgentErrors(t *testing.T) {
	agents := &agentsStub{}
	svc := newTestService(agents, &salesStub{})

	agents.On("GetByID", "x").Return(agentdomain.Agent{}, agentdomain.ErrInvalidID)
	agents.On("GetByID", "404").Return(agentdomain.Agent{}, agentdomain.ErrNotFound)

	_, err := svc.AgentStatement(context.Background(), domain.StatementRequest{AgentID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidAgent)
	_, err = svc.AgentStatement(context.Background(), domain.StatementRequest{AgentID: "404"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSummaryDelegatesToLedger(t *testing.T) {
	sales := &salesStub{}
	svc := newTestService(&agentsStub{}, sales)
	req := saledomain.SummaryRequest{Status: "completed"}
	sales.On("Summarize", req).Return(saledomain.Summary{SaleCount: 3, TotalAmount: 900}, nil)

	summary, err := svc.Summary(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.SaleCount)
}

func TestFormatAmount(t *testing.T) {
	cases := map[int64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		500000:     "500,000",
		1234567:    "1,234,567",
		-1234567:   "-1,234,567",
		1000000000: "1,000,000,000",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatAmount(in))
	}
}

func TestFormatPeriod(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "all time", formatPeriod(nil, nil))
	assert.Equal(t, "since 2025-01-01", formatPeriod(&from, nil))
	assert.Equal(t, "until 2025-01-31", formatPeriod(nil, &to))
	assert.Equal(t, "2025-01-01 to 2025-01-31", formatPeriod(&from, &to))
}
