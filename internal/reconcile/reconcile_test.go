package reconcile

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	agentrepository "github.com/smallbiznis/realtyledger/internal/agent/repository"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/smallbiznis/realtyledger/internal/migration"
	saledomain "github.com/smallbiznis/realtyledger/internal/sale/domain"
	salerepository "github.com/smallbiznis/realtyledger/internal/sale/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	agents agentdomain.Repository
	sales  saledomain.Repository
	gauge  *DriftGauge
	policy *config.LedgerPolicyHolder
	svc    *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	gauge, err := NewDriftGauge(prometheus.NewRegistry())
	require.NoError(t, err)

	f := &fixture{
		db:     db,
		node:   node,
		agents: agentrepository.Provide(),
		sales:  salerepository.Provide(),
		gauge:  gauge,
		policy: config.NewStaticLedgerPolicy(config.DefaultLedgerPolicy()),
	}
	f.svc = NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Clock:     clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		AgentRepo: f.agents,
		SaleRepo:  f.sales,
		Policy:    f.policy,
		Gauge:     gauge,
	})
	return f
}

func (f *fixture) agent(t *testing.T, total int64, level agentdomain.Level) agentdomain.Agent {
	t.Helper()
	now := time.Now().UTC()
	id := f.node.Generate()
	agent := agentdomain.Agent{
		ID:                               id,
		Name:                             "Agent " + id.String(),
		Email:                            id.String() + "@example.com",
		PasswordHash:                     "x",
		Level:                            level,
		TotalSales:                       total,
		AgentCommissionPercentage:        decimal.NewFromInt(60),
		OrganizationCommissionPercentage: decimal.NewFromInt(40),
		CreatedAt:                        now,
		UpdatedAt:                        now,
	}
	require.NoError(t, f.agents.Insert(context.Background(), f.db, &agent))
	return agent
}

func (f *fixture) sale(t *testing.T, agentID snowflake.ID, amount int64, status saledomain.Status, counted int64) {
	t.Helper()
	now := time.Now().UTC()
	sale := saledomain.Sale{
		ID:                               f.node.Generate(),
		AgentID:                          agentID,
		AgentName:                        "snapshot",
		CustomerName:                     "C",
		ProductName:                      "P",
		Description:                      "P",
		Amount:                           amount,
		SaleDate:                         now,
		Status:                           status,
		AgentCommissionPercentage:        decimal.NewFromInt(60),
		OrganizationCommissionPercentage: decimal.NewFromInt(40),
		AgentCommissionAmount:            amount * 60 / 100,
		OrganizationCommissionAmount:     amount - amount*60/100,
		CountedAmount:                    counted,
		CreatedAt:                        now,
		UpdatedAt:                        now,
	}
	require.NoError(t, f.sales.Insert(context.Background(), f.db, &sale))
}

func TestCheckConsistentAgent(t *testing.T) {
	f := setup(t)
	agent := f.agent(t, 300, agentdomain.LevelL1)
	f.sale(t, agent.ID, 100, saledomain.StatusCompleted, 100)
	f.sale(t, agent.ID, 200, saledomain.StatusPending, 200)

	result, err := f.svc.Check(context.Background(), agent.ID.String())
	require.NoError(t, err)
	assert.True(t, result.Consistent())
	assert.Equal(t, int64(300), result.LedgerTotal)
	assert.Zero(t, result.Drift)
}

func TestCheckReportsDrift(t *testing.T) {
	f := setup(t)
	agent := f.agent(t, 1_000, agentdomain.LevelL1)
	f.sale(t, agent.ID, 400, saledomain.StatusCompleted, 400)

	result, err := f.svc.Check(context.Background(), agent.ID.String())
	require.NoError(t, err)
	assert.False(t, result.Consistent())
	assert.Equal(t, int64(600), result.Drift)
	assert.Equal(t, float64(600), testutil.ToFloat64(f.gauge.drift.WithLabelValues(agent.ID.String())))

	var stored int64
	require.NoError(t, f.db.Raw(`SELECT total_sales FROM agents WHERE id = ?`, agent.ID).Scan(&stored).Error)
	assert.Equal(t, int64(1_000), stored)
}

func TestCheckUsesCountedAmounts(t *testing.T) {
	f := setup(t)
	agent := f.agent(t, 500, agentdomain.LevelL1)
	f.sale(t, agent.ID, 500, saledomain.StatusCompleted, 500)
	f.sale(t, agent.ID, 250, saledomain.StatusCancelled, 0)

	result, err := f.svc.Check(context.Background(), agent.ID.String())
	require.NoError(t, err)
	assert.Zero(t, result.Drift)
	assert.True(t, result.CountCancelled)

	policy := config.DefaultLedgerPolicy()
	policy.CountCancelledSales = false
	require.NoError(t, f.policy.Set(policy))

	result, err = f.svc.Check(context.Background(), agent.ID.String())
	require.NoError(t, err)
	assert.Zero(t, result.Drift)
	assert.False(t, result.CountCancelled)
}

func TestCheckFlagsMissedPromotion(t *testing.T) {
	f := setup(t)
	agent := f.agent(t, 600_000, agentdomain.LevelL1)
	f.sale(t, agent.ID, 600_000, saledomain.StatusCompleted, 600_000)

	result, err := f.svc.Check(context.Background(), agent.ID.String())
	require.NoError(t, err)
	assert.Zero(t, result.Drift)
	assert.False(t, result.LevelConsistent)
}

func TestCheckErrors(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Check(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = f.svc.Check(context.Background(), "12345")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckAllAndWorker(t *testing.T) {
	f := setup(t)
	good := f.agent(t, 100, agentdomain.LevelL1)
	bad := f.agent(t, 900, agentdomain.LevelL1)
	f.sale(t, good.ID, 100, saledomain.StatusCompleted, 100)
	f.sale(t, bad.ID, 100, saledomain.StatusCompleted, 100)
	f.sale(t, f.node.Generate(), 77, saledomain.StatusCompleted, 77)

	report, err := f.svc.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Drifted, 1)
	assert.Equal(t, bad.ID, report.Drifted[0].AgentID)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.gauge.drifted))
	assert.Equal(t, 1, testutil.CollectAndCount(f.gauge.drift))

	worker := NewWorker(WorkerParams{
		Config:  config.Config{ReconcileInterval: time.Minute},
		Log:     zap.NewNop(),
		Service: f.svc,
	})
	ran, err := worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, time.Minute, worker.timeout)
}
