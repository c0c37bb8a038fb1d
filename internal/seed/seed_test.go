package seed

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	agentrepository "github.com/smallbiznis/realtyledger/internal/agent/repository"
	agentservice "github.com/smallbiznis/realtyledger/internal/agent/service"
	auditrepository "github.com/smallbiznis/realtyledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/realtyledger/internal/audit/service"
	"github.com/smallbiznis/realtyledger/internal/auth/password"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/smallbiznis/realtyledger/internal/migration"
	salerepository "github.com/smallbiznis/realtyledger/internal/sale/repository"
	saleservice "github.com/smallbiznis/realtyledger/internal/sale/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestEnsureDemoAgentsSeedsOnce(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.SystemClock{}
	policy := config.NewStaticLedgerPolicy(config.DefaultLedgerPolicy())
	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepository.Provide()})
	agentRepo := agentrepository.Provide()
	agents := agentservice.New(agentservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  clk,
		Repo:   agentRepo,
		Hasher: password.NewArgon2Hasher(password.Params{Time: 1, Memory: 1024, Threads: 1}),
		Audit:  audit,
		Policy: policy,
	})
	sales := saleservice.New(saleservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Repo:      salerepository.Provide(),
		AgentRepo: agentRepo,
		Audit:     audit,
		Policy:    policy,
	})

	ctx := context.Background()
	seeded, err := EnsureDemoAgents(ctx, db, agents, sales)
	require.NoError(t, err)
	assert.True(t, seeded)

	list, err := agents.List(ctx, agentdomain.ListAgentRequest{})
	require.NoError(t, err)
	require.Len(t, list, len(demoAgents))

	byEmail := map[string]agentdomain.Agent{}
	for _, agent := range list {
		byEmail[agent.Email] = agent
	}
	ayu := byEmail["ayu@demo.realtyledger.local"]
	assert.Equal(t, int64(530_000), ayu.TotalSales)
	assert.Equal(t, agentdomain.LevelL2, ayu.Level)
	bima := byEmail["bima@demo.realtyledger.local"]
	assert.Equal(t, int64(155_000), bima.TotalSales)
	assert.Equal(t, agentdomain.LevelL1, bima.Level)

	seeded, err = EnsureDemoAgents(ctx, db, agents, sales)
	require.NoError(t, err)
	assert.False(t, seeded)

	var salesCount int64
	require.NoError(t, db.Table("sales").Count(&salesCount).Error)
	assert.Equal(t, int64(4), salesCount)
}
