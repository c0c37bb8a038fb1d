package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	"github.com/smallbiznis/realtyledger/internal/audit/repository"
	"github.com/smallbiznis/realtyledger/internal/auditcontext"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuditService(t *testing.T) auditdomain.Service {
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
	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		Repo:  repository.Provide(),
	})
}

func actions(logs []auditdomain.AuditLog) []string {
	out := make([]string, 0, len(logs))
	for _, entry := range logs {
		out = append(out, entry.Action)
	}
	return out
}

func TestListFiltersByAgentLedgerAndActor(t *testing.T) {
	svc := setupAuditService(t)
	admin := auditcontext.WithActor(context.Background(), string(auditdomain.ActorTypeAdmin), "root")
	agent := auditcontext.WithActor(context.Background(), string(auditdomain.ActorTypeAgent), "7")

	entries := []struct {
		ctx   context.Context
		entry auditdomain.Entry
	}{
		{admin, auditdomain.Entry{Action: auditdomain.ActionAgentCreated, TargetType: auditdomain.TargetAgent, TargetID: "7"}},
		{admin, auditdomain.Entry{Action: auditdomain.ActionAgentCreated, TargetType: auditdomain.TargetAgent, TargetID: "8"}},
		{agent, auditdomain.Entry{Action: auditdomain.ActionSaleRecorded, TargetType: auditdomain.TargetSale, TargetID: "100", AgentID: "7"}},
		{admin, auditdomain.Entry{Action: auditdomain.ActionSaleEdited, TargetType: auditdomain.TargetSale, TargetID: "100", AgentID: "7"}},
		{admin, auditdomain.Entry{Action: auditdomain.ActionSaleRecorded, TargetType: auditdomain.TargetSale, TargetID: "200", AgentID: "8"}},
	}
	for _, item := range entries {
		require.NoError(t, svc.AuditLog(item.ctx, nil, item.entry))
	}
	ctx := context.Background()

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{AgentID: "7"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		auditdomain.ActionAgentCreated,
		auditdomain.ActionSaleRecorded,
		auditdomain.ActionSaleEdited,
	}, actions(resp.AuditLogs))

	resp, err = svc.List(ctx, auditdomain.ListAuditLogRequest{AgentID: "7", Action: "sale.*"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{auditdomain.ActionSaleRecorded, auditdomain.ActionSaleEdited}, actions(resp.AuditLogs))

	resp, err = svc.List(ctx, auditdomain.ListAuditLogRequest{ActorType: "agent", ActorID: "7"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "100", *resp.AuditLogs[0].TargetID)

	resp, err = svc.List(ctx, auditdomain.ListAuditLogRequest{TargetType: auditdomain.TargetSale, TargetID: "200"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	require.NotNil(t, resp.AuditLogs[0].AgentID)
	assert.Equal(t, "8", *resp.AuditLogs[0].AgentID)
}
