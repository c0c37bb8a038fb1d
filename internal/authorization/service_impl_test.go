package authorization

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	auditrepository "github.com/smallbiznis/realtyledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/realtyledger/internal/audit/service"
	authdomain "github.com/smallbiznis/realtyledger/internal/auth/domain"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuthorization(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(db))

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		Repo:  auditrepository.Provide(),
	})

	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer, AuditSvc: audit}), db
}

func TestAdminMayDoEverything(t *testing.T) {
	svc, _ := setupAuthorization(t)
	admin := authdomain.Principal{Role: authdomain.RoleAdmin, Subject: "root"}
	ctx := context.Background()

	for _, object := range []string{ObjectAgents, ObjectSales} {
		assert.NoError(t, svc.Authorize(ctx, admin, object, ActionRead))
		assert.NoError(t, svc.Authorize(ctx, admin, object, ActionWrite))
	}
	assert.NoError(t, svc.Authorize(ctx, admin, ObjectReports, ActionRead))
	assert.NoError(t, svc.Authorize(ctx, admin, ObjectAudit, ActionRead))
}

func TestAgentIsLimitedToSales(t *testing.T) {
	svc, db := setupAuthorization(t)
	agent := authdomain.Principal{Role: authdomain.RoleAgent, Subject: "99", AgentID: snowflake.ID(99)}
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, agent, ObjectSales, ActionRead))
	assert.NoError(t, svc.Authorize(ctx, agent, ObjectSales, ActionWrite))
	assert.NoError(t, svc.Authorize(ctx, agent, ObjectAgents, ActionRead))

	assert.ErrorIs(t, svc.Authorize(ctx, agent, ObjectAgents, ActionWrite), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, agent, ObjectReports, ActionRead), ErrForbidden)

	var denied int64
	require.NoError(t, db.Model(&auditdomain.AuditLog{}).Where("action = ?", auditdomain.ActionAccessDenied).Count(&denied).Error)
	assert.Equal(t, int64(2), denied)
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc, _ := setupAuthorization(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{Role: "owner", Subject: "x"}, ObjectSales, ActionRead), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{Role: authdomain.RoleAgent}, ObjectSales, ActionRead), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{Role: authdomain.RoleAdmin, Subject: "root"}, "", ActionRead), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{Role: authdomain.RoleAdmin, Subject: "root"}, ObjectSales, " "), ErrInvalidAction)
}

func TestSeedingIsIdempotent(t *testing.T) {
	_, db := setupAuthorization(t)

	again, err := NewEnforcer(db)
	require.NoError(t, err)

	policies, err := again.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, 9)
}
