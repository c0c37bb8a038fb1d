package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	"github.com/smallbiznis/realtyledger/internal/auth/domain"
	"github.com/smallbiznis/realtyledger/internal/auth/token"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAgents struct {
	mock.Mock
}

func (m *mockAgents) Create(ctx context.Context, req agentdomain.CreateAgentRequest) (agentdomain.Agent, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(agentdomain.Agent), args.Error(1)
}

func (m *mockAgents) Update(ctx context.Context, req agentdomain.UpdateAgentRequest) (agentdomain.Agent, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(agentdomain.Agent), args.Error(1)
}

func (m *mockAgents) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAgents) GetByID(ctx context.Context, id string) (agentdomain.Agent, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(agentdomain.Agent), args.Error(1)
}

func (m *mockAgents) List(ctx context.Context, req agentdomain.ListAgentRequest) ([]agentdomain.Agent, error) {
	args := m.Called(ctx, req)
	return args.Get(0).([]agentdomain.Agent), args.Error(1)
}

func (m *mockAgents) Authenticate(ctx context.Context, email, password string) (agentdomain.Agent, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(agentdomain.Agent), args.Error(1)
}

func newTestService(t *testing.T, agents *mockAgents) domain.Service {
	t.Helper()
	return New(Params{
		Log:    zap.NewNop(),
		Config: config.Config{AdminUsername: "root", AdminPassword: "s3cret"},
		Agents: agents,
		Issuer: token.New([]byte("0123456789abcdef0123456789abcdef"), time.Hour, nil),
	})
}

func TestLoginAgent(t *testing.T) {
	agents := &mockAgents{}
	svc := newTestService(t, agents)
	ctx := context.Background()
	agent := agentdomain.Agent{ID: snowflake.ID(42), Name: "Jane Agent", Email: "jane@example.com"}

	agents.On("Authenticate", ctx, "jane@example.com", "hunter22").Return(agent, nil)
	agents.On("Authenticate", ctx, "jane@example.com", "wrong").Return(agentdomain.Agent{}, agentdomain.ErrInvalidCredentials)
	agents.On("GetByID", ctx, "42").Return(agent, nil)

	result, err := svc.LoginAgent(ctx, domain.LoginRequest{Identifier: "jane@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, result.Principal.Role)
	assert.Equal(t, snowflake.ID(42), result.Principal.AgentID)
	assert.NotEmpty(t, result.RawToken)

	principal, err := svc.Authenticate(ctx, result.RawToken)
	require.NoError(t, err)
	assert.True(t, principal.IsAgent())
	assert.Equal(t, "Jane Agent", principal.Name)

	_, err = svc.LoginAgent(ctx, domain.LoginRequest{Identifier: "jane@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	agents.AssertExpectations(t)
}

func TestAuthenticateRejectsDeletedAgent(t *testing.T) {
	agents := &mockAgents{}
	svc := newTestService(t, agents)
	ctx := context.Background()

	agents.On("Authenticate", ctx, "gone@example.com", "pw").Return(agentdomain.Agent{ID: snowflake.ID(7)}, nil)
	agents.On("GetByID", ctx, "7").Return(agentdomain.Agent{}, agentdomain.ErrNotFound)

	result, err := svc.LoginAgent(ctx, domain.LoginRequest{Identifier: "gone@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestLoginAdmin(t *testing.T) {
	svc := newTestService(t, &mockAgents{})
	ctx := context.Background()

	result, err := svc.LoginAdmin(ctx, domain.LoginRequest{Identifier: "root", Password: "s3cret"})
	require.NoError(t, err)
	assert.True(t, result.Principal.IsAdmin())

	principal, err := svc.Authenticate(ctx, result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, principal.Role)
	assert.Equal(t, "root", principal.Subject)

	_, err = svc.LoginAdmin(ctx, domain.LoginRequest{Identifier: "root", Password: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.LoginAdmin(ctx, domain.LoginRequest{Identifier: "admin", Password: "s3cret"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginAdminDisabledWithoutCredentials(t *testing.T) {
	svc := New(Params{
		Log:    zap.NewNop(),
		Agents: &mockAgents{},
		Issuer: token.New([]byte("0123456789abcdef0123456789abcdef"), time.Hour, nil),
	})

	_, err := svc.LoginAdmin(context.Background(), domain.LoginRequest{Identifier: "", Password: ""})
	assert.ErrorIs(t, err, domain.ErrAdminLoginDisabled)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	svc := newTestService(t, &mockAgents{})

	_, err := svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
