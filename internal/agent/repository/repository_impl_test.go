package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/realtyledger/internal/agent/domain"
	"github.com/smallbiznis/realtyledger/internal/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openPooledDB opens a file-backed database with several connections so
// statements from different goroutines really run side by side.
func openPooledDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db") +
		"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func insertAgent(t *testing.T, db *gorm.DB, repo domain.Repository) *domain.Agent {
	t.Helper()
	now := time.Now().UTC()
	agent := &domain.Agent{
		ID:                               1001,
		Name:                             "Busy Agent",
		Email:                            "busy@example.com",
		PasswordHash:                     "x",
		Level:                            domain.LevelL1,
		AgentCommissionPercentage:        decimal.NewFromInt(60),
		OrganizationCommissionPercentage: decimal.NewFromInt(40),
		CreatedAt:                        now,
		UpdatedAt:                        now,
	}
	require.NoError(t, repo.Insert(context.Background(), db, agent))
	return agent
}

func TestIncrementTotalSalesAcrossConnections(t *testing.T) {
	db := openPooledDB(t)
	repo := Provide()
	agent := insertAgent(t, db, repo)

	const (
		workers    = 16
		increments = 25
	)
	var wg sync.WaitGroup
	errs := make(chan error, workers*increments)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(delta int64) {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				ok, err := repo.IncrementTotalSales(context.Background(), db, agent.ID, delta, time.Now().UTC())
				if err == nil && !ok {
					err = errors.New("agent row not updated")
				}
				errs <- err
			}
		}(int64(i + 1))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Worker i adds i+1 each time.
	want := int64(increments * workers * (workers + 1) / 2)
	got, err := repo.FindByID(context.Background(), db, agent.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, got.TotalSales)
}

func TestPromoteOnceAcrossConnections(t *testing.T) {
	db := openPooledDB(t)
	repo := Provide()
	agent := insertAgent(t, db, repo)

	_, err := repo.IncrementTotalSales(context.Background(), db, agent.ID, 600_000, time.Now().UTC())
	require.NoError(t, err)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		promoted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Promote(context.Background(), db, agent.ID, 500_000, time.Now().UTC())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				promoted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, promoted)
	got, err := repo.FindByID(context.Background(), db, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelL2, got.Level)
}
