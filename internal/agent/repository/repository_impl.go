package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/realtyledger/internal/agent/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const agentColumns = `id, name, email, password_hash, level, total_sales,
	agent_commission_percentage, organization_commission_percentage, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, agent *domain.Agent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO agents (`+agentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Level,
		agent.TotalSales,
		agent.AgentCommissionPercentage,
		agent.OrganizationCommissionPercentage,
		agent.CreatedAt,
		agent.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Agent, error) {
	var agent domain.Agent
	err := db.WithContext(ctx).Raw(
		`SELECT `+agentColumns+` FROM agents WHERE id = ?`,
		id,
	).Scan(&agent).Error
	if err != nil {
		return nil, err
	}
	if agent.ID == 0 {
		return nil, nil
	}
	return &agent, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Agent, error) {
	var agents []*domain.Agent
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, nil
	}
	return agents[0], nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Agent, error) {
	var agent domain.Agent
	err := db.WithContext(ctx).Raw(
		`SELECT `+agentColumns+` FROM agents WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&agent).Error
	if err != nil {
		return nil, err
	}
	if agent.ID == 0 {
		return nil, nil
	}
	return &agent, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListAgentFilter) ([]*domain.Agent, error) {
	var agents []*domain.Agent
	stmt := db.WithContext(ctx).Model(&domain.Agent{})
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where("LOWER(name) LIKE ? OR email LIKE ?", like, like)
	}
	if filter.Level != "" {
		stmt = stmt.Where("level = ?", filter.Level)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields domain.UpdateFields) (bool, error) {
	updates := map[string]any{"updated_at": fields.UpdatedAt}
	if fields.Name != nil {
		updates["name"] = *fields.Name
	}
	if fields.Email != nil {
		updates["email"] = *fields.Email
	}
	if fields.PasswordHash != nil {
		updates["password_hash"] = *fields.PasswordHash
	}
	if fields.Level != nil {
		updates["level"] = *fields.Level
	}
	if fields.AgentCommissionPercentage != nil {
		updates["agent_commission_percentage"] = *fields.AgentCommissionPercentage
	}
	if fields.OrganizationCommissionPercentage != nil {
		updates["organization_commission_percentage"] = *fields.OrganizationCommissionPercentage
	}

	res := db.WithContext(ctx).
		Model(&domain.Agent{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) IncrementTotalSales(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE agents SET total_sales = total_sales + ?, updated_at = ? WHERE id = ?`,
		delta,
		at,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Promote(ctx context.Context, db *gorm.DB, id snowflake.ID, threshold int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE agents SET level = ?, updated_at = ?
		 WHERE id = ? AND level = ? AND total_sales >= ?`,
		domain.LevelL2,
		at,
		id,
		domain.LevelL1,
		threshold,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM agents WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
