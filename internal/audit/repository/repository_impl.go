package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/realtyledger/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, actor_type, actor_id, action, target_type, target_id,
			agent_id, metadata, ip_address, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActorType,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.AgentID,
		entry.Metadata,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.AuditLog{}).
		Scopes(eventScope(filter), ledgerScope(filter), windowScope(filter)).
		Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var logs []*domain.AuditLog
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// eventScope narrows by action family and by who performed it. An action
// ending in ".*" matches every action sharing that prefix, so "sale.*" returns
// recorded, edited and deleted sales together.
func eventScope(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if action := strings.TrimSpace(filter.Action); action != "" {
			if prefix, ok := strings.CutSuffix(action, ".*"); ok {
				db = db.Where("action LIKE ?", prefix+".%")
			} else {
				db = db.Where("action = ?", action)
			}
		}
		if actorType := strings.TrimSpace(filter.ActorType); actorType != "" {
			db = db.Where("actor_type = ?", actorType)
		}
		if actorID := strings.TrimSpace(filter.ActorID); actorID != "" {
			db = db.Where("actor_id = ?", actorID)
		}
		return db
	}
}

// ledgerScope narrows to one target row or to every event touching an
// agent's ledger, including the sales recorded against it.
func ledgerScope(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
			db = db.Where("target_type = ?", targetType)
		}
		if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
			db = db.Where("target_id = ?", targetID)
		}
		if agentID := strings.TrimSpace(filter.AgentID); agentID != "" {
			db = db.Where("agent_id = ?", agentID)
		}
		return db
	}
}

func windowScope(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.StartAt != nil {
			db = db.Where("created_at >= ?", filter.StartAt.UTC())
		}
		if filter.EndAt != nil {
			db = db.Where("created_at <= ?", filter.EndAt.UTC())
		}
		if filter.Cursor != nil {
			db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
				filter.Cursor.CreatedAt,
				filter.Cursor.CreatedAt,
				filter.Cursor.ID,
			)
		}
		return db
	}
}
