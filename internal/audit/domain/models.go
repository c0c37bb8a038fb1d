package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeAdmin  ActorType = "admin"
	ActorTypeAgent  ActorType = "agent"
	ActorTypeSystem ActorType = "system"
)

const (
	ActionAgentCreated  = "agent.created"
	ActionAgentUpdated  = "agent.updated"
	ActionAgentDeleted  = "agent.deleted"
	ActionAgentPromoted = "agent.promoted"
	ActionSaleRecorded  = "sale.recorded"
	ActionSaleEdited    = "sale.edited"
	ActionSaleDeleted   = "sale.deleted"
	ActionAccessDenied  = "access.denied"
	ActionLogin         = "auth.login"
	ActionLoginFailed   = "auth.login_failed"
)

const (
	TargetAgent = "agent"
	TargetSale  = "sale"
	TargetRoute = "route"
	TargetAdmin = "admin"
)

type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"type:varchar(32);not null" json:"actor_type"`
	ActorID    *string           `gorm:"type:varchar(64)" json:"actor_id,omitempty"`
	Action     string            `gorm:"type:varchar(64);not null;index" json:"action"`
	TargetType string            `gorm:"type:varchar(32);not null" json:"target_type"`
	TargetID   *string           `gorm:"type:varchar(64);index" json:"target_id,omitempty"`
	AgentID    *string           `gorm:"type:varchar(64);index" json:"agent_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent  *string           `json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry describes one event to append. AgentID names the agent whose ledger
// the event touches; agent targets default to their own id.
type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	AgentID    string
	Metadata   map[string]any
}

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	AgentID    string
	ActorType  string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}
