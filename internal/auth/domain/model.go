// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the coarse permission group a caller belongs to.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAgent
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	Role      Role         `json:"role"`
	Subject   string       `json:"subject"`
	AgentID   snowflake.ID `json:"agent_id,omitempty"`
	Name      string       `json:"name,omitempty"`
	Email     string       `json:"email,omitempty"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func (p Principal) IsAgent() bool { return p.Role == RoleAgent && p.AgentID != 0 }
