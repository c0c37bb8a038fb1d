package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
)

type createAgentRequest struct {
	Name                             string           `json:"name"`
	Email                            string           `json:"email"`
	Password                         string           `json:"password"`
	Level                            string           `json:"level"`
	TotalSales                       int64            `json:"total_sales"`
	AgentCommissionPercentage        *decimal.Decimal `json:"agent_commission_percentage"`
	OrganizationCommissionPercentage *decimal.Decimal `json:"organization_commission_percentage"`
}

type updateAgentRequest struct {
	Name                             *string          `json:"name"`
	Email                            *string          `json:"email"`
	Password                         *string          `json:"password"`
	Level                            *string          `json:"level"`
	AgentCommissionPercentage        *decimal.Decimal `json:"agent_commission_percentage"`
	OrganizationCommissionPercentage *decimal.Decimal `json:"organization_commission_percentage"`
}

func (s *Server) CreateAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agentSvc.Create(c.Request.Context(), agentdomain.CreateAgentRequest{
		Name:                             strings.TrimSpace(req.Name),
		Email:                            strings.TrimSpace(req.Email),
		Password:                         req.Password,
		Level:                            agentdomain.Level(strings.ToUpper(strings.TrimSpace(req.Level))),
		TotalSales:                       req.TotalSales,
		AgentCommissionPercentage:        req.AgentCommissionPercentage,
		OrganizationCommissionPercentage: req.OrganizationCommissionPercentage,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tagLedger(c, resp.ID.String(), "")

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListAgents(c *gin.Context) {
	var query struct {
		Search string `form:"search"`
		Level  string `form:"level"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agentSvc.List(c.Request.Context(), agentdomain.ListAgentRequest{
		Search: strings.TrimSpace(query.Search),
		Level:  strings.ToUpper(strings.TrimSpace(query.Level)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAgentByID(c *gin.Context) {
	resp, err := s.agentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateAgent(c *gin.Context) {
	var req updateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var level *agentdomain.Level
	if req.Level != nil {
		parsed := agentdomain.Level(strings.ToUpper(strings.TrimSpace(*req.Level)))
		level = &parsed
	}

	resp, err := s.agentSvc.Update(c.Request.Context(), agentdomain.UpdateAgentRequest{
		ID:                               strings.TrimSpace(c.Param("id")),
		Name:                             req.Name,
		Email:                            req.Email,
		Password:                         req.Password,
		Level:                            level,
		AgentCommissionPercentage:        req.AgentCommissionPercentage,
		OrganizationCommissionPercentage: req.OrganizationCommissionPercentage,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// DeleteAgent removes the agent only. Their sales stay in the ledger and are
// shown under the snapshotted agent name.
func (s *Server) DeleteAgent(c *gin.Context) {
	if err := s.agentSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetMyAgent(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok || !principal.IsAgent() {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.agentSvc.GetByID(c.Request.Context(), principal.AgentID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
