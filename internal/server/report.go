package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/realtyledger/internal/report/domain"
)

type statementQuery struct {
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

func (s *Server) GetAgentStatement(c *gin.Context) {
	statement, ok := s.loadStatement(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": statement})
}

func (s *Server) RenderAgentStatement(c *gin.Context) {
	statement, ok := s.loadStatement(c)
	if !ok {
		return
	}

	reader, err := s.reportSvc.RenderStatement(c.Request.Context(), statement)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("statement-%s.pdf", statement.AgentID.String())
	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", filename),
	})
}

func (s *Server) loadStatement(c *gin.Context) (reportdomain.Statement, bool) {
	var query statementQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return reportdomain.Statement{}, false
	}

	dateFrom, err := parseTimeField("date_from", query.DateFrom, false)
	if err != nil {
		AbortWithError(c, err)
		return reportdomain.Statement{}, false
	}
	dateTo, err := parseTimeField("date_to", query.DateTo, true)
	if err != nil {
		AbortWithError(c, err)
		return reportdomain.Statement{}, false
	}

	statement, err := s.reportSvc.AgentStatement(c.Request.Context(), reportdomain.StatementRequest{
		AgentID:  strings.TrimSpace(c.Param("id")),
		DateFrom: dateFrom,
		DateTo:   dateTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return reportdomain.Statement{}, false
	}
	return statement, true
}

func (s *Server) GetAgentReconciliation(c *gin.Context) {
	result, err := s.reconciler.Check(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result, "consistent": result.Consistent()})
}

func (s *Server) RunReconciliation(c *gin.Context) {
	report, err := s.reconciler.CheckAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
