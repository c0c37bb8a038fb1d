package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/realtyledger/internal/auth/domain"
	saledomain "github.com/smallbiznis/realtyledger/internal/sale/domain"
	"github.com/smallbiznis/realtyledger/pkg/db/pagination"
)

type recordSaleRequest struct {
	AgentID      string `json:"agent_id"`
	CustomerName string `json:"customer_name"`
	ProductName  string `json:"product_name"`
	Description  string `json:"description"`
	Notes        string `json:"notes"`
	Amount       int64  `json:"amount"`
	SaleDate     string `json:"sale_date"`
	Status       string `json:"status"`
}

type editSaleRequest struct {
	AgentID      *string `json:"agent_id"`
	CustomerName *string `json:"customer_name"`
	ProductName  *string `json:"product_name"`
	Description  *string `json:"description"`
	Notes        *string `json:"notes"`
	Amount       *int64  `json:"amount"`
	SaleDate     *string `json:"sale_date"`
	Status       *string `json:"status"`
}

type saleFilterQuery struct {
	AgentID  string `form:"agent_id"`
	Status   string `form:"status"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
	Search   string `form:"search"`
}

type listSalesQuery struct {
	pagination.Pagination
	saleFilterQuery
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// RecordSale writes a sale and credits the agent. Agents may only record
// their own sales; admins must name the agent.
func (s *Server) RecordSale(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req recordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	agentID, err := resolveSaleAgent(principal, req.AgentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	saleDate, err := parseTimeField("sale_date", req.SaleDate, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.saleSvc.Record(c.Request.Context(), saledomain.RecordSaleRequest{
		AgentID:      agentID,
		CustomerName: strings.TrimSpace(req.CustomerName),
		ProductName:  strings.TrimSpace(req.ProductName),
		Description:  strings.TrimSpace(req.Description),
		Notes:        strings.TrimSpace(req.Notes),
		Amount:       req.Amount,
		SaleDate:     saleDate,
		Status:       strings.TrimSpace(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tagLedger(c, resp.AgentID.String(), resp.ID.String())

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) EditSale(c *gin.Context) {
	var req editSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	edit := saledomain.EditSaleRequest{
		ID:           strings.TrimSpace(c.Param("id")),
		AgentID:      req.AgentID,
		CustomerName: req.CustomerName,
		ProductName:  req.ProductName,
		Description:  req.Description,
		Notes:        req.Notes,
		Amount:       req.Amount,
		Status:       req.Status,
	}
	if req.SaleDate != nil {
		saleDate, err := parseTimeField("sale_date", *req.SaleDate, false)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		edit.SaleDate = saleDate
	}

	resp, err := s.saleSvc.Edit(c.Request.Context(), edit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tagLedger(c, resp.AgentID.String(), "")

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSale(c *gin.Context) {
	if err := s.saleSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetSaleByID(c *gin.Context) {
	resp, err := s.saleSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tagLedger(c, resp.AgentID.String(), "")

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSales(c *gin.Context) {
	req, err := bindListSales(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.saleSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Sales, "page_info": resp.PageInfo})
}

// ListMySales lists the calling agent's sales. Any agent_id in the query is
// ignored.
func (s *Server) ListMySales(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok || !principal.IsAgent() {
		AbortWithError(c, ErrForbidden)
		return
	}

	req, err := bindListSales(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.saleSvc.ListByAgent(c.Request.Context(), principal.AgentID.String(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Sales, "page_info": resp.PageInfo})
}

func (s *Server) GetSalesSummary(c *gin.Context) {
	var query saleFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dateFrom, dateTo, err := parseDateRange(query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.Summary(c.Request.Context(), saledomain.SummaryRequest{
		AgentID:  strings.TrimSpace(query.AgentID),
		Status:   strings.TrimSpace(query.Status),
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Search:   strings.TrimSpace(query.Search),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func bindListSales(c *gin.Context) (saledomain.ListSaleRequest, error) {
	var query listSalesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return saledomain.ListSaleRequest{}, invalidRequestError()
	}

	dateFrom, dateTo, err := parseDateRange(query.saleFilterQuery)
	if err != nil {
		return saledomain.ListSaleRequest{}, err
	}

	return saledomain.ListSaleRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		AgentID:   strings.TrimSpace(query.AgentID),
		Status:    strings.TrimSpace(query.Status),
		DateFrom:  dateFrom,
		DateTo:    dateTo,
		Search:    strings.TrimSpace(query.Search),
		SortBy:    strings.TrimSpace(query.SortBy),
		SortOrder: strings.TrimSpace(query.SortOrder),
	}, nil
}

func parseDateRange(query saleFilterQuery) (*time.Time, *time.Time, error) {
	dateFrom, err := parseTimeField("date_from", query.DateFrom, false)
	if err != nil {
		return nil, nil, err
	}
	dateTo, err := parseTimeField("date_to", query.DateTo, true)
	if err != nil {
		return nil, nil, err
	}
	return dateFrom, dateTo, nil
}

func resolveSaleAgent(principal authdomain.Principal, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if principal.IsAgent() {
		own := principal.AgentID.String()
		if requested != "" && requested != own {
			return "", ErrForbidden
		}
		return own, nil
	}
	if principal.IsAdmin() {
		return requested, nil
	}
	return "", ErrForbidden
}
