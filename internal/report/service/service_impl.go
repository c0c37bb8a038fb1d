package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/smallbiznis/realtyledger/internal/providers/pdf"
	"github.com/smallbiznis/realtyledger/internal/report/domain"
	saledomain "github.com/smallbiznis/realtyledger/internal/sale/domain"
	"github.com/smallbiznis/realtyledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	Agents agentdomain.Service
	Sales  saledomain.Service
	Policy *config.LedgerPolicyHolder
	PDF    pdf.Provider
}

type Service struct {
	log    *zap.Logger
	clock  clock.Clock
	agents agentdomain.Service
	sales  saledomain.Service
	policy *config.LedgerPolicyHolder
	pdf    pdf.Provider
}

func NewService(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("report.service"),
		clock:  p.Clock,
		agents: p.Agents,
		sales:  p.Sales,
		policy: p.Policy,
		pdf:    p.PDF,
	}
}

func (s *Service) Summary(ctx context.Context, req saledomain.SummaryRequest) (saledomain.Summary, error) {
	return s.sales.Summarize(ctx, req)
}

func (s *Service) AgentStatement(ctx context.Context, req domain.StatementRequest) (domain.Statement, error) {
	agent, err := s.agents.GetByID(ctx, req.AgentID)
	if err != nil {
		switch {
		case errors.Is(err, agentdomain.ErrInvalidID):
			return domain.Statement{}, domain.ErrInvalidAgent
		case errors.Is(err, agentdomain.ErrNotFound):
			return domain.Statement{}, domain.ErrNotFound
		}
		return domain.Statement{}, err
	}

	threshold := s.policy.Get().PromotionThreshold
	remaining := threshold - agent.TotalSales
	if remaining < 0 || agent.Level == agentdomain.LevelL2 {
		remaining = 0
	}

	statement := domain.Statement{
		AgentID:                          agent.ID,
		AgentName:                        agent.Name,
		AgentEmail:                       agent.Email,
		Level:                            agent.Level,
		TotalSales:                       agent.TotalSales,
		PromotionThreshold:               threshold,
		TargetRemaining:                  remaining,
		AgentCommissionPercentage:        agent.AgentCommissionPercentage,
		OrganizationCommissionPercentage: agent.OrganizationCommissionPercentage,
		DateFrom:                         req.DateFrom,
		DateTo:                           req.DateTo,
		Lines:                            []domain.StatementLine{},
		GeneratedAt:                      s.clock.Now(),
	}

	listReq := saledomain.ListSaleRequest{
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		SortBy:    string(saledomain.SortBySaleDate),
		SortOrder: "asc",
	}
	listReq.PageSize = pagination.MaxPageSize
	for {
		page, err := s.sales.ListByAgent(ctx, agent.ID.String(), listReq)
		if err != nil {
			return domain.Statement{}, err
		}
		for _, sale := range page.Sales {
			statement.Lines = append(statement.Lines, domain.StatementLine{
				SaleID:                       sale.ID,
				SaleDate:                     sale.SaleDate,
				CustomerName:                 sale.CustomerName,
				ProductName:                  sale.ProductName,
				Status:                       sale.Status,
				Amount:                       sale.Amount,
				AgentCommissionAmount:        sale.AgentCommissionAmount,
				OrganizationCommissionAmount: sale.OrganizationCommissionAmount,
			})
			statement.TotalAmount += sale.Amount
			statement.TotalAgentCommission += sale.AgentCommissionAmount
			statement.TotalOrganizationCommission += sale.OrganizationCommissionAmount
		}
		if !page.HasMore || page.NextPageToken == "" {
			break
		}
		listReq.PageToken = page.NextPageToken
	}

	return statement, nil
}

func (s *Service) RenderStatement(ctx context.Context, statement domain.Statement) (io.Reader, error) {
	data := pdf.StatementData{
		Title:                       "Agent statement",
		GeneratedAt:                 statement.GeneratedAt.UTC().Format(time.RFC1123),
		Period:                      formatPeriod(statement.DateFrom, statement.DateTo),
		AgentName:                   statement.AgentName,
		AgentEmail:                  statement.AgentEmail,
		Level:                       string(statement.Level),
		TotalSales:                  formatAmount(statement.TotalSales),
		TargetRemaining:             formatAmount(statement.TargetRemaining),
		CommissionSplit:             fmt.Sprintf("%s%% / %s%%", statement.AgentCommissionPercentage.String(), statement.OrganizationCommissionPercentage.String()),
		TotalAmount:                 formatAmount(statement.TotalAmount),
		TotalAgentCommission:        formatAmount(statement.TotalAgentCommission),
		TotalOrganizationCommission: formatAmount(statement.TotalOrganizationCommission),
	}
	for _, item := range statement.Lines {
		data.Lines = append(data.Lines, pdf.StatementLine{
			Date:                   item.SaleDate.UTC().Format(dateLayout),
			Customer:               item.CustomerName,
			Product:                item.ProductName,
			Status:                 string(item.Status),
			Amount:                 formatAmount(item.Amount),
			AgentCommission:        formatAmount(item.AgentCommissionAmount),
			OrganizationCommission: formatAmount(item.OrganizationCommissionAmount),
		})
	}

	reader, err := s.pdf.GenerateStatement(ctx, data)
	if err != nil {
		s.log.Error("render agent statement", zap.String("agent_id", statement.AgentID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}
	return reader, nil
}

func formatPeriod(from, to *time.Time) string {
	switch {
	case from == nil && to == nil:
		return "all time"
	case from == nil:
		return "until " + to.UTC().Format(dateLayout)
	case to == nil:
		return "since " + from.UTC().Format(dateLayout)
	default:
		return from.UTC().Format(dateLayout) + " to " + to.UTC().Format(dateLayout)
	}
}
