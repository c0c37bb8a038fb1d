package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/commission"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/smallbiznis/realtyledger/internal/observability/metrics"
	"github.com/smallbiznis/realtyledger/internal/sale/domain"
	"github.com/smallbiznis/realtyledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	AgentRepo agentdomain.Repository
	Audit     auditdomain.Service
	Policy    *config.LedgerPolicyHolder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	agentRepo agentdomain.Repository
	audit     auditdomain.Service
	policy    *config.LedgerPolicyHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("sale.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		agentRepo: p.AgentRepo,
		audit:     p.Audit,
		policy:    p.Policy,
		metrics:   p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordSaleRequest) (domain.Sale, error) {
	agentID, err := parseAgentID(req.AgentID)
	if err != nil {
		return domain.Sale{}, err
	}

	customerName := strings.TrimSpace(req.CustomerName)
	if customerName == "" {
		return domain.Sale{}, domain.ErrInvalidCustomerName
	}
	productName := strings.TrimSpace(req.ProductName)
	if productName == "" {
		return domain.Sale{}, domain.ErrInvalidProductName
	}
	if req.Amount < 0 {
		return domain.Sale{}, domain.ErrInvalidAmount
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return domain.Sale{}, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = productName
	}

	now := s.clock.Now()
	saleDate := now
	if req.SaleDate != nil && !req.SaleDate.IsZero() {
		saleDate = req.SaleDate.UTC()
	}

	policy := s.policy.Get()
	var sale domain.Sale
	var promoted bool

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agent, err := s.agentRepo.FindByIDForUpdate(ctx, tx, agentID)
		if err != nil {
			return err
		}
		if agent == nil {
			return domain.ErrAgentNotFound
		}

		split := commission.Compute(req.Amount, agent.AgentCommissionPercentage, agent.OrganizationCommissionPercentage)
		sale = domain.Sale{
			ID:                               s.genID.Generate(),
			AgentID:                          agent.ID,
			AgentName:                        agent.Name,
			CustomerName:                     customerName,
			ProductName:                      productName,
			Description:                      description,
			Notes:                            strings.TrimSpace(req.Notes),
			Amount:                           req.Amount,
			SaleDate:                         saleDate,
			Status:                           status,
			AgentCommissionPercentage:        agent.AgentCommissionPercentage,
			OrganizationCommissionPercentage: agent.OrganizationCommissionPercentage,
			AgentCommissionAmount:            split.AgentAmount,
			OrganizationCommissionAmount:     split.OrgAmount,
			CreatedAt:                        now,
			UpdatedAt:                        now,
		}

		sale.CountedAmount = sale.Contribution(policy.CountCancelledSales)

		if err := s.repo.Insert(ctx, tx, &sale); err != nil {
			return err
		}

		promoted, err = s.applyContribution(ctx, tx, agent.ID, sale.CountedAmount, policy.PromotionThreshold, now)
		if err != nil {
			return err
		}

		return s.audit.AuditLog(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionSaleRecorded,
			TargetType: auditdomain.TargetSale,
			TargetID:   sale.ID.String(),
			AgentID:    agent.ID.String(),
			Metadata: map[string]any{
				"agent_id":                       agent.ID.String(),
				"amount":                         sale.Amount,
				"status":                         string(sale.Status),
				"agent_commission_amount":        sale.AgentCommissionAmount,
				"organization_commission_amount": sale.OrganizationCommissionAmount,
			},
		})
	})
	if err != nil {
		s.reportFailure(ctx, "record_sale", agentID, err)
		return domain.Sale{}, err
	}

	s.metrics.RecordSale(ctx, string(sale.Status), sale.AgentCommissionAmount, sale.OrganizationCommissionAmount)
	if promoted {
		s.metrics.RecordPromotion(ctx, string(agentdomain.LevelL2))
	}
	s.log.Info("sale recorded",
		zap.String("sale_id", sale.ID.String()),
		zap.String("agent_id", agentID.String()),
		zap.Int64("amount", sale.Amount),
		zap.Bool("promoted", promoted),
	)
	return sale, nil
}

func (s *Service) Edit(ctx context.Context, req domain.EditSaleRequest) (domain.Sale, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Sale{}, err
	}

	var targetAgentID *snowflake.ID
	if req.AgentID != nil {
		parsed, err := parseAgentID(*req.AgentID)
		if err != nil {
			return domain.Sale{}, err
		}
		targetAgentID = &parsed
	}
	if req.CustomerName != nil && strings.TrimSpace(*req.CustomerName) == "" {
		return domain.Sale{}, domain.ErrInvalidCustomerName
	}
	if req.ProductName != nil && strings.TrimSpace(*req.ProductName) == "" {
		return domain.Sale{}, domain.ErrInvalidProductName
	}
	if req.Amount != nil && *req.Amount < 0 {
		return domain.Sale{}, domain.ErrInvalidAmount
	}
	var status *domain.Status
	if req.Status != nil {
		parsed, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return domain.Sale{}, err
		}
		status = &parsed
	}

	now := s.clock.Now()
	policy := s.policy.Get()
	var updated domain.Sale
	var reassigned bool
	var promotions int

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		updated = *existing
		applyEdit(&updated, req, status)
		updated.UpdatedAt = now

		// The old side comes off at the amount it was counted with, whatever the
		// policy is now.
		oldContribution := existing.CountedAmount
		newContribution := updated.Contribution(policy.CountCancelledSales)
		updated.CountedAmount = newContribution
		reassigned = targetAgentID != nil && *targetAgentID != existing.AgentID

		if reassigned {
			newAgent, oldAgent, err := s.lockPair(ctx, tx, *targetAgentID, existing.AgentID)
			if err != nil {
				return err
			}
			if newAgent == nil {
				return domain.ErrAgentNotFound
			}

			updated.AgentID = newAgent.ID
			updated.AgentName = newAgent.Name
			updated.AgentCommissionPercentage = newAgent.AgentCommissionPercentage
			updated.OrganizationCommissionPercentage = newAgent.OrganizationCommissionPercentage

			if oldAgent != nil && oldContribution != 0 {
				if _, err := s.agentRepo.IncrementTotalSales(ctx, tx, oldAgent.ID, -oldContribution, now); err != nil {
					return err
				}
			}
			promoted, err := s.applyContribution(ctx, tx, newAgent.ID, newContribution, policy.PromotionThreshold, now)
			if err != nil {
				return err
			}
			if promoted {
				promotions++
			}
		} else {
			agent, err := s.agentRepo.FindByIDForUpdate(ctx, tx, existing.AgentID)
			if err != nil {
				return err
			}
			// Orphaned sales keep their snapshot and adjust no total.
			if agent != nil {
				updated.AgentCommissionPercentage = agent.AgentCommissionPercentage
				updated.OrganizationCommissionPercentage = agent.OrganizationCommissionPercentage

				promoted, err := s.applyContribution(ctx, tx, agent.ID, newContribution-oldContribution, policy.PromotionThreshold, now)
				if err != nil {
					return err
				}
				if promoted {
					promotions++
				}
			}
		}

		split := commission.Compute(updated.Amount, updated.AgentCommissionPercentage, updated.OrganizationCommissionPercentage)
		updated.AgentCommissionAmount = split.AgentAmount
		updated.OrganizationCommissionAmount = split.OrgAmount

		if err := s.repo.Update(ctx, tx, &updated); err != nil {
			return err
		}

		metadata := map[string]any{
			"agent_id":     updated.AgentID.String(),
			"amount":       updated.Amount,
			"amount_delta": updated.Amount - existing.Amount,
			"status":       string(updated.Status),
		}
		if reassigned {
			metadata["previous_agent_id"] = existing.AgentID.String()
		}
		if existing.Status != updated.Status {
			metadata["previous_status"] = string(existing.Status)
		}
		return s.audit.AuditLog(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionSaleEdited,
			TargetType: auditdomain.TargetSale,
			TargetID:   id.String(),
			AgentID:    updated.AgentID.String(),
			Metadata:   metadata,
		})
	})
	if err != nil {
		s.reportFailure(ctx, "edit_sale", 0, err)
		return domain.Sale{}, err
	}

	s.metrics.RecordSaleEdited(ctx, string(updated.Status), reassigned)
	for i := 0; i < promotions; i++ {
		s.metrics.RecordPromotion(ctx, string(agentdomain.LevelL2))
	}
	s.log.Info("sale edited",
		zap.String("sale_id", id.String()),
		zap.String("agent_id", updated.AgentID.String()),
		zap.Bool("reassigned", reassigned),
	)
	return updated, nil
}

// Delete removes a sale and takes its contribution off the owning agent.
// The agent keeps its level.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	orphan := false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		if _, err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}

		if contribution := existing.CountedAmount; contribution != 0 {
			found, err := s.agentRepo.IncrementTotalSales(ctx, tx, existing.AgentID, -contribution, now)
			if err != nil {
				return err
			}
			orphan = !found
		}

		return s.audit.AuditLog(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionSaleDeleted,
			TargetType: auditdomain.TargetSale,
			TargetID:   id.String(),
			AgentID:    existing.AgentID.String(),
			Metadata: map[string]any{
				"agent_id": existing.AgentID.String(),
				"amount":   existing.Amount,
				"status":   string(existing.Status),
				"orphan":   orphan,
			},
		})
	})
	if err != nil {
		s.reportFailure(ctx, "delete_sale", 0, err)
		return err
	}

	s.metrics.RecordSaleDeleted(ctx, orphan)
	s.log.Info("sale deleted", zap.String("sale_id", id.String()), zap.Bool("orphan", orphan))
	return nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.SaleView, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.SaleView{}, err
	}

	row, err := s.repo.FindView(ctx, s.db, id)
	if err != nil {
		return domain.SaleView{}, err
	}
	if row == nil {
		return domain.SaleView{}, domain.ErrNotFound
	}
	return row.View(), nil
}

func (s *Service) List(ctx context.Context, req domain.ListSaleRequest) (domain.ListSaleResponse, error) {
	filter, err := buildFilter(req.AgentID, req.Status, req.DateFrom, req.DateTo, req.Search)
	if err != nil {
		return domain.ListSaleResponse{}, err
	}
	sort, err := parseSort(req.SortBy, req.SortOrder)
	if err != nil {
		return domain.ListSaleResponse{}, err
	}

	offset := 0
	if strings.TrimSpace(req.PageToken) != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListSaleResponse{}, domain.ErrInvalidPageToken
		}
		offset = cursor.Offset
	}

	limit := req.Limit()
	rows, err := s.repo.List(ctx, s.db, filter, sort, limit+1, offset)
	if err != nil {
		return domain.ListSaleResponse{}, err
	}

	next := offset + limit
	rows, pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(*domain.SaleRow) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{Offset: next})
		if err != nil {
			return ""
		}
		return token
	})

	sales := make([]domain.SaleView, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		sales = append(sales, row.View())
	}
	return domain.ListSaleResponse{PageInfo: *pageInfo, Sales: sales}, nil
}

func (s *Service) ListByAgent(ctx context.Context, agentID string, req domain.ListSaleRequest) (domain.ListSaleResponse, error) {
	if strings.TrimSpace(agentID) == "" {
		return domain.ListSaleResponse{}, domain.ErrInvalidAgent
	}
	req.AgentID = agentID
	return s.List(ctx, req)
}

func (s *Service) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	filter, err := buildFilter(req.AgentID, req.Status, req.DateFrom, req.DateTo, req.Search)
	if err != nil {
		return domain.Summary{}, err
	}

	rows, err := s.repo.SummarizeByStatus(ctx, s.db, filter)
	if err != nil {
		return domain.Summary{}, err
	}

	summary := domain.Summary{
		CountByStatus:  map[domain.Status]int64{},
		AmountByStatus: map[domain.Status]int64{},
	}
	for _, status := range []domain.Status{domain.StatusPending, domain.StatusCompleted, domain.StatusCancelled} {
		summary.CountByStatus[status] = 0
		summary.AmountByStatus[status] = 0
	}
	for _, row := range rows {
		summary.SaleCount += row.SaleCount
		summary.TotalAmount += row.TotalAmount
		summary.TotalAgentCommission += row.TotalAgentCommission
		summary.TotalOrganizationCommission += row.TotalOrganizationCommission
		summary.CountByStatus[row.Status] = row.SaleCount
		summary.AmountByStatus[row.Status] = row.TotalAmount
	}
	return summary, nil
}

// applyContribution adjusts the agent's total by delta with a single UPDATE
// and re-runs the promotion rule when the total grew.
func (s *Service) applyContribution(ctx context.Context, tx *gorm.DB, agentID snowflake.ID, delta, threshold int64, at time.Time) (bool, error) {
	if delta == 0 {
		return false, nil
	}

	found, err := s.agentRepo.IncrementTotalSales(ctx, tx, agentID, delta, at)
	if err != nil {
		return false, err
	}
	if !found {
		return false, domain.ErrAgentNotFound
	}
	if delta < 0 {
		return false, nil
	}

	promoted, err := s.agentRepo.Promote(ctx, tx, agentID, threshold, at)
	if err != nil || !promoted {
		return false, err
	}

	err = s.audit.AuditLog(ctx, tx, auditdomain.Entry{
		Action:     auditdomain.ActionAgentPromoted,
		TargetType: auditdomain.TargetAgent,
		TargetID:   agentID.String(),
		Metadata: map[string]any{
			"level":     string(agentdomain.LevelL2),
			"threshold": threshold,
		},
	})
	return err == nil, err
}

// lockPair locks two agents in ascending ID order so concurrent reassignments
// between the same pair cannot deadlock.
func (s *Service) lockPair(ctx context.Context, tx *gorm.DB, newID, oldID snowflake.ID) (*agentdomain.Agent, *agentdomain.Agent, error) {
	first, second := newID, oldID
	if second < first {
		first, second = second, first
	}

	locked := make(map[snowflake.ID]*agentdomain.Agent, 2)
	for _, id := range []snowflake.ID{first, second} {
		agent, err := s.agentRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, nil, err
		}
		locked[id] = agent
	}
	return locked[newID], locked[oldID], nil
}

func (s *Service) reportFailure(ctx context.Context, operation string, agentID snowflake.ID, err error) {
	if isClientError(err) {
		return
	}
	fields := []zap.Field{zap.String("operation", operation), zap.Error(err)}
	if agentID != 0 {
		fields = append(fields, zap.String("agent_id", agentID.String()))
	}
	s.log.Error("ledger transaction rolled back", fields...)
	s.metrics.RecordConsistencyFailure(ctx, operation)
}

func applyEdit(sale *domain.Sale, req domain.EditSaleRequest, status *domain.Status) {
	if req.CustomerName != nil {
		sale.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.ProductName != nil {
		sale.ProductName = strings.TrimSpace(*req.ProductName)
	}
	if req.Description != nil {
		sale.Description = strings.TrimSpace(*req.Description)
	}
	if sale.Description == "" {
		sale.Description = sale.ProductName
	}
	if req.Notes != nil {
		sale.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Amount != nil {
		sale.Amount = *req.Amount
	}
	if req.SaleDate != nil && !req.SaleDate.IsZero() {
		sale.SaleDate = req.SaleDate.UTC()
	}
	if status != nil {
		sale.Status = *status
	}
}

func buildFilter(agentID, status string, from, to *time.Time, search string) (domain.ListSaleFilter, error) {
	filter := domain.ListSaleFilter{
		DateFrom: from,
		DateTo:   to,
		Search:   strings.TrimSpace(search),
	}
	if strings.TrimSpace(agentID) != "" {
		id, err := parseAgentID(agentID)
		if err != nil {
			return domain.ListSaleFilter{}, err
		}
		filter.AgentID = &id
	}
	if strings.TrimSpace(status) != "" {
		parsed, err := domain.ParseStatus(status)
		if err != nil {
			return domain.ListSaleFilter{}, err
		}
		filter.Status = parsed
	}
	if from != nil && to != nil && from.After(*to) {
		return domain.ListSaleFilter{}, domain.ErrInvalidTimeRange
	}
	return filter, nil
}

func parseSort(field, order string) (domain.ListSort, error) {
	sort := domain.ListSort{Field: domain.SortBySaleDate, Descending: true}
	switch domain.SortField(strings.ToLower(strings.TrimSpace(field))) {
	case "", domain.SortBySaleDate:
	case domain.SortByAmount:
		sort.Field = domain.SortByAmount
	case domain.SortByCreatedAt:
		sort.Field = domain.SortByCreatedAt
	default:
		return domain.ListSort{}, domain.ErrInvalidSort
	}
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "desc":
	case "asc":
		sort.Descending = false
	default:
		return domain.ListSort{}, domain.ErrInvalidSort
	}
	return sort, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseAgentID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidAgent
	}
	return id, nil
}

func isClientError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrAgentNotFound)
}
