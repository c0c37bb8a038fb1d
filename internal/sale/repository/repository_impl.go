package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/realtyledger/internal/sale/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const joinedColumns = `sales.*,
	agents.id AS live_agent_id,
	agents.name AS live_agent_name,
	agents.email AS live_agent_email,
	agents.level AS live_agent_level`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sales (
			id, agent_id, agent_name, customer_name, product_name, description, notes,
			amount, sale_date, status,
			agent_commission_percentage, organization_commission_percentage,
			agent_commission_amount, organization_commission_amount, counted_amount,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID,
		sale.AgentID,
		sale.AgentName,
		sale.CustomerName,
		sale.ProductName,
		sale.Description,
		sale.Notes,
		sale.Amount,
		sale.SaleDate,
		sale.Status,
		sale.AgentCommissionPercentage,
		sale.OrganizationCommissionPercentage,
		sale.AgentCommissionAmount,
		sale.OrganizationCommissionAmount,
		sale.CountedAmount,
		sale.CreatedAt,
		sale.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	return r.findOne(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	return r.findOne(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repo) findOne(stmt *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	var sales []*domain.Sale
	if err := stmt.Where("id = ?", id).Limit(1).Find(&sales).Error; err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, nil
	}
	return sales[0], nil
}

func (r *repo) FindView(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SaleRow, error) {
	var rows []*domain.SaleRow
	err := joined(db.WithContext(ctx)).
		Where("sales.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListSaleFilter, sort domain.ListSort, limit, offset int) ([]*domain.SaleRow, error) {
	var rows []*domain.SaleRow
	stmt := applyFilter(joined(db.WithContext(ctx)), filter)

	field := string(sort.Field)
	if field == "" {
		field = string(domain.SortBySaleDate)
	}
	stmt = stmt.Order(clause.OrderByColumn{
		Column: clause.Column{Table: "sales", Name: field},
		Desc:   sort.Descending,
	}).Order(clause.OrderByColumn{
		Column: clause.Column{Table: "sales", Name: "id"},
		Desc:   sort.Descending,
	})

	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if offset > 0 {
		stmt = stmt.Offset(offset)
	}

	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sales SET
			agent_id = ?, agent_name = ?, customer_name = ?, product_name = ?,
			description = ?, notes = ?, amount = ?, sale_date = ?, status = ?,
			agent_commission_percentage = ?, organization_commission_percentage = ?,
			agent_commission_amount = ?, organization_commission_amount = ?,
			counted_amount = ?, updated_at = ?
		 WHERE id = ?`,
		sale.AgentID,
		sale.AgentName,
		sale.CustomerName,
		sale.ProductName,
		sale.Description,
		sale.Notes,
		sale.Amount,
		sale.SaleDate,
		sale.Status,
		sale.AgentCommissionPercentage,
		sale.OrganizationCommissionPercentage,
		sale.AgentCommissionAmount,
		sale.OrganizationCommissionAmount,
		sale.CountedAmount,
		sale.UpdatedAt,
		sale.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM sales WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SummarizeByStatus(ctx context.Context, db *gorm.DB, filter domain.ListSaleFilter) ([]domain.StatusTotals, error) {
	var rows []domain.StatusTotals
	stmt := db.WithContext(ctx).
		Table("sales").
		Select(`sales.status AS status,
			COUNT(*) AS sale_count,
			COALESCE(SUM(sales.amount), 0) AS total_amount,
			COALESCE(SUM(sales.agent_commission_amount), 0) AS total_agent_commission,
			COALESCE(SUM(sales.organization_commission_amount), 0) AS total_organization_commission`)
	if filter.Search != "" {
		stmt = stmt.Joins("LEFT JOIN agents ON agents.id = sales.agent_id")
	}
	stmt = applyFilter(stmt, filter).Group("sales.status")

	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) SumContributions(ctx context.Context, db *gorm.DB, agentID *snowflake.ID) (map[snowflake.ID]int64, error) {
	type row struct {
		AgentID snowflake.ID
		Total   int64
	}
	var rows []row

	stmt := db.WithContext(ctx).
		Table("sales").
		Select("agent_id, COALESCE(SUM(counted_amount), 0) AS total")
	if agentID != nil {
		stmt = stmt.Where("agent_id = ?", *agentID)
	}
	if err := stmt.Group("agent_id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make(map[snowflake.ID]int64, len(rows))
	for _, row := range rows {
		totals[row.AgentID] = row.Total
	}
	return totals, nil
}

func joined(db *gorm.DB) *gorm.DB {
	return db.Table("sales").
		Select(joinedColumns).
		Joins("LEFT JOIN agents ON agents.id = sales.agent_id")
}

func applyFilter(stmt *gorm.DB, filter domain.ListSaleFilter) *gorm.DB {
	if filter.AgentID != nil {
		stmt = stmt.Where("sales.agent_id = ?", *filter.AgentID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("sales.status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		stmt = stmt.Where("sales.sale_date >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		stmt = stmt.Where("sales.sale_date <= ?", filter.DateTo.UTC())
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where(
			"LOWER(sales.customer_name) LIKE ? OR LOWER(sales.product_name) LIKE ? OR LOWER(sales.agent_name) LIKE ? OR LOWER(COALESCE(agents.name, '')) LIKE ?",
			like, like, like, like,
		)
	}
	return stmt
}
