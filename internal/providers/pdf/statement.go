package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrEmptyStatement = errors.New("statement has no agent")

// StatementData is the pre-formatted content of an agent statement. All
// values are display strings.
type StatementData struct {
	Title       string
	GeneratedAt string
	Period      string

	AgentName       string
	AgentEmail      string
	Level           string
	TotalSales      string
	TargetRemaining string
	CommissionSplit string

	Lines []StatementLine

	TotalAmount                 string
	TotalAgentCommission        string
	TotalOrganizationCommission string
}

type StatementLine struct {
	Date                   string
	Customer               string
	Product                string
	Status                 string
	Amount                 string
	AgentCommission        string
	OrganizationCommission string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	if data.AgentName == "" {
		return nil, ErrEmptyStatement
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := data.Title
	if title == "" {
		title = "Agent statement"
	}
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New(data.AgentName, props.Text{Style: fontstyle.Bold}),
			text.New(data.AgentEmail, props.Text{Top: 5}),
			text.New("Level: "+data.Level, props.Text{Top: 10}),
			text.New("Commission split: "+data.CommissionSplit, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Generated: "+data.GeneratedAt, props.Text{Align: align.Right}),
			text.New("Period: "+data.Period, props.Text{Top: 5, Align: align.Right}),
			text.New("Total sales: "+data.TotalSales, props.Text{Top: 10, Align: align.Right}),
			text.New("Remaining to L2: "+data.TargetRemaining, props.Text{Top: 15, Align: align.Right}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(8,
		text.NewCol(2, "Date", header),
		text.NewCol(2, "Customer", header),
		text.NewCol(2, "Product", header),
		text.NewCol(1, "Status", header),
		text.NewCol(2, "Amount", headerRight),
		text.NewCol(2, "Agent", headerRight),
		text.NewCol(1, "Org", headerRight),
	)
	m.AddRow(2, line.NewCol(12))

	cell := props.Text{Size: 8}
	cellRight := props.Text{Size: 8, Align: align.Right}
	if len(data.Lines) == 0 {
		m.AddRow(8, text.NewCol(12, "No sales in this period.", props.Text{Size: 9, Style: fontstyle.Italic}))
	}
	for _, item := range data.Lines {
		m.AddRow(7,
			text.NewCol(2, item.Date, cell),
			text.NewCol(2, item.Customer, cell),
			text.NewCol(2, item.Product, cell),
			text.NewCol(1, item.Status, cell),
			text.NewCol(2, item.Amount, cellRight),
			text.NewCol(2, item.AgentCommission, cellRight),
			text.NewCol(1, item.OrganizationCommission, cellRight),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(8,
		col.New(7),
		text.NewCol(3, "Total sales", props.Text{Size: 9}),
		text.NewCol(2, data.TotalAmount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(7),
		text.NewCol(3, "Agent commission", props.Text{Size: 9}),
		text.NewCol(2, data.TotalAgentCommission, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(7),
		text.NewCol(3, "Organization commission", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, data.TotalOrganizationCommission, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
