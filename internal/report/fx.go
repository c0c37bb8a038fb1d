package report

import (
	"github.com/smallbiznis/realtyledger/internal/providers/pdf"
	"github.com/smallbiznis/realtyledger/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	pdf.Module,
	fx.Provide(service.NewService),
)
