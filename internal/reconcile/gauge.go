package reconcile

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// DriftGauge exposes the latest reconciliation outcome. Only agents that
// currently drift keep a series, so cardinality stays bounded by the number of
// inconsistent agents.
type DriftGauge struct {
	drift   *prometheus.GaugeVec
	drifted prometheus.Gauge
	lastRun prometheus.Gauge
}

func NewDriftGauge(reg prometheus.Registerer) (*DriftGauge, error) {
	g := &DriftGauge{
		drift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "realtyledger_agent_total_drift",
			Help: "Stored total sales minus the ledger sum, per drifting agent.",
		}, []string{"agent_id"}),
		drifted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtyledger_reconcile_drifted_agents",
			Help: "Number of agents found inconsistent by the last full reconciliation.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtyledger_reconcile_last_run_timestamp_seconds",
			Help: "Unix time of the last full reconciliation.",
		}),
	}

	if reg == nil {
		return g, nil
	}
	for _, c := range []prometheus.Collector{g.drift, g.drifted, g.lastRun} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
		}
	}
	return g, nil
}

// Set records a single-agent check.
func (g *DriftGauge) Set(result Result) {
	if g == nil {
		return
	}
	if result.Drift == 0 {
		g.drift.DeleteLabelValues(result.AgentID.String())
		return
	}
	g.drift.WithLabelValues(result.AgentID.String()).Set(float64(result.Drift))
}

// Replace swaps every series for the outcome of a full run.
func (g *DriftGauge) Replace(report Report) {
	if g == nil {
		return
	}
	g.drift.Reset()
	for _, result := range report.Drifted {
		if result.Drift != 0 {
			g.drift.WithLabelValues(result.AgentID.String()).Set(float64(result.Drift))
		}
	}
	g.drifted.Set(float64(len(report.Drifted)))
	g.lastRun.Set(float64(report.CheckedAt.Unix()))
}
