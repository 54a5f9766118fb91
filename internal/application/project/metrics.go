package project

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/rezkam/atelier/internal/domain"
)

const meterName = "github.com/rezkam/atelier/internal/application/project"

type metrics struct {
	approvals  metric.Int64Counter
	reconciled metric.Int64Counter
	promoted   metric.Int64Counter
}

// newMetrics registers the service counters on the global meter provider.
// Registration failures fall back to no-op counters so the service keeps working.
func newMetrics() *metrics {
	meter := otel.Meter(meterName)
	fallback := noop.NewMeterProvider().Meter(meterName)

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			slog.Warn("Failed to register counter, using no-op", "name", name, "error", err)
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}

	return &metrics{
		approvals:  counter("atelier.approvals.applied", "Approval commands accepted"),
		reconciled: counter("atelier.budget.reconciled", "Additional budget credits applied to projects"),
		promoted:   counter("atelier.overdue.promoted", "Tasks and transactions promoted to OVERDUE"),
	}
}

func (m *metrics) approvalApplied(ctx context.Context, kind domain.EntityKind, stage domain.Stage, action domain.ApprovalAction) {
	m.approvals.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", string(kind)),
		attribute.String("stage", string(stage)),
		attribute.String("action", string(action)),
	))
}

func (m *metrics) budgetReconciled(ctx context.Context) {
	m.reconciled.Add(ctx, 1)
}

func (m *metrics) overduePromoted(ctx context.Context, kind domain.EntityKind, n int) {
	if n == 0 {
		return
	}
	m.promoted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("entity", string(kind))))
}
