package engine

import (
	"context"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/metrics"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("queue-engine/internal/engine")

// Telemetry wraps an Interface with OTel spans and Prometheus counters
// per operation, so internal/engine's own methods stay free of
// cross-cutting instrumentation code — grounded on stock/telemetry.go's
// decorator shape.
type Telemetry struct {
	next    Interface
	metrics *metrics.EngineMetrics
}

// WithTelemetry wraps next.
func WithTelemetry(next Interface, m *metrics.EngineMetrics) *Telemetry {
	return &Telemetry{next: next, metrics: m}
}

var _ Interface = (*Telemetry)(nil)

func (t *Telemetry) observe(ctx context.Context, spanName, metricName string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	t.metrics.Observe(metricName, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (t *Telemetry) Enqueue(ctx context.Context, req EnqueueRequest) ([]*model.QueueEntry, error) {
	var out []*model.QueueEntry
	err := t.observe(ctx, "queue.enqueue", "enqueue", func(ctx context.Context) error {
		var err error
		out, err = t.next.Enqueue(ctx, req)
		return err
	})
	if err == nil {
		t.metrics.EntriesEnqueued.Add(float64(len(out)))
	}
	return out, err
}

func (t *Telemetry) ApplyAction(ctx context.Context, req ActionRequest) (*model.QueueEntry, error) {
	var out *model.QueueEntry
	spanName := "queue.action." + string(req.Action)
	err := t.observe(ctx, spanName, "action", func(ctx context.Context) error {
		var err error
		out, err = t.next.ApplyAction(ctx, req)
		return err
	})
	if err == nil {
		t.metrics.ActionsApplied.WithLabelValues(string(req.Action)).Inc()
	}
	return out, err
}

func (t *Telemetry) Restructure(ctx context.Context, businessID string, from, to time.Time) (RestructureResult, error) {
	var out RestructureResult
	err := t.observe(ctx, "queue.restructure", "restructure", func(ctx context.Context) error {
		var err error
		out, err = t.next.Restructure(ctx, businessID, from, to)
		return err
	})
	if err == nil {
		t.metrics.RestructuresRun.Inc()
		t.metrics.EntriesRepositioned.Add(float64(out.UpdatedCount))
	}
	return out, err
}

func (t *Telemetry) SetBreak(ctx context.Context, businessID, helperID string) error {
	return t.observe(ctx, "queue.break", "break", func(ctx context.Context) error {
		return t.next.SetBreak(ctx, businessID, helperID)
	})
}

func (t *Telemetry) ResumeBreak(ctx context.Context, businessID, helperID string) error {
	return t.observe(ctx, "queue.resume", "resume", func(ctx context.Context) error {
		return t.next.ResumeBreak(ctx, businessID, helperID)
	})
}

func (t *Telemetry) UpdateRating(ctx context.Context, entryID string, rating int, notes string, principal identity.Principal) (*model.QueueEntry, error) {
	var out *model.QueueEntry
	err := t.observe(ctx, "queue.rating", "update_rating", func(ctx context.Context) error {
		var err error
		out, err = t.next.UpdateRating(ctx, entryID, rating, notes, principal)
		return err
	})
	return out, err
}

// Read projections pass straight through: they are cheap, cache-backed
// reads that don't warrant their own span/metric pair.

func (t *Telemetry) HelperQueue(ctx context.Context, helperID string, from, to time.Time) (HelperQueueView, error) {
	return t.next.HelperQueue(ctx, helperID, from, to)
}

func (t *Telemetry) HelperWaitTimes(ctx context.Context, businessID string) (HelperWaitTimesView, error) {
	return t.next.HelperWaitTimes(ctx, businessID)
}

func (t *Telemetry) RecentHelperActions(ctx context.Context, helperID string, limit int) ([]RecentAction, error) {
	return t.next.RecentHelperActions(ctx, helperID, limit)
}

func (t *Telemetry) UserQueueHistory(ctx context.Context, userID string, from, to time.Time) ([]*model.QueueEntry, error) {
	return t.next.UserQueueHistory(ctx, userID, from, to)
}

func (t *Telemetry) BusinessQueueHistory(ctx context.Context, businessID, helperID string, from, to time.Time) ([]*model.QueueEntry, error) {
	return t.next.BusinessQueueHistory(ctx, businessID, helperID, from, to)
}

func (t *Telemetry) AddManualCustomer(ctx context.Context, businessID, name, phone string, gender model.Gender) (*model.ManualCustomer, error) {
	return t.next.AddManualCustomer(ctx, businessID, name, phone, gender)
}

func (t *Telemetry) SearchManualCustomers(ctx context.Context, businessID, name, phone string) ([]*model.ManualCustomer, error) {
	return t.next.SearchManualCustomers(ctx, businessID, name, phone)
}
