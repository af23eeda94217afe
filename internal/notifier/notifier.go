package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Intent is a single outbound push notification, produced whenever an
// engine operation changes a queue entry's position or status enough to
// be worth telling someone about (spec §4.3's notification-intent list,
// spec §2 item 3).
type Intent struct {
	UserID    string            `json:"userId"`
	PushToken string            `json:"pushToken"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
}

// Notifier is the engine-facing surface: Notify hands off a batch of
// intents and returns immediately. Delivery, batching, and retry all
// happen off of the caller's goroutine.
type Notifier interface {
	Notify(ctx context.Context, intents []Intent)
}

// Service is the production Notifier: intents are durably queued via an
// Outbox and delivered by a single consumer loop (Start), which waits on a
// shared outbound rate limit before each call to the Expo-compatible push
// endpoint. Grounded on stock/telemetry.go's decorator shape for the
// public interface, and on inchworks-webparts/limithandler for the
// token-bucket limiting idea (adapted from per-visitor HTTP throttling
// to per-Notifier outbound throttling).
type Service struct {
	outbox  *Outbox
	client  *ExpoClient
	limiter *limiter
	logger  *slog.Logger
	metrics Metrics

	batchMu      sync.Mutex
	batch        []Intent
	batchTimeout time.Duration
}

// Metrics is the subset of internal/metrics.EngineMetrics the Notifier
// increments; kept as a narrow interface so tests don't need the full
// Prometheus registry.
type Metrics interface {
	NotificationSent()
	NotificationFailed()
}

// NewService wires an Outbox, an ExpoClient, and a rate limiter into a
// running Notifier. Start must be called to begin consuming.
func NewService(outbox *Outbox, client *ExpoClient, ratePerSecond float64, burst int, logger *slog.Logger, metrics Metrics) *Service {
	return &Service{
		outbox:       outbox,
		client:       client,
		limiter:      newLimiter(ratePerSecond, burst),
		logger:       logger,
		metrics:      metrics,
		batchTimeout: 250 * time.Millisecond,
	}
}

// Notify publishes each intent to the outbox. It never returns an error:
// publish failures are logged by the Outbox itself (spec §7, best-effort).
func (s *Service) Notify(ctx context.Context, intents []Intent) {
	for _, in := range intents {
		s.outbox.Publish(ctx, in)
	}
}

const maxBatchSize = 100

// Start runs the delivery consumer until ctx is cancelled. It batches
// intents (up to 100 per outbound HTTP call, spec §6) and rate-limits
// outbound calls with the shared limiter.
func (s *Service) Start(ctx context.Context) error {
	return s.outbox.ConsumeBatch(ctx, maxBatchSize, s.batchTimeout, func(intents []Intent) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		err := s.client.Send(ctx, intents)
		if err != nil {
			if s.metrics != nil {
				for range intents {
					s.metrics.NotificationFailed()
				}
			}
			return err
		}
		if s.metrics != nil {
			for range intents {
				s.metrics.NotificationSent()
			}
		}
		return nil
	})
}
