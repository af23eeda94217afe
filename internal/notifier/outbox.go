// Package notifier is the buffered, fire-and-forget sink spec §2 item 3
// describes: it batches outbound push notifications and retries
// transport failures a bounded number of times; failures are logged,
// never propagated to the engine operation that triggered them (spec §7).
//
// The handoff from an engine operation to the Notifier's workers goes
// through a durable AMQP queue rather than a bare Go channel, grounded on
// the teacher's common/broker (the same retry/DLX shape, repurposed from
// an inter-service event bus to a single-process producer/consumer pair —
// spec §9 forbids using a network hop to call back into the engine, but
// says nothing about the Notifier's own internal handoff).
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	outboundQueue = "notifications.outbound"
	dlx           = "notifications.dlx"
	maxRetries    = 3
)

// Outbox is the durable handoff between engine operations (producers) and
// the Notifier's delivery workers (consumers).
type Outbox struct {
	ch     *amqp.Channel
	logger *slog.Logger
}

// Connect dials RabbitMQ and declares the outbound queue plus its
// queue-specific dead-letter queue, mirroring common/broker.Connect's
// DLX setup.
func Connect(user, pass, host, port string, logger *slog.Logger) (*Outbox, func() error, error) {
	addr := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)
	conn, err := amqp.Dial(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}

	closeFn := func() error {
		if err := ch.Close(); err != nil {
			return err
		}
		return conn.Close()
	}

	return &Outbox{ch: ch, logger: logger}, closeFn, nil
}

func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlx exchange: %w", err)
	}

	dlq := outboundQueue + ".dlq"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlq %s: %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, outboundQueue, dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind dlq: %w", err)
	}

	_, err := ch.QueueDeclare(outboundQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": dlx,
	})
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", outboundQueue, err)
	}
	return nil
}

// Publish enqueues one notification intent. It is best-effort: failures
// are logged and swallowed, matching spec §7's "the notification step
// itself is best-effort".
func (o *Outbox) Publish(ctx context.Context, in Intent) {
	if o == nil || o.ch == nil {
		return
	}
	body, err := json.Marshal(in)
	if err != nil {
		o.logger.Error("failed to marshal notification intent", slog.Any("error", err))
		return
	}
	err = o.ch.PublishWithContext(ctx, "", outboundQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		o.logger.Error("failed to publish notification intent", slog.Any("error", err))
	}
}

// ConsumeBatch pulls up to maxBatch messages, waiting at most
// batchWindow for the batch to fill, and hands the decoded Intents to
// deliver as one call — spec §6's "batches up to 100 messages per
// outbound HTTP call". Every message in the batch is acked on success or
// retried/dead-lettered on failure. It blocks until ctx is cancelled.
func (o *Outbox) ConsumeBatch(ctx context.Context, maxBatch int, batchWindow time.Duration, deliver func([]Intent) error) error {
	if o == nil || o.ch == nil {
		<-ctx.Done()
		return nil
	}

	msgs, err := o.ch.Consume(outboundQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", outboundQueue, err)
	}

	var pending []amqp.Delivery
	var intents []Intent
	timer := time.NewTimer(batchWindow)
	defer timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := deliver(intents); err != nil {
			for i := range pending {
				o.retry(&pending[i])
			}
		} else {
			for i := range pending {
				pending[i].Ack(false)
			}
		}
		pending = nil
		intents = nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			flush()
			timer.Reset(batchWindow)
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			var in Intent
			if err := json.Unmarshal(d.Body, &in); err != nil {
				o.logger.Error("failed to unmarshal notification intent", slog.Any("error", err))
				d.Nack(false, false)
				continue
			}
			pending = append(pending, d)
			intents = append(intents, in)
			if len(pending) >= maxBatch {
				flush()
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(batchWindow)
			}
		}
	}
}

// retry increments the message's retry count and republishes it, or
// dead-letters it once the count reaches maxRetries (so a message gets at
// most maxRetries delivery attempts in total) — the same
// increment-and-requeue-or-drop shape as common/broker.HandleRetry.
func (o *Outbox) retry(d *amqp.Delivery) {
	if d.Headers == nil {
		d.Headers = amqp.Table{}
	}
	count, _ := d.Headers["x-retry-count"].(int64)
	count++
	d.Headers["x-retry-count"] = count

	if count >= maxRetries {
		o.logger.Warn("notification delivery exhausted retries, dead-lettering",
			slog.Int64("retries", count))
		d.Nack(false, false)
		return
	}

	time.Sleep(time.Duration(count) * time.Second)
	err := o.ch.PublishWithContext(context.Background(), d.Exchange, d.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Headers:      d.Headers,
		Body:         d.Body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		o.logger.Error("failed to republish notification intent", slog.Any("error", err))
	}
	d.Ack(false)
}
