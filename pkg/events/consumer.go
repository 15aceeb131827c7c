// Package events consumes processor status reports from RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Asaad942/VidFold/pkg/metrics"
	"github.com/Asaad942/VidFold/pkg/processing"
	"github.com/Asaad942/VidFold/pkg/video"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const source = "queue"

// Reporter applies one status report.
type Reporter interface {
	ApplyReport(ctx context.Context, ev processing.StatusEvent) (video.Record, error)
}

// Consumer reads StatusEvent messages from a durable queue with manual acks.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	reporter Reporter
	metrics  *metrics.Metrics
	log      *log.Entry

	conn *amqp.Connection
	ch   *amqp.Channel
	wg   sync.WaitGroup
}

func NewConsumer(url, queue string, prefetch int, reporter Reporter, m *metrics.Metrics) *Consumer {
	return &Consumer{
		url:      url,
		queue:    queue,
		prefetch: prefetch,
		reporter: reporter,
		metrics:  m,
		log:      log.WithField("adapter", "rabbitmq").WithField("queue", queue),
	}
}

// Start connects, declares the queue and begins consuming in the background
// until ctx ends or the channel closes.
func (c *Consumer) Start(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("events: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("events: open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("events: declare queue: %w", err)
	}
	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("events: set qos: %w", err)
		}
	}

	deliveries, err := ch.Consume(
		q.Name,
		"vidfold-status", // consumer
		false,            // auto-ack
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("events: consume: %w", err)
	}

	c.conn, c.ch = conn, ch
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(ctx, deliveries)
	}()
	c.log.Info("Start: consuming status events")
	return nil
}

func (c *Consumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.log.Warn("consume: delivery channel closed")
				return
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle applies one delivery and settles it. Malformed or invalid reports
// are dropped; a report for a deleted video is acked; other failures are
// requeued once.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	var ev processing.StatusEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		c.log.WithError(err).Warn("Handle: dropping undecodable message")
		c.metrics.StatusEvent(source, "malformed")
		c.settle(d.Nack(false, false))
		return
	}

	rec, err := c.reporter.ApplyReport(ctx, ev)
	switch {
	case err == nil:
		c.metrics.StatusEvent(source, "applied")
		c.log.WithField("video_id", rec.ID).Debugf("Handle: status %s applied", rec.Status)
		c.settle(d.Ack(false))
	case errors.Is(err, video.ErrValidation):
		c.log.WithError(err).Warn("Handle: dropping invalid status event")
		c.metrics.StatusEvent(source, "invalid")
		c.settle(d.Nack(false, false))
	case errors.Is(err, video.ErrNotFound):
		c.log.WithField("video_id", ev.VideoID).Info("Handle: video no longer exists")
		c.metrics.StatusEvent(source, "not_found")
		c.settle(d.Ack(false))
	default:
		requeue := !d.Redelivered
		c.log.WithError(err).WithField("requeue", requeue).Error("Handle: failed to apply status event")
		c.metrics.StatusEvent(source, "failed")
		c.settle(d.Nack(false, requeue))
	}
}

func (c *Consumer) settle(err error) {
	if err != nil {
		c.log.WithError(err).Error("settle: failed to ack message")
	}
}

// Close stops consuming and waits for the in-flight message.
func (c *Consumer) Close() error {
	var errs []error
	if c.ch != nil {
		errs = append(errs, c.ch.Close())
	}
	c.wg.Wait()
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}
