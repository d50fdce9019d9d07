package queue

import (
    "context"
    "fmt"
    "time"

    "github.com/pkg/errors"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog/log"

    "github.com/iliyamo/ticket-booking/internal/config"
)

// ErrPermanent is wrapped by handlers for messages that will fail the same
// way on every redelivery (unknown seat type, count above capacity).
var ErrPermanent = errors.New("permanent message failure")

// Handler applies one decoded inventory change.  Returning nil acks the
// delivery; returning an error leaves it unacknowledged.
type Handler func(ctx context.Context, ev InventoryChanged) error

// Consumer binds a durable queue to the inventory fanout exchange and feeds
// every delivery to a Handler.
type Consumer struct {
    cfg          config.BrokerConfig
    handle       Handler
    requeueDelay time.Duration
}

// NewConsumer builds a consumer; Run starts it.
func NewConsumer(cfg config.BrokerConfig, h Handler) *Consumer {
    return &Consumer{cfg: cfg, handle: h, requeueDelay: 500 * time.Millisecond}
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are redialed with exponential backoff capped at 30s, so a
// broker outage never stops the process.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return nil
        }
        conn, err := amqp.Dial(c.cfg.URL)
        if err != nil {
            log.Warn().Err(err).Dur("retry_in", backoff).Msg("inventory-consumer: failed to dial broker")
            sleep(ctx, backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            log.Info().Msg("inventory-consumer: stopped")
            return nil
        }
        log.Warn().Err(err).Msg("inventory-consumer: consume loop ended; reconnecting")
        sleep(ctx, 2*time.Second)
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
        log.Warn().Err(err).Msg("inventory-consumer: set QoS failed")
    }
    if err := declareBoundQueue(ch, c.cfg.Exchange, c.cfg.Queue); err != nil {
        return err
    }
    msgs, err := ch.Consume(c.cfg.Queue, c.cfg.ConsumerTag, false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    log.Info().Str("queue", c.cfg.Queue).Str("exchange", c.cfg.Exchange).Msg("inventory-consumer: consuming")

    for {
        select {
        case <-ctx.Done():
            return nil
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            c.Deliver(ctx, d)
        }
    }
}

// Deliver decodes one delivery, runs the handler and settles the delivery:
// ack on success, reject without requeue for messages that can never be
// applied, nack with requeue for everything else so the broker redelivers.
func (c *Consumer) Deliver(ctx context.Context, d amqp.Delivery) {
    ev, err := DecodeInventoryChanged(d.Body)
    if err != nil {
        log.Error().Err(err).Str("message_id", d.MessageId).Msg("inventory-consumer: dropping malformed message")
        _ = d.Nack(false, false)
        return
    }
    if err := c.handle(ctx, ev); err != nil {
        if errors.Is(err, ErrPermanent) || errors.Is(err, ErrMalformed) {
            log.Error().Err(err).Str("seatTypeId", ev.SeatTypeID).Msg("inventory-consumer: dropping message")
            _ = d.Nack(false, false)
            return
        }
        log.Error().Err(err).Str("seatTypeId", ev.SeatTypeID).Bool("redelivered", d.Redelivered).
            Msg("inventory-consumer: apply failed; message will be redelivered")
        sleep(ctx, c.requeueDelay)
        _ = d.Nack(false, true)
        return
    }
    _ = d.Ack(false)
}

func sleep(ctx context.Context, d time.Duration) {
    if d <= 0 {
        return
    }
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
    case <-t.C:
    }
}
