package queue

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/pkg/errors"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog/log"

    "github.com/iliyamo/ticket-booking/internal/config"
)

// ErrPublishFailed is returned whenever a message could not be handed to
// the broker and confirmed.  It is an infrastructure error: the caller may
// retry, the message was not delivered.
var ErrPublishFailed = errors.New("publish failed")

// Publisher owns one long-lived AMQP connection and a confirm-mode
// channel.  It is opened at startup, shared by every request and closed at
// shutdown.  A broken connection is redialed on the next Publish.
type Publisher struct {
    cfg     config.BrokerConfig
    timeout time.Duration

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher dials the broker, declares the fanout exchange and puts the
// channel into confirm mode.  timeout bounds the wait for each broker
// confirmation.
func NewPublisher(cfg config.BrokerConfig, timeout time.Duration) (*Publisher, error) {
    p := &Publisher{cfg: cfg, timeout: timeout}
    p.mu.Lock()
    defer p.mu.Unlock()
    if err := p.connectLocked(); err != nil {
        return nil, err
    }
    return p, nil
}

func (p *Publisher) connectLocked() error {
    conn, err := amqp.Dial(p.cfg.URL)
    if err != nil {
        return errors.Wrap(err, "rabbitmq dial")
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return errors.Wrap(err, "rabbitmq channel open")
    }
    if err := ch.Confirm(false); err != nil {
        _ = conn.Close()
        return errors.Wrap(err, "rabbitmq confirm mode")
    }
    if err := declareExchange(ch, p.cfg.Exchange); err != nil {
        _ = conn.Close()
        return err
    }
    p.conn, p.ch = conn, ch
    log.Info().Str("exchange", p.cfg.Exchange).Msg("rabbitmq: publisher ready")
    return nil
}

// channel returns a usable channel, redialing when the previous connection
// or channel has been closed by the broker.
func (p *Publisher) channel() (*amqp.Channel, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
        return p.ch, nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.conn, p.ch = nil, nil
    if err := p.connectLocked(); err != nil {
        return nil, err
    }
    return p.ch, nil
}

// Publish sends the event as a persistent JSON message to the fanout
// exchange and waits for the broker to confirm it.  Any failure, a nack
// or a confirm timeout is reported as ErrPublishFailed.
func (p *Publisher) Publish(ctx context.Context, ev InventoryChanged) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return errors.Wrapf(ErrPublishFailed, "marshal: %v", err)
    }
    ch, err := p.channel()
    if err != nil {
        return errors.Wrapf(ErrPublishFailed, "%v", err)
    }

    if p.timeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, p.timeout)
        defer cancel()
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    uuid.NewString(),
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    dc, err := ch.PublishWithDeferredConfirmWithContext(ctx,
        p.cfg.Exchange, // fanout exchange
        "",             // routing key ignored by fanout
        false,          // mandatory
        false,          // immediate
        pub,
    )
    if err != nil {
        return errors.Wrapf(ErrPublishFailed, "publish: %v", err)
    }
    acked, err := dc.WaitContext(ctx)
    if err != nil {
        return errors.Wrapf(ErrPublishFailed, "confirm: %v", err)
    }
    if !acked {
        return errors.Wrap(ErrPublishFailed, "broker nacked message")
    }
    log.Debug().
        Str("seatTypeId", ev.SeatTypeID).
        Int("remainingTickets", ev.RemainingTickets).
        Int64("sequence", ev.Sequence).
        Msg("rabbitmq: inventory change published")
    return nil
}

// Close releases the channel and the connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil && !p.conn.IsClosed() {
        return p.conn.Close()
    }
    return nil
}

// PingContext reports whether a confirm-mode channel can be obtained,
// redialing when needed.
func (p *Publisher) PingContext(_ context.Context) error {
    _, err := p.channel()
    return err
}
