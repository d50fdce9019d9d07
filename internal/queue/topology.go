package queue

import (
    "fmt"

    amqp "github.com/rabbitmq/amqp091-go"
)

// declareExchange declares the durable fanout exchange.  Declaring is
// idempotent so both publisher and consumer do it on every (re)connect.
func declareExchange(ch *amqp.Channel, exchange string) error {
    if err := ch.ExchangeDeclare(
        exchange, // name
        amqp.ExchangeFanout,
        true,  // durable
        false, // autoDelete
        false, // internal
        false, // noWait
        nil,   // args
    ); err != nil {
        return fmt.Errorf("exchange declare %s: %w", exchange, err)
    }
    return nil
}

// declareBoundQueue declares a durable queue and binds it to the fanout
// exchange.  The routing key is ignored by fanout exchanges.
func declareBoundQueue(ch *amqp.Channel, exchange, queue string) error {
    if err := declareExchange(ch, exchange); err != nil {
        return err
    }
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare %s: %w", queue, err)
    }
    if err := ch.QueueBind(queue, "", exchange, false, nil); err != nil {
        return fmt.Errorf("queue bind %s -> %s: %w", queue, exchange, err)
    }
    return nil
}
