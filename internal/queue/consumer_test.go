package queue

import (
    "context"
    "testing"

    "github.com/pkg/errors"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/ticket-booking/internal/config"
)

type recordingAck struct {
    acked    int
    nacked   int
    requeued int
}

func (r *recordingAck) Ack(tag uint64, multiple bool) error { r.acked++; return nil }
func (r *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
    r.nacked++
    if requeue {
        r.requeued++
    }
    return nil
}
func (r *recordingAck) Reject(tag uint64, requeue bool) error { return r.Nack(tag, false, requeue) }

func delivery(ack *recordingAck, body string) amqp.Delivery {
    return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(body)}
}

func TestDeliverSettlement(t *testing.T) {
    tests := []struct {
        name         string
        body         string
        handlerErr   error
        wantAcked    int
        wantNacked   int
        wantRequeued int
        wantCalls    int
    }{
        {name: "applied", body: `{"seatTypeId":"st-1","remainingTickets":4,"sequence":2}`, wantAcked: 1, wantCalls: 1},
        {name: "malformed json", body: `{"seatTypeId":`, wantNacked: 1},
        {name: "negative count", body: `{"seatTypeId":"st-1","remainingTickets":-1}`, wantNacked: 1},
        {name: "store failure requeues", body: `{"seatTypeId":"st-1","remainingTickets":4}`, handlerErr: errors.New("db down"), wantNacked: 1, wantRequeued: 1, wantCalls: 1},
        {name: "permanent failure drops", body: `{"seatTypeId":"st-1","remainingTickets":4}`, handlerErr: errors.Wrap(ErrPermanent, "unknown seat type"), wantNacked: 1, wantCalls: 1},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            calls := 0
            c := NewConsumer(config.BrokerConfig{}, func(ctx context.Context, ev InventoryChanged) error {
                calls++
                return tt.handlerErr
            })
            c.requeueDelay = 0
            ack := &recordingAck{}
            c.Deliver(context.Background(), delivery(ack, tt.body))

            assert.Equal(t, tt.wantCalls, calls)
            assert.Equal(t, tt.wantAcked, ack.acked)
            assert.Equal(t, tt.wantNacked, ack.nacked)
            assert.Equal(t, tt.wantRequeued, ack.requeued)
        })
    }
}

func TestDecodeInventoryChangedWireFormat(t *testing.T) {
    ev, err := DecodeInventoryChanged([]byte(`{"seatTypeId":"64f0","remainingTickets":7}`))
    require.NoError(t, err)
    assert.Equal(t, InventoryChanged{SeatTypeID: "64f0", RemainingTickets: 7}, ev)

    _, err = DecodeInventoryChanged([]byte(`{"remainingTickets":7}`))
    assert.True(t, errors.Is(err, ErrMalformed))
}
