// Package inventory holds the fast-path remaining-ticket counters.  Each
// seat type owns three Redis keys:
//
//	seatType:<id>        remaining tickets (plain integer, inspectable)
//	seatType:<id>:total  capacity recorded when the counter was seeded
//	seatType:<id>:seq    sequence bumped by every successful mutation
//
// All mutations go through Lua scripts so no caller can observe a value a
// concurrent caller has already invalidated.
package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrCounterMissing means the counter was never seeded (or was evicted).
	// It is a setup condition: seed the counter and retry.
	ErrCounterMissing = errors.New("inventory counter not initialised")
	// ErrOverCapacity is returned by Increment when restoring the quantity
	// would push the counter above the seat type's capacity.
	ErrOverCapacity = errors.New("inventory counter would exceed capacity")
	// ErrInvalidQuantity rejects non-positive quantities and seeds outside
	// 0 <= remaining <= total.
	ErrInvalidQuantity = errors.New("invalid inventory quantity")
	// ErrUnavailable wraps every transport or script failure.
	ErrUnavailable = errors.New("inventory cache unavailable")
)

const keyPrefix = "seatType:"

// Level is a counter value together with the sequence of the mutation that
// produced it.  Sequence is what lets the catalog discard stale updates.
type Level struct {
	Remaining int
	Sequence  int64
}

// Cache implements the counter operations on top of a shared Redis client.
type Cache struct {
	rdb       *redis.Client
	opTimeout time.Duration
}

// NewCache binds a Cache to a process-scoped Redis client.  opTimeout
// bounds each script call; zero disables the per-call deadline.
func NewCache(rdb *redis.Client, opTimeout time.Duration) *Cache {
	return &Cache{rdb: rdb, opTimeout: opTimeout}
}

// CounterKey returns the Redis key that holds the remaining count.
func CounterKey(seatTypeID string) string { return keyPrefix + seatTypeID }

func totalKey(seatTypeID string) string { return keyPrefix + seatTypeID + ":total" }
func seqKey(seatTypeID string) string   { return keyPrefix + seatTypeID + ":seq" }

// EnsureSeeded initialises the counter to initialRemaining when no counter
// exists.  It reports whether this call created it.  Concurrent first
// accesses are safe: exactly one of them wins and the others leave the
// counter alone.  seq is the sequence of the snapshot initialRemaining
// comes from; the counter's sequence never stays below it, so the next
// mutation is numbered after anything the catalog has applied.
func (c *Cache) EnsureSeeded(ctx context.Context, seatTypeID string, initialRemaining, total int, seq int64) (bool, error) {
	if initialRemaining < 0 || total < 0 || initialRemaining > total || seq < 0 {
		return false, errors.Wrapf(ErrInvalidQuantity, "seed %s remaining=%d total=%d seq=%d", seatTypeID, initialRemaining, total, seq)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	keys := []string{CounterKey(seatTypeID), totalKey(seatTypeID), seqKey(seatTypeID)}
	created, err := seedScript.Run(ctx, c.rdb, keys, initialRemaining, total, seq).Int64()
	if err != nil {
		return false, unavailable(err, "seed", seatTypeID)
	}
	return created == 1, nil
}

// TryDecrement takes quantity off the counter when current-quantity >= 0.
// ok is false when there is not enough stock; the counter is then left
// exactly as it was and the returned level is the unchanged value.
func (c *Cache) TryDecrement(ctx context.Context, seatTypeID string, quantity int) (Level, bool, error) {
	if quantity <= 0 {
		return Level{}, false, errors.Wrapf(ErrInvalidQuantity, "decrement %s by %d", seatTypeID, quantity)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	keys := []string{CounterKey(seatTypeID), seqKey(seatTypeID)}
	res, err := decrementScript.Run(ctx, c.rdb, keys, quantity).Result()
	if err != nil {
		return Level{}, false, unavailable(err, "decrement", seatTypeID)
	}
	code, lvl, err := parseReply(res)
	if err != nil {
		return Level{}, false, unavailable(err, "decrement", seatTypeID)
	}
	switch code {
	case 1:
		return lvl, true, nil
	case 0:
		return lvl, false, nil
	default:
		return Level{}, false, errors.Wrap(ErrCounterMissing, seatTypeID)
	}
}

// Increment gives quantity back to the counter in one atomic step and
// returns the new level.
func (c *Cache) Increment(ctx context.Context, seatTypeID string, quantity int) (Level, error) {
	if quantity <= 0 {
		return Level{}, errors.Wrapf(ErrInvalidQuantity, "increment %s by %d", seatTypeID, quantity)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	keys := []string{CounterKey(seatTypeID), seqKey(seatTypeID), totalKey(seatTypeID)}
	res, err := incrementScript.Run(ctx, c.rdb, keys, quantity).Result()
	if err != nil {
		return Level{}, unavailable(err, "increment", seatTypeID)
	}
	code, lvl, err := parseReply(res)
	if err != nil {
		return Level{}, unavailable(err, "increment", seatTypeID)
	}
	switch code {
	case 1:
		return lvl, nil
	case 0:
		return lvl, errors.Wrapf(ErrOverCapacity, "%s remaining=%d +%d", seatTypeID, lvl.Remaining, quantity)
	default:
		return Level{}, errors.Wrap(ErrCounterMissing, seatTypeID)
	}
}

// Remaining reads the current counter.  It is meant for operators and
// tests, never as input to a decision that then writes the counter.
func (c *Cache) Remaining(ctx context.Context, seatTypeID string) (int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	n, err := c.rdb.Get(ctx, CounterKey(seatTypeID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, errors.Wrap(ErrCounterMissing, seatTypeID)
	}
	if err != nil {
		return 0, unavailable(err, "get", seatTypeID)
	}
	return n, nil
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

func unavailable(err error, op, seatTypeID string) error {
	return errors.Wrapf(ErrUnavailable, "%s %s: %v", op, seatTypeID, err)
}

// parseReply decodes the {code, remaining, sequence} table every mutating
// script returns.
func parseReply(v interface{}) (int64, Level, error) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 3 {
		return 0, Level{}, fmt.Errorf("unexpected script reply %#v", v)
	}
	code, err := asInt64(arr[0])
	if err != nil {
		return 0, Level{}, err
	}
	remaining, err := asInt64(arr[1])
	if err != nil {
		return 0, Level{}, err
	}
	seq, err := asInt64(arr[2])
	if err != nil {
		return 0, Level{}, err
	}
	return code, Level{Remaining: int(remaining), Sequence: seq}, nil
}

func asInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	}
	return 0, fmt.Errorf("unexpected script value %#v", v)
}
