package inventory

import "github.com/redis/go-redis/v9"

// Every script runs as one indivisible server-side operation, which is what
// makes the per-seat-type counter behave as if a global mutex guarded it.
// Scripts reply with {code, remaining, sequence}; code 1 means applied,
// 0 means rejected with the counter untouched, -1 means the counter is
// missing.

// seedScript initialises the counter and its capacity only when they do
// not exist yet.  The sequence is raised to ARGV[3], the sequence the
// catalog snapshot was taken at, and never lowered, so events published
// after a cache loss are still newer than what the catalog holds.
// KEYS[1] counter, KEYS[2] total, KEYS[3] seq; ARGV[1] remaining, ARGV[2] total, ARGV[3] seq.
var seedScript = redis.NewScript(`
local created = redis.call('SETNX', KEYS[1], ARGV[1])
redis.call('SETNX', KEYS[2], ARGV[2])
local floor = tonumber(ARGV[3])
local seq = tonumber(redis.call('GET', KEYS[3]) or '-1')
if seq < floor then
    redis.call('SET', KEYS[3], floor)
end
return created
`)

// decrementScript takes quantity off the counter when enough is left.
// KEYS[1] counter, KEYS[2] seq; ARGV[1] quantity.
var decrementScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
    return {-1, 0, 0}
end
cur = tonumber(cur)
local qty = tonumber(ARGV[1])
if cur - qty < 0 then
    return {0, cur, tonumber(redis.call('GET', KEYS[2]) or '0')}
end
local left = redis.call('DECRBY', KEYS[1], qty)
local seq = redis.call('INCR', KEYS[2])
return {1, left, seq}
`)

// incrementScript gives quantity back, refusing to go above the capacity
// recorded at seeding time.
// KEYS[1] counter, KEYS[2] seq, KEYS[3] total; ARGV[1] quantity.
var incrementScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
    return {-1, 0, 0}
end
cur = tonumber(cur)
local qty = tonumber(ARGV[1])
local total = tonumber(redis.call('GET', KEYS[3]) or '')
if total and cur + qty > total then
    return {0, cur, tonumber(redis.call('GET', KEYS[2]) or '0')}
end
local left = redis.call('INCRBY', KEYS[1], qty)
local seq = redis.call('INCR', KEYS[2])
return {1, left, seq}
`)
