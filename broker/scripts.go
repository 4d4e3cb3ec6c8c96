package broker

import "github.com/redis/go-redis/v9"

// migrateScript moves one member from the delayed set to the tail of the
// ready list, but only if this call removed it.
//
// KEYS[1] delayed set, KEYS[2] ready list, ARGV[1] member.
var migrateScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 1 then
	return redis.call("RPUSH", KEYS[2], ARGV[1])
end
return 0
`)

// bumpScript sets the generation to ARGV[1], or to current+1 when ARGV[1]
// would not move it forward. Returns the stored value.
//
// KEYS[1] version key, ARGV[1] requested generation.
var bumpScript = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0") or 0
local want = tonumber(ARGV[1])
if want <= cur then
	want = cur + 1
end
redis.call("SET", KEYS[1], want)
return want
`)
