package redis

import "github.com/redis/go-redis/v9"

// reindexLua moves a job between the index sets after its hash changed.
// Every script that touches job state is prefixed with it.
const reindexLua = `
local function reindex(prefix, id, old)
	local key = prefix .. 'job:' .. id
	local f = redis.call('HMGET', key, 'state', 'created_us', 'run_us', 'heartbeat_us')
	local state, created, run, hb = f[1], f[2], f[3], f[4]
	if old and old ~= state then
		redis.call('ZREM', prefix .. 'state:' .. old, id)
	end
	redis.call('ZADD', prefix .. 'state:' .. state, created, id)
	if state == 'pending' then
		redis.call('ZADD', prefix .. 'ready', run, id)
	else
		redis.call('ZREM', prefix .. 'ready', id)
	end
	if state == 'processing' and hb and hb ~= '' then
		redis.call('ZADD', prefix .. 'processing', hb, id)
	else
		redis.call('ZREM', prefix .. 'processing', id)
	end
end
`

// readyLua returns up to limit ready job IDs due at max_us in claim order.
// The ready set is scored by run_us only, so each group of equal scores is
// sorted by (created_us, seq) before it is emitted. A limit <= 0 means all.
const readyLua = `
local function ready_ids(prefix, ready, max, limit)
	local out = {}
	local min = '-inf'
	while limit <= 0 or #out < limit do
		local head = redis.call('ZRANGEBYSCORE', ready, min, max, 'WITHSCORES', 'LIMIT', 0, 1)
		if #head == 0 then break end
		local score = head[2]
		local ids = redis.call('ZRANGEBYSCORE', ready, score, score)
		local group = {}
		for i, id in ipairs(ids) do
			local f = redis.call('HMGET', prefix .. 'job:' .. id, 'created_us', 'seq')
			group[i] = {id = id, created = tonumber(f[1]) or 0, seq = tonumber(f[2]) or 0}
		end
		table.sort(group, function(a, b)
			if a.created ~= b.created then return a.created < b.created end
			return a.seq < b.seq
		end)
		for _, g in ipairs(group) do
			if limit > 0 and #out >= limit then break end
			out[#out + 1] = g.id
		end
		min = '(' .. score
	end
	return out
end
`

// Script return codes.
const (
	codeOK       = 1
	codeExists   = -1
	codeNotFound = -2
	codeNotDead  = -3
)

// saveScript inserts or updates a job hash.
// KEYS[1] job key; ARGV prefix, id, mode ("insert"|"update"), field/value pairs...
var saveScript = redis.NewScript(reindexLua + `
local exists = redis.call('EXISTS', KEYS[1])
if ARGV[3] == 'insert' and exists == 1 then return -1 end
if ARGV[3] == 'update' and exists == 0 then return -2 end
local old = redis.call('HGET', KEYS[1], 'state')
redis.call('HSET', KEYS[1], unpack(ARGV, 4))
if ARGV[3] == 'insert' then
	redis.call('HSET', KEYS[1], 'seq', redis.call('INCR', ARGV[1] .. 'seq'))
end
reindex(ARGV[1], ARGV[2], old)
return 1
`)

// claimScript claims the oldest ready job and returns its hash.
// KEYS[1] ready key; ARGV prefix, now_us, worker id, now.
var claimScript = redis.NewScript(reindexLua + readyLua + `
local ids = ready_ids(ARGV[1], KEYS[1], ARGV[2], 1)
if #ids == 0 then return false end
local id = ids[1]
local key = ARGV[1] .. 'job:' .. id
redis.call('HSET', key,
	'state', 'processing',
	'worker_id', ARGV[3],
	'heartbeat_at', ARGV[4],
	'heartbeat_us', ARGV[2],
	'updated_at', ARGV[4])
reindex(ARGV[1], id, 'pending')
return redis.call('HGETALL', key)
`)

// listReadyScript returns ready job IDs in claim order.
// KEYS[1] ready key; ARGV prefix, now_us, limit.
var listReadyScript = redis.NewScript(readyLua + `
return ready_ids(ARGV[1], KEYS[1], ARGV[2], tonumber(ARGV[3]))
`)

// resetDeadScript moves one dead job to pending and returns its hash.
// KEYS[1] job key; ARGV prefix, id, now, now_us.
var resetDeadScript = redis.NewScript(reindexLua + `
local state = redis.call('HGET', KEYS[1], 'state')
if not state then return -2 end
if state ~= 'dead' then return -3 end
redis.call('HSET', KEYS[1],
	'state', 'pending', 'attempts', '0', 'last_error', '', 'worker_id', '',
	'heartbeat_at', '', 'heartbeat_us', '',
	'run_at', ARGV[3], 'run_us', ARGV[4], 'updated_at', ARGV[3])
reindex(ARGV[1], ARGV[2], 'dead')
return redis.call('HGETALL', KEYS[1])
`)

// resetAllDeadScript moves every dead job to pending and returns the count.
// KEYS[1] dead state key; ARGV prefix, now, now_us.
var resetAllDeadScript = redis.NewScript(reindexLua + `
local ids = redis.call('ZRANGE', KEYS[1], 0, -1)
for _, id in ipairs(ids) do
	redis.call('HSET', ARGV[1] .. 'job:' .. id,
		'state', 'pending', 'attempts', '0', 'last_error', '', 'worker_id', '',
		'heartbeat_at', '', 'heartbeat_us', '',
		'run_at', ARGV[2], 'run_us', ARGV[3], 'updated_at', ARGV[2])
	reindex(ARGV[1], id, 'dead')
end
return #ids
`)

// heartbeatScript refreshes the heartbeat of a job owned by a worker.
// KEYS[1] job key; ARGV prefix, id, worker id, now, now_us.
var heartbeatScript = redis.NewScript(`
local f = redis.call('HMGET', KEYS[1], 'state', 'worker_id')
if f[1] ~= 'processing' or f[2] ~= ARGV[3] then return -2 end
redis.call('HSET', KEYS[1], 'heartbeat_at', ARGV[4], 'heartbeat_us', ARGV[5])
redis.call('ZADD', ARGV[1] .. 'processing', ARGV[5], ARGV[2])
return 1
`)

// reclaimScript returns processing jobs with a heartbeat before the cutoff
// to pending and returns the count.
// KEYS[1] processing key; ARGV prefix, cutoff_us, now.
var reclaimScript = redis.NewScript(reindexLua + `
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[2])
for _, id in ipairs(ids) do
	redis.call('HSET', ARGV[1] .. 'job:' .. id,
		'state', 'pending', 'worker_id', '',
		'heartbeat_at', '', 'heartbeat_us', '', 'updated_at', ARGV[3])
	reindex(ARGV[1], id, 'processing')
end
return #ids
`)
