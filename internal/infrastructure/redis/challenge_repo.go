package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/p3tuh/notello/internal/domain"
	"github.com/p3tuh/notello/internal/idgen"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "notello:challenge:"

// Layout under prefix:
//
//	<id>                hash {identity, issued_at (unix ms)}
//	identity:<email>    set of ids issued for that email
//	issued              zset of ids scored by issued_at, for sweeping
//
// The scripts build keys from the prefix, so they assume a single node.
var consumeScript = goredis.NewScript(`
local identity = redis.call('HGET', KEYS[1], 'identity')
if not identity then
	return false
end
local issued = redis.call('HGET', KEYS[1], 'issued_at')
local set = ARGV[1] .. 'identity:' .. identity
local ids = redis.call('SMEMBERS', set)
for _, id in ipairs(ids) do
	redis.call('DEL', ARGV[1] .. id)
	redis.call('ZREM', ARGV[1] .. 'issued', id)
end
redis.call('DEL', KEYS[1], set)
redis.call('ZREM', ARGV[1] .. 'issued', ARGV[2])
return {identity, issued}
`)

var sweepScript = goredis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[2])
for _, id in ipairs(ids) do
	local identity = redis.call('HGET', ARGV[1] .. id, 'identity')
	if identity then
		redis.call('SREM', ARGV[1] .. 'identity:' .. identity, id)
	end
	redis.call('DEL', ARGV[1] .. id)
	redis.call('ZREM', KEYS[1], id)
end
return #ids
`)

// ChallengeRepository keeps login challenges in Redis. Keys also carry a
// retention TTL so an idle deployment cleans up without the sweeper.
type ChallengeRepository struct {
	client    goredis.UniversalClient
	prefix    string
	retention time.Duration
}

// MinRetention is the shortest key TTL the repository uses. Keys must live
// past the one-hour link validity or a stale link would read as unknown.
const MinRetention = 2 * time.Hour

// NewChallengeRepository raises a retention below MinRetention to MinRetention.
func NewChallengeRepository(client goredis.UniversalClient, retention time.Duration) *ChallengeRepository {
	if retention < MinRetention {
		retention = MinRetention
	}
	return &ChallengeRepository{
		client:    client,
		prefix:    defaultPrefix,
		retention: retention,
	}
}

func (r *ChallengeRepository) Create(ctx context.Context, identity string, issuedAt time.Time) (string, error) {
	id, err := idgen.ChallengeID()
	if err != nil {
		return "", err
	}

	key := r.prefix + id
	setKey := r.prefix + "identity:" + identity
	ms := issuedAt.UnixMilli()

	_, err = r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, key, "identity", identity, "issued_at", ms)
		p.Expire(ctx, key, r.retention)
		p.SAdd(ctx, setKey, id)
		p.Expire(ctx, setKey, r.retention)
		p.ZAdd(ctx, r.prefix+"issued", goredis.Z{Score: float64(ms), Member: id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store login challenge: %w", err)
	}
	return id, nil
}

func (r *ChallengeRepository) Consume(ctx context.Context, challengeID string) (*domain.LoginChallenge, error) {
	// Anything else could address one of the index keys.
	if !idgen.IsChallengeID(challengeID) {
		return nil, domain.ErrChallengeNotFound
	}

	res, err := consumeScript.Run(ctx, r.client, []string{r.prefix + challengeID}, r.prefix, challengeID).Slice()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("consume login challenge: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("consume login challenge: unexpected reply %v", res)
	}

	identity, _ := res[0].(string)
	issuedRaw, _ := res[1].(string)
	ms, err := strconv.ParseInt(issuedRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("consume login challenge: bad issued_at %q: %w", issuedRaw, err)
	}

	return &domain.LoginChallenge{
		ID:       challengeID,
		Identity: identity,
		IssuedAt: time.UnixMilli(ms),
	}, nil
}

func (r *ChallengeRepository) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := sweepScript.Run(ctx, r.client, []string{r.prefix + "issued"}, r.prefix, cutoff.UnixMilli()).Int()
	if err != nil {
		return 0, fmt.Errorf("delete stale login challenges: %w", err)
	}
	return n, nil
}
