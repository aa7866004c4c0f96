package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	r "github.com/redis/go-redis/v9"

	"github.com/osama-agency/telesklad-sub006/internal/job"
)

// Queue names. Each is a Redis sorted set scored by ExecuteAt.
const (
	Notifications = "queue:notifications"
	Reports       = "queue:reports"
)

// Known lists every queue the service owns, in stats order.
var Known = []string{Notifications, Reports}

// Store holds pending job envelopes in per-queue sorted sets.
type Store struct{ rdb *r.Client }

func NewStore(rdb *r.Client) *Store { return &Store{rdb} }

// Add inserts the encoded envelope with ExecuteAt as its score. Members
// sharing a score have no defined relative order.
func (s *Store) Add(ctx context.Context, queue string, j job.Job) error {
	raw, err := j.Encode()
	if err != nil {
		return err
	}
	err = s.rdb.ZAdd(ctx, queue, r.Z{Score: float64(j.ExecuteAt.Unix()), Member: string(raw)}).Err()
	return errors.Wrapf(err, "queue: add to %s", queue)
}

// PopDue returns up to limit members with score <= now, removing them from
// the set. Removal happens whether or not the caller manages to process
// them; there is no lease, so run one poller per queue.
func (s *Store) PopDue(ctx context.Context, queue string, now time.Time, limit int64) ([][]byte, error) {
	members, err := s.rdb.ZRangeByScore(ctx, queue, &r.ZRangeBy{
		Min: "-inf", Max: strconv.FormatInt(now.Unix(), 10), Offset: 0, Count: limit,
	}).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "queue: range %s", queue)
	}
	if len(members) == 0 {
		return nil, nil
	}
	pipe := s.rdb.TxPipeline()
	for _, m := range members {
		pipe.ZRem(ctx, queue, m)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "queue: remove from %s", queue)
	}
	out := make([][]byte, len(members))
	for i, m := range members {
		out[i] = []byte(m)
	}
	return out, nil
}

// Depth reports the number of pending members. A missing key counts as zero.
func (s *Store) Depth(ctx context.Context, queue string) (int64, error) {
	n, err := s.rdb.ZCard(ctx, queue).Result()
	return n, errors.Wrapf(err, "queue: depth %s", queue)
}
