package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisJournal 在 Redis 中按签名记录提交状态
type RedisJournal struct {
	rdb *redis.Client
}

// Redis key 前缀
const (
	submissionPrefix = "escrow:submission"
	escrowTxPrefix   = "escrow:last_sig"
)

// 每类状态的 TTL
const (
	pendingTTL   = 2 * time.Hour
	confirmedTTL = 7 * 24 * time.Hour
	failedTTL    = 3 * 24 * time.Hour
	defaultTTL   = 24 * time.Hour
)

var _ Journal = (*RedisJournal)(nil)

func NewRedisJournal(rdb *redis.Client) *RedisJournal {
	return &RedisJournal{rdb: rdb}
}

func submissionKey(signature string) string {
	return fmt.Sprintf("%s:%s", submissionPrefix, signature)
}

func escrowKey(transactionID string) string {
	return fmt.Sprintf("%s:%s", escrowTxPrefix, transactionID)
}

func statusTTL(status SubmissionStatus) time.Duration {
	switch status {
	case StatusPending:
		return pendingTTL
	case StatusConfirmed:
		return confirmedTTL
	case StatusFailed:
		return failedTTL
	default:
		return defaultTTL
	}
}

// MarkSubmission transactionID 非空时同时更新该 escrow 的最近签名
func (r *RedisJournal) MarkSubmission(ctx context.Context, signature, transactionID string, status SubmissionStatus) error {
	if signature == "" {
		return errors.New("empty signature")
	}
	ttl := statusTTL(status)
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, submissionKey(signature), int(status), ttl)
	if transactionID != "" {
		pipe.Set(ctx, escrowKey(transactionID), signature, confirmedTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mark submission %s error: %w", signature, err)
	}
	return nil
}

func (r *RedisJournal) GetSubmission(ctx context.Context, signature string) (SubmissionStatus, error) {
	val, err := r.rdb.Get(ctx, submissionKey(signature)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return StatusUnknown, nil
	case err != nil:
		return StatusUnknown, fmt.Errorf("redis get error: %w", err)
	case val >= int(StatusPending) && val <= int(StatusFailed):
		return SubmissionStatus(val), nil
	default:
		return StatusUnknown, nil
	}
}

func (r *RedisJournal) LastSignature(ctx context.Context, transactionID string) (string, error) {
	sig, err := r.rdb.Get(ctx, escrowKey(transactionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get error: %w", err)
	}
	return sig, nil
}
