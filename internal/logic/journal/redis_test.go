package journal

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "escrow:submission:5abc", submissionKey("5abc"))
	assert.Equal(t, "escrow:last_sig:tx_1", escrowKey("tx_1"))
}

func TestStatusTTL(t *testing.T) {
	assert.Equal(t, pendingTTL, statusTTL(StatusPending))
	assert.Equal(t, confirmedTTL, statusTTL(StatusConfirmed))
	assert.Equal(t, failedTTL, statusTTL(StatusFailed))
	assert.Equal(t, defaultTTL, statusTTL(StatusTimedOut))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "timed_out", StatusTimedOut.String())
	assert.Equal(t, "unknown", SubmissionStatus(42).String())
}

func TestRedisUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	j := NewRedisJournal(rdb)

	ctx := context.Background()
	require.Error(t, j.MarkSubmission(ctx, "sig", "tx_1", StatusPending))
	_, err := j.GetSubmission(ctx, "sig")
	require.Error(t, err)
	require.Error(t, j.MarkSubmission(ctx, "", "tx_1", StatusPending))
}

func TestNop(t *testing.T) {
	var j Journal = Nop{}
	require.NoError(t, j.MarkSubmission(context.Background(), "sig", "", StatusConfirmed))
	st, err := j.GetSubmission(context.Background(), "sig")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, st)
}
