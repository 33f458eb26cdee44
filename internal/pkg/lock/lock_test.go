package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientDoesNotLock(t *testing.T) {
	l := NewRedisLocker(nil, "test:")
	release, err := l.Acquire(context.Background(), "seller-1", time.Second)
	require.NoError(t, err)
	release()
	release()

	var nilLocker *RedisLocker
	_, err = nilLocker.Acquire(context.Background(), "seller-1", time.Second)
	assert.NoError(t, err)
}

func TestUnreachableRedisReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, err := NewRedisLocker(client, "test:").Acquire(context.Background(), "seller-1", time.Second)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	release, err := Noop{}.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	release()
}
