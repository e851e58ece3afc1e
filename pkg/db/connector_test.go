// Redis DB connector tests in Wishful.

package db

import (
	"Wishful/pkg/log"
	"context"
	"os"
	"sync/atomic"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Global instance of log.Logger to be used during connector testing.
var logger log.Logger

// Global context
var ctx context.Context = context.Background()

// Sets up resources before testing the redis connector.
func setup() {
	// Load test.env
	enverr := godotenv.Load("../../config/test.env")
	if enverr != nil {
		// Error during loading test.env, abort test run immediately
		os.Exit(4)
	}
	logger = log.New(os.Getenv("VERSION"))
}

func TestMain(m *testing.M) {
	setup()
	os.Exit(m.Run())
}

func TestDbConnectionLifeCycle(t *testing.T) {
	client, dberr := NewDbConnection(ctx, logger)
	require.NoError(t, dberr)
	// Same instance is handed out every time
	again, _ := NewDbConnection(ctx, logger)
	assert.Same(t, client, again)
	// Check if connection is successful
	require.NoError(t, client.CheckDbConnection(ctx, logger))

	t.Run("transaction commits", func(t *testing.T) {
		key := "test:tx:counter"
		for i := 0; i < 3; i++ {
			err := client.Transaction(ctx, func(tx *redis.Tx) error {
				n, err := tx.Get(ctx, key).Int()
				if err != nil && err != redis.Nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, n+1, 0)
					return nil
				})
				return err
			}, key)
			assert.NoError(t, err)
		}
		n, err := client.Client().Get(ctx, key).Int()
		assert.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("transaction gives up after max retries", func(t *testing.T) {
		key := "test:tx:contended"
		var attempts int32
		err := client.Transaction(ctx, func(tx *redis.Tx) error {
			atomic.AddInt32(&attempts, 1)
			// Touch the watched key from outside the transaction so EXEC always aborts
			client.Client().Incr(ctx, key)
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, 0, 0)
				return nil
			})
			return err
		}, key)
		assert.ErrorIs(t, err, ErrTxRetriesExhausted)
		assert.Equal(t, int32(client.GetMaxRetries()), atomic.LoadInt32(&attempts))
	})

	client.CleanTestDbData(ctx, logger)
	// Close connection
	assert.NoError(t, client.CloseDbConnection(ctx))
	// Check if connection is still active
	assert.Error(t, client.CheckDbConnection(ctx, logger))
}

func TestRedisOptions(t *testing.T) {
	t.Run("url wins", func(t *testing.T) {
		t.Setenv("REDIS_URL", "redis://:pwd@cache.internal:6380/3")
		opts, err := redisOptions()
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, "pwd", opts.Password)
		assert.Equal(t, 3, opts.DB)
	})
	t.Run("address and port", func(t *testing.T) {
		t.Setenv("REDIS_URL", "")
		t.Setenv("REDIS_ADDR", "localhost")
		t.Setenv("REDIS_PORT", "6379")
		t.Setenv("REDIS_DB_NUMBER", " 2 ")
		opts, err := redisOptions()
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", opts.Addr)
		assert.Equal(t, 2, opts.DB)
	})
	t.Run("missing port", func(t *testing.T) {
		t.Setenv("REDIS_URL", "")
		t.Setenv("REDIS_PORT", "")
		_, err := redisOptions()
		assert.Error(t, err)
	})
	t.Run("bad db number", func(t *testing.T) {
		t.Setenv("REDIS_URL", "")
		t.Setenv("REDIS_DB_NUMBER", "one")
		_, err := redisOptions()
		assert.Error(t, err)
	})
}
