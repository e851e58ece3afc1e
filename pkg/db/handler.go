// Optimistic-locking helpers shared by every repository in Wishful.

package db

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// ErrTxRetriesExhausted is returned when the watched keys kept changing for GetMaxRetries attempts.
var ErrTxRetriesExhausted = errors.New("transaction reached maximum number of retries")

// Transaction runs txf inside WATCH on keys, retrying while the optimistic lock is lost.
// txf must read through tx and queue its writes with tx.TxPipelined so they only commit if the keys stayed untouched.
func (db *RedisDB) Transaction(ctx context.Context, txf func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < db.GetMaxRetries(); i++ {
		dberr := db.Client().Watch(ctx, txf, keys...)
		if dberr == nil {
			return nil
		} else if errors.Is(dberr, redis.TxFailedErr) {
			// Optimistic lock lost. Retry.
			continue
		}
		// Return any other error.
		return dberr
	}
	return ErrTxRetriesExhausted
}
