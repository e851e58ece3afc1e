// Metrics repository encapsulates the data access logic (interactions with the DB) related to Metrics CRUD in Wishful.

package metrics

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/db"
	"Wishful/pkg/log"
	"context"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
)

var metricsDbKey string = "wishful:metrics"

// Prefix of the per event kind counters in the metrics hash.
const kindFieldPrefix = "kind:"

type Repository interface {
	// Get Wishful Metrics data
	GetMetrics(ctx context.Context, logger log.Logger) (entity.Metrics, error)
	// Add the counters of delta to the stored ones and overwrite the averages
	AddMetrics(ctx context.Context, logger log.Logger, delta entity.Metrics) error
}

// repository struct of metrics Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of metrics repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

// Satisfied by the client and by a watching transaction.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
}

// Helper reading the metrics hash through c.
func readMetrics(ctx context.Context, c hashReader) (entity.Metrics, error) {
	metrics := entity.Metrics{EventsByKind: map[string]int64{}}
	cmd := c.HGetAll(ctx, metricsDbKey)
	if dberr := cmd.Scan(&metrics); dberr != nil {
		return metrics, dberr
	}
	for field, value := range cmd.Val() {
		if !strings.HasPrefix(field, kindFieldPrefix) {
			continue
		}
		count, converr := strconv.ParseInt(value, 10, 64)
		if converr != nil {
			return metrics, converr
		}
		metrics.EventsByKind[strings.TrimPrefix(field, kindFieldPrefix)] = count
	}
	return metrics, nil
}

func (r repository) GetMetrics(ctx context.Context, logger log.Logger) (entity.Metrics, error) {
	metrics, dberr := readMetrics(ctx, r.db.Client())
	if dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in metrics.GetMetrics")
		return entity.Metrics{}, errors.InternalServerError("")
	}
	return metrics, nil
}

func (r repository) AddMetrics(ctx context.Context, logger log.Logger, delta entity.Metrics) error {
	txferr := r.db.Transaction(ctx, func(tx *redis.Tx) error {
		stored, dberr := readMetrics(ctx, tx)
		if dberr != nil {
			return dberr
		}
		// Operation is commited only if the watched key remains unchanged
		_, dberr = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, metricsDbKey,
				"events_published", stored.EventsPublished+delta.EventsPublished,
				"deliveries", stored.Deliveries+delta.Deliveries,
				"drops", stored.Drops+delta.Drops,
				"avg_publish_ms", delta.AvgPublishMillis,
				"avg_fan_out", delta.AvgFanOut,
				"flushed_at", delta.FlushedAt,
			)
			for kind, count := range delta.EventsByKind {
				pipe.HSet(ctx, metricsDbKey, kindFieldPrefix+kind, stored.EventsByKind[kind]+count)
			}
			return nil
		})
		return dberr
	}, metricsDbKey)
	if txferr != nil {
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in metrics.AddMetrics transaction")
		return errors.InternalServerError("")
	}
	return nil
}
