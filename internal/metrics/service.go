// Service layer of the internal package metrics.

package metrics

import (
	"Wishful/internal/entity"
	"Wishful/internal/room"
	"Wishful/pkg/log"
	"context"
)

// Service layer of internal package metrics which answers the realtime stats of Wishful.
type Service interface {
	// last flushed snapshot plus live room and session counts
	getmetrics(ctx context.Context) (entity.Metrics, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	metricsRepo Repository
	registry    *room.Registry
	logger      log.Logger
}

func NewService(metricsRepo Repository, registry *room.Registry, logger log.Logger) Service {
	return service{metricsRepo: metricsRepo, registry: registry, logger: logger}
}

func (s service) getmetrics(ctx context.Context) (entity.Metrics, error) {
	metrics, err := s.metricsRepo.GetMetrics(ctx, s.logger)
	if err != nil {
		return metrics, err
	}
	metrics.ActiveRooms = s.registry.Len()
	metrics.ConnectedSessions = s.registry.Sessions()
	return metrics, nil
}
