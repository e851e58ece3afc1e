// Realtime metrics tests in Wishful.

package metrics

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/internal/room"
	"Wishful/internal/test"
	"Wishful/pkg/db"
	"Wishful/pkg/log"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Global instance of log.Logger to be used during metrics testing.
var logger log.Logger

// Global instance of Db instance to be used during metrics testing.
var client *db.RedisDB

// Global context
var ctx context.Context = context.Background()

// Initializes resources needed before metrics tests.
func setup() {
	// Load test.env
	enverr := godotenv.Load("../../config/test.env")
	if enverr != nil {
		// Error during loading test.env, abort test run immediately
		os.Exit(4)
	}
	logger = log.New(os.Getenv("VERSION"))

	// Db client instance
	var dberr error
	client, dberr = db.NewDbConnection(ctx, logger)
	// Sending a PING request to DB for connection status check
	if dberr != nil || client.CheckDbConnection(ctx, logger) != nil {
		// connection failure
		os.Exit(6)
	}
	logger.Info().Msg("Test resources setup successful.")
}

// Cleans up the resources built during execution of setup().
func teardown() {
	logger.Info().Msg("Cleaning up resources ...")
	if client.CheckDbConnection(ctx, logger) == nil {
		client.CleanTestDbData(ctx, logger)
		client.CloseDbConnection(ctx)
	}
	logger.Info().Msg("Cleanup complete :)")
}

func TestMain(m *testing.M) {
	// Setting up Resources
	setup()
	// Running the tests
	testExitCode := m.Run()
	// Cleanup Resources
	teardown()
	// Exit
	os.Exit(testExitCode)
}

// Repository double which fails on demand and remembers what it got.
type fakeRepo struct {
	mu     sync.Mutex
	fail   bool
	deltas []entity.Metrics
}

func (f *fakeRepo) GetMetrics(ctx context.Context, logger log.Logger) (entity.Metrics, error) {
	return entity.Metrics{}, nil
}

func (f *fakeRepo) AddMetrics(ctx context.Context, logger log.Logger, delta entity.Metrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.InternalServerError("")
	}
	f.deltas = append(f.deltas, delta)
	return nil
}

func (f *fakeRepo) flushes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deltas)
}

func TestMonitorCountsPublishes(t *testing.T) {
	monitor := NewMonitor(&fakeRepo{}, time.Hour, logger)
	monitor.Published("w1", entity.ProductAdded, 3, 1, 2*time.Millisecond)
	monitor.Published("w1", entity.ProductAdded, 1, 0, 4*time.Millisecond)
	monitor.Published("w2", entity.CommentAdded, 0, 0, 0)

	pending := monitor.Pending()
	assert.Equal(t, int64(3), pending.EventsPublished)
	assert.Equal(t, int64(4), pending.Deliveries)
	assert.Equal(t, int64(1), pending.Drops)
	assert.Equal(t, map[string]int64{"product-added": 2, "comment-added": 1}, pending.EventsByKind)
	assert.InDelta(t, 2.0, pending.AvgPublishMillis, 0.001)
	assert.InDelta(t, 5.0/3.0, pending.AvgFanOut, 0.001)
}

func TestMonitorObservesRegistry(t *testing.T) {
	monitor := NewMonitor(&fakeRepo{}, time.Hour, logger)
	registry := room.NewRegistry(logger)
	registry.SetObserver(monitor)

	registry.Publish("w1", entity.Message{Event: entity.ProductDeleted, Data: entity.EventPayload{WishlistID: "w1", ProductID: "p1"}}, "")
	assert.Equal(t, int64(1), monitor.Pending().EventsByKind["product-deleted"])
}

func TestFlushKeepsCountersOnFailure(t *testing.T) {
	repo := &fakeRepo{fail: true}
	monitor := NewMonitor(repo, time.Hour, logger)
	monitor.Published("w1", entity.ProductAdded, 2, 0, time.Millisecond)

	assert.NotNil(t, monitor.Flush(ctx))
	assert.Equal(t, int64(1), monitor.Pending().EventsPublished)

	repo.fail = false
	require.Nil(t, monitor.Flush(ctx))
	assert.Equal(t, int64(0), monitor.Pending().EventsPublished)
	assert.Empty(t, monitor.Pending().EventsByKind)
	require.Len(t, repo.deltas, 1)
	assert.Equal(t, int64(2), repo.deltas[0].Deliveries)
	assert.NotZero(t, repo.deltas[0].FlushedAt)
}

func TestMonitorWorkerFlushesOnTicks(t *testing.T) {
	repo := &fakeRepo{}
	monitor := NewMonitor(repo, 20*time.Millisecond, logger)
	monitor.Start(ctx)
	monitor.Published("w1", entity.ProductAdded, 1, 0, time.Millisecond)

	assert.Eventually(t, func() bool { return repo.flushes() >= 2 }, 5*time.Second, 10*time.Millisecond)
	require.Nil(t, monitor.Stop(ctx))
	// Stopping twice is fine
	require.Nil(t, monitor.Stop(ctx))
}

func TestRepositoryAccumulates(t *testing.T) {
	require.Nil(t, client.Client().Del(ctx, metricsDbKey).Err())
	repo := NewRepository(client)
	monitor := NewMonitor(repo, time.Hour, logger)

	monitor.Published("w1", entity.ProductAdded, 2, 1, time.Millisecond)
	require.Nil(t, monitor.Flush(ctx))
	monitor.Published("w1", entity.ProductAdded, 3, 0, time.Millisecond)
	monitor.Published("w1", entity.ReactionRemoved, 1, 0, time.Millisecond)
	require.Nil(t, monitor.Flush(ctx))

	stored, err := repo.GetMetrics(ctx, logger)
	require.Nil(t, err)
	assert.Equal(t, int64(3), stored.EventsPublished)
	assert.Equal(t, int64(6), stored.Deliveries)
	assert.Equal(t, int64(1), stored.Drops)
	assert.Equal(t, int64(2), stored.EventsByKind["product-added"])
	assert.Equal(t, int64(1), stored.EventsByKind["reaction-removed"])
	assert.NotZero(t, stored.FlushedAt)
}

func TestConcurrentFlushesDontLoseCounts(t *testing.T) {
	require.Nil(t, client.Client().Del(ctx, metricsDbKey).Err())
	repo := NewRepository(client)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// One monitor per simulated server instance
			monitor := NewMonitor(repo, time.Hour, logger)
			monitor.Published("w1", entity.CommentAdded, 1, 0, time.Millisecond)
			assert.Nil(t, monitor.Flush(ctx))
		}()
	}
	wg.Wait()

	stored, err := repo.GetMetrics(ctx, logger)
	require.Nil(t, err)
	assert.Equal(t, int64(10), stored.EventsPublished)
	assert.Equal(t, int64(10), stored.EventsByKind["comment-added"])
}

func TestGetMetricsAPI(t *testing.T) {
	router := test.MockRouter()
	registry := room.NewRegistry(logger)
	APIHandlers(router, NewService(NewRepository(client), registry, logger), test.MockAuthMiddleware(logger), logger)

	s := &liveSession{id: "s1"}
	registry.Join("w1", s)
	registry.Join("w2", s)

	request := test.RequestAPITest{
		Method:       http.MethodGet,
		Path:         "/api/metrics",
		WantResponse: []int{http.StatusOK},
		Header:       test.MockHeader(),
		Cookie:       []*http.Cookie{test.MockAuthAllowCookie, test.UserCookie("metrics_user")},
	}
	response := test.ExecuteAPITest(logger, t, router, &request)
	var metrics entity.Metrics
	require.Nil(t, json.Unmarshal(response.Body, &metrics))
	assert.Equal(t, 2, metrics.ActiveRooms)
	assert.Equal(t, 1, metrics.ConnectedSessions)

	request.Cookie = nil
	request.WantResponse = []int{http.StatusUnauthorized}
	test.ExecuteAPITest(logger, t, router, &request)
}

// Session double for the registry.
type liveSession struct{ id string }

func (s *liveSession) ID() string                      { return s.id }
func (s *liveSession) Deliver(msg entity.Message) bool { return true }
