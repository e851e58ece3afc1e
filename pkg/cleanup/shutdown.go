// Closes open external connections before shutting down Wishful.
// Inspired from https://medium.com/tokopedia-engineering/gracefully-shutdown-your-go-application-9e7d5c73b5ac

package cleanup

import (
	"Wishful/pkg/log"
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// operation is a clean up function standard.
type Operation func(ctx context.Context) error

// GracefulShutdown function waits for termination system-calls and performs clean-up operations.
// The returned channel is closed once every operation has returned.
func GracefulShutdown(ctx context.Context, logger log.Logger, timeout time.Duration, operations map[string]Operation) <-chan struct{} {
	wait := make(chan struct{})

	go func() {
		// buffered channel to receive shutdown signal
		s := make(chan os.Signal, 1)
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		sig := <-s
		signal.Stop(s)

		logger.Warn().Str("Signal", sig.String()).Msg("Graceful shutdown in progress.")

		// Force exit after timeout duration has been elapsed
		force := time.AfterFunc(timeout, func() {
			logger.Warn().Msgf("Timeout of %.1fs has been elapsed. Forcing shutdown!", timeout.Seconds())
			os.Exit(3)
		})
		defer force.Stop()

		opctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		// Executing the cleanup operations asynchronously for better performance
		var wg sync.WaitGroup
		for opname, op := range operations {
			wg.Add(1)
			go func(opname string, op Operation) {
				defer wg.Done()
				logger.Info().Msgf("Shutting down: %s", opname)
				if err := op(opctx); err != nil {
					// Other operations still get their chance to finish
					logger.Error().Err(err).Msgf("%s shutdown failed.", opname)
					return
				}
				logger.Info().Msgf("%s shutdown completed.", opname)
			}(opname, op)
		}
		// Wait for all of the tasks to finish
		wg.Wait()
		close(wait)
	}()

	return wait
}
