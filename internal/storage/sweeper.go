package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hohotang/shortlink-core/internal/logger"
	"go.uber.org/zap"
)

// sweepFunc deletes expired entries and returns how many were removed
type sweepFunc func(ctx context.Context) (int64, error)

// sweeper periodically purges expired entries from backends that have no native expiry
type sweeper struct {
	closedC chan struct{}
	done    chan struct{}
	once    sync.Once
}

// startSweeper runs fn every interval until stop is called. It returns nil when interval is not positive.
func startSweeper(backend string, interval time.Duration, fn sweepFunc) *sweeper {
	if interval <= 0 {
		return nil
	}

	s := &sweeper{
		closedC: make(chan struct{}),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				n, err := fn(ctx)
				cancel()
				if err != nil {
					logger.L().Error("Failed to sweep expired keys", zap.String("backend", backend), zap.Error(err))
					continue
				}
				if n > 0 {
					logger.L().Debug("Swept expired keys", zap.String("backend", backend), zap.Int64("count", n))
				}
			case <-s.closedC:
				return
			}
		}
	}()

	return s
}

// stop halts the sweeper and waits for an in-flight sweep to finish
func (s *sweeper) stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.closedC)
		<-s.done
	})
}
