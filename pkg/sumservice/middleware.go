package sumservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/log"
)

// Middleware describes a service (as opposed to endpoint) middleware.
type Middleware func(Service) Service

// LoggingMiddleware takes a logger as a dependency
// and returns a service Middleware.
func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) Sum(ctx context.Context, a, b int32) (v int32, err error) {
	defer func(begin time.Time) {
		mw.logger.Log("method", "Sum", "a", a, "b", b, "v", v, "err", err, "took", time.Since(begin))
	}(time.Now())
	return mw.next.Sum(ctx, a, b)
}

// InstrumentingMiddleware returns a service middleware that instruments
// the number of integers summed over the lifetime of the service.
func InstrumentingMiddleware(ints metrics.Counter) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{
			ints: ints,
			next: next,
		}
	}
}

type instrumentingMiddleware struct {
	ints metrics.Counter
	next Service
}

func (mw instrumentingMiddleware) Sum(ctx context.Context, a, b int32) (int32, error) {
	v, err := mw.next.Sum(ctx, a, b)
	if err == nil {
		mw.ints.Add(2)
	}
	return v, err
}
