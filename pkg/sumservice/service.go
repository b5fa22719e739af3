package sumservice

import (
	"context"
	"errors"
	"math"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/log"
)

// Service describes a service that adds things together.
type Service interface {
	Sum(ctx context.Context, a, b int32) (int32, error)
}

// New returns a basic Service with all of the expected middlewares wired in.
func New(logger log.Logger, ints metrics.Counter) Service {
	var svc Service
	{
		svc = NewBasicService()
		svc = LoggingMiddleware(logger)(svc)
		svc = InstrumentingMiddleware(ints)(svc)
	}
	return svc
}

// ErrIntOverflow protects the Sum method. A request parameter or a result
// that doesn't fit in an int32 is reported with this error, never truncated.
var ErrIntOverflow = errors.New("integer overflow")

// NewBasicService returns a naïve, stateless implementation of Service.
func NewBasicService() Service {
	return basicService{}
}

type basicService struct{}

// Sum implements Service.
func (s basicService) Sum(_ context.Context, a, b int32) (int32, error) {
	v := int64(a) + int64(b)
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, ErrIntOverflow
	}
	return int32(v), nil
}
