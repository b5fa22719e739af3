package sumendpoint_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/log"

	"github.com/ggangpae1/sumsvc/pkg/sumendpoint"
	"github.com/ggangpae1/sumsvc/pkg/sumservice"
)

func TestMakeSumEndpoint(t *testing.T) {
	e := sumendpoint.MakeSumEndpoint(sumservice.NewBasicService())

	resp, err := e(context.Background(), sumendpoint.SumRequest{A: 2, B: 3})
	if err != nil {
		t.Fatal(err)
	}
	if want, have := (sumendpoint.SumResponse{V: 5}), resp.(sumendpoint.SumResponse); want != have {
		t.Errorf("want %+v, have %+v", want, have)
	}

	resp, err = e(context.Background(), sumendpoint.SumRequest{A: math.MaxInt32, B: 1})
	if err != nil {
		t.Fatalf("business errors belong in the response, have transport error %v", err)
	}
	if want, have := sumservice.ErrIntOverflow, resp.(sumendpoint.SumResponse).Failed(); !errors.Is(have, want) {
		t.Errorf("want %v, have %v", want, have)
	}
}

func TestSetSum(t *testing.T) {
	set := sumendpoint.New(sumservice.NewBasicService(), log.NewNopLogger(), discard.NewHistogram(), nil, nil)

	v, err := set.Sum(context.Background(), -5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := int32(0), v; want != have {
		t.Errorf("want %d, have %d", want, have)
	}

	if _, err := set.Sum(context.Background(), math.MinInt32, -1); !errors.Is(err, sumservice.ErrIntOverflow) {
		t.Errorf("want %v, have %v", sumservice.ErrIntOverflow, err)
	}
}

func TestSetRateLimit(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	set := sumendpoint.New(sumservice.NewBasicService(), log.NewNopLogger(), discard.NewHistogram(), limiter, nil)

	if _, err := set.Sum(context.Background(), 1, 1); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := set.Sum(context.Background(), 1, 1); !errors.Is(err, ratelimit.ErrLimited) {
		t.Errorf("want %v, have %v", ratelimit.ErrLimited, err)
	}
}

func TestInstrumentingMiddleware(t *testing.T) {
	h := &labelHistogram{}
	set := sumendpoint.New(sumservice.NewBasicService(), log.NewNopLogger(), h, nil, nil)

	set.Sum(context.Background(), 1, 2)
	set.Sum(context.Background(), math.MaxInt32, 1)

	want := []string{"method=Sum success=true", "method=Sum success=false"}
	have := h.observed()
	if len(want) != len(have) {
		t.Fatalf("want %v, have %v", want, have)
	}
	for i := range want {
		if want[i] != have[i] {
			t.Errorf("observation %d: want %q, have %q", i, want[i], have[i])
		}
	}
}

// labelHistogram records the label values each observation was made with.
type labelHistogram struct {
	lvs  []string
	mtx  *sync.Mutex
	seen *[]string
}

func (h *labelHistogram) With(labelValues ...string) metrics.Histogram {
	if h.mtx == nil {
		h.mtx, h.seen = &sync.Mutex{}, &[]string{}
	}
	return &labelHistogram{
		lvs:  append(append([]string{}, h.lvs...), labelValues...),
		mtx:  h.mtx,
		seen: h.seen,
	}
}

func (h *labelHistogram) Observe(float64) {
	var s string
	for i := 0; i+1 < len(h.lvs); i += 2 {
		if i > 0 {
			s += " "
		}
		s += h.lvs[i] + "=" + h.lvs[i+1]
	}
	h.mtx.Lock()
	defer h.mtx.Unlock()
	*h.seen = append(*h.seen, s)
}

func (h *labelHistogram) observed() []string {
	if h.mtx == nil {
		return nil
	}
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return append([]string{}, *h.seen...)
}
