package sumtransport

// This file provides server-side bindings for the HTTP transport.
// It utilizes the transport/http.Server.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	stdzipkin "github.com/openzipkin/zipkin-go"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/tracing/zipkin"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/go-kit/log"

	"github.com/ggangpae1/sumsvc/pkg/sumendpoint"
	"github.com/ggangpae1/sumsvc/pkg/sumservice"
)

var (
	// ErrMissingParameter means a required query parameter was absent or empty.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrMalformedParameter means a query parameter was not a base-10 integer.
	ErrMalformedParameter = errors.New("malformed parameter")
)

// ParamError names the query parameter that failed to decode.
type ParamError struct {
	Name string
	Err  error
}

func (e ParamError) Error() string {
	return fmt.Sprintf("parameter %q: %v", e.Name, e.Err)
}

func (e ParamError) Unwrap() error { return e.Err }

// NewHTTPHandler returns an HTTP handler that makes a set of endpoints
// available on predefined paths.
func NewHTTPHandler(endpoints sumendpoint.Set, zipkinTracer *stdzipkin.Tracer, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}
	if zipkinTracer != nil {
		options = append(options, zipkin.HTTPServerTrace(zipkinTracer, zipkin.Name("Sum")))
	}

	r := mux.NewRouter()
	r.Methods(http.MethodGet).Path("/sum").Handler(httptransport.NewServer(
		endpoints.SumEndpoint,
		decodeHTTPSumRequest,
		encodeHTTPSumResponse,
		options...,
	))
	return r
}

// NewHTTPClient returns a Service backed by an HTTP server living at the
// remote instance. We expect instance to come from a service discovery system,
// so likely of the form "host:port". We bake-in certain middlewares,
// implementing the client library pattern.
func NewHTTPClient(instance string, zipkinTracer *stdzipkin.Tracer, logger log.Logger) (sumservice.Service, error) {
	u, err := instanceURL(instance)
	if err != nil {
		return nil, err
	}

	// We construct a single ratelimiter middleware, to limit the total outgoing
	// QPS from this client to all methods on the remote instance.
	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	options := []httptransport.ClientOption{
		httptransport.ClientFinalizer(func(ctx context.Context, err error) {
			if err != nil {
				logger.Log("transport", "HTTP", "during", "Sum", "err", err)
			}
		}),
	}
	if zipkinTracer != nil {
		options = append(options, zipkin.HTTPClientTrace(zipkinTracer, zipkin.Name("Sum")))
	}

	var sumEndpoint endpoint.Endpoint
	{
		sumEndpoint = httptransport.NewClient(
			http.MethodGet,
			copyURL(u, "/sum"),
			encodeHTTPSumRequest,
			decodeHTTPSumResponse,
			options...,
		).Endpoint()
		sumEndpoint = limiter(sumEndpoint)
		sumEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Sum",
			Timeout: 30 * time.Second,
		}))(sumEndpoint)
	}

	// Returning the endpoint.Set as a service.Service relies on the
	// endpoint.Set implementing the Service methods. That's just a simple bit
	// of glue code.
	return sumendpoint.Set{
		SumEndpoint: sumEndpoint,
	}, nil
}

// instanceURL turns an instance address into a base URL. Addresses without an
// explicit http:// or https:// scheme are plain host:port pairs, even when the
// host name itself begins with "http".
func instanceURL(instance string) (*url.URL, error) {
	if !strings.HasPrefix(instance, "http://") && !strings.HasPrefix(instance, "https://") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("instance %q: missing host", instance)
	}
	return u, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = path
	return &next
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err2code(err))
	json.NewEncoder(w).Encode(errorWrapper{Error: err.Error()})
}

func err2code(err error) int {
	switch {
	case errors.Is(err, ErrMissingParameter),
		errors.Is(err, ErrMalformedParameter),
		errors.Is(err, sumservice.ErrIntOverflow):
		return http.StatusBadRequest
	case errors.Is(err, ratelimit.ErrLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func errorDecoder(r *http.Response) error {
	var w errorWrapper
	if err := json.NewDecoder(r.Body).Decode(&w); err != nil {
		return fmt.Errorf("%s: %w", r.Status, err)
	}
	return str2err(w.Error)
}

// str2err recovers the sentinel errors a client may want to match on.
func str2err(s string) error {
	switch {
	case s == sumservice.ErrIntOverflow.Error():
		return sumservice.ErrIntOverflow
	case strings.HasSuffix(s, ": "+sumservice.ErrIntOverflow.Error()):
		return fmt.Errorf("%s: %w", strings.TrimSuffix(s, ": "+sumservice.ErrIntOverflow.Error()), sumservice.ErrIntOverflow)
	case strings.HasSuffix(s, ": "+ErrMissingParameter.Error()):
		return fmt.Errorf("%s: %w", strings.TrimSuffix(s, ": "+ErrMissingParameter.Error()), ErrMissingParameter)
	case strings.HasSuffix(s, ": "+ErrMalformedParameter.Error()):
		return fmt.Errorf("%s: %w", strings.TrimSuffix(s, ": "+ErrMalformedParameter.Error()), ErrMalformedParameter)
	}
	return errors.New(s)
}

type errorWrapper struct {
	Error string `json:"error"`
}

// decodeHTTPSumRequest is a transport/http.DecodeRequestFunc that decodes the
// sum operands from the "a" and "b" query parameters. Primarily useful in a
// server.
func decodeHTTPSumRequest(_ context.Context, r *http.Request) (interface{}, error) {
	q := r.URL.Query()
	a, err := int32Param(q, "a")
	if err != nil {
		return nil, err
	}
	b, err := int32Param(q, "b")
	if err != nil {
		return nil, err
	}
	return sumendpoint.SumRequest{A: a, B: b}, nil
}

// int32Param extracts a single required int32 query parameter. Surrounding
// whitespace is ignored; repeated parameters are rejected as malformed.
func int32Param(q url.Values, name string) (int32, error) {
	vs, ok := q[name]
	if !ok || len(vs) == 0 || strings.TrimSpace(vs[0]) == "" {
		return 0, ParamError{Name: name, Err: ErrMissingParameter}
	}
	if len(vs) > 1 {
		return 0, ParamError{Name: name, Err: ErrMalformedParameter}
	}
	v, err := strconv.ParseInt(strings.TrimSpace(vs[0]), 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ParamError{Name: name, Err: sumservice.ErrIntOverflow}
		}
		return 0, ParamError{Name: name, Err: ErrMalformedParameter}
	}
	return int32(v), nil
}

// decodeHTTPSumResponse is a transport/http.DecodeResponseFunc that decodes
// the plain-text sum from the HTTP response body. A 4xx status is a business
// error and is returned inside the response; any other non-200 status is a
// transport error. Primarily useful in a client.
func decodeHTTPSumResponse(_ context.Context, r *http.Response) (interface{}, error) {
	switch {
	case r.StatusCode == http.StatusOK:
	case r.StatusCode >= 400 && r.StatusCode < 500 && r.StatusCode != http.StatusTooManyRequests:
		return sumendpoint.SumResponse{Err: errorDecoder(r)}, nil
	default:
		return nil, errorDecoder(r)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 32)
	if err != nil {
		return nil, err
	}
	return sumendpoint.SumResponse{V: int32(v)}, nil
}

// encodeHTTPSumRequest is a transport/http.EncodeRequestFunc that puts the
// sum operands into the request's query string. Primarily useful in a client.
func encodeHTTPSumRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(sumendpoint.SumRequest)
	q := r.URL.Query()
	q.Set("a", strconv.FormatInt(int64(req.A), 10))
	q.Set("b", strconv.FormatInt(int64(req.B), 10))
	r.URL.RawQuery = q.Encode()
	return nil
}

// encodeHTTPSumResponse is a transport/http.EncodeResponseFunc that writes the
// sum as a decimal string. Primarily useful in a server.
func encodeHTTPSumResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	resp := response.(sumendpoint.SumResponse)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := io.WriteString(w, strconv.FormatInt(int64(resp.V), 10))
	return err
}
