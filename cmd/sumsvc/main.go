package main

import (
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/run"
	stdzipkin "github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/ggangpae1/sumsvc/pkg/sumendpoint"
	"github.com/ggangpae1/sumsvc/pkg/sumservice"
	"github.com/ggangpae1/sumsvc/pkg/sumtransport"
)

func main() {
	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
		stdlog.SetFlags(0)
		stdlog.SetOutput(log.NewStdlibAdapter(logger))
	}

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		level.Error(logger).Log("during", "parseConfig", "err", err)
		os.Exit(1)
	}

	var zipkinTracer *stdzipkin.Tracer
	{
		if cfg.zipkinURL != "" {
			var (
				hostPort    = "localhost:80"
				serviceName = "sumsvc"
				reporter    = zipkinhttp.NewReporter(cfg.zipkinURL)
			)
			defer reporter.Close()
			zEP, _ := stdzipkin.NewEndpoint(serviceName, hostPort)
			zipkinTracer, err = stdzipkin.NewTracer(reporter, stdzipkin.WithLocalEndpoint(zEP))
			if err != nil {
				level.Error(logger).Log("during", "zipkin.NewTracer", "err", err)
				os.Exit(1)
			}
			level.Info(logger).Log("tracer", "Zipkin", "URL", cfg.zipkinURL)
		}
	}

	// Create the (sparse) metrics we'll use in the service. They, too, are
	// dependencies that we pass to components that use them.
	var ints metrics.Counter
	{
		// Business-level metrics.
		ints = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "calculator",
			Subsystem: "sumsvc",
			Name:      "integers_summed",
			Help:      "Total count of integers summed via the Sum method.",
		}, []string{})
	}
	var duration metrics.Histogram
	{
		// Endpoint-level metrics.
		duration = prometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: "calculator",
			Subsystem: "sumsvc",
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds.",
		}, []string{"method", "success"})
	}
	http.DefaultServeMux.Handle("/metrics", promhttp.Handler())

	var limiter ratelimit.Allower
	if cfg.rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst)
	}

	// Build the layers of the service "onion" from the inside out. First, the
	// business logic service; then, the set of endpoints that wrap the service;
	// and finally, the HTTP handler that exposes them.
	var (
		service     = sumservice.New(log.With(logger, "component", "sumservice"), ints)
		endpoints   = sumendpoint.New(service, log.With(logger, "component", "sumendpoint"), duration, limiter, zipkinTracer)
		httpHandler = sumtransport.NewHTTPHandler(endpoints, zipkinTracer, log.With(logger, "component", "HTTP"))
	)

	var g run.Group
	{
		// The debug listener mounts the http.DefaultServeMux, and serves up
		// stuff like the Prometheus metrics route and the Go debug/pprof routes.
		debugListener, err := net.Listen("tcp", cfg.debugAddr)
		if err != nil {
			level.Error(logger).Log("transport", "debug/HTTP", "during", "Listen", "err", err)
			os.Exit(1)
		}
		g.Add(func() error {
			level.Info(logger).Log("transport", "debug/HTTP", "addr", cfg.debugAddr)
			return http.Serve(debugListener, http.DefaultServeMux)
		}, func(error) {
			debugListener.Close()
		})
	}
	{
		httpListener, err := net.Listen("tcp", cfg.httpAddr)
		if err != nil {
			level.Error(logger).Log("transport", "HTTP", "during", "Listen", "err", err)
			os.Exit(1)
		}
		g.Add(func() error {
			level.Info(logger).Log("transport", "HTTP", "addr", cfg.httpAddr)
			return http.Serve(httpListener, httpHandler)
		}, func(error) {
			httpListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	level.Info(logger).Log("exit", g.Run())
}
