package main

import (
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3"
)

type config struct {
	debugAddr string
	httpAddr  string
	zipkinURL string
	rateLimit float64
	rateBurst int
}

// parseConfig reads flags from args, falling back to SUMSVC_* environment
// variables and then to an optional -config file.
func parseConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("sumsvc", flag.ContinueOnError)
	var (
		cfg config
		_   = fs.String("config", "", "config file (optional)")
	)
	fs.StringVar(&cfg.debugAddr, "debug-addr", ":8080", "Debug and metrics listen address")
	fs.StringVar(&cfg.httpAddr, "http-addr", ":8081", "HTTP listen address")
	fs.StringVar(&cfg.zipkinURL, "zipkin-url", "", "Enable Zipkin tracing via HTTP reporter URL e.g. http://localhost:9411/api/v2/spans")
	fs.Float64Var(&cfg.rateLimit, "rate-limit", 100, "Sum requests per second, 0 to disable")
	fs.IntVar(&cfg.rateBurst, "rate-burst", 100, "Sum request burst size")
	err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("SUMSVC"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	)
	if err != nil {
		return config{}, err
	}
	if cfg.rateLimit < 0 {
		return config{}, fmt.Errorf("invalid -rate-limit %v", cfg.rateLimit)
	}
	if cfg.rateLimit > 0 && cfg.rateBurst < 1 {
		return config{}, fmt.Errorf("invalid -rate-burst %d", cfg.rateBurst)
	}
	return cfg, nil
}
