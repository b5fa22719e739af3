package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/go-kit/log"

	"github.com/ggangpae1/sumsvc/pkg/sumservice"
	"github.com/ggangpae1/sumsvc/pkg/sumtransport"
)

func main() {
	fs := flag.NewFlagSet("sumcli", flag.ContinueOnError)
	fs.Usage = usageFor(fs, os.Args[0]+" [flags] <a> <b>")
	cfg, err := parseFlags(fs, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.operands) != 2 {
		fs.Usage()
		os.Exit(1)
	}

	a, err := parseOperand(cfg.operands[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	b, err := parseOperand(cfg.operands[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var (
		logger = log.NewLogfmtLogger(os.Stderr)
		svc    sumservice.Service
	)
	svc, err = sumtransport.NewHTTPClient(cfg.httpAddr, nil, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()
	v, err := svc.Sum(ctx, a, b)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "%d + %d = %d\n", a, b, v)
}

type config struct {
	httpAddr string
	timeout  time.Duration
	operands []string
}

// parseFlags reads flags from args, falling back to SUMCLI_* environment
// variables.
func parseFlags(fs *flag.FlagSet, args []string) (config, error) {
	var cfg config
	fs.StringVar(&cfg.httpAddr, "http-addr", "localhost:8081", "HTTP address of sumsvc")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "request timeout")
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("SUMCLI")); err != nil {
		return config{}, err
	}
	cfg.operands = fs.Args()
	return cfg, nil
}

func parseOperand(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("operand %q: %w", s, err)
	}
	return int32(v), nil
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}
