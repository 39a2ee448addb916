// Command deconflict checks a mission request from a file, stdin or the
// built-in scenario catalog and prints the conflicts found.
//
// Exit status is 0 when the primary mission is clear, 2 when conflicts were
// found and 1 on any error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/saviobatista/uav-deconfliction/internal/checker"
	"github.com/saviobatista/uav-deconfliction/internal/config"
	"github.com/saviobatista/uav-deconfliction/internal/deconflict"
	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/report"
	"github.com/saviobatista/uav-deconfliction/internal/scenarios"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

const (
	exitClear    = 0
	exitError    = 1
	exitConflict = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("deconflict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	scenario := fs.String("scenario", "", "Check a built-in scenario by id")
	list := fs.Bool("list", false, "List the built-in scenarios")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	precision := fs.Int("precision", report.DefaultPrecision, "Decimal places in the table")
	workers := fs.Int("workers", 0, "Check other missions concurrently (overrides CHECK_WORKERS)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: deconflict [flags] [request.json | -]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	if *list {
		if err := report.WriteScenarios(stdout, scenarios.List()); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		return exitClear
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	params := cfg.Params()
	if *workers > 0 {
		params.Workers = *workers
	}
	engine, err := deconflict.New(params)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	logger := log.NewWithWriter(stderr, cfg.LogLevel)
	if cfg.LogDir != "" {
		logger = log.New("deconflict", cfg.LogLevel, cfg.LogDir)
	}
	defer logger.Close()
	svc := checker.New(engine, checker.WithLogger(logger))

	rep, err := check(svc, *scenario, fs.Args(), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	opts := report.Options{
		JSON:      *asJSON,
		UseColors: !*noColor && !color.NoColor,
		Precision: *precision,
	}
	if err := report.Write(stdout, rep, opts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if rep.Status == types.StatusConflict {
		return exitConflict
	}
	return exitClear
}

func check(svc *checker.Service, scenario string, args []string, stdin io.Reader) (*types.CheckReport, error) {
	ctx := context.Background()

	if scenario != "" {
		if len(args) > 0 {
			return nil, errors.New("-scenario cannot be combined with a request file")
		}
		sc, ok := scenarios.Get(scenario)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (try -list)", scenario)
		}
		req := sc.Request()
		return svc.Check(ctx, "", "cli", &req)
	}

	var (
		body []byte
		err  error
	)
	switch {
	case len(args) == 0 || args[0] == "-":
		body, err = io.ReadAll(stdin)
	case len(args) == 1:
		body, err = os.ReadFile(args[0])
	default:
		return nil, errors.New("expected a single request file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	return svc.CheckRaw(ctx, "", "cli", body)
}
