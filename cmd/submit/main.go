// Command submit queues check requests for the checker workers and
// optionally waits for their reports.
//
// Requests are read from files or stdin as a stream of JSON documents, or
// taken from the scenario catalog with -scenario.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/saviobatista/uav-deconfliction/internal/config"
	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/nats"
	"github.com/saviobatista/uav-deconfliction/internal/report"
	"github.com/saviobatista/uav-deconfliction/internal/scenarios"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

const (
	exitOK       = 0
	exitError    = 1
	exitConflict = 2
)

// Bus is the part of the NATS client submit needs
type Bus interface {
	PublishCheckRequest(msg *types.CheckRequestMessage) error
	SubscribeCheckReports(handler func(*types.CheckReport)) (*natsgo.Subscription, error)
	Close()
}

// collector gathers the reports of submitted requests
type collector struct {
	mu      sync.Mutex
	order   []string
	pending map[string]bool
	reports map[string]*types.CheckReport
	done    chan struct{}
	sealed  bool
	closed  bool
}

func newCollector() *collector {
	return &collector{
		pending: make(map[string]bool),
		reports: make(map[string]*types.CheckReport),
		done:    make(chan struct{}),
	}
}

// newID registers a request id before it is published
func (c *collector) newID() string {
	id := uuid.NewString()
	c.mu.Lock()
	c.order = append(c.order, id)
	c.pending[id] = true
	c.mu.Unlock()
	return id
}

func (c *collector) add(r *types.CheckReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending[r.RequestID] {
		return
	}
	delete(c.pending, r.RequestID)
	c.reports[r.RequestID] = r
	c.closeIfDone()
}

// seal marks the end of submission
func (c *collector) seal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	c.closeIfDone()
}

func (c *collector) closeIfDone() {
	if c.sealed && !c.closed && len(c.pending) == 0 {
		c.closed = true
		close(c.done)
	}
}

func (c *collector) results() ([]string, map[string]*types.CheckReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reports := make(map[string]*types.CheckReport, len(c.reports))
	for k, v := range c.reports {
		reports[k] = v
	}
	return append([]string(nil), c.order...), reports
}

// publishStream publishes every JSON document read from r
func publishStream(r io.Reader, source string, bus Bus, newID func() string) (int, error) {
	dec := json.NewDecoder(r)
	n := 0
	for {
		var payload json.RawMessage
		if err := dec.Decode(&payload); errors.Is(err, io.EOF) {
			return n, nil
		} else if err != nil {
			return n, fmt.Errorf("invalid request %d in %s: %w", n+1, source, err)
		}

		msg := &types.CheckRequestMessage{
			RequestID:   newID(),
			Source:      source,
			SubmittedAt: time.Now().UTC(),
			Payload:     payload,
		}
		if err := bus.PublishCheckRequest(msg); err != nil {
			return n, fmt.Errorf("failed to publish request: %w", err)
		}
		n++
	}
}

// scenarioPayloads resolves "all" or a comma separated list of scenario ids
func scenarioPayloads(selection string) ([]json.RawMessage, error) {
	ids := scenarios.IDs()
	if selection != "all" {
		ids = strings.Split(selection, ",")
	}

	payloads := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		sc, ok := scenarios.Get(strings.TrimSpace(id))
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", id)
		}
		data, err := json.Marshal(sc.Request())
		if err != nil {
			return nil, fmt.Errorf("failed to encode scenario %s: %w", id, err)
		}
		payloads = append(payloads, data)
	}
	return payloads, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, connect func(url string) (Bus, error)) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	natsURL := fs.String("nats", "", "NATS URL (defaults to NATS_URL)")
	scenario := fs.String("scenario", "", "Submit built-in scenarios: comma separated ids or \"all\"")
	wait := fs.Duration("wait", 0, "Wait this long for the reports and print them")
	asJSON := fs.Bool("json", false, "Print reports as JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	url := *natsURL
	if url == "" {
		url = os.Getenv("NATS_URL")
	}
	if url == "" {
		url = "nats://nats:4222"
	}

	bus, err := connect(url)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer bus.Close()

	c := newCollector()
	if *wait > 0 {
		sub, err := bus.SubscribeCheckReports(c.add)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		if sub != nil {
			defer func() { _ = sub.Unsubscribe() }()
		}
	}

	submitted, err := submit(bus, c, *scenario, fs.Args(), stdin)
	fmt.Fprintf(stderr, "Submitted %d request(s)\n", submitted)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if *wait <= 0 {
		return exitOK
	}

	c.seal()
	timeout := time.NewTimer(*wait)
	defer timeout.Stop()
	code := exitOK
	select {
	case <-c.done:
	case <-timeout.C:
		fmt.Fprintf(stderr, "Timed out waiting for reports\n")
		code = exitError
	case <-ctx.Done():
		code = exitError
	}

	order, reports := c.results()
	opts := report.Options{JSON: *asJSON, UseColors: !*noColor && !color.NoColor, Precision: report.DefaultPrecision}
	for _, id := range order {
		r, ok := reports[id]
		if !ok {
			fmt.Fprintf(stdout, "Request %s: no report\n", id)
			continue
		}
		if r.Error != "" {
			fmt.Fprintf(stdout, "Request %s: rejected: %s\n", id, r.Error)
			code = exitError
			continue
		}
		if !*asJSON {
			fmt.Fprintf(stdout, "Request %s (check %s):\n", id, r.CheckID)
		}
		if err := report.Write(stdout, r, opts); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		if r.Status == types.StatusConflict && code == exitOK {
			code = exitConflict
		}
	}
	return code
}

func submit(bus Bus, c *collector, scenario string, files []string, stdin io.Reader) (int, error) {
	if scenario != "" {
		payloads, err := scenarioPayloads(scenario)
		if err != nil {
			return 0, err
		}
		for i, p := range payloads {
			msg := &types.CheckRequestMessage{
				RequestID:   c.newID(),
				Source:      "scenario",
				SubmittedAt: time.Now().UTC(),
				Payload:     p,
			}
			if err := bus.PublishCheckRequest(msg); err != nil {
				return i, fmt.Errorf("failed to publish request: %w", err)
			}
		}
		return len(payloads), nil
	}

	if len(files) == 0 {
		files = []string{"-"}
	}
	total := 0
	for _, name := range files {
		var (
			n   int
			err error
		)
		if name == "-" {
			n, err = publishStream(stdin, "stdin", bus, c.newID)
		} else {
			n, err = publishFile(name, bus, c.newID)
		}
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func publishFile(name string, bus Bus, newID func() string) (int, error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()
	return publishStream(f, name, bus, newID)
}

func main() {
	// Only the optional .env file matters here; engine settings live in the workers
	cfg, err := config.Load()
	level := "info"
	if err == nil {
		level = cfg.LogLevel
	}
	logger := log.New("submit", level, "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, func(url string) (Bus, error) {
		return nats.New(url, logger)
	})
	stop()
	os.Exit(code)
}
