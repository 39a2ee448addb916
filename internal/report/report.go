// Package report renders check results for terminals and scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/saviobatista/uav-deconfliction/internal/scenarios"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// DefaultPrecision is used when Options.Precision is negative
const DefaultPrecision = 2

// Options controls how a report is rendered
type Options struct {
	JSON      bool
	UseColors bool
	// Decimal places for distances and coordinates
	Precision int
}

type palette struct {
	critical, high, medium, low func(...any) string
	clear, conflict             func(...any) string
}

func newPalette(useColors bool) palette {
	if !useColors {
		return palette{fmt.Sprint, fmt.Sprint, fmt.Sprint, fmt.Sprint, fmt.Sprint, fmt.Sprint}
	}
	sprint := func(attrs ...color.Attribute) func(...any) string {
		c := color.New(attrs...)
		c.EnableColor()
		return c.SprintFunc()
	}
	return palette{
		critical: sprint(color.FgRed, color.Bold),
		high:     sprint(color.FgMagenta, color.Bold),
		medium:   sprint(color.FgYellow),
		low:      sprint(color.FgCyan),
		clear:    sprint(color.FgGreen, color.Bold),
		conflict: sprint(color.FgRed, color.Bold),
	}
}

func (p palette) severity(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return p.critical(string(s))
	case types.SeverityHigh:
		return p.high(string(s))
	case types.SeverityMedium:
		return p.medium(string(s))
	default:
		return p.low(string(s))
	}
}

// Write renders the result of report to w, as the wire JSON when opts.JSON
// is set and as a conflict table otherwise
func Write(w io.Writer, report *types.CheckReport, opts Options) error {
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Result())
	}

	p := newPalette(opts.UseColors)
	precision := opts.Precision
	if precision < 0 {
		precision = DefaultPrecision
	}
	num := func(v float64) string {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
	point := func(pt types.Point) string {
		out := "("
		for i, c := range pt.Coords() {
			if i > 0 {
				out += ", "
			}
			out += num(c)
		}
		return out + ")"
	}

	if report.Status == types.StatusClear {
		_, err := fmt.Fprintf(w, "Status: %s (%d missions, %d segments)\n",
			p.clear(string(report.Status)), report.MissionCount, report.SegmentCount)
		return err
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"#", "Mission", "Time", "Distance", "Severity", "Primary", "Other"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(report.Conflicts))
	for i, c := range report.Conflicts {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			c.MissionID,
			num(c.Time),
			num(c.Distance),
			p.severity(c.Severity),
			point(c.Location.Primary),
			point(c.Location.Other),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Status: %s, %d conflicts across %d missions\n",
		p.conflict(string(report.Status)), len(report.Conflicts), report.MissionCount)
	return err
}

// WriteScenarios lists the scenario catalog
func WriteScenarios(w io.Writer, list []scenarios.Summary) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"ID", "Description"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	data := make([][]string, 0, len(list))
	for _, s := range list {
		data = append(data, []string{s.ID, s.Description})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
