// Package presenter renders a report for standard output.
package presenter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/naka-gawa/lp-bug-report/internal/domain"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for a format other than text or json.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", goerr.Wrap(ErrUnknownFormat, "failed to parse format", goerr.V("format", s))
}

// Render writes the report in the given format.
func Render(w io.Writer, f Format, r *domain.Report) error {
	switch f {
	case FormatJSON:
		return JSON(w, r)
	case FormatText:
		return Text(w, r)
	}
	return goerr.Wrap(ErrUnknownFormat, "failed to render report", goerr.V("format", string(f)))
}

// Text writes the human readable report. A truncated report prints the
// sections that completed and leaves out the grand total when a project
// section is missing.
func Text(w io.Writer, r *domain.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Bugs fixed between %s:\n", r.Range)
	for _, p := range r.Projects {
		b.WriteString("\n")
		fmt.Fprintf(&b, "Project: %s\n", p.Project)
		fmt.Fprintf(&b, "Total number of bugs: %d\n", p.TotalBugs)

		if p.New != nil {
			b.WriteString("New bugs:\n")
			writeBucket(&b, p.New)
		}

		if p.Fixed != nil {
			b.WriteString("Bugs fixed\n")
			writeBucket(&b, p.Fixed)
			if p.FixTime != nil {
				fmt.Fprintf(&b, "Median days to fix: %.1f\n", p.FixTime.MedianDays)
			}
		}

		if p.Invalid != nil {
			b.WriteString("\n")
			b.WriteString("Bugs marked as invalid\n")
			writeBucket(&b, p.Invalid)
		}
	}
	if r.GrandTotalFinal() {
		b.WriteString("\n")
		fmt.Fprintf(&b, "Grand Total: %d\n", r.GrandTotal)
	}

	if r.Team != nil {
		fmt.Fprintf(&b, "Members of %s:\n", r.Team.Team)
		for _, m := range r.Team.Members {
			fmt.Fprintf(&b, "%s Total: %d New: %d Fixed: %d\n", m.DisplayName, m.Total, m.New, m.Fixed)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return goerr.Wrap(err, "failed to write text report")
	}
	return nil
}

func writeBucket(b *strings.Builder, bucket *domain.BucketReport) {
	for _, title := range bucket.Titles {
		b.WriteString(title)
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "Total: %d\n", bucket.Count)
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r *domain.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal report to JSON")
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return goerr.Wrap(err, "failed to write JSON report")
	}
	return nil
}
