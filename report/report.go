// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/matchvote/models"
	"github.com/danielhkuo/matchvote/voting"
)

// maxResponseWidth bounds the response column
const maxResponseWidth = 60

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4CAF50"))
	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))
)

// Render writes the plan and, unless it was a dry run, the results.
// now is used for the state age.
func Render(w io.Writer, r *voting.Report, now time.Time) error {
	var b strings.Builder

	b.WriteString(Plan(r.Plan, now))
	b.WriteString("\n")

	if r.DryRun {
		b.WriteString(labelStyle.Render("Dry run: no votes sent"))
		b.WriteString("\n")
	} else {
		b.WriteString(Results(r))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Plan renders the selection summary and the selected matchers
func Plan(p *voting.Plan, now time.Time) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Run " + p.RunID))
	b.WriteString("\n")
	line(&b, "Couple", p.Pair.Person1+" + "+p.Pair.Person2)
	line(&b, "Users", fmt.Sprintf("%s (%s with email)",
		humanize.Comma(int64(p.Snapshot.Size)),
		humanize.Comma(int64(len(p.Snapshot.Records))),
	))
	line(&b, "Used", usedLine(p.Used, now))
	line(&b, "Available", humanize.Comma(int64(p.Available)))
	line(&b, "Votes", humanize.Comma(int64(p.Votes)))

	t := newTable("#", "MATCHER")
	for i, m := range p.Matchers {
		t.Row(strconv.Itoa(i+1), m)
	}
	b.WriteString(t.Render())
	b.WriteString("\n")

	return b.String()
}

// Results renders one row per outcome followed by the totals
func Results(r *voting.Report) string {
	var b strings.Builder
	s := r.Summary

	t := newTable("#", "MATCHER", "STATUS", "ATTEMPTS", "RESPONSE")
	for i, o := range s.Outcomes {
		status := o.StatusOrError()
		if o.Succeeded {
			status = okStyle.Render(status)
		} else {
			status = failStyle.Render(status)
		}
		t.Row(strconv.Itoa(i+1), o.Matcher, status, strconv.Itoa(o.Attempts), shorten(o.Response))
	}
	b.WriteString(t.Render())
	b.WriteString("\n")

	total := fmt.Sprintf("%s succeeded, %s failed",
		okStyle.Render(humanize.Comma(int64(s.Succeeded))),
		failStyle.Render(humanize.Comma(int64(s.Failed))),
	)
	if n := s.Retried(); n > 0 {
		total += fmt.Sprintf(", %s after onboarding", humanize.Comma(int64(n)))
	}
	line(&b, "Result", total)

	if kinds := failureKinds(s.CountByKind()); kinds != "" {
		line(&b, "Failures", kinds)
	}
	if r.Interrupted {
		line(&b, "Interrupted", "unsent votes were skipped")
	}
	line(&b, "Recorded", humanize.Comma(int64(r.Recorded.Len()))+" matchers used so far")

	return b.String()
}

func usedLine(used models.UsedMatchers, now time.Time) string {
	out := humanize.Comma(int64(used.Matchers.Len()))
	if !used.UpdatedAt.IsZero() {
		out += ", updated " + humanize.RelTime(used.UpdatedAt, now, "ago", "from now")
	}
	return out
}

// failureKinds lists non-zero failure counts in a fixed order
func failureKinds(counts map[error]int) string {
	kinds := []struct {
		err  error
		name string
	}{
		{models.ErrTransport, "transport"},
		{models.ErrPreconditionFailure, "onboarding"},
		{models.ErrRemoteRejection, "rejected"},
		{models.ErrNotSent, "not sent"},
	}

	var parts []string
	for _, k := range kinds {
		if n := counts[k.err]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k.name))
		}
	}
	return strings.Join(parts, ", ")
}

// ExitCode maps a run error to a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, models.ErrValidation):
		return 2
	default:
		return 1
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

func line(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label + ":"))
	b.WriteString(" ")
	b.WriteString(value)
	b.WriteString("\n")
}

func shorten(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxResponseWidth {
		return s
	}
	return string(runes[:maxResponseWidth-3]) + "..."
}
