package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"nwbconv/internal/preflight"
)

type checkStatus int

const (
	checkOK checkStatus = iota
	checkSkipped
	checkWarn
	checkFailed
)

var checkStyles = map[checkStatus]struct {
	label string
	color string
}{
	checkOK:      {"OK", "\x1b[32m"},
	checkSkipped: {"SKIP", "\x1b[34m"},
	checkWarn:    {"WARN", "\x1b[33m"},
	checkFailed:  {"FAIL", "\x1b[31m"},
}

const (
	ansiReset       = "\x1b[0m"
	checkLabelWidth = 22
)

// statusOf classifies a result. Optional checks that pass are reported as
// skipped only when their detail says the target is absent.
func statusOf(r preflight.Result) checkStatus {
	switch {
	case r.Passed && r.Optional && strings.Contains(r.Detail, "not present"):
		return checkSkipped
	case r.Passed:
		return checkOK
	case r.Optional:
		return checkWarn
	default:
		return checkFailed
	}
}

type checkReport struct {
	out      io.Writer
	colorize bool
	counts   map[checkStatus]int
}

func newCheckReport(out io.Writer) *checkReport {
	return &checkReport{out: out, colorize: shouldColorize(out), counts: map[checkStatus]int{}}
}

func (r *checkReport) header(title string) {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	fmt.Fprintln(r.out, r.paint(line, checkStyles[checkSkipped].color))
	fmt.Fprintln(r.out, r.paint(rule, checkStyles[checkSkipped].color))
}

func (r *checkReport) result(res preflight.Result) {
	status := statusOf(res)
	r.counts[status]++
	style := checkStyles[status]
	text := fmt.Sprintf("  %-*s [%s]", checkLabelWidth, res.Name+":", style.label)
	if res.Detail != "" {
		text += " " + res.Detail
	}
	fmt.Fprintln(r.out, r.paint(text, style.color))
}

func (r *checkReport) summary() {
	fmt.Fprintf(r.out, "\n%d ok, %d skipped, %d warning(s), %d failed\n",
		r.counts[checkOK], r.counts[checkSkipped], r.counts[checkWarn], r.counts[checkFailed])
}

func (r *checkReport) paint(s, color string) string {
	if !r.colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
