package main

import (
	"fmt"
	"io"
	"os"

	"linksort/pkg/types"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiBold   = "\x1b[1m"
)

// printer writes user-facing lines, coloured only when out is a terminal.
type printer struct {
	out   io.Writer
	color bool
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, color: isTerminal(out)}
}

func isTerminal(v interface{}) bool {
	file, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *printer) paint(color, text string) string {
	if !p.color {
		return text
	}
	return color + text + ansiReset
}

func (p *printer) success(text string) string { return p.paint(ansiGreen, text) }
func (p *printer) warning(text string) string { return p.paint(ansiYellow, text) }
func (p *printer) error(text string) string   { return p.paint(ansiRed, text) }
func (p *printer) info(text string) string    { return p.paint(ansiBlue, text) }
func (p *printer) header(text string) string  { return p.paint(ansiBold, text) }

func (p *printer) println(text string) {
	fmt.Fprintln(p.out, text)
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

// statusLine renders "  label:  value" with the label padded to a column.
func (p *printer) statusLine(label, value string) {
	p.printf("  %-12s %s\n", label+":", value)
}

// result prints one pipeline outcome.
func (p *printer) result(r types.OrganizeResult) {
	switch r.Status {
	case types.StatusMoved:
		line := fmt.Sprintf("moved     %s -> %s", r.SourcePath, r.DestinationPath)
		if r.TemplateApplied {
			line += " (template applied)"
		} else if r.Reason != "" {
			line += " (" + r.Reason + ")"
		}
		p.println(p.success(line))
	case types.StatusDryRun:
		p.println(p.info(fmt.Sprintf("would move %s -> %s", r.SourcePath, r.DestinationPath)))
	case types.StatusFailed:
		line := fmt.Sprintf("failed    %s", r.SourcePath)
		if r.Error != nil {
			line += ": " + r.Error.Error()
		}
		p.println(p.error(line))
	default:
		p.println(p.warning(fmt.Sprintf("skipped   %s (%s)", r.SourcePath, r.Reason)))
	}
}
