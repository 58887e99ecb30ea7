package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"scanattend/internal/scan"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

type printer struct {
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) print(o scan.Outcome) {
	c := colorFor(o.Kind)
	cyan.Fprintf(p.out, "%s ", o.At.Local().Format("15:04:05"))
	fmt.Fprintf(p.out, "[%-6s] ", o.Source)
	c.Fprintln(p.out, o.Message())
}

func colorFor(k scan.Kind) *color.Color {
	switch k {
	case scan.KindSuccess:
		return green
	case scan.KindAlreadyScanned:
		return yellow
	default:
		return red
	}
}
