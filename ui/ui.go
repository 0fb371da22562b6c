// Small helpers for run output: colored notifications and progress bars.
package ui

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Quiet suppresses all output. Used by tests.
var Quiet bool

var (
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
)

// Header announces the start of a job, chalk-style.
func Header(msg string) {
	if Quiet {
		return
	}

	yellow.Println(msg)
}

// UnitStart prints the unit identifier without a trailing newline; the matching
// UnitOK or UnitError call completes the line.
func UnitStart(id string) {
	if Quiet {
		return
	}

	fmt.Printf("\t%s ", id)
}

func UnitOK() {
	if Quiet {
		return
	}

	green.Println("OK")
}

func UnitError() {
	if Quiet {
		return
	}

	red.Println("ERROR")
}

func NotifyMsg(level string, msg string) {
	if Quiet {
		return
	}

	switch level {
	case "error":
		red.Println(msg)
	case "warning":
		yellow.Println(msg)
	case "debug":
		cyan.Println(msg)
	default:
		fmt.Println(msg)
	}
}

// Bar wraps an mpb bar so call sites don't need nil checks when output is
// suppressed or the total is too small to bother rendering.
type Bar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func StartBar(name string, total int64) *Bar {
	if Quiet || total < 2 {
		return &Bar{}
	}

	p := mpb.New(mpb.WithWidth(42))

	bar := p.AddBar(total,
		mpb.PrependDecorators(decor.Name(name+" ")),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)

	return &Bar{p: p, bar: bar}
}

func (b *Bar) Increment() {
	if b.bar != nil {
		b.bar.Increment()
	}
}

func (b *Bar) Done() {
	if b.bar == nil {
		return
	}

	b.bar.Abort(true)
	b.p.Wait()
}
