package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/klokku/weekgrid/internal/event_bus"
	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/slot"
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed, color.Bold)
	cyan  = color.New(color.FgCyan)
	faint = color.New(color.Faint)
)

// printer renders events and reports store outcomes. It implements store.Notifier.
type printer struct {
	out io.Writer
	err io.Writer
}

func newPrinter(out, err io.Writer) *printer {
	return &printer{out: out, err: err}
}

func (p *printer) Committed(outcome event_bus.StoreMutationCommitted) {
	if outcome.Operation == "load" {
		return
	}
	green.Fprintf(p.out, "✓ %s saved (%s)\n", outcome.Operation, summarizeIds(outcome.EventIds))
}

func (p *printer) RolledBack(outcome event_bus.StoreMutationRolledBack) {
	red.Fprintf(p.err, "✗ %s failed and was undone\n", outcome.Operation)
	fmt.Fprintf(p.err, "  %v\n", outcome.Err)
}

func (p *printer) failure(err error) {
	red.Fprintf(p.err, "Error: %v\n", err)
}

func (p *printer) heading(format string, a ...any) {
	cyan.Fprintf(p.out, "→ "+format+"\n", a...)
}

// event prints one line: id, schedule, the title on its own color and the repeat rule.
func (p *printer) event(e calendar.Event) {
	when := "unscheduled"
	if e.IsScheduled() {
		when = fmt.Sprintf("%s %s %s-%s", e.WeekStart, e.Day, slot.Format(e.TimeSlot), slot.Format(e.TimeSlot+e.EffectiveDuration()))
	}
	fmt.Fprintf(p.out, "%-28s %-28s ", e.ID, when)
	badge(e.Color).Fprintf(p.out, " %s ", e.Title)
	if e.HasRepeat() {
		faint.Fprintf(p.out, " %s", e.RepeatType)
		if e.RepeatEndDate != "" {
			faint.Fprintf(p.out, " until %s", e.RepeatEndDate)
		}
	}
	fmt.Fprintln(p.out)
}

func (p *printer) events(events []calendar.Event) {
	if len(events) == 0 {
		faint.Fprintln(p.out, "  (none)")
		return
	}
	for _, e := range events {
		p.event(e)
	}
}

// badge colors a title with the event color as background and a readable foreground.
func badge(c calendar.Color) *color.Color {
	r, g, b, ok := c.RGB()
	if !ok {
		return color.New(color.Reset)
	}
	fg := color.FgWhite
	if c.ContrastText() == "black" {
		fg = color.FgBlack
	}
	return color.BgRGB(int(r), int(g), int(b)).Add(fg)
}

func summarizeIds(ids []string) string {
	const shown = 3
	if len(ids) <= shown {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(ids[:shown], ", "), len(ids)-shown)
}
