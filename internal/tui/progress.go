// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/docker/go-units"
)

// percentWidth is the width of the " 100%" suffix rendered by bubbles progress.
const percentWidth = 5

// ProgressBar renders a single-line download indicator that is rewritten in
// place with a carriage return. With a known total it shows a bar of fixed
// width and a percentage, redrawn only when the whole percentage changes.
// With an unknown total (negative) it shows a running byte count instead.
// A zero total is complete from the start and renders as 100%.
type ProgressBar struct {
	out   io.Writer
	bar   progress.Model
	total int64
	last  int
}

// NewProgressBar creates a ProgressBar for total bytes with a bar of
// barWidth cells.
func NewProgressBar(out io.Writer, barWidth int, total int64) *ProgressBar {
	return &ProgressBar{
		out: out,
		bar: progress.New(
			progress.WithWidth(barWidth+percentWidth),
			progress.WithSolidFill("#7C3AED"),
		),
		total: total,
		last:  -1,
	}
}

// Update redraws the indicator for done bytes.
func (p *ProgressBar) Update(done int64) {
	if p.total < 0 {
		fmt.Fprintf(p.out, "\r%s downloaded", units.BytesSize(float64(done)))
		return
	}

	ratio := 1.0
	if p.total > 0 {
		ratio = min(float64(done)/float64(p.total), 1)
	}
	pct := int(ratio * 100)
	if pct == p.last {
		return
	}
	p.last = pct
	fmt.Fprint(p.out, "\r"+p.bar.ViewAs(ratio))
}

// Finish draws the final state and ends the line.
func (p *ProgressBar) Finish(done int64) {
	if p.total < 0 {
		fmt.Fprintf(p.out, "\r%s downloaded\n", units.BytesSize(float64(done)))
		return
	}
	fmt.Fprint(p.out, "\r"+p.bar.ViewAs(1)+"\n")
}
