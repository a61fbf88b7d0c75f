package eval

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// ProgressReporter receives progress of a standard query: one Message per
// initial transition and percentages while that transition is simulated.
// Aligned scopes report nothing.
type ProgressReporter interface {
	Message(current, total int, msg string)
	Percentage(pct int)
	Clear()
}

// NopProgress discards all progress.
type NopProgress struct{}

func (NopProgress) Message(int, int, string) {}
func (NopProgress) Percentage(int)           {}
func (NopProgress) Clear()                   {}

// BarProgress draws a terminal progress bar.
type BarProgress struct {
	bar *progressbar.ProgressBar
}

// NewBarProgress returns a progress bar writing to w.
func NewBarProgress(w io.Writer) *BarProgress {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
	return &BarProgress{bar: bar}
}

func (p *BarProgress) Message(current, total int, msg string) {
	p.bar.Describe(fmt.Sprintf("[%d/%d] %s", current, total, msg))
}

func (p *BarProgress) Percentage(pct int) {
	_ = p.bar.Set(pct)
}

func (p *BarProgress) Clear() {
	_ = p.bar.Clear()
	p.bar.Reset()
}
