package embedding

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// ProgressReporter receives sub-batch progress from the Gateway.
type ProgressReporter interface {
	Start(total int)
	Increment()
	Finish()
}

// BarProgress draws an embedding progress bar on stderr.
type BarProgress struct {
	bar *progressbar.ProgressBar
}

// NewBarProgress returns a terminal progress reporter, or nil when disabled
// or when stderr is not a terminal.
func NewBarProgress(enabled bool) ProgressReporter {
	if !enabled || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return &BarProgress{}
}

func (p *BarProgress) Start(total int) {
	if total <= 1 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("embedding"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *BarProgress) Increment() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *BarProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
