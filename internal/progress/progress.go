// Package progress renders build progress on the terminal.
package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Bar is a progress bar. A nil *Bar is valid and does nothing.
type Bar struct {
	bar *progressbar.ProgressBar
}

func New(w io.Writer, description string, enabled bool) *Bar {
	if !enabled {
		return nil
	}
	return &Bar{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		),
	}
}

// SetTotal fixes the number of steps once it is known.
func (b *Bar) SetTotal(n int) {
	if b == nil {
		return
	}
	b.bar.ChangeMax(n)
}

func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
}
