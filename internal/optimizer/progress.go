package optimizer

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"image-optimizer-go/internal/media"

	"github.com/schollz/progressbar/v3"
)

// Progress receives per-file events from the coordinator. Implementations are
// called from worker goroutines and must not block.
type Progress interface {
	Started(file media.ImageFile)
	Finished(file media.ImageFile, outcome Outcome, err error)
}

// NopProgress discards all events.
type NopProgress struct{}

func (NopProgress) Started(media.ImageFile)                 {}
func (NopProgress) Finished(media.ImageFile, Outcome, error) {}

// BarProgress renders a terminal progress bar that ticks once per file.
type BarProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// NewBarProgress returns a bar for total files writing to w.
func NewBarProgress(w io.Writer, total int) *BarProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Optimizing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &BarProgress{bar: bar}
}

func (b *BarProgress) Started(file media.ImageFile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar.Describe(fmt.Sprintf("Processing %s", filepath.Base(file.Path)))
}

func (b *BarProgress) Finished(media.ImageFile, Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Add(1)
}

// Close completes the bar.
func (b *BarProgress) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bar.Finish()
}
