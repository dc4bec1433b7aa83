package optimizer

import (
	"sync"

	"image-optimizer-go/internal/logger"
	"image-optimizer-go/internal/media"
	"image-optimizer-go/internal/statistics"

	"github.com/sirupsen/logrus"
)

// Coordinator runs the optimizer over a list of files and aggregates results.
type Coordinator struct {
	optimizer *Optimizer
	workers   int
	progress  Progress
	log       *logrus.Logger
}

// NewCoordinator returns a Coordinator using req's execution mode.
func NewCoordinator(opt *Optimizer, req Request, progress Progress, log *logrus.Logger) *Coordinator {
	if progress == nil {
		progress = NopProgress{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{
		optimizer: opt,
		workers:   req.WorkerCount(),
		progress:  progress,
		log:       log,
	}
}

// Run optimizes every file and returns the aggregated counters. Failed files
// are logged and counted separately; they never stop the batch.
func (c *Coordinator) Run(files []media.ImageFile) *statistics.Statistics {
	stats := statistics.NewStatistics()
	defer stats.Finalize()

	if len(files) == 0 {
		return stats
	}

	if c.workers <= 1 {
		for _, f := range files {
			c.handle(f, stats)
		}
		return stats
	}

	jobs := make(chan media.ImageFile, len(files))
	numWorkers := min(c.workers, len(files))

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for f := range jobs {
				c.handle(f, stats)
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	return stats
}

func (c *Coordinator) handle(file media.ImageFile, stats *statistics.Statistics) {
	c.progress.Started(file)

	outcome, err := c.optimizer.Optimize(file)
	switch {
	case err != nil:
		logger.WithFileOperation(c.log, file.Path, "optimize").Errorf("Error processing %s: %v", file.Path, err)
		stats.RecordFailed(file.Path, "optimize", err)
	case outcome.Status == StatusShrunk:
		c.log.WithField("file", file.Path).Debugf("Saved %d bytes", outcome.Saved)
		stats.RecordShrunk(file.Format.String(), outcome.OriginalSize, outcome.OptimizedSize)
	default:
		c.log.WithField("file", file.Path).Debug("Optimized file not smaller, kept original")
		stats.RecordSkipped(file.Format.String(), outcome.OriginalSize)
	}

	c.progress.Finished(file, outcome, err)
}
