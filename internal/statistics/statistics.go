package statistics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"image-optimizer-go/internal/fileops"
)

// Statistics accumulates the outcome of one batch run. All counters share one
// mutex; workers update it at most once per file.
type Statistics struct {
	mutex sync.RWMutex

	processed  uint64
	skipped    uint64
	failed     uint64
	totalSaved uint64

	originalBytes  uint64
	optimizedBytes uint64

	fileTypes map[string]uint64
	errors    []StatError

	startTime time.Time
	endTime   time.Time
}

// StatError represents an error that occurred during processing.
type StatError struct {
	FilePath  string    `json:"file_path"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is an immutable snapshot of the counters.
type Result struct {
	Processed      uint64        `json:"processed"`
	Skipped        uint64        `json:"skipped"`
	Failed         uint64        `json:"failed"`
	TotalSaved     uint64        `json:"total_saved"`
	OriginalBytes  uint64        `json:"original_bytes"`
	OptimizedBytes uint64        `json:"optimized_bytes"`
	Duration       time.Duration `json:"duration"`
}

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
		fileTypes: make(map[string]uint64),
	}
}

// RecordShrunk counts a file whose optimized encoding replaced the original.
func (s *Statistics) RecordShrunk(fileType string, originalSize, optimizedSize uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.processed++
	s.totalSaved += originalSize - optimizedSize
	s.originalBytes += originalSize
	s.optimizedBytes += optimizedSize
	s.fileTypes[fileType]++
}

// RecordSkipped counts a file whose optimized encoding was not smaller.
func (s *Statistics) RecordSkipped(fileType string, originalSize uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.skipped++
	s.originalBytes += originalSize
	s.optimizedBytes += originalSize
	s.fileTypes[fileType]++
}

// RecordFailed counts a failed file and keeps its error for the report.
func (s *Statistics) RecordFailed(filePath, operation string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.failed++
	s.errors = append(s.errors, StatError{
		FilePath:  filePath,
		Operation: operation,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}

// Finalize stops the run clock.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.endTime = time.Now()
}

// Snapshot returns the current counters.
func (s *Statistics) Snapshot() Result {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	end := s.endTime
	if end.IsZero() {
		end = time.Now()
	}
	return Result{
		Processed:      s.processed,
		Skipped:        s.skipped,
		Failed:         s.failed,
		TotalSaved:     s.totalSaved,
		OriginalBytes:  s.originalBytes,
		OptimizedBytes: s.optimizedBytes,
		Duration:       end.Sub(s.startTime),
	}
}

// Errors returns a copy of the recorded errors.
func (s *Statistics) Errors() []StatError {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]StatError(nil), s.errors...)
}

// SummaryLines returns the end-of-run report, one line per entry.
func (r Result) SummaryLines() []string {
	lines := []string{fmt.Sprintf("Processed %d files", r.Processed)}
	if r.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("Skipped %d files (optimization would increase size)", r.Skipped))
	}
	if r.Failed > 0 {
		lines = append(lines, fmt.Sprintf("Failed %d files", r.Failed))
	}
	if r.TotalSaved > 0 {
		lines = append(lines, fmt.Sprintf("Total space saved: %s", fileops.FormatBytes(r.TotalSaved)))
	}
	return lines
}

// GetFileTypeBreakdown returns a formatted breakdown of file types handled.
func (s *Statistics) GetFileTypeBreakdown() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.fileTypes) == 0 {
		return "No file type statistics available"
	}

	types := make([]string, 0, len(s.fileTypes))
	for t := range s.fileTypes {
		types = append(types, t)
	}
	sort.Strings(types)

	var b strings.Builder
	b.WriteString("File Type Breakdown:\n")
	for _, t := range types {
		fmt.Fprintf(&b, "  %s: %d\n", t, s.fileTypes[t])
	}
	return b.String()
}

// GetErrorSummary returns a summary of errors that occurred during processing.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.errors))
	for i, err := range s.errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return result
}
