package batch

import (
	"sync"
	"time"
)

// percentMultiplier converts a ratio to a percentage.
const percentMultiplier = 100

// Progress tracks a chunked run. Safe for concurrent reads while the
// processor updates it.
type Progress struct {
	// TotalItems is the number of shipments in the run.
	TotalItems int

	// ProcessedItems counts shipments whose chunk has completed.
	ProcessedItems int

	// TotalChunks and ProcessedChunks count whole chunks.
	TotalChunks     int
	ProcessedChunks int

	// ChunkSize is the configured chunk size.
	ChunkSize int

	// StartTime is when the run started.
	StartTime time.Time

	mu sync.RWMutex
}

// NewProgress creates a tracker for a run of totalItems.
func NewProgress(totalItems, totalChunks, chunkSize int) *Progress {
	return &Progress{
		TotalItems:  totalItems,
		TotalChunks: totalChunks,
		ChunkSize:   chunkSize,
		StartTime:   time.Now(),
	}
}

// AddProcessed records one completed chunk of itemsProcessed shipments.
func (p *Progress) AddProcessed(itemsProcessed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ProcessedItems += itemsProcessed
	p.ProcessedChunks++
}

// PercentComplete returns completion as 0-100.
func (p *Progress) PercentComplete() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.TotalItems == 0 {
		return 0
	}
	return float64(p.ProcessedItems) / float64(p.TotalItems) * percentMultiplier
}

// IsComplete reports whether every shipment has been processed.
func (p *Progress) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.ProcessedItems >= p.TotalItems
}

// ElapsedTime returns the time since the run started.
func (p *Progress) ElapsedTime() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return time.Since(p.StartTime)
}

// EstimatedTimeRemaining projects the remaining run time from the rate so
// far. Returns 0 before any chunk completes.
func (p *Progress) EstimatedTimeRemaining() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.ProcessedItems == 0 {
		return 0
	}
	avgPerItem := time.Since(p.StartTime) / time.Duration(p.ProcessedItems)
	return avgPerItem * time.Duration(p.TotalItems-p.ProcessedItems)
}

// ItemsPerSecond returns the shipment processing rate.
func (p *Progress) ItemsPerSecond() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elapsed := time.Since(p.StartTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(p.ProcessedItems) / elapsed
}

// Snapshot returns an immutable copy of the current state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	percent := 0.0
	if p.TotalItems > 0 {
		percent = float64(p.ProcessedItems) / float64(p.TotalItems) * percentMultiplier
	}
	rate := 0.0
	if elapsed := time.Since(p.StartTime).Seconds(); elapsed > 0 {
		rate = float64(p.ProcessedItems) / elapsed
	}

	return Snapshot{
		TotalItems:      p.TotalItems,
		ProcessedItems:  p.ProcessedItems,
		TotalChunks:     p.TotalChunks,
		ProcessedChunks: p.ProcessedChunks,
		ChunkSize:       p.ChunkSize,
		PercentComplete: percent,
		ElapsedTime:     time.Since(p.StartTime),
		ItemsPerSecond:  rate,
	}
}

// Snapshot is a point-in-time copy of Progress.
type Snapshot struct {
	TotalItems      int
	ProcessedItems  int
	TotalChunks     int
	ProcessedChunks int
	ChunkSize       int
	PercentComplete float64
	ElapsedTime     time.Duration
	ItemsPerSecond  float64
}
