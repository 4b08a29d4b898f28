package batch

import (
	"context"
	"errors"
	"fmt"
)

// Chunk sizing limits.
const (
	// DefaultChunkSize is the default number of shipments per chunk.
	DefaultChunkSize = 100

	// MinChunkSize is the smallest allowed chunk size.
	MinChunkSize = 1

	// MaxChunkSize is the largest allowed chunk size.
	MaxChunkSize = 1000
)

// Common processing errors.
var (
	ErrInvalidChunkSize = errors.New("chunk size must be between 1 and 1000")
	ErrNilHandler       = errors.New("chunk handler cannot be nil")
	ErrEmptyItems       = errors.New("items slice cannot be empty")
)

// ChunkFunc processes one chunk of items. It receives the chunk and its
// 0-based index and stops the run by returning an error.
type ChunkFunc[T any] func(ctx context.Context, chunk []T, index int) error

// ProgressFunc is invoked after each chunk completes.
type ProgressFunc func(progress *Progress)

// Processor walks a slice in fixed-size chunks. Chunks run one after
// another; the estimation engine parallelizes within each chunk.
type Processor[T any] struct {
	chunkSize  int
	onProgress ProgressFunc
}

// NewProcessor creates a processor with the given chunk size.
func NewProcessor[T any](chunkSize int) (*Processor[T], error) {
	if chunkSize < MinChunkSize || chunkSize > MaxChunkSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}
	return &Processor[T]{chunkSize: chunkSize}, nil
}

// NewProcessorWithDefaults creates a processor with the default chunk size.
func NewProcessorWithDefaults[T any]() *Processor[T] {
	return &Processor[T]{chunkSize: DefaultChunkSize}
}

// WithProgress sets a progress callback.
func (p *Processor[T]) WithProgress(fn ProgressFunc) *Processor[T] {
	p.onProgress = fn
	return p
}

// ChunkSize returns the configured chunk size.
func (p *Processor[T]) ChunkSize() int {
	return p.chunkSize
}

// Process runs the handler over items chunk by chunk, stopping on the
// first error or on context cancellation between chunks.
func (p *Processor[T]) Process(ctx context.Context, items []T, handler ChunkFunc[T]) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	if handler == nil {
		return ErrNilHandler
	}

	totalChunks := p.totalChunks(len(items))
	progress := NewProgress(len(items), totalChunks, p.chunkSize)

	for index := range totalChunks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := index * p.chunkSize
		end := min(start+p.chunkSize, len(items))

		if err := handler(ctx, items[start:end], index); err != nil {
			return fmt.Errorf("chunk %d failed: %w", index, err)
		}

		progress.AddProcessed(end - start)
		if p.onProgress != nil {
			p.onProgress(progress)
		}
	}
	return nil
}

// Bounds returns the [start, end) index pairs the processor would use.
func (p *Processor[T]) Bounds(totalItems int) [][2]int {
	totalChunks := p.totalChunks(totalItems)
	bounds := make([][2]int, totalChunks)
	for i := range totalChunks {
		start := i * p.chunkSize
		bounds[i] = [2]int{start, min(start+p.chunkSize, totalItems)}
	}
	return bounds
}

func (p *Processor[T]) totalChunks(totalItems int) int {
	chunks := totalItems / p.chunkSize
	if totalItems%p.chunkSize > 0 {
		chunks++
	}
	return chunks
}
