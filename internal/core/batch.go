package core

import "context"

// DefaultBatchSize is the number of records per bulk write.
const DefaultBatchSize = 10000

// batch buffers records and hands them to flush in groups of size.
// The slice passed to flush is reused afterwards; sinks must not retain it.
type batch[T any] struct {
	items   []T
	size    int
	flush   func(context.Context, []T) error
	emitted int
}

func newBatch[T any](size int, flush func(context.Context, []T) error) *batch[T] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &batch[T]{
		items: make([]T, 0, min(size, 1024)),
		size:  size,
		flush: flush,
	}
}

// add appends item and flushes when the batch is full.
func (b *batch[T]) add(ctx context.Context, item T) error {
	b.items = append(b.items, item)
	b.emitted++
	if len(b.items) >= b.size {
		return b.drain(ctx)
	}
	return nil
}

// drain flushes any buffered records.
func (b *batch[T]) drain(ctx context.Context) error {
	if len(b.items) == 0 {
		return nil
	}
	if err := b.flush(ctx, b.items); err != nil {
		return err
	}
	b.items = b.items[:0]
	return nil
}
