package batching

import "iter"

const defaultBatchSize = 32

type loaderOptions struct {
	batchSize    int
	accelerators int
	shuffle      bool
	distributed  bool
	rank         int
	worldSize    int
}

// LoaderOption configures a Loader.
type LoaderOption func(*loaderOptions)

// WithBatchSize sets the per-accelerator batch size. Values below 1 fall
// back to the default. Default: 32.
func WithBatchSize(n int) LoaderOption {
	return func(o *loaderOptions) {
		o.batchSize = n
	}
}

// WithAccelerators scales the effective batch size by the accelerator count:
// effective = batch size × max(1, n). Default: 0 (no scaling).
func WithAccelerators(n int) LoaderOption {
	return func(o *loaderOptions) {
		o.accelerators = n
	}
}

// WithShuffle selects a shuffled sampler instead of the sequential default.
func WithShuffle() LoaderOption {
	return func(o *loaderOptions) {
		o.shuffle = true
	}
}

// WithDistributed selects a distributed sampler that partitions the dataset
// across worldSize workers; this loader visits the shard for rank.
// Takes precedence over WithShuffle.
func WithDistributed(rank, worldSize int) LoaderOption {
	return func(o *loaderOptions) {
		o.distributed = true
		o.rank = rank
		o.worldSize = worldSize
	}
}

// Loader produces a lazy, finite sequence of batches over a dataset. Each
// call to Batches starts a fresh pass.
type Loader[T any] struct {
	ds        Dataset[T]
	sampler   Sampler
	batchSize int
}

// New builds a loader over ds with the given options.
func New[T any](ds Dataset[T], opts ...LoaderOption) *Loader[T] {
	o := loaderOptions{batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}
	// A batch size below 1 would make a pass infinite.
	if o.batchSize < 1 {
		o.batchSize = defaultBatchSize
	}

	scale := o.accelerators
	if scale < 1 {
		scale = 1
	}

	var sampler Sampler
	switch {
	case o.distributed:
		sampler = Distributed{Rank: o.rank, WorldSize: o.worldSize}
	case o.shuffle:
		sampler = Shuffled{}
	default:
		sampler = Sequential{}
	}

	return &Loader[T]{
		ds:        ds,
		sampler:   sampler,
		batchSize: o.batchSize * scale,
	}
}

// BatchSize returns the effective (accelerator-scaled) batch size.
func (l *Loader[T]) BatchSize() int {
	return l.batchSize
}

// Len returns the number of batches in one pass. The last batch may be
// smaller than the batch size.
func (l *Loader[T]) Len() int {
	n := len(l.sampler.Indices(l.ds.Len()))
	return (n + l.batchSize - 1) / l.batchSize
}

// Batches returns an iterator over one pass of the dataset. Ranging over it
// again starts a new pass; shuffled loaders reorder on every pass.
func (l *Loader[T]) Batches() iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		idx := l.sampler.Indices(l.ds.Len())
		for start := 0; start < len(idx); start += l.batchSize {
			end := start + l.batchSize
			if end > len(idx) {
				end = len(idx)
			}
			batch := make([]T, 0, end-start)
			for _, i := range idx[start:end] {
				batch = append(batch, l.ds.At(i))
			}
			if !yield(batch) {
				return
			}
		}
	}
}
