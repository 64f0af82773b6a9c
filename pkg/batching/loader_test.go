package batching

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func intRange(n int) Slice[int] {
	s := make(Slice[int], n)
	for i := range s {
		s[i] = i
	}
	return s
}

func collect(l *Loader[int]) [][]int {
	var batches [][]int
	for b := range l.Batches() {
		batches = append(batches, b)
	}
	return batches
}

func flatten(batches [][]int) []int {
	var all []int
	for _, b := range batches {
		all = append(all, b...)
	}
	return all
}

func TestLoaderSequential(t *testing.T) {
	l := New[int](intRange(7), WithBatchSize(3))

	batches := collect(l)
	want := [][]int{{0, 1, 2}, {3, 4, 5}, {6}}
	if diff := cmp.Diff(want, batches); diff != "" {
		t.Errorf("batches mismatch (-want +got):\n%s", diff)
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
}

func TestLoaderAcceleratorScaling(t *testing.T) {
	// Effective batch size is per-accelerator size × accelerator count.
	for _, n := range []int{1, 2, 4} {
		l := New[int](intRange(64), WithBatchSize(8), WithAccelerators(n))
		if got, want := l.BatchSize(), 8*n; got != want {
			t.Errorf("accelerators=%d: BatchSize() = %d, want %d", n, got, want)
		}
	}

	// Zero accelerators still yields at least one batch worth.
	l := New[int](intRange(64), WithBatchSize(8), WithAccelerators(0))
	if l.BatchSize() != 8 {
		t.Errorf("BatchSize() = %d, want 8", l.BatchSize())
	}
}

func TestLoaderNonPositiveBatchSizeFallsBack(t *testing.T) {
	// A batch size below 1 must not produce an infinite pass of empty
	// batches; it falls back to the default.
	for _, size := range []int{0, -3} {
		l := New[int](intRange(50), WithBatchSize(size))
		if l.BatchSize() != defaultBatchSize {
			t.Errorf("size=%d: BatchSize() = %d, want %d", size, l.BatchSize(), defaultBatchSize)
		}
		if l.Len() != 2 {
			t.Errorf("size=%d: Len() = %d, want 2", size, l.Len())
		}

		count := 0
		for b := range l.Batches() {
			count++
			if len(b) == 0 {
				t.Fatalf("size=%d: yielded an empty batch", size)
			}
			if count > 2 {
				t.Fatalf("size=%d: pass did not terminate", size)
			}
		}
		if count != 2 {
			t.Errorf("size=%d: got %d batches, want 2", size, count)
		}
	}
}

func TestLoaderRestartable(t *testing.T) {
	l := New[int](intRange(10), WithBatchSize(4))

	first := collect(l)
	second := collect(l)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("sequential passes differ (-first +second):\n%s", diff)
	}
}

func TestLoaderShuffleVisitsEverything(t *testing.T) {
	l := New[int](intRange(50), WithBatchSize(7), WithShuffle())

	got := flatten(collect(l))
	if len(got) != 50 {
		t.Fatalf("visited %d examples, want 50", len(got))
	}
	seen := make(map[int]bool, 50)
	for _, v := range got {
		if seen[v] {
			t.Fatalf("example %d visited twice", v)
		}
		seen[v] = true
	}
}

func TestLoaderDistributedPartitions(t *testing.T) {
	const world = 3
	ds := intRange(10)

	seen := make(map[int]int)
	for rank := 0; rank < world; rank++ {
		l := New[int](ds, WithBatchSize(4), WithDistributed(rank, world))
		for _, v := range flatten(collect(l)) {
			seen[v]++
		}
	}

	// Every example lands on exactly one worker.
	for i := 0; i < 10; i++ {
		if seen[i] != 1 {
			t.Errorf("example %d visited %d times, want 1", i, seen[i])
		}
	}
}

func TestLoaderEarlyBreak(t *testing.T) {
	l := New[int](intRange(100), WithBatchSize(10))

	count := 0
	for range l.Batches() {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("consumed %d batches, want 2", count)
	}
}
