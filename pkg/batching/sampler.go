package batching

import "math/rand/v2"

// Sampler decides which dataset indices a loader pass visits, and in what
// order. Indices is called once per pass, so stateful samplers (shuffling)
// produce a fresh order every time the loader is iterated.
type Sampler interface {
	Indices(n int) []int
}

// Sequential visits every index in dataset order.
type Sequential struct{}

func (Sequential) Indices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Shuffled visits every index in a new random order each pass.
type Shuffled struct{}

func (Shuffled) Indices(n int) []int {
	return rand.Perm(n)
}

// Distributed partitions the dataset across workers: worker rank out of
// worldSize visits indices rank, rank+worldSize, rank+2*worldSize, ...
// Every index is visited by exactly one worker.
type Distributed struct {
	Rank      int
	WorldSize int
}

func (d Distributed) Indices(n int) []int {
	world := d.WorldSize
	if world < 1 {
		world = 1
	}
	var idx []int
	for i := d.Rank % world; i < n; i += world {
		idx = append(idx, i)
	}
	return idx
}
