package compute

// Model is a forward-only transformer encoder. Forward takes flat
// [batchSize*seqLen] input-id and attention-mask slices and returns one flat
// [batchSize*seqLen*HiddenDim()] activation tensor per hidden layer, ordered
// from the embedding output to the final layer.
//
// Implementations are inference-only: there is no gradient state to disable.
type Model interface {
	Forward(inputIDs, attentionMask []int64, batchSize, seqLen int64) ([][]float32, error)

	// HiddenDim reports the width of a single token activation vector.
	HiddenDim() int
	// LayerCount reports how many hidden layers Forward returns.
	LayerCount() int

	// To rebinds the model to the given device.
	To(dev Device) error
	Close() error
}

// Replicator is implemented by models that can open an independent copy of
// themselves on another device. Place requires it for single-process
// multi-accelerator data parallelism.
type Replicator interface {
	Replicate(dev Device) (Model, error)
}
