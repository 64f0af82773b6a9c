package encoder

import (
	"fmt"
	"math"

	"github.com/unhoang/nlp-recipes/internal/logging"
	"github.com/unhoang/nlp-recipes/pkg/batching"
	"github.com/unhoang/nlp-recipes/pkg/compute"
)

const defaultBatchSize = 32

// example is one tokenized document queued for a forward pass.
type example struct {
	index int
	ids   []int64
	mask  []int64
}

// ExtractHiddenStates tokenizes the documents, runs them through the
// encoder in batches, and returns one record per (document, token,
// requested layer) with the activation values rounded to 6 decimal digits.
//
// Layer indices follow the model's output order; negative indices count
// from the end, so -2 is the second-to-last layer. A nil or empty slice
// defaults to [-2]. Batches are visited in document order so the output is
// reproducible, and each batch's runtime tensors are released before the
// next forward pass to bound peak accelerator memory.
func (e *SentenceEncoder) ExtractHiddenStates(texts []string, layerIndices []int, batchSize int) ([]HiddenState, error) {
	if len(layerIndices) == 0 {
		layerIndices = []int{-2}
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	dev, n := compute.Resolve(e.hardware, e.numAccelerators, compute.NotDistributed)
	placement := compute.NewPlacement(e.hardware)
	if n > 0 {
		placement.NumAccelerators = n
	}
	model, err := compute.Place(e.model, dev, placement)
	if err != nil {
		return nil, fmt.Errorf("encoder: place model: %w", err)
	}
	if dp, ok := model.(*compute.DataParallel); ok {
		// The replicas only live for this pass.
		defer dp.Close()
	}

	layerCount := model.LayerCount()
	dim := model.HiddenDim()
	resolved := make([]int, len(layerIndices))
	for i, li := range layerIndices {
		idx := li
		if idx < 0 {
			idx += layerCount
		}
		if idx < 0 || idx >= layerCount {
			return nil, fmt.Errorf("encoder: layer index %d out of range for %d layers", li, layerCount)
		}
		resolved[i] = idx
	}

	tokens := make([][]string, len(texts))
	examples := make([]example, len(texts))
	for i, text := range texts {
		toks, ids, mask := e.tok.Tokenize(text, e.maxLen)
		tokens[i] = toks
		examples[i] = example{index: i, ids: ids, mask: mask}
	}

	loader := batching.New[example](
		batching.Slice[example](examples),
		batching.WithBatchSize(batchSize),
	)
	logging.Default().Debug("extracting hidden states",
		"documents", len(texts), "batches", loader.Len(), "device", dev.String(), "layers", layerIndices)

	seqLen := e.maxLen
	var records []HiddenState
	for batch := range loader.Batches() {
		flatIDs := make([]int64, 0, len(batch)*seqLen)
		flatMask := make([]int64, 0, len(batch)*seqLen)
		for _, ex := range batch {
			flatIDs = append(flatIDs, ex.ids...)
			flatMask = append(flatMask, ex.mask...)
		}

		layers, ferr := model.Forward(flatIDs, flatMask, int64(len(batch)), int64(seqLen))
		if ferr != nil {
			return nil, fmt.Errorf("encoder: forward pass: %w", ferr)
		}

		for b, ex := range batch {
			for i, token := range tokens[ex.index] {
				for j, li := range layerIndices {
					layer := layers[resolved[j]]
					off := (b*seqLen + i) * dim
					values := make([]float64, dim)
					for k, v := range layer[off : off+dim] {
						values[k] = round6(v)
					}
					records = append(records, HiddenState{
						TextIndex:  ex.index,
						Token:      token,
						LayerIndex: li,
						Values:     values,
					})
				}
			}
		}
	}
	return records, nil
}

// Encode composes ExtractHiddenStates and Pool: one pooled record per
// (document, requested layer).
func (e *SentenceEncoder) Encode(texts []string, layerIndices []int, batchSize int, strategy PoolingStrategy) ([]Pooled, error) {
	records, err := e.ExtractHiddenStates(texts, layerIndices, batchSize)
	if err != nil {
		return nil, err
	}
	return e.Pool(records, strategy)
}

// EncodeVectors is Encode returning just the embedding matrix, one row per
// pooled record, ordered by document index then layer index.
func (e *SentenceEncoder) EncodeVectors(texts []string, layerIndices []int, batchSize int, strategy PoolingStrategy) ([][]float64, error) {
	pooled, err := e.Encode(texts, layerIndices, batchSize, strategy)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float64, len(pooled))
	for i, p := range pooled {
		vectors[i] = p.Values
	}
	return vectors, nil
}

// round6 truncates an activation to 6 decimal digits, the precision the
// records table stores.
func round6(v float32) float64 {
	return math.Round(float64(v)*1e6) / 1e6
}
