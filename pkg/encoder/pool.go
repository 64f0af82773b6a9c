package encoder

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// PoolingStrategy selects how a group of token vectors is reduced to one
// sentence vector. The set is closed; anything else is a programming error
// and Pool reports it as ErrUnknownPoolingStrategy.
type PoolingStrategy string

const (
	// PoolMax takes the element-wise maximum over the token vectors.
	PoolMax PoolingStrategy = "max"
	// PoolMean takes the element-wise average over the token vectors.
	PoolMean PoolingStrategy = "mean"
	// PoolCLS takes the first token's vector (the [CLS] position).
	PoolCLS PoolingStrategy = "cls"
)

// ErrUnknownPoolingStrategy reports a pooling strategy outside the closed
// {max, mean, cls} set.
var ErrUnknownPoolingStrategy = errors.New("encoder: unknown pooling strategy")

// Pool reduces token-level hidden-state records to sentence embeddings.
// Records are grouped strictly by (TextIndex, LayerIndex); each group's
// vectors are stacked in record order and reduced with the given strategy.
// Results are ordered by document index, then layer index.
//
// Every record vector must have the model's hidden width. PoolCLS assumes
// the records within a group are in token order, so the first record is the
// [CLS] position; ExtractHiddenStates emits them that way.
func (e *SentenceEncoder) Pool(records []HiddenState, strategy PoolingStrategy) ([]Pooled, error) {
	dim := e.model.HiddenDim()

	type key struct {
		text  int
		layer int
	}
	groups := make(map[key][][]float64)
	var order []key
	for _, r := range records {
		if len(r.Values) != dim {
			return nil, fmt.Errorf("encoder: record for document %d has width %d, want %d",
				r.TextIndex, len(r.Values), dim)
		}
		k := key{r.TextIndex, r.LayerIndex}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r.Values)
	}

	slices.SortFunc(order, func(a, b key) int {
		if c := cmp.Compare(a.text, b.text); c != 0 {
			return c
		}
		return cmp.Compare(a.layer, b.layer)
	})

	pooled := make([]Pooled, 0, len(order))
	for _, k := range order {
		vec, err := reduce(groups[k], dim, strategy)
		if err != nil {
			return nil, err
		}
		pooled = append(pooled, Pooled{TextIndex: k.text, LayerIndex: k.layer, Values: vec})
	}
	return pooled, nil
}

func reduce(rows [][]float64, dim int, strategy PoolingStrategy) ([]float64, error) {
	out := make([]float64, dim)
	switch strategy {
	case PoolMean:
		for _, row := range rows {
			floats.Add(out, row)
		}
		floats.Scale(1/float64(len(rows)), out)
	case PoolMax:
		copy(out, rows[0])
		for _, row := range rows[1:] {
			for j, v := range row {
				if v > out[j] {
					out[j] = v
				}
			}
		}
	case PoolCLS:
		copy(out, rows[0])
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPoolingStrategy, strategy)
	}
	return out, nil
}
