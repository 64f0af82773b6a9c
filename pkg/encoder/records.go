package encoder

// HiddenState is one token's activation vector from one encoder layer:
// the row type of the table ExtractHiddenStates produces. LayerIndex is the
// caller's requested index (negative indices are kept as requested).
type HiddenState struct {
	TextIndex  int
	Token      string
	LayerIndex int
	Values     []float64
}

// Pooled is one sentence embedding: all token vectors of one
// (document, layer) group reduced to a single fixed-width vector.
type Pooled struct {
	TextIndex  int
	LayerIndex int
	Values     []float64
}
