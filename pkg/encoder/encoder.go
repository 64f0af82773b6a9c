package encoder

import (
	"context"
	"fmt"

	"github.com/unhoang/nlp-recipes/internal/hub"
	"github.com/unhoang/nlp-recipes/internal/onnx"
	"github.com/unhoang/nlp-recipes/internal/wordpiece"
	"github.com/unhoang/nlp-recipes/pkg/compute"
)

// Tokenizer converts one document into an encoder-ready sequence: token
// strings (including the [CLS] and [SEP] positions) plus input IDs and an
// attention mask, both padded to exactly maxLen.
type Tokenizer interface {
	Tokenize(text string, maxLen int) (tokens []string, inputIDs, attentionMask []int64)
}

// Headed is implemented by task-specific models (classifiers, taggers) that
// wrap a base encoder. New strips the head and keeps only the encoder.
type Headed interface {
	Encoder() compute.Model
}

// SentenceEncoder binds a pretrained encoder model and tokenizer and
// produces hidden-state records and pooled sentence embeddings.
//
// The model and tokenizer are shared across calls, and device placement
// rebinds the model, so an instance is not safe for concurrent use by
// multiple goroutines.
type SentenceEncoder struct {
	model compute.Model
	tok   Tokenizer

	hardware        compute.Hardware
	numAccelerators int
	maxLen          int
	ownsModel       bool
}

// New creates a SentenceEncoder. Without WithModel it fetches the default
// pretrained model for the configured language from the hub cache; without
// WithTokenizer it builds a WordPiece tokenizer from the same model's
// vocabulary.
func New(opts ...Option) (*SentenceEncoder, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	// [CLS] and [SEP] alone need two positions.
	if o.maxLen < 2 {
		return nil, fmt.Errorf("encoder: max token length must be at least 2, got %d", o.maxLen)
	}

	hw := compute.Detect()
	if o.hardware != nil {
		hw = *o.hardware
	}

	model := o.model
	if h, ok := model.(Headed); ok {
		model = h.Encoder()
	}
	tok := o.tokenizer
	ownsModel := false

	if model == nil || tok == nil {
		paths, err := hub.Fetch(context.Background(), string(o.language), o.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("encoder: %w", err)
		}
		if model == nil {
			sess, err := onnx.NewSession(paths.Model, compute.Device{Kind: compute.CPU})
			if err != nil {
				return nil, fmt.Errorf("encoder: %w", err)
			}
			model = sess
			ownsModel = true
		}
		if tok == nil {
			wp, err := wordpiece.New(paths.Vocab, o.caseFold)
			if err != nil {
				if ownsModel {
					model.Close()
				}
				return nil, fmt.Errorf("encoder: %w", err)
			}
			tok = wp
		}
	}

	return &SentenceEncoder{
		model:           model,
		tok:             tok,
		hardware:        hw,
		numAccelerators: o.numAccelerators,
		maxLen:          o.maxLen,
		ownsModel:       ownsModel,
	}, nil
}

// HiddenDim returns the width of the bound model's activation vectors.
func (e *SentenceEncoder) HiddenDim() int {
	return e.model.HiddenDim()
}

// Close releases the model if this encoder loaded it. A model supplied via
// WithModel stays open; its owner closes it.
func (e *SentenceEncoder) Close() error {
	if e.ownsModel {
		return e.model.Close()
	}
	return nil
}
