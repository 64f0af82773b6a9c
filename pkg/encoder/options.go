package encoder

import (
	"github.com/unhoang/nlp-recipes/internal/config"
	"github.com/unhoang/nlp-recipes/pkg/compute"
)

type options struct {
	model           compute.Model
	tokenizer       Tokenizer
	language        Language
	cacheDir        string
	caseFold        bool
	maxLen          int
	numAccelerators int
	hardware        *compute.Hardware
}

// Option configures a SentenceEncoder.
type Option func(*options)

// WithModel supplies an already-loaded encoder instead of fetching the
// default pretrained model. A Headed model is stripped to its base encoder.
func WithModel(m compute.Model) Option {
	return func(o *options) {
		o.model = m
	}
}

// WithTokenizer supplies a tokenizer instead of constructing the default
// WordPiece one.
func WithTokenizer(t Tokenizer) Option {
	return func(o *options) {
		o.tokenizer = t
	}
}

// WithLanguage selects the default pretrained model. Default: English.
func WithLanguage(l Language) Option {
	return func(o *options) {
		o.language = l
	}
}

// WithCacheDir sets where pretrained model files are cached.
// Default: NLP_RECIPES_CACHE_DIR, or the current directory.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithCaseFolding controls whether the default tokenizer lowercases and
// strips accents before lookup. Default: true (uncased models).
func WithCaseFolding(enabled bool) Option {
	return func(o *options) {
		o.caseFold = enabled
	}
}

// WithMaxLen sets the maximum number of tokens per document, including the
// [CLS] and [SEP] positions. Values below 2 are rejected by New.
// Default: 512.
func WithMaxLen(n int) Option {
	return func(o *options) {
		o.maxLen = n
	}
}

// WithAccelerators caps how many accelerators encoding may use.
// Default: all available.
func WithAccelerators(n int) Option {
	return func(o *options) {
		o.numAccelerators = n
	}
}

// WithHardware overrides accelerator auto-detection with an explicit
// availability description.
func WithHardware(hw compute.Hardware) Option {
	return func(o *options) {
		o.hardware = &hw
	}
}

func defaultOptions() options {
	return options{
		language:        English,
		cacheDir:        config.Load().CacheDir,
		caseFold:        true,
		maxLen:          512,
		numAccelerators: compute.AllAccelerators,
	}
}
