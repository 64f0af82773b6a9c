// Package wordpiece implements BERT-compatible WordPiece tokenization:
// basic text cleanup, optional case folding, subword decomposition against a
// vocab.txt vocabulary, and encoder-ready padded ID sequences.
package wordpiece

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxWordRunes bounds subword decomposition; longer words map to [UNK].
const maxWordRunes = 200

// Tokenizer performs WordPiece tokenization. When lower is set it folds case
// and strips accents before subword lookup (the uncased-model convention);
// cased and multilingual models keep the original casing.
type Tokenizer struct {
	vocab *Vocab
	lower bool
}

// New creates a tokenizer backed by the vocabulary at vocabPath.
func New(vocabPath string, lower bool) (*Tokenizer, error) {
	v, err := LoadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{vocab: v, lower: lower}, nil
}

// NewWithVocab creates a tokenizer over an already loaded vocabulary.
func NewWithVocab(v *Vocab, lower bool) *Tokenizer {
	return &Tokenizer{vocab: v, lower: lower}
}

// Tokenize converts one document into an encoder-ready sequence: the token
// strings (starting with [CLS] and ending with [SEP], truncated to fit
// maxLen) plus input IDs and an attention mask, both padded to exactly
// maxLen positions.
func (t *Tokenizer) Tokenize(text string, maxLen int) (tokens []string, inputIDs, attentionMask []int64) {
	pieces := t.wordpiece(t.basicTokenize(text))

	// Reserve room for [CLS] and [SEP].
	if len(pieces) > maxLen-2 {
		pieces = pieces[:maxLen-2]
	}

	tokens = make([]string, 0, len(pieces)+2)
	tokens = append(tokens, ClsToken)
	tokens = append(tokens, pieces...)
	tokens = append(tokens, SepToken)

	inputIDs = make([]int64, maxLen)
	attentionMask = make([]int64, maxLen)
	for i, tok := range tokens {
		inputIDs[i] = t.vocab.ID(tok)
		attentionMask[i] = 1
	}
	// Remaining positions stay 0 ([PAD], mask 0).

	return tokens, inputIDs, attentionMask
}

// basicTokenize applies BERT's BasicTokenizer: clean, isolate CJK
// characters, optionally lowercase and strip accents, then split on
// whitespace and punctuation.
func (t *Tokenizer) basicTokenize(text string) []string {
	text = cleanText(text)
	text = isolateCJK(text)
	if t.lower {
		text = strings.ToLower(text)
		text = stripAccents(text)
	}

	var tokens []string
	for _, word := range strings.Fields(text) {
		tokens = append(tokens, splitOnPunctuation(word)...)
	}
	return tokens
}

// wordpiece decomposes basic tokens into subwords.
func (t *Tokenizer) wordpiece(tokens []string) []string {
	var result []string
	for _, token := range tokens {
		if len(token) == 0 {
			continue
		}
		result = append(result, t.wordpieceToken(token)...)
	}
	return result
}

// wordpieceToken greedily matches the longest vocabulary prefix, then
// continues on the remainder with the "##" continuation marker. Tokens with
// any unmatchable span collapse to [UNK].
func (t *Tokenizer) wordpieceToken(token string) []string {
	runes := []rune(token)
	if len(runes) > maxWordRunes {
		return []string{UnkToken}
	}

	var subTokens []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if t.vocab.Contains(sub) {
				subTokens = append(subTokens, sub)
				found = true
				break
			}
			end--
		}
		if !found {
			return []string{UnkToken}
		}
		start = end
	}
	return subTokens
}

// cleanText removes control characters and normalizes whitespace to spaces.
func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == 0 || r == 0xFFFD || isControl(r) {
			continue
		}
		if isWhitespace(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripAccents removes combining marks after NFD normalization.
func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isolateCJK surrounds CJK ideographs with spaces so each becomes its own
// basic token.
func isolateCJK(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		if isCJK(r) {
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitOnPunctuation splits a word at punctuation, keeping each punctuation
// character as its own token.
func splitOnPunctuation(word string) []string {
	var tokens []string
	var current strings.Builder
	for _, r := range word {
		if isPunctuation(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			tokens = append(tokens, string(r))
		} else {
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// Character classes below match BERT's reference tokenizer.

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
