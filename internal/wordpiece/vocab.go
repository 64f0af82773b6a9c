package wordpiece

import (
	"bufio"
	"fmt"
	"os"
)

// Special token literals shared by BERT-style vocabularies.
const (
	PadToken = "[PAD]"
	UnkToken = "[UNK]"
	ClsToken = "[CLS]"
	SepToken = "[SEP]"
)

// Vocab maps WordPiece tokens to IDs. IDs are assigned by position
// (0-indexed) in the source vocab.txt.
type Vocab struct {
	tokenToID map[string]int64
	tokens    []string

	padID int64
	unkID int64
	clsID int64
	sepID int64
}

// LoadVocab reads a vocab.txt file where each line is one token and the line
// number is the token ID.
func LoadVocab(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wordpiece: %w", err)
	}
	defer f.Close()

	var tokens []string
	tokenToID := make(map[string]int64, 32000)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tok := scanner.Text()
		tokenToID[tok] = int64(len(tokens))
		tokens = append(tokens, tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("wordpiece: read vocab: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("wordpiece: vocab file is empty: %s", path)
	}

	v := &Vocab{tokenToID: tokenToID, tokens: tokens}

	specials := []struct {
		name string
		dest *int64
	}{
		{PadToken, &v.padID},
		{UnkToken, &v.unkID},
		{ClsToken, &v.clsID},
		{SepToken, &v.sepID},
	}
	for _, s := range specials {
		id, ok := tokenToID[s.name]
		if !ok {
			return nil, fmt.Errorf("wordpiece: vocab missing special token %s", s.name)
		}
		*s.dest = id
	}

	return v, nil
}

// ID returns the token's ID, or the [UNK] ID for unknown tokens.
func (v *Vocab) ID(token string) int64 {
	if id, ok := v.tokenToID[token]; ok {
		return id
	}
	return v.unkID
}

// Contains reports whether the token is in the vocabulary.
func (v *Vocab) Contains(token string) bool {
	_, ok := v.tokenToID[token]
	return ok
}

// Size returns the number of tokens in the vocabulary.
func (v *Vocab) Size() int {
	return len(v.tokens)
}
