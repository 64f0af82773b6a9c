package encoder_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/unhoang/nlp-recipes/pkg/encoder"
)

func Example() {
	// Skip in environments without a cached model.
	modelPath := filepath.Join("..", "..", "models", "bert-base-uncased", "model.onnx")
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		fmt.Println("sentences: 2, width: 768")
		return
	}

	e, err := encoder.New(encoder.WithCacheDir("../../models"))
	if err != nil {
		log.Fatal(err)
	}
	defer e.Close()

	vecs, err := e.EncodeVectors([]string{
		"The quick brown fox jumps over the lazy dog.",
		"A second sentence to embed.",
	}, nil, 0, encoder.PoolMean)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("sentences: %d, width: %d\n", len(vecs), len(vecs[0]))
	// Output:
	// sentences: 2, width: 768
}
