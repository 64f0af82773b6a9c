// Package encoder turns sentences into fixed-width vectors using the hidden
// states of a pretrained BERT model.
//
// Quick start:
//
//	e, err := encoder.New(encoder.WithLanguage(encoder.English))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	vecs, _ := e.EncodeVectors([]string{"hello world"}, nil, 0, encoder.PoolMean)
//	fmt.Println(len(vecs[0])) // 768
//
// New downloads the model and vocabulary on first use and caches them on
// disk. A SentenceEncoder shares one model session across calls and rebinds
// it during device placement, so an instance must not be used concurrently
// from multiple goroutines.
package encoder
