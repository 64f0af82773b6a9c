// Package onnx runs BERT-style encoder models through ONNX Runtime and
// exposes their per-layer hidden states.
package onnx

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/unhoang/nlp-recipes/internal/config"
	"github.com/unhoang/nlp-recipes/internal/logging"
	"github.com/unhoang/nlp-recipes/pkg/compute"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Session is an inference session over an encoder exported with its hidden
// states as outputs: every 3-D output tensor [batch, seq, dim] is treated as
// one layer of the stack, in model output order. It implements
// compute.Model and compute.Replicator.
type Session struct {
	path string
	dev  compute.Device

	session    *ort.DynamicAdvancedSession
	inputNames []string
	layerNames []string
	hiddenDim  int64
}

// NewSession loads the ONNX model at path and binds it to dev. For
// accelerator devices the CUDA execution provider is attached with the
// matching device ordinal; CPU devices use the default provider.
func NewSession(path string, dev compute.Device) (*Session, error) {
	// Resolve the ONNX Runtime shared library: explicit env override, or
	// shipped alongside the model file.
	libPath := config.Load().ORTLibraryPath
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(path), "libonnxruntime.so")
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}

	inputNames, err := validateInputs(inputs)
	if err != nil {
		return nil, err
	}

	layerNames, hiddenDim, err := layerOutputs(outputs)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	if dev.Kind == compute.Accelerator {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("onnx: create CUDA provider options: %w", err)
		}
		defer cudaOpts.Destroy()
		if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(dev.Ordinal)}); err != nil {
			return nil, fmt.Errorf("onnx: set CUDA device %d: %w", dev.Ordinal, err)
		}
		if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return nil, fmt.Errorf("onnx: attach CUDA provider: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(path, inputNames, layerNames, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	logging.Default().Debug("opened encoder session",
		"model", path, "device", dev.String(), "layers", len(layerNames), "hidden_dim", hiddenDim)

	return &Session{
		path:       path,
		dev:        dev,
		session:    session,
		inputNames: inputNames,
		layerNames: layerNames,
		hiddenDim:  hiddenDim,
	}, nil
}

// validateInputs checks that the model has the expected BERT-style inputs
// and returns them in the order Forward supplies them.
func validateInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	nameSet := make(map[string]bool, len(inputs))
	for _, inp := range inputs {
		nameSet[inp.Name] = true
	}
	required := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range required {
		if !nameSet[name] {
			return nil, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	return required, nil
}

// layerOutputs collects the model's hidden-state outputs: every 3-D tensor
// [batch, seq, dim] with a common final dimension, kept in model order.
func layerOutputs(outputs []ort.InputOutputInfo) ([]string, int64, error) {
	var names []string
	var dim int64
	for _, out := range outputs {
		if len(out.Dimensions) != 3 {
			continue
		}
		d := out.Dimensions[2]
		if d <= 0 {
			continue
		}
		if dim == 0 {
			dim = d
		}
		if d != dim {
			return nil, 0, fmt.Errorf("onnx: output %q has hidden dim %d, want %d", out.Name, d, dim)
		}
		names = append(names, out.Name)
	}
	if len(names) == 0 {
		return nil, 0, fmt.Errorf("onnx: model exposes no hidden-state outputs")
	}
	return names, dim, nil
}

// HiddenDim returns the width of one token activation vector.
func (s *Session) HiddenDim() int {
	return int(s.hiddenDim)
}

// LayerCount returns the number of hidden-state outputs.
func (s *Session) LayerCount() int {
	return len(s.layerNames)
}

// Device returns the device this session is bound to.
func (s *Session) Device() compute.Device {
	return s.dev
}

// Forward runs one inference call. inputIDs and attentionMask are flat
// [batchSize*seqLen] slices; token type IDs are all zeros (single-segment
// input). The returned slices are one flat [batchSize*seqLen*hiddenDim]
// tensor per layer. All runtime tensors are destroyed before returning, so
// per-batch accelerator memory is released as soon as each call completes.
func (s *Session) Forward(inputIDs, attentionMask []int64, batchSize, seqLen int64) ([][]float32, error) {
	shape := ort.NewShape(batchSize, seqLen)

	tIDs, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: create input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("onnx: create attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	tTypes, err := ort.NewTensor(shape, make([]int64, batchSize*seqLen))
	if err != nil {
		return nil, fmt.Errorf("onnx: create token_type_ids tensor: %w", err)
	}
	defer tTypes.Destroy()

	outShape := ort.NewShape(batchSize, seqLen, s.hiddenDim)
	outTensors := make([]ort.Value, len(s.layerNames))
	for i := range outTensors {
		t, err := ort.NewEmptyTensor[float32](outShape)
		if err != nil {
			return nil, fmt.Errorf("onnx: create output tensor: %w", err)
		}
		defer t.Destroy()
		outTensors[i] = t
	}

	err = s.session.Run(
		[]ort.Value{tIDs, tMask, tTypes},
		outTensors,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	// Copy layer data out before the tensors are destroyed.
	layers := make([][]float32, len(outTensors))
	for i, t := range outTensors {
		src := t.(*ort.Tensor[float32]).GetData()
		layers[i] = make([]float32, len(src))
		copy(layers[i], src)
	}
	return layers, nil
}

// To rebinds the session to another device by rebuilding it there. Binding
// to the current device is a no-op.
func (s *Session) To(dev compute.Device) error {
	if dev == s.dev {
		return nil
	}
	moved, err := NewSession(s.path, dev)
	if err != nil {
		return err
	}
	old := s.session
	*s = *moved
	return old.Destroy()
}

// Replicate opens an independent session over the same model on dev.
func (s *Session) Replicate(dev compute.Device) (compute.Model, error) {
	return NewSession(s.path, dev)
}

// Close releases the ONNX session resources.
func (s *Session) Close() error {
	return s.session.Destroy()
}
