package compute

import (
	"errors"
	"fmt"
	"testing"
)

// fakeModel is a deterministic Model for placement tests. Forward fills
// every activation with base+row so shard stitching is visible.
type fakeModel struct {
	dim    int
	layers int
	base   float32

	dev    Device
	moves  []Device
	closed bool
}

func newFakeModel(dim, layers int) *fakeModel {
	return &fakeModel{dim: dim, layers: layers}
}

func (m *fakeModel) Forward(inputIDs, attentionMask []int64, batchSize, seqLen int64) ([][]float32, error) {
	out := make([][]float32, m.layers)
	for l := range out {
		layer := make([]float32, batchSize*seqLen*int64(m.dim))
		for i := range layer {
			row := int64(i) / (seqLen * int64(m.dim))
			layer[i] = m.base + float32(l*1000) + float32(row)
		}
		out[l] = layer
	}
	return out, nil
}

func (m *fakeModel) HiddenDim() int  { return m.dim }
func (m *fakeModel) LayerCount() int { return m.layers }

func (m *fakeModel) To(dev Device) error {
	m.dev = dev
	m.moves = append(m.moves, dev)
	return nil
}

func (m *fakeModel) Close() error {
	m.closed = true
	return nil
}

func (m *fakeModel) Replicate(dev Device) (Model, error) {
	rep := newFakeModel(m.dim, m.layers)
	rep.base = m.base
	rep.dev = dev
	return rep, nil
}

func TestPlaceCPU(t *testing.T) {
	m := newFakeModel(4, 2)
	placed, err := Place(m, Device{Kind: CPU}, NewPlacement(Hardware{}))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placed != Model(m) {
		t.Fatalf("CPU placement should not wrap the model")
	}
	if m.dev.Kind != CPU {
		t.Errorf("model on %s, want cpu", m.dev)
	}
}

func TestPlaceSingleAccelerator(t *testing.T) {
	m := newFakeModel(4, 2)
	hw := Hardware{AcceleratorIDs: []int{0}}
	placed, err := Place(m, Device{Kind: Accelerator}, NewPlacement(hw))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if _, ok := placed.(*DataParallel); ok {
		t.Fatalf("single accelerator should not be wrapped")
	}
	if m.dev.Kind != Accelerator {
		t.Errorf("model on %s, want cuda", m.dev)
	}
}

func TestPlaceMultiAcceleratorWraps(t *testing.T) {
	m := newFakeModel(4, 2)
	hw := Hardware{AcceleratorIDs: []int{0, 1, 2}}
	placed, err := Place(m, Device{Kind: Accelerator}, NewPlacement(hw))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	dp, ok := placed.(*DataParallel)
	if !ok {
		t.Fatalf("got %T, want *DataParallel", placed)
	}
	if len(dp.Devices()) != 3 {
		t.Errorf("got %d replicas, want 3", len(dp.Devices()))
	}
	if Unwrap(placed) != Model(m) {
		t.Errorf("Unwrap should return the base model")
	}
}

func TestPlaceExplicitIDsOverrideCount(t *testing.T) {
	m := newFakeModel(4, 2)
	p := NewPlacement(Hardware{AcceleratorIDs: []int{0, 1, 2, 3}})
	p.NumAccelerators = 1
	p.AcceleratorIDs = []int{1, 3}

	placed, err := Place(m, Device{Kind: Accelerator}, p)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	dp, ok := placed.(*DataParallel)
	if !ok {
		t.Fatalf("got %T, want *DataParallel", placed)
	}
	want := []Device{{Accelerator, 1}, {Accelerator, 3}}
	got := dp.Devices()
	if len(got) != len(want) {
		t.Fatalf("got devices %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("replica %d on %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPlaceIdempotentRewrap(t *testing.T) {
	m := newFakeModel(4, 2)
	hw := Hardware{AcceleratorIDs: []int{0, 1}}

	first, err := Place(m, Device{Kind: Accelerator}, NewPlacement(hw))
	if err != nil {
		t.Fatalf("first Place: %v", err)
	}
	second, err := Place(first, Device{Kind: Accelerator}, NewPlacement(hw))
	if err != nil {
		t.Fatalf("second Place: %v", err)
	}
	if Unwrap(second) != Model(m) {
		t.Errorf("re-placement should unwrap before wrapping again")
	}
}

func TestPlaceDistributedBindsRank(t *testing.T) {
	m := newFakeModel(4, 2)
	p := NewPlacement(Hardware{AcceleratorIDs: []int{0, 1, 2, 3}})
	p.LocalRank = 3

	placed, err := Place(m, Device{Kind: Accelerator, Ordinal: 3}, p)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if _, ok := placed.(*DataParallel); ok {
		t.Fatalf("distributed placement should not data-parallel wrap")
	}
	if m.dev != (Device{Kind: Accelerator, Ordinal: 3}) {
		t.Errorf("model on %s, want cuda:3", m.dev)
	}
}

func TestPlaceErrors(t *testing.T) {
	hw := Hardware{AcceleratorIDs: []int{0, 1}}

	tests := []struct {
		name    string
		dev     Device
		p       Placement
		wantErr error
	}{
		{
			name:    "invalid device kind",
			dev:     Device{Kind: Kind(42)},
			p:       NewPlacement(hw),
			wantErr: ErrInvalidDevice,
		},
		{
			name: "zero accelerator count",
			dev:  Device{Kind: Accelerator},
			p: func() Placement {
				p := NewPlacement(hw)
				p.NumAccelerators = 0
				return p
			}(),
			wantErr: ErrInvalidAcceleratorCount,
		},
		{
			name:    "no accelerators available",
			dev:     Device{Kind: Accelerator},
			p:       NewPlacement(Hardware{}),
			wantErr: ErrNoAccelerators,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Place(newFakeModel(4, 2), tc.dev, tc.p)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got error %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// notReplicable is a Model without Replicate support.
type notReplicable struct{ fakeModel }

func (m *notReplicable) Replicate(Device) (Model, error) {
	return nil, fmt.Errorf("shadowed on purpose")
}

func TestPlaceRequiresReplicator(t *testing.T) {
	// A model whose Replicate fails surfaces the failure.
	m := &notReplicable{fakeModel: *newFakeModel(4, 2)}
	_, err := Place(m, Device{Kind: Accelerator}, NewPlacement(Hardware{AcceleratorIDs: []int{0, 1}}))
	if err == nil {
		t.Fatalf("expected replication failure")
	}
}
