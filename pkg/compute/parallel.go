package compute

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DataParallel fans a forward pass out over replicas of one model, each
// bound to its own accelerator. The batch is split into contiguous row
// shards, shards run concurrently, and layer outputs are stitched back in
// input order so callers observe a single sequential forward call.
type DataParallel struct {
	base     Model
	replicas []Model // replicas[0] == base
	devices  []Device
}

// newDataParallel binds the base model to ids[0] and opens one replica per
// remaining accelerator.
func newDataParallel(m Model, ids []int) (*DataParallel, error) {
	r, ok := m.(Replicator)
	if !ok {
		return nil, fmt.Errorf("compute: %T does not support data-parallel replication", m)
	}

	dp := &DataParallel{
		base:     m,
		replicas: []Model{m},
		devices:  []Device{{Kind: Accelerator, Ordinal: ids[0]}},
	}
	for _, id := range ids[1:] {
		dev := Device{Kind: Accelerator, Ordinal: id}
		rep, err := r.Replicate(dev)
		if err != nil {
			dp.Close()
			return nil, fmt.Errorf("compute: replicate onto %s: %w", dev, err)
		}
		dp.replicas = append(dp.replicas, rep)
		dp.devices = append(dp.devices, dev)
	}
	return dp, nil
}

// Unwrap returns the base model of a DataParallel wrapper, or the model
// itself when it is not wrapped.
func Unwrap(m Model) Model {
	if dp, ok := m.(*DataParallel); ok {
		return dp.base
	}
	return m
}

// Devices returns the devices the replicas are bound to.
func (p *DataParallel) Devices() []Device {
	return p.devices
}

func (p *DataParallel) HiddenDim() int  { return p.base.HiddenDim() }
func (p *DataParallel) LayerCount() int { return p.base.LayerCount() }

// To moves the base replica; the clones stay pinned to their own devices.
func (p *DataParallel) To(dev Device) error {
	return p.base.To(dev)
}

// Forward shards the batch across the replicas and reassembles per-layer
// outputs in row order.
func (p *DataParallel) Forward(inputIDs, attentionMask []int64, batchSize, seqLen int64) ([][]float32, error) {
	n := int64(len(p.replicas))
	if batchSize <= n {
		// Not enough rows to shard.
		return p.base.Forward(inputIDs, attentionMask, batchSize, seqLen)
	}

	dim := int64(p.HiddenDim())
	layers := p.LayerCount()
	out := make([][]float32, layers)
	for l := range out {
		out[l] = make([]float32, batchSize*seqLen*dim)
	}

	shard := (batchSize + n - 1) / n

	var g errgroup.Group
	for i, rep := range p.replicas {
		start := int64(i) * shard
		if start >= batchSize {
			break
		}
		end := start + shard
		if end > batchSize {
			end = batchSize
		}
		rep := rep
		g.Go(func() error {
			rows := end - start
			got, err := rep.Forward(
				inputIDs[start*seqLen:end*seqLen],
				attentionMask[start*seqLen:end*seqLen],
				rows, seqLen,
			)
			if err != nil {
				return err
			}
			if len(got) != layers {
				return fmt.Errorf("compute: replica returned %d layers, want %d", len(got), layers)
			}
			for l := range got {
				copy(out[l][start*seqLen*dim:end*seqLen*dim], got[l])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the replicas the wrapper created. The base model is left
// open; it belongs to whoever supplied it to Place.
func (p *DataParallel) Close() error {
	var first error
	for _, rep := range p.replicas[1:] {
		if err := rep.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
