package compute

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDevice reports a device descriptor with an unknown kind.
	ErrInvalidDevice = errors.New("compute: invalid device")
	// ErrInvalidAcceleratorCount reports a requested accelerator count below 1.
	ErrInvalidAcceleratorCount = errors.New("compute: accelerator count must be at least 1")
	// ErrNoAccelerators reports accelerator placement with zero accelerators present.
	ErrNoAccelerators = errors.New("compute: no accelerators available")
)

// Placement configures Place. The zero value is not useful; start from
// NewPlacement and override fields as needed.
type Placement struct {
	// Hardware lists the accelerators physically available.
	Hardware Hardware
	// NumAccelerators is how many accelerators to use, or AllAccelerators.
	NumAccelerators int
	// AcceleratorIDs, when non-nil, overrides NumAccelerators with an
	// explicit device list.
	AcceleratorIDs []int
	// LocalRank is the worker's accelerator in a distributed run, or
	// NotDistributed. When set, NumAccelerators and AcceleratorIDs are
	// ignored.
	LocalRank int
}

// NewPlacement returns a Placement that uses all available accelerators in a
// single-process run.
func NewPlacement(hw Hardware) Placement {
	return Placement{
		Hardware:        hw,
		NumAccelerators: AllAccelerators,
		LocalRank:       NotDistributed,
	}
}

// Place moves a model onto the resolved device, wrapping it for
// data-parallel execution when more than one accelerator is selected.
// A model already wrapped by a previous Place is unwrapped first, so
// repeated placement is idempotent. The (possibly wrapped) model is always
// transferred onto dev as the final step.
func Place(m Model, dev Device, p Placement) (Model, error) {
	if dev.Kind != CPU && dev.Kind != Accelerator {
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidDevice, dev.Kind)
	}

	m = Unwrap(m)

	if p.LocalRank != NotDistributed {
		// Distributed data parallelism: each worker binds exclusively to
		// the accelerator matching its local rank.
		rankDev := Device{Kind: Accelerator, Ordinal: p.LocalRank}
		if err := m.To(rankDev); err != nil {
			return nil, fmt.Errorf("compute: bind to %s: %w", rankDev, err)
		}
		return m, nil
	}

	if dev.Kind == Accelerator {
		ids, err := selectAccelerators(p)
		if err != nil {
			return nil, err
		}
		if len(ids) > 1 {
			dp, err := newDataParallel(m, ids)
			if err != nil {
				return nil, err
			}
			m = dp
		}
	}

	if err := m.To(dev); err != nil {
		return nil, fmt.Errorf("compute: move to %s: %w", dev, err)
	}
	return m, nil
}

// selectAccelerators resolves the accelerator IDs a placement should use.
// An explicit ID list takes precedence over the requested count.
func selectAccelerators(p Placement) ([]int, error) {
	if p.NumAccelerators != AllAccelerators && p.NumAccelerators < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAcceleratorCount, p.NumAccelerators)
	}
	avail := p.Hardware.Count()
	if avail < 1 {
		return nil, ErrNoAccelerators
	}
	if p.AcceleratorIDs != nil {
		return p.AcceleratorIDs, nil
	}
	n := p.NumAccelerators
	if n == AllAccelerators || n > avail {
		n = avail
	}
	return p.Hardware.AcceleratorIDs[:n], nil
}
