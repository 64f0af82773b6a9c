package compute

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Kind identifies a class of compute device.
type Kind int

const (
	// CPU runs inference on the default CPU execution provider.
	CPU Kind = iota
	// Accelerator runs inference on a CUDA-capable device.
	Accelerator
)

func (k Kind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case Accelerator:
		return "cuda"
	default:
		return "unknown"
	}
}

// Device describes a compute target. Ordinal selects the accelerator index
// and is ignored for CPU devices.
type Device struct {
	Kind    Kind
	Ordinal int
}

func (d Device) String() string {
	if d.Kind == Accelerator {
		return fmt.Sprintf("cuda:%d", d.Ordinal)
	}
	return d.Kind.String()
}

// Hardware describes the accelerators physically available to this process.
// It is passed explicitly into Resolve and Place so both stay pure and
// testable; callers that want auto-detection use Detect.
type Hardware struct {
	AcceleratorIDs []int
}

// Count returns the number of available accelerators.
func (h Hardware) Count() int {
	return len(h.AcceleratorIDs)
}

// Detect probes the environment for visible accelerators. It honors
// CUDA_VISIBLE_DEVICES ("0,1", "" meaning none unset, "-1" meaning hidden);
// when the variable is unset no accelerators are reported, which keeps
// CPU-only hosts working with zero configuration.
func Detect() Hardware {
	raw, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES")
	if !ok || raw == "" {
		return Hardware{}
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id < 0 {
			continue
		}
		ids = append(ids, id)
	}
	return Hardware{AcceleratorIDs: ids}
}

const (
	// AllAccelerators requests every available accelerator.
	AllAccelerators = -1
	// NotDistributed marks a single-process run (no local rank).
	NotDistributed = -1
)

// Resolve picks the compute device for a session. In single-process mode
// (localRank == NotDistributed) it selects an accelerator only when at least
// one is available and the requested count is non-zero; the effective count
// is min(requested, available), or all available for AllAccelerators. In
// distributed mode the device is bound exclusively to the accelerator
// matching localRank and the count is fixed to 1.
//
// It returns the device together with the effective accelerator count
// (0 for CPU).
func Resolve(hw Hardware, numAccelerators, localRank int) (Device, int) {
	if localRank != NotDistributed {
		return Device{Kind: Accelerator, Ordinal: localRank}, 1
	}

	n := hw.Count()
	if numAccelerators != AllAccelerators && numAccelerators < n {
		n = numAccelerators
	}
	if n <= 0 {
		return Device{Kind: CPU}, 0
	}
	return Device{Kind: Accelerator, Ordinal: hw.AcceleratorIDs[0]}, n
}
