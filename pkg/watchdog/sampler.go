package watchdog

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"

	"workerlink/pkg/models"
)

// MemorySampler probes the process's current memory usage. The
// watchdog depends only on this capability, not on how the host
// runtime exposes its counters.
type MemorySampler interface {
	Sample() models.MemoryUsage
}

// runtimeSampler combines the Go runtime's heap accounting with the
// OS-level resident set size.
type runtimeSampler struct{}

// NewRuntimeSampler returns the production memory sampler.
func NewRuntimeSampler() MemorySampler {
	return runtimeSampler{}
}

func (runtimeSampler) Sample() models.MemoryUsage {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	usage := models.MemoryUsage{
		HeapTotal: ms.HeapSys,
		HeapUsed:  ms.HeapAlloc,
	}
	if ms.Sys > ms.HeapSys {
		usage.External = ms.Sys - ms.HeapSys
	}

	// RSS comes from the OS; a failed probe leaves it zero rather
	// than failing the sample.
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			usage.RSS = info.RSS
		}
	}
	return usage
}

// zeroSampler reports all-zero usage for runtimes with no memory probe.
type zeroSampler struct{}

// NewZeroSampler returns a sampler that always reports zero usage.
func NewZeroSampler() MemorySampler {
	return zeroSampler{}
}

func (zeroSampler) Sample() models.MemoryUsage {
	return models.MemoryUsage{}
}
