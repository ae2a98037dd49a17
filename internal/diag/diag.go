// Package diag samples the resolver process's own resource usage for
// statsapi's /health endpoint, the way the teacher's health handler
// samples system CPU/memory via gopsutil.
package diag

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Sample is a point-in-time resource reading.
type Sample struct {
	Goroutines  int
	RSSBytes    uint64
	OpenFDs     int32
	CPUPercent  float64
	MemPercent  float64
	SampledAt   time.Time
}

// Sampler reads process and system resource usage on demand. It holds no
// state beyond a cached *process.Process handle for the running PID.
type Sampler struct {
	proc *process.Process
}

// NewSampler constructs a Sampler for the current process.
func NewSampler() (*Sampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Sampler{proc: p}, nil
}

// Sample takes a fresh reading. System-wide CPU percent is measured over a
// short blocking window, mirroring the teacher's 200ms sample; this should
// only be called from statsapi's request goroutine, never from the channel
// event loop.
func (s *Sampler) Sample() Sample {
	out := Sample{
		Goroutines: runtime.NumGoroutine(),
		SampledAt:  time.Now(),
	}

	if mi, err := s.proc.MemoryInfo(); err == nil && mi != nil {
		out.RSSBytes = mi.RSS
	}
	if n, err := s.proc.NumFDs(); err == nil {
		out.OpenFDs = n
	}
	if cpuPercent, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		out.CPUPercent = cpuPercent[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		out.MemPercent = vm.UsedPercent
	}

	return out
}
