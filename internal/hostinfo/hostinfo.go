// Package hostinfo describes the machine environments run on.
package hostinfo

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type Info struct {
	GoVersion       string
	OS              string
	Arch            string
	LogicalCPUs     int
	PhysicalCPUs    int
	TotalMemory     uint64
	AvailableMemory uint64
}

// Collect reads CPU and memory facts. Facts that cannot be read are left
// zero and reported in the returned error.
func Collect(ctx context.Context) (Info, error) {
	info := Info{
		GoVersion:   runtime.Version(),
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		LogicalCPUs: runtime.NumCPU(),
	}

	var errs []error
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.LogicalCPUs = n
	} else {
		errs = append(errs, fmt.Errorf("logical cpus: %w", err))
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.PhysicalCPUs = n
	} else {
		errs = append(errs, fmt.Errorf("physical cpus: %w", err))
	}
	if vmem, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.TotalMemory = vmem.Total
		info.AvailableMemory = vmem.Available
	} else {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	}
	return info, errors.Join(errs...)
}

// String renders e.g. "go1.24.0 linux/amd64, 8 CPUs, 16 GB memory (9.1 GB free)".
func (i Info) String() string {
	s := fmt.Sprintf("%s %s/%s, %d CPUs", i.GoVersion, i.OS, i.Arch, i.LogicalCPUs)
	if i.TotalMemory > 0 {
		s += fmt.Sprintf(", %s memory (%s free)", humanize.Bytes(i.TotalMemory), humanize.Bytes(i.AvailableMemory))
	}
	return s
}

// SuggestedEnvs is the number of parallel environments the host can step
// without oversubscribing CPUs, at least one.
func (i Info) SuggestedEnvs() int {
	n := i.PhysicalCPUs
	if n < 1 {
		n = i.LogicalCPUs
	}
	if n < 1 {
		n = 1
	}
	return n
}
