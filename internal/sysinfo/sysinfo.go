// Package sysinfo reads host and process diagnostics.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/process"
)

const Unknown = "Unknown"

// Snapshot is one reading of host and process state. Zero values mean the
// value could not be determined.
type Snapshot struct {
	OS            string
	CPUModel      string
	PhysicalCores int
	MemoryBytes   uint64 // resident set size of this process
	StartedAt     time.Time
}

type Collector interface {
	Collect(ctx context.Context) (Snapshot, error)
}

// Host collects diagnostics for the current machine and process.
type Host struct {
	PID int32
}

func NewHost() *Host {
	return &Host{PID: int32(os.Getpid())}
}

// Collect reads CPU details from cpuid and OS/process details from gopsutil.
// Only a failure to read this process's memory is an error.
func (h *Host) Collect(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		CPUModel:      strings.TrimSpace(cpuid.CPU.BrandName),
		PhysicalCores: cpuid.CPU.PhysicalCores,
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.OS = osVersion(info)
	}

	proc, err := process.NewProcessWithContext(ctx, h.PID)
	if err != nil {
		return snap, fmt.Errorf("open process %d: %w", h.PID, err)
	}
	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return snap, fmt.Errorf("read memory of process %d: %w", h.PID, err)
	}
	snap.MemoryBytes = mem.RSS

	if ms, err := proc.CreateTimeWithContext(ctx); err == nil && ms > 0 {
		snap.StartedAt = time.UnixMilli(ms)
	}

	return snap, nil
}

// osVersion renders e.g. "Linux 22.04 Ubuntu" in the style of a long OS version.
func osVersion(info *host.InfoStat) string {
	var parts []string
	if info.OS != "" {
		parts = append(parts, capitalize(info.OS))
	}
	if info.PlatformVersion != "" {
		parts = append(parts, info.PlatformVersion)
	}
	if info.Platform != "" && !strings.EqualFold(info.Platform, info.OS) {
		parts = append(parts, capitalize(info.Platform))
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// OrUnknown returns s, or Unknown when s is empty.
func OrUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}
