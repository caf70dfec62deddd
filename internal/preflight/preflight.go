// Package preflight gathers host facts (RAM, CPU, staging disk space)
// before a run and flags conditions likely to make one fail.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const gb = 1024 * 1024 * 1024

// minStagingFreeGB is the free-space threshold below which a warning is
// raised; a full model set plus archives runs to a few hundred MB.
const minStagingFreeGB = 2.0

// Specs holds the gathered host facts for the report header.
type Specs struct {
	TotalRAMGB     float64  `json:"total_ram_gb"`
	AvailableRAMGB float64  `json:"available_ram_gb"`
	CPUName        string   `json:"cpu_name"`
	CPUCores       int      `json:"cpu_cores"`
	StagingFreeGB  float64  `json:"staging_free_gb"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Gather returns host specs relative to the staging directory. Probe
// failures degrade to zero values rather than aborting: preflight
// informs, the optimizer probe is what gates the run.
func Gather(stagingDir string) *Specs {
	s := &Specs{CPUCores: runtime.NumCPU(), CPUName: "Unknown CPU"}

	if v, err := mem.VirtualMemory(); err == nil {
		s.TotalRAMGB = float64(v.Total) / gb
		s.AvailableRAMGB = float64(v.Available) / gb
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		if infos[0].ModelName != "" {
			s.CPUName = infos[0].ModelName
		} else if infos[0].VendorID != "" {
			s.CPUName = infos[0].VendorID
		}
	}
	if u, err := disk.Usage(nearestExisting(stagingDir)); err == nil {
		s.StagingFreeGB = float64(u.Free) / gb
		if s.StagingFreeGB < minStagingFreeGB {
			s.Warnings = append(s.Warnings,
				fmt.Sprintf("low disk space for staging: %.1f GB free (want >= %.0f GB)", s.StagingFreeGB, minStagingFreeGB))
		}
	}
	return s
}

// nearestExisting walks up from dir until a path that exists, so disk
// usage can be probed before the staging directory is created.
func nearestExisting(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(abs); err == nil {
			return abs
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "."
		}
		abs = parent
	}
}
