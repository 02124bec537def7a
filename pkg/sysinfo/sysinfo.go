package sysinfo

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// NodeClass is a coarse classification of the local machine
type NodeClass string

const (
	NodeClassLaptop  NodeClass = "laptop"
	NodeClassDesktop NodeClass = "desktop"
	NodeClassServer  NodeClass = "server"
)

const (
	// ServerDetectionMinThreads is the minimum CPU threads for server classification
	ServerDetectionMinThreads = 16
	// ServerDetectionMinRAMGB is the minimum RAM in GB for server classification
	ServerDetectionMinRAMGB = 32
)

// Capabilities describes the hardware the trainer will run on
type Capabilities struct {
	CPUThreads    int               `json:"cpu_threads" yaml:"cpu_threads"`
	CPUModel      string            `json:"cpu_model" yaml:"cpu_model"`
	RAMTotalBytes uint64            `json:"ram_total_bytes" yaml:"ram_total_bytes"`
	HasGPU        bool              `json:"has_gpu" yaml:"has_gpu"`
	GPUType       string            `json:"gpu_type,omitempty" yaml:"gpu_type,omitempty"`
	Labels        map[string]string `json:"labels" yaml:"labels"`
}

// Detect probes the hardware capabilities of the current system
func Detect() (*Capabilities, error) {
	caps := &Capabilities{
		CPUThreads: runtime.NumCPU(),
		CPUModel:   "Unknown",
		Labels: map[string]string{
			"os":   runtime.GOOS,
			"arch": runtime.GOARCH,
		},
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		caps.CPUModel = infos[0].ModelName
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory info: %w", err)
	}
	caps.RAMTotalBytes = vm.Total

	caps.HasGPU, caps.GPUType = detectGPU()

	return caps, nil
}

// detectGPU checks for an NVIDIA GPU via nvidia-smi. CPU-only training is
// the norm on laptops, so absence is not an error.
func detectGPU() (bool, string) {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return false, ""
	}

	out, err := exec.Command(path, "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil || len(out) == 0 {
		return false, ""
	}

	return true, firstLine(string(out))
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			return s[:i]
		}
	}
	return s
}

// Class classifies the machine from thread count and RAM
func Class(cpuThreads int, ramBytes uint64) NodeClass {
	ramGB := ramBytes / (1024 * 1024 * 1024)

	if cpuThreads >= ServerDetectionMinThreads && ramGB >= ServerDetectionMinRAMGB {
		return NodeClassServer
	}
	if cpuThreads >= 8 {
		return NodeClassDesktop
	}
	return NodeClassLaptop
}

// FormatRAM renders a byte count as GB for display
func FormatRAM(bytes uint64) string {
	return fmt.Sprintf("%.1f GB", float64(bytes)/(1024*1024*1024))
}
