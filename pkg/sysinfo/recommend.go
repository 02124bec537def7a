package sysinfo

import "fmt"

// Recommendation holds suggested launch sizing for this machine
type Recommendation struct {
	NumProcesses int    `json:"num_processes" yaml:"num_processes"`
	Rationale    string `json:"rationale" yaml:"rationale"`
}

// Rollout workers are mostly idle gridworld simulators, so the usable count
// is well above the thread count. Memory is the binding constraint.
const (
	processesPerThread  = 16
	bytesPerProcess     = 64 * 1024 * 1024
	maxProcessesLaptop  = 32
	maxProcessesDesktop = 128
	maxProcessesServer  = 512
)

// RecommendProcesses suggests a --num-processes value for this machine.
// environment is "development" or "production"; development halves the count.
func RecommendProcesses(caps *Capabilities, environment string) Recommendation {
	byCPU := caps.CPUThreads * processesPerThread
	byRAM := int(caps.RAMTotalBytes / bytesPerProcess)

	processes := byCPU
	if byRAM < processes {
		processes = byRAM
	}

	if environment == "development" {
		processes = processes / 2
	}

	limit := classLimit(Class(caps.CPUThreads, caps.RAMTotalBytes))
	if processes > limit {
		processes = limit
	}
	if processes < 1 {
		processes = 1
	}

	return Recommendation{
		NumProcesses: processes,
		Rationale: fmt.Sprintf(
			"Based on %d CPU threads and %s: %d by CPU, %d by RAM, class limit %d",
			caps.CPUThreads, FormatRAM(caps.RAMTotalBytes), byCPU, byRAM, limit),
	}
}

func classLimit(class NodeClass) int {
	switch class {
	case NodeClassServer:
		return maxProcessesServer
	case NodeClassDesktop:
		return maxProcessesDesktop
	default:
		return maxProcessesLaptop
	}
}
