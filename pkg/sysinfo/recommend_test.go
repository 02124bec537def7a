package sysinfo

import "testing"

const gb = 1024 * 1024 * 1024

func TestClass(t *testing.T) {
	tests := []struct {
		name     string
		threads  int
		ramBytes uint64
		want     NodeClass
	}{
		{"laptop", 4, 8 * gb, NodeClassLaptop},
		{"desktop", 12, 16 * gb, NodeClassDesktop},
		{"server", 32, 128 * gb, NodeClassServer},
		{"many threads little ram", 32, 16 * gb, NodeClassDesktop},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Class(tc.threads, tc.ramBytes); got != tc.want {
				t.Errorf("Class(%d, %d) = %s, want %s", tc.threads, tc.ramBytes, got, tc.want)
			}
		})
	}
}

func TestRecommendProcesses_ServerProduction(t *testing.T) {
	caps := &Capabilities{CPUThreads: 32, RAMTotalBytes: 128 * gb}

	rec := RecommendProcesses(caps, "production")
	if rec.NumProcesses != maxProcessesServer {
		t.Errorf("Expected server class limit %d, got %d", maxProcessesServer, rec.NumProcesses)
	}
	if rec.Rationale == "" {
		t.Error("Expected a rationale")
	}
}

func TestRecommendProcesses_DevelopmentHalves(t *testing.T) {
	caps := &Capabilities{CPUThreads: 12, RAMTotalBytes: 16 * gb}

	prod := RecommendProcesses(caps, "production")
	dev := RecommendProcesses(caps, "development")
	if dev.NumProcesses >= prod.NumProcesses {
		t.Errorf("Expected development < production, got %d >= %d",
			dev.NumProcesses, prod.NumProcesses)
	}
}

func TestRecommendProcesses_RAMBound(t *testing.T) {
	// Plenty of threads, almost no memory: RAM decides
	caps := &Capabilities{CPUThreads: 32, RAMTotalBytes: 1 * gb}

	rec := RecommendProcesses(caps, "production")
	byRAM := int(caps.RAMTotalBytes / bytesPerProcess)
	if rec.NumProcesses != byRAM {
		t.Errorf("Expected RAM-bound %d, got %d", byRAM, rec.NumProcesses)
	}
}

func TestRecommendProcesses_NeverBelowOne(t *testing.T) {
	caps := &Capabilities{CPUThreads: 1, RAMTotalBytes: 64 * 1024 * 1024}

	rec := RecommendProcesses(caps, "development")
	if rec.NumProcesses < 1 {
		t.Errorf("Expected at least 1 process, got %d", rec.NumProcesses)
	}
}

func TestFormatRAM(t *testing.T) {
	if got := FormatRAM(8 * gb); got != "8.0 GB" {
		t.Errorf("Expected 8.0 GB, got %s", got)
	}
}
