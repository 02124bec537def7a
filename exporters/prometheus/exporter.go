package prometheus

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/shirou/gopsutil/v3/process"
)

// LaunchExporter exports Prometheus metrics for the running trainer.
// It observes the child from the outside (procfs via gopsutil); the
// launcher never parses trainer output.
type LaunchExporter struct {
	mu        sync.RWMutex
	launchID  string
	runID     string
	startTime time.Time

	pid  int
	proc *process.Process

	// Trainer process metrics
	cpuPercent float64
	rssBytes   uint64
	numThreads int32
	childCount int

	// Terminal state
	finished bool
	exitCode int
}

// NewLaunchExporter creates an exporter for one launch
func NewLaunchExporter(launchID, runID string) *LaunchExporter {
	return &LaunchExporter{
		launchID:  launchID,
		runID:     runID,
		startTime: time.Now(),
	}
}

// Observe attaches the exporter to the trainer's PID
func (e *LaunchExporter) Observe(pid int) error {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return fmt.Errorf("failed to observe PID %d: %w", pid, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pid = pid
	e.proc = proc
	return nil
}

// MarkFinished records the trainer's exit so /metrics keeps reporting it
// until the launcher shuts down
func (e *LaunchExporter) MarkFinished(exitCode int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finished = true
	e.exitCode = exitCode
}

// updateMetrics refreshes process metrics from procfs
func (e *LaunchExporter) updateMetrics() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil || e.finished {
		return
	}

	if cpu, err := e.proc.CPUPercent(); err == nil {
		e.cpuPercent = cpu
	}
	if memInfo, err := e.proc.MemoryInfo(); err == nil && memInfo != nil {
		e.rssBytes = memInfo.RSS
	}
	if threads, err := e.proc.NumThreads(); err == nil {
		e.numThreads = threads
	}
	// Rollout workers show up as children of the interpreter
	if children, err := e.proc.Children(); err == nil {
		e.childCount = len(children)
	}
}

// ServeHTTP serves Prometheus-compatible metrics at /metrics
func (e *LaunchExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	e.updateMetrics()

	e.mu.RLock()
	defer e.mu.RUnlock()

	labels := fmt.Sprintf("launch_id=%q,run_id=%q", e.launchID, e.runID)

	fmt.Fprintf(w, "# HELP rlaunch_trainer_cpu_percent Trainer CPU usage percentage\n")
	fmt.Fprintf(w, "# TYPE rlaunch_trainer_cpu_percent gauge\n")
	fmt.Fprintf(w, "rlaunch_trainer_cpu_percent{%s} %.2f\n", labels, e.cpuPercent)

	fmt.Fprintf(w, "\n# HELP rlaunch_trainer_rss_bytes Trainer resident memory in bytes\n")
	fmt.Fprintf(w, "# TYPE rlaunch_trainer_rss_bytes gauge\n")
	fmt.Fprintf(w, "rlaunch_trainer_rss_bytes{%s} %d\n", labels, e.rssBytes)

	fmt.Fprintf(w, "\n# HELP rlaunch_trainer_threads Trainer thread count\n")
	fmt.Fprintf(w, "# TYPE rlaunch_trainer_threads gauge\n")
	fmt.Fprintf(w, "rlaunch_trainer_threads{%s} %d\n", labels, e.numThreads)

	fmt.Fprintf(w, "\n# HELP rlaunch_trainer_children Trainer child process count (rollout workers)\n")
	fmt.Fprintf(w, "# TYPE rlaunch_trainer_children gauge\n")
	fmt.Fprintf(w, "rlaunch_trainer_children{%s} %d\n", labels, e.childCount)

	fmt.Fprintf(w, "\n# HELP rlaunch_uptime_seconds Launcher uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE rlaunch_uptime_seconds counter\n")
	fmt.Fprintf(w, "rlaunch_uptime_seconds{%s} %.0f\n", labels, time.Since(e.startTime).Seconds())

	finishedValue := 0
	if e.finished {
		finishedValue = 1
	}
	fmt.Fprintf(w, "\n# HELP rlaunch_trainer_finished Whether the trainer has exited\n")
	fmt.Fprintf(w, "# TYPE rlaunch_trainer_finished gauge\n")
	fmt.Fprintf(w, "rlaunch_trainer_finished{%s} %d\n", labels, finishedValue)

	if e.finished {
		fmt.Fprintf(w, "\n# HELP rlaunch_trainer_exit_code Trainer exit code\n")
		fmt.Fprintf(w, "# TYPE rlaunch_trainer_exit_code gauge\n")
		fmt.Fprintf(w, "rlaunch_trainer_exit_code{%s} %d\n", labels, e.exitCode)
	}

	// Append Go runtime metrics from the default registry
	metricFamilies, err := promclient.DefaultGatherer.Gather()
	if err != nil {
		return
	}
	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}
	w.Write(buf.Bytes())
}
