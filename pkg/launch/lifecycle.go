package launch

import (
	"fmt"
	"syscall"
	"time"
)

// LifecycleState represents the launched trainer's lifecycle state
type LifecycleState string

const (
	StateUnknown   LifecycleState = "unknown"
	StateStarting  LifecycleState = "starting"
	StateRunning   LifecycleState = "running"
	StateCompleted LifecycleState = "completed"
	StateFailed    LifecycleState = "failed"
	StateKilled    LifecycleState = "killed"
)

// ExitReason describes why the trainer terminated
type ExitReason string

const (
	ExitReasonSuccess ExitReason = "success" // Exit code 0
	ExitReasonError   ExitReason = "error"   // Exit code != 0
	ExitReasonSignal  ExitReason = "signal"  // Killed by signal
	ExitReasonOOM     ExitReason = "oom"     // Out of memory killed
	ExitReasonUnknown ExitReason = "unknown"
)

// LifecycleEvent represents a lifecycle state change
type LifecycleEvent struct {
	PID        int            `json:"pid"`
	State      LifecycleState `json:"state"`
	Timestamp  time.Time      `json:"timestamp"`
	ExitCode   int            `json:"exit_code,omitempty"`
	ExitReason ExitReason     `json:"exit_reason,omitempty"`
	Signal     string         `json:"signal,omitempty"`
	Message    string         `json:"message,omitempty"`
}

// DetermineExitReason analyzes process exit to determine the reason
func DetermineExitReason(exitCode int, waitStatus syscall.WaitStatus) ExitReason {
	if waitStatus.Exited() {
		if exitCode == 0 {
			return ExitReasonSuccess
		}

		// 137/143 usually mean the OOM killer or an external SIGKILL/SIGTERM
		// reached the trainer before it could exit on its own
		if exitCode == 137 || exitCode == 143 {
			return ExitReasonOOM
		}

		return ExitReasonError
	}

	if waitStatus.Signaled() {
		return ExitReasonSignal
	}

	return ExitReasonUnknown
}

// SignalName returns the signal name for a signal number
func SignalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGHUP:
		return "SIGHUP"
	case syscall.SIGQUIT:
		return "SIGQUIT"
	case syscall.SIGABRT:
		return "SIGABRT"
	case syscall.SIGSEGV:
		return "SIGSEGV"
	default:
		return fmt.Sprintf("SIG%d", sig)
	}
}

// IsSuccess returns true if the exit represents success
func (r ExitReason) IsSuccess() bool {
	return r == ExitReasonSuccess
}
