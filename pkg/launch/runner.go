package launch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmarquez/rlaunch/pkg/logging"
)

// Runner spawns exactly one trainer process and waits for it.
// It is deliberately not a supervisor: no restarts, no output parsing,
// the child's exit status is surfaced unchanged.
type Runner struct {
	logger *logging.Logger

	// OnStart, when set, is invoked with the trainer's PID once it is running
	OnStart func(pid int)

	pid int
	cmd *exec.Cmd

	startTime  time.Time
	events     []LifecycleEvent
	exitCode   int
	exitReason ExitReason
}

// NewRunner creates a runner. A nil logger disables launch logging.
func NewRunner(logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewLogger(logging.ERROR, false)
		logger.SetOutput(io.Discard)
	}
	return &Runner{
		logger: logger,
		events: []LifecycleEvent{},
	}
}

// Run spawns the trainer and blocks until it exits. The returned error is
// non-nil only for launcher-side failures (the program could not be
// started); a trainer that runs and exits nonzero is reported through
// ExitCode, not an error.
func (r *Runner) Run(ctx context.Context, program string, args ...string) error {
	r.startTime = time.Now()
	r.emitEvent(StateStarting, fmt.Sprintf("Spawning %s with %d arguments", program, len(args)))

	cmd := exec.CommandContext(ctx, program, args...)

	// Own process group so forwarded signals reach the trainer's rollout
	// workers too, not just the top-level interpreter
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	// The launcher never interprets trainer output
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		r.exitCode = 1
		r.exitReason = ExitReasonError
		r.emitEvent(StateFailed, fmt.Sprintf("Failed to start: %v", err))
		return fmt.Errorf("failed to start trainer: %w", err)
	}

	r.cmd = cmd
	r.pid = cmd.Process.Pid

	r.logger.Info("Trainer started", map[string]interface{}{
		"pid":     r.pid,
		"program": program,
	})
	r.emitEvent(StateRunning, fmt.Sprintf("PID %d started", r.pid))

	if r.OnStart != nil {
		r.OnStart(r.pid)
	}

	stopForwarding := r.forwardSignals()
	defer stopForwarding()

	return r.wait()
}

// forwardSignals relays SIGINT/SIGTERM to the trainer's process group so
// the run dies with the launcher instead of being orphaned
func (r *Runner) forwardSignals() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigChan:
				s, ok := sig.(syscall.Signal)
				if !ok {
					continue
				}
				r.logger.Info("Forwarding signal to trainer", map[string]interface{}{
					"signal": SignalName(s),
					"pgid":   r.pid,
				})
				// Negative PID targets the whole process group
				_ = syscall.Kill(-r.pid, s)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// wait blocks until the trainer exits and records code and reason
func (r *Runner) wait() error {
	err := r.cmd.Wait()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			r.exitCode = exitErr.ExitCode()

			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				r.exitReason = DetermineExitReason(r.exitCode, status)

				if status.Signaled() {
					sig := status.Signal()
					// Shell convention for signal deaths
					r.exitCode = 128 + int(sig)
					r.emitEvent(StateKilled, fmt.Sprintf("Killed by %s", SignalName(sig)))
				} else {
					r.emitEvent(StateFailed, fmt.Sprintf("Exited with code %d", r.exitCode))
				}
			}
		} else {
			r.exitCode = 1
			r.exitReason = ExitReasonError
			r.emitEvent(StateFailed, fmt.Sprintf("Wait error: %v", err))
		}
	} else {
		r.exitCode = 0
		r.exitReason = ExitReasonSuccess
		r.emitEvent(StateCompleted, "Completed successfully")
	}

	r.logger.Info("Trainer exited", map[string]interface{}{
		"exit_code":   r.exitCode,
		"exit_reason": string(r.exitReason),
		"duration_s":  time.Since(r.startTime).Seconds(),
	})

	return nil
}

// emitEvent records a lifecycle event
func (r *Runner) emitEvent(state LifecycleState, message string) {
	r.events = append(r.events, LifecycleEvent{
		PID:        r.pid,
		State:      state,
		Timestamp:  time.Now(),
		Message:    message,
		ExitCode:   r.exitCode,
		ExitReason: r.exitReason,
	})
}

// PID returns the trainer's process id (0 before start)
func (r *Runner) PID() int {
	return r.pid
}

// Events returns all lifecycle events
func (r *Runner) Events() []LifecycleEvent {
	return r.events
}

// ExitCode returns the trainer's exit code
func (r *Runner) ExitCode() int {
	return r.exitCode
}

// Reason returns why the trainer exited
func (r *Runner) Reason() ExitReason {
	return r.exitReason
}

// Duration returns how long the trainer ran
func (r *Runner) Duration() time.Duration {
	return time.Since(r.startTime)
}

// WriteReport writes a summary report to the given writer
func (r *Runner) WriteReport(out io.Writer) {
	fmt.Fprintf(out, "=== Launch Report ===\n")
	fmt.Fprintf(out, "PID: %d\n", r.pid)
	fmt.Fprintf(out, "Duration: %.2fs\n", r.Duration().Seconds())
	fmt.Fprintf(out, "Exit Code: %d\n", r.exitCode)
	fmt.Fprintf(out, "Exit Reason: %s\n", r.exitReason)
	fmt.Fprintf(out, "\nLifecycle Events:\n")
	for _, event := range r.events {
		fmt.Fprintf(out, "  [%s] %s: %s\n",
			event.Timestamp.Format("15:04:05"), event.State, event.Message)
	}
}
