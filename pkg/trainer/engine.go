package trainer

import (
	"fmt"
	"os/exec"
	"path/filepath"
)

// Engine represents a launchable trainer entrypoint
type Engine interface {
	// Name returns the engine name
	Name() string

	// Supports checks if this engine can handle the given launch configuration
	Supports(p *Params) bool

	// BuildCommand generates the program and argument list for the launch
	BuildCommand(p *Params) (string, []string, error)
}

// EngineType represents the type of trainer entrypoint
type EngineType string

const (
	EngineTypeAuto        EngineType = "auto"
	EngineTypeEvents      EngineType = "events"
	EngineTypeControlFlow EngineType = "control-flow"
)

// PythonEngine launches a Python trainer script through an interpreter.
// It backs both concrete engines; only the script path differs.
type PythonEngine struct {
	name        string
	interpreter string
	script      string
}

// Name returns the engine name
func (e *PythonEngine) Name() string {
	return e.name
}

// Supports reports whether the engine accepts the configuration.
// Both trainer entrypoints accept the full flag surface.
func (e *PythonEngine) Supports(p *Params) bool {
	return true
}

// BuildCommand generates the interpreter invocation for the launch
func (e *PythonEngine) BuildCommand(p *Params) (string, []string, error) {
	trainerArgs, err := BuildArgs(p)
	if err != nil {
		return "", nil, err
	}

	args := append([]string{e.script}, trainerArgs...)
	return e.interpreter, args, nil
}

// EngineSelector selects the trainer entrypoint for a launch
type EngineSelector struct {
	eventsEngine      *PythonEngine
	controlFlowEngine *PythonEngine

	// interpreterOverride allows tests to skip the PATH lookup
	interpreterOverride string
}

// NewEngineSelector creates a selector rooted at the trainer checkout.
// interpreter may be empty, in which case python3 (then python) is looked
// up on PATH at selection time.
func NewEngineSelector(trainerRoot, interpreter string) *EngineSelector {
	s := &EngineSelector{interpreterOverride: interpreter}

	py := interpreter
	if py == "" {
		py = "python3" // resolved properly in ResolveInterpreter
	}

	s.eventsEngine = &PythonEngine{
		name:        string(EngineTypeEvents),
		interpreter: py,
		script:      filepath.Join(trainerRoot, "ppo", "main.py"),
	}
	s.controlFlowEngine = &PythonEngine{
		name:        string(EngineTypeControlFlow),
		interpreter: py,
		script:      filepath.Join(trainerRoot, "ppo", "control_flow", "main.py"),
	}

	return s
}

// ResolveInterpreter locates the Python interpreter the engines will use.
// A missing interpreter is a launch-time fatal; the caller must not spawn.
func (s *EngineSelector) ResolveInterpreter() (string, error) {
	if s.interpreterOverride != "" {
		path, err := exec.LookPath(s.interpreterOverride)
		if err != nil {
			return "", fmt.Errorf("interpreter %q not found: %w", s.interpreterOverride, err)
		}
		s.setInterpreter(path)
		return path, nil
	}

	for _, candidate := range []string{"python3", "python"} {
		if path, err := exec.LookPath(candidate); err == nil {
			s.setInterpreter(path)
			return path, nil
		}
	}
	return "", fmt.Errorf("no python interpreter found on PATH")
}

func (s *EngineSelector) setInterpreter(path string) {
	s.eventsEngine.interpreter = path
	s.controlFlowEngine.interpreter = path
}

// SelectEngine picks the entrypoint for the launch and explains the choice
func (s *EngineSelector) SelectEngine(p *Params, preference EngineType) (Engine, string) {
	switch preference {
	case EngineTypeEvents:
		return s.eventsEngine, "engine explicitly set to events trainer"
	case EngineTypeControlFlow:
		return s.controlFlowEngine, "engine explicitly set to control-flow trainer"
	case EngineTypeAuto, "":
		// fall through to auto selection
	default:
		return s.eventsEngine, fmt.Sprintf("unknown engine preference %q, using events trainer", preference)
	}

	// Auto selection: control-flow environments route to the control-flow
	// entrypoint, everything else (including the empty default) to events.
	if p.Env == "control-flow" {
		return s.controlFlowEngine, fmt.Sprintf("env %q routed to control-flow trainer", p.Env)
	}
	return s.eventsEngine, fmt.Sprintf("env %q routed to events trainer", p.Env)
}
