package trainer

import (
	"fmt"
	"strconv"
)

// UseDefault is the sentinel passed through for hyperparameters the trainer
// (or its tuning scheduler) should choose itself.
const UseDefault = -1

// Params is the full launch configuration for one training run.
// Field order here mirrors the order flags are emitted in BuildArgs.
type Params struct {
	// Presence flags
	CudaDeterministic bool `json:"cuda_deterministic" yaml:"cuda_deterministic"`
	Tune              bool `json:"tune" yaml:"tune"`

	// Run identity and output
	LogDir string `json:"log_dir" yaml:"log_dir"`
	RunID  string `json:"run_id" yaml:"run_id"`

	// Rollout workers
	NumProcesses int `json:"num_processes" yaml:"num_processes"`

	// Coordination address for the tuning backend, formatted host:port.
	// Filled in by ResolveRedisAddress at launch time.
	RedisAddress string `json:"redis_address" yaml:"redis_address"`

	// Task curriculum. Each instruction is one --instruction occurrence;
	// each test set is one --test occurrence followed by its tokens.
	Instructions        []string   `json:"instructions" yaml:"instructions"`
	Tests               [][]string `json:"tests" yaml:"tests"`
	NActiveInstructions int        `json:"n_active_instructions" yaml:"n_active_instructions"`

	// Episode and bookkeeping intervals
	TimeLimit    int `json:"time_limit" yaml:"time_limit"`
	EvalInterval int `json:"eval_interval" yaml:"eval_interval"`
	LogInterval  int `json:"log_interval" yaml:"log_interval"`
	SaveInterval int `json:"save_interval" yaml:"save_interval"`

	// Environment id, may legitimately be empty (the trainer falls back to
	// its built-in gridworld). The flag is still emitted.
	Env string `json:"env" yaml:"env"`

	// Hyperparameters. UseDefault (-1) is passed through verbatim so the
	// trainer or the tuning scheduler picks the value.
	NumBatch     int     `json:"num_batch" yaml:"num_batch"`
	NumSteps     int     `json:"num_steps" yaml:"num_steps"`
	Seed         int     `json:"seed" yaml:"seed"`
	EntropyCoef  float64 `json:"entropy_coef" yaml:"entropy_coef"`
	HiddenSize   int     `json:"hidden_size" yaml:"hidden_size"`
	NumLayers    int     `json:"num_layers" yaml:"num_layers"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	PPOEpoch     int     `json:"ppo_epoch" yaml:"ppo_epoch"`
}

// DefaultParams returns a Params with every hyperparameter set to the
// trainer-side default sentinel and the bookkeeping intervals the trainer
// itself defaults to.
func DefaultParams() *Params {
	return &Params{
		NumProcesses: 1,
		TimeLimit:    40,
		EvalInterval: 100,
		LogInterval:  10,
		SaveInterval: 100,
		NumBatch:     UseDefault,
		NumSteps:     UseDefault,
		Seed:         UseDefault,
		EntropyCoef:  UseDefault,
		HiddenSize:   UseDefault,
		NumLayers:    UseDefault,
		LearningRate: UseDefault,
		PPOEpoch:     UseDefault,
	}
}

// Validate checks the parts of the configuration the launcher can judge
// without knowing trainer internals.
func (p *Params) Validate() error {
	if p.NumProcesses <= 0 {
		return fmt.Errorf("num-processes must be positive, got %d", p.NumProcesses)
	}
	if p.NActiveInstructions > 0 && len(p.Instructions) == 0 {
		return fmt.Errorf("n-active-instructions is %d but no instructions configured", p.NActiveInstructions)
	}
	if p.NActiveInstructions > len(p.Instructions) {
		return fmt.Errorf("n-active-instructions (%d) exceeds configured instructions (%d)",
			p.NActiveInstructions, len(p.Instructions))
	}
	for i, tokens := range p.Tests {
		if len(tokens) == 0 {
			return fmt.Errorf("test set %d is empty", i)
		}
	}
	return nil
}

// BuildArgs generates the ordered trainer argument list.
// Repeated flags keep their count and order; nothing is deduplicated.
func BuildArgs(p *Params) ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var args []string

	if p.CudaDeterministic {
		args = append(args, "--cuda-deterministic")
	}

	args = append(args, "--log-dir", p.LogDir)
	args = append(args, "--run-id", p.RunID)
	args = append(args, "--num-processes", strconv.Itoa(p.NumProcesses))

	if p.Tune {
		args = append(args, "--tune")
		if p.RedisAddress == "" {
			return nil, fmt.Errorf("tune mode requires a redis address")
		}
	}
	if p.RedisAddress != "" {
		args = append(args, "--redis-address", p.RedisAddress)
	}

	// One occurrence per instruction, preserving configured order
	for _, instruction := range p.Instructions {
		args = append(args, "--instruction", instruction)
	}

	// One occurrence per test set; tokens follow as separate arguments
	for _, tokens := range p.Tests {
		args = append(args, "--test")
		args = append(args, tokens...)
	}

	if p.NActiveInstructions > 0 {
		args = append(args, "--n-active-instructions", strconv.Itoa(p.NActiveInstructions))
	}

	args = append(args,
		"--time-limit", strconv.Itoa(p.TimeLimit),
		"--eval-interval", strconv.Itoa(p.EvalInterval),
		"--log-interval", strconv.Itoa(p.LogInterval),
		"--save-interval", strconv.Itoa(p.SaveInterval),
	)

	// Emitted even when empty; the trainer treats "" as its built-in default
	args = append(args, "--env", p.Env)

	args = append(args,
		"--num-batch", strconv.Itoa(p.NumBatch),
		"--num-steps", strconv.Itoa(p.NumSteps),
		"--seed", strconv.Itoa(p.Seed),
		"--entropy-coef", formatFloat(p.EntropyCoef),
		"--hidden-size", strconv.Itoa(p.HiddenSize),
		"--num-layers", strconv.Itoa(p.NumLayers),
		"--learning-rate", formatFloat(p.LearningRate),
		"--ppo-epoch", strconv.Itoa(p.PPOEpoch),
	)

	return args, nil
}

// formatFloat renders a float the way the trainer's argparse expects:
// shortest representation, sentinel -1 stays exactly "-1".
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// CountFlag returns how many occurrences of flag appear in args.
// Used by callers that verify repeatable-flag multiplicity.
func CountFlag(args []string, flag string) int {
	count := 0
	for _, a := range args {
		if a == flag {
			count++
		}
	}
	return count
}
