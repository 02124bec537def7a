package trainer

import (
	"reflect"
	"testing"
)

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

// indexOf returns the position of the first occurrence of want, or -1
func indexOf(args []string, want string) int {
	for i, a := range args {
		if a == want {
			return i
		}
	}
	return -1
}

func TestBuildArgs_Basic(t *testing.T) {
	p := DefaultParams()
	p.LogDir = "/tmp/runs"
	p.RunID = "search-01"
	p.NumProcesses = 4
	p.CudaDeterministic = true
	p.RedisAddress = "10.0.1.5:6379"

	args, err := BuildArgs(p)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}

	if args[0] != "--cuda-deterministic" {
		t.Errorf("Expected --cuda-deterministic first, got %s", args[0])
	}
	if !containsArg(args, "--log-dir") || !containsArg(args, "/tmp/runs") {
		t.Error("Expected log dir specification")
	}
	if !containsArg(args, "--run-id") || !containsArg(args, "search-01") {
		t.Error("Expected run id specification")
	}
	if !containsArg(args, "--redis-address") || !containsArg(args, "10.0.1.5:6379") {
		t.Error("Expected redis address specification")
	}

	// Presence flags take no value
	if i := indexOf(args, "--cuda-deterministic"); args[i+1] != "--log-dir" {
		t.Errorf("Expected --cuda-deterministic to take no value, next arg is %s", args[i+1])
	}
}

func TestBuildArgs_RepeatableFlagsPreserveCountAndOrder(t *testing.T) {
	p := DefaultParams()
	p.RunID = "repeat-test"
	p.NumProcesses = 2
	p.Instructions = []string{"WatchBaby", "AvoidDog", "KillFlies"}
	p.Tests = [][]string{
		{"WatchBaby", "AvoidDog"},
		{"KillFlies", "MakeDinner"},
	}

	args, err := BuildArgs(p)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}

	if got := CountFlag(args, "--instruction"); got != 3 {
		t.Errorf("Expected 3 --instruction occurrences, got %d", got)
	}
	if got := CountFlag(args, "--test"); got != 2 {
		t.Errorf("Expected 2 --test occurrences, got %d", got)
	}

	// Instructions keep configured order
	var instructions []string
	for i, a := range args {
		if a == "--instruction" {
			instructions = append(instructions, args[i+1])
		}
	}
	if !reflect.DeepEqual(instructions, p.Instructions) {
		t.Errorf("Instruction order not preserved: %v", instructions)
	}

	// Test tokens follow their --test occurrence as separate arguments
	first := indexOf(args, "--test")
	if args[first+1] != "WatchBaby" || args[first+2] != "AvoidDog" {
		t.Errorf("Expected test tokens after --test, got %v", args[first:first+3])
	}
}

// The configuration the launcher ships as its reference profile:
// 6 instructions, 3 held-out triples, 300 rollout processes.
func TestBuildArgs_ReferenceConfiguration(t *testing.T) {
	p := DefaultParams()
	p.RunID = "kitchen-tune"
	p.LogDir = "/tmp/kitchen"
	p.NumProcesses = 300
	p.Tune = true
	p.RedisAddress = "192.168.1.10:6379"
	p.Instructions = []string{
		"AnswerDoor", "AvoidDog", "ComfortBaby", "KillFlies", "MakeDinner", "WatchBaby",
	}
	p.Tests = [][]string{
		{"AnswerDoor", "AvoidDog", "ComfortBaby"},
		{"KillFlies", "MakeDinner", "WatchBaby"},
		{"AvoidDog", "KillFlies", "WatchBaby"},
	}
	p.NActiveInstructions = 2

	args, err := BuildArgs(p)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}

	if got := CountFlag(args, "--instruction"); got != 6 {
		t.Errorf("Expected exactly 6 --instruction occurrences, got %d", got)
	}
	if got := CountFlag(args, "--test"); got != 3 {
		t.Errorf("Expected exactly 3 --test occurrences, got %d", got)
	}
	if got := CountFlag(args, "--num-processes"); got != 1 {
		t.Errorf("Expected exactly 1 --num-processes occurrence, got %d", got)
	}
	if i := indexOf(args, "--num-processes"); args[i+1] != "300" {
		t.Errorf("Expected --num-processes 300, got %s", args[i+1])
	}
	if !containsArg(args, "--tune") {
		t.Error("Expected --tune presence flag")
	}

	// Each --test occurrence is followed by exactly 3 tokens
	for i, a := range args {
		if a != "--test" {
			continue
		}
		for j := 1; j <= 3; j++ {
			token := args[i+j]
			if len(token) >= 2 && token[:2] == "--" {
				t.Errorf("Expected 3 tokens after --test at %d, hit flag %s", i, token)
			}
		}
	}
}

func TestBuildArgs_SentinelPassthrough(t *testing.T) {
	p := DefaultParams()
	p.RunID = "defaults"
	p.NumProcesses = 1

	args, err := BuildArgs(p)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}

	for _, flag := range []string{
		"--num-batch", "--num-steps", "--seed", "--entropy-coef",
		"--hidden-size", "--num-layers", "--learning-rate", "--ppo-epoch",
	} {
		i := indexOf(args, flag)
		if i < 0 {
			t.Fatalf("Expected %s in args", flag)
		}
		if args[i+1] != "-1" {
			t.Errorf("Expected %s sentinel -1, got %s", flag, args[i+1])
		}
	}
}

func TestBuildArgs_ExplicitHyperparameters(t *testing.T) {
	p := DefaultParams()
	p.RunID = "explicit"
	p.NumProcesses = 1
	p.NumSteps = 64
	p.EntropyCoef = 0.015
	p.LearningRate = 0.0025

	args, err := BuildArgs(p)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}

	if i := indexOf(args, "--num-steps"); args[i+1] != "64" {
		t.Errorf("Expected --num-steps 64, got %s", args[i+1])
	}
	if i := indexOf(args, "--entropy-coef"); args[i+1] != "0.015" {
		t.Errorf("Expected --entropy-coef 0.015, got %s", args[i+1])
	}
	if i := indexOf(args, "--learning-rate"); args[i+1] != "0.0025" {
		t.Errorf("Expected --learning-rate 0.0025, got %s", args[i+1])
	}
}

func TestBuildArgs_EmptyEnvStillEmitted(t *testing.T) {
	p := DefaultParams()
	p.RunID = "no-env"
	p.NumProcesses = 1

	args, err := BuildArgs(p)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}

	i := indexOf(args, "--env")
	if i < 0 {
		t.Fatal("Expected --env in args even when empty")
	}
	if args[i+1] != "" {
		t.Errorf("Expected empty --env value, got %q", args[i+1])
	}
}

func TestBuildArgs_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero processes", func(p *Params) { p.NumProcesses = 0 }},
		{"negative processes", func(p *Params) { p.NumProcesses = -3 }},
		{"active without instructions", func(p *Params) { p.NActiveInstructions = 2 }},
		{"active exceeds instructions", func(p *Params) {
			p.Instructions = []string{"WatchBaby"}
			p.NActiveInstructions = 2
		}},
		{"empty test set", func(p *Params) { p.Tests = [][]string{{}} }},
		{"tune without redis", func(p *Params) { p.Tune = true; p.RedisAddress = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			p.RunID = "invalid"
			tc.mutate(p)
			if _, err := BuildArgs(p); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
