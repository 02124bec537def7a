package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/dmarquez/rlaunch/exporters/prometheus"
	"github.com/dmarquez/rlaunch/pkg/launch"
	"github.com/dmarquez/rlaunch/pkg/logging"
	"github.com/dmarquez/rlaunch/pkg/models"
	"github.com/dmarquez/rlaunch/pkg/profile"
	"github.com/dmarquez/rlaunch/pkg/retry"
	"github.com/dmarquez/rlaunch/pkg/shutdown"
	"github.com/dmarquez/rlaunch/pkg/store"
	"github.com/dmarquez/rlaunch/pkg/trainer"
)

var (
	// Trainer flags (mirror the trainer's CLI surface)
	runCudaDeterministic   bool
	runTune                bool
	runLogDir              string
	runRunID               string
	runNumProcesses        int
	runRedisPort           int
	runInstructions        []string
	runTests               []string
	runNActiveInstructions int
	runTimeLimit           int
	runEvalInterval        int
	runLogInterval         int
	runSaveInterval        int
	runEnv                 string
	runNumBatch            int
	runNumSteps            int
	runSeed                int
	runEntropyCoef         float64
	runHiddenSize          int
	runNumLayers           int
	runLearningRate        float64
	runPPOEpoch            int

	// Launcher-side flags
	runProfile      string
	runEngine       string
	runTrainerRoot  string
	runPython       string
	runDryRun       bool
	runReport       bool
	runMetricsPort  int
	runHistoryDB    string
	runWaitForRedis bool
)

// resolveRedisAddress is swapped out in tests to exercise the
// abort-before-spawn path
var resolveRedisAddress = trainer.ResolveRedisAddress

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch a training run",
	Long: `Build the trainer argument list and launch exactly one training
process. The launch sequence is: load profile, resolve the coordination
address, build the ordered argument list, spawn, wait. No retries, no
supervision; the trainer's exit code is propagated unchanged.

Example:
  rlaunch run --profile kitchen --run-id search-01 --tune
  rlaunch run --instruction WatchBaby --instruction AvoidDog --num-processes 32`,
	RunE:         runLaunch,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addTrainerFlags(runCmd)

	runCmd.Flags().StringVar(&runProfile, "profile", "", "Named launch profile to use as base configuration")
	runCmd.Flags().StringVar(&runEngine, "engine", "auto", "Trainer entrypoint: auto, events, control-flow")
	runCmd.Flags().StringVar(&runTrainerRoot, "trainer-root", "", "Trainer checkout root (default from config or .)")
	runCmd.Flags().StringVar(&runPython, "python", "", "Python interpreter (default: python3, then python, from PATH)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the command without launching")
	runCmd.Flags().BoolVar(&runReport, "report", false, "Print a lifecycle report after the trainer exits")
	runCmd.Flags().IntVar(&runMetricsPort, "metrics-port", 0, "Prometheus metrics port while the trainer runs (0=disabled)")
	runCmd.Flags().StringVar(&runHistoryDB, "history-db", "", "Launch history database path, or 'off' (default $HOME/.rlaunch/rlaunch.db)")
	runCmd.Flags().BoolVar(&runWaitForRedis, "wait-for-redis", false, "Probe the coordination address before launching (tune mode)")
}

// addTrainerFlags registers the trainer-facing flag surface. Shared with
// the args command so both build identical configurations.
func addTrainerFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runCudaDeterministic, "cuda-deterministic", false, "Make CUDA kernels deterministic")
	cmd.Flags().BoolVar(&runTune, "tune", false, "Enable distributed hyperparameter tuning")
	cmd.Flags().StringVar(&runLogDir, "log-dir", "", "Trainer log directory")
	cmd.Flags().StringVar(&runRunID, "run-id", "", "Run identifier")
	cmd.Flags().IntVar(&runNumProcesses, "num-processes", 0, "Number of rollout processes")
	cmd.Flags().IntVar(&runRedisPort, "redis-port", trainer.DefaultRedisPort, "Coordination backend port")
	cmd.Flags().StringArrayVar(&runInstructions, "instruction", nil, "Instruction to train on (repeatable, order preserved)")
	cmd.Flags().StringArrayVar(&runTests, "test", nil, "Held-out instruction set, comma-separated tokens (repeatable)")
	cmd.Flags().IntVar(&runNActiveInstructions, "n-active-instructions", 0, "Number of simultaneously active instructions")
	cmd.Flags().IntVar(&runTimeLimit, "time-limit", 0, "Episode time limit")
	cmd.Flags().IntVar(&runEvalInterval, "eval-interval", 0, "Updates between evaluations")
	cmd.Flags().IntVar(&runLogInterval, "log-interval", 0, "Updates between log lines")
	cmd.Flags().IntVar(&runSaveInterval, "save-interval", 0, "Updates between checkpoints")
	cmd.Flags().StringVar(&runEnv, "env", "", "Environment id (empty = trainer default)")
	cmd.Flags().IntVar(&runNumBatch, "num-batch", trainer.UseDefault, "Minibatches per update (-1 = trainer default)")
	cmd.Flags().IntVar(&runNumSteps, "num-steps", trainer.UseDefault, "Rollout length (-1 = trainer default)")
	cmd.Flags().IntVar(&runSeed, "seed", trainer.UseDefault, "Random seed (-1 = trainer default)")
	cmd.Flags().Float64Var(&runEntropyCoef, "entropy-coef", trainer.UseDefault, "Entropy bonus coefficient (-1 = trainer default)")
	cmd.Flags().IntVar(&runHiddenSize, "hidden-size", trainer.UseDefault, "Hidden layer size (-1 = trainer default)")
	cmd.Flags().IntVar(&runNumLayers, "num-layers", trainer.UseDefault, "Number of hidden layers (-1 = trainer default)")
	cmd.Flags().Float64Var(&runLearningRate, "learning-rate", trainer.UseDefault, "Learning rate (-1 = trainer default)")
	cmd.Flags().IntVar(&runPPOEpoch, "ppo-epoch", trainer.UseDefault, "PPO epochs per update (-1 = trainer default)")
}

// buildParams assembles the launch configuration: profile base (if any),
// then explicitly set flags on top
func buildParams(cmd *cobra.Command) (*trainer.Params, error) {
	params := trainer.DefaultParams()

	if runProfile != "" {
		path := profilesPath
		if path == "" {
			path = profile.DefaultPath()
		}
		file, err := profile.Load(path)
		if err != nil {
			return nil, err
		}
		params, err = file.Get(runProfile)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("cuda-deterministic") {
		params.CudaDeterministic = runCudaDeterministic
	}
	if flags.Changed("tune") {
		params.Tune = runTune
	}
	if flags.Changed("log-dir") {
		params.LogDir = runLogDir
	}
	if flags.Changed("run-id") {
		params.RunID = runRunID
	}
	if flags.Changed("num-processes") {
		params.NumProcesses = runNumProcesses
	}
	if flags.Changed("instruction") {
		params.Instructions = runInstructions
	}
	if flags.Changed("test") {
		params.Tests = nil
		for _, spec := range runTests {
			params.Tests = append(params.Tests, splitTokens(spec))
		}
	}
	if flags.Changed("n-active-instructions") {
		params.NActiveInstructions = runNActiveInstructions
	}
	if flags.Changed("time-limit") {
		params.TimeLimit = runTimeLimit
	}
	if flags.Changed("eval-interval") {
		params.EvalInterval = runEvalInterval
	}
	if flags.Changed("log-interval") {
		params.LogInterval = runLogInterval
	}
	if flags.Changed("save-interval") {
		params.SaveInterval = runSaveInterval
	}
	if flags.Changed("env") {
		params.Env = runEnv
	}
	if flags.Changed("num-batch") {
		params.NumBatch = runNumBatch
	}
	if flags.Changed("num-steps") {
		params.NumSteps = runNumSteps
	}
	if flags.Changed("seed") {
		params.Seed = runSeed
	}
	if flags.Changed("entropy-coef") {
		params.EntropyCoef = runEntropyCoef
	}
	if flags.Changed("hidden-size") {
		params.HiddenSize = runHiddenSize
	}
	if flags.Changed("num-layers") {
		params.NumLayers = runNumLayers
	}
	if flags.Changed("learning-rate") {
		params.LearningRate = runLearningRate
	}
	if flags.Changed("ppo-epoch") {
		params.PPOEpoch = runPPOEpoch
	}

	return params, nil
}

// splitTokens splits a --test occurrence into its instruction tokens.
// Commas and whitespace both work: "WatchBaby,AvoidDog,KillFlies".
func splitTokens(spec string) []string {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func runLaunch(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewFileLogger("launcher", logging.ParseLevel(logLevel), false)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	if err := logger.RotateIfNeeded(10 * 1024 * 1024); err != nil {
		logger.Warn("Log rotation failed", map[string]interface{}{"error": err.Error()})
	}

	params, err := buildParams(cmd)
	if err != nil {
		return err
	}

	// Resolve the coordination address before anything else; a machine
	// without a routable address cannot host the tuning backend, so we
	// abort before the trainer is spawned
	redisAddress, err := resolveRedisAddress(runRedisPort)
	if err != nil {
		logger.Error("Address resolution failed, not launching", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	params.RedisAddress = redisAddress

	selector := trainer.NewEngineSelector(trainerRootPath(runTrainerRoot), runPython)
	engine, reason := selector.SelectEngine(params, trainer.EngineType(runEngine))
	logger.Info("Engine selected", map[string]interface{}{
		"engine": engine.Name(),
		"reason": reason,
	})

	if _, err := selector.ResolveInterpreter(); err != nil {
		return err
	}

	program, trainerArgs, err := engine.BuildCommand(params)
	if err != nil {
		return err
	}

	if runDryRun {
		fmt.Println(program)
		for _, a := range trainerArgs {
			fmt.Println("  " + a)
		}
		return nil
	}

	ctx := context.Background()

	if runWaitForRedis && params.Tune {
		logger.Info("Probing coordination backend", map[string]interface{}{
			"address": redisAddress,
		})
		probe := func() error {
			conn, err := net.DialTimeout("tcp", redisAddress, 2*time.Second)
			if err != nil {
				return err
			}
			return conn.Close()
		}
		if err := retry.Do(ctx, retry.DefaultConfig(), probe); err != nil {
			return fmt.Errorf("coordination backend unreachable at %s: %w", redisAddress, err)
		}
	}

	shutdownMgr := shutdown.New(10 * time.Second)
	defer shutdownMgr.Shutdown()

	// Launch history
	var historyStore store.Store
	if runHistoryDB != "off" {
		historyStore, err = store.NewStore(store.Config{Type: "sqlite", Path: historyDBPath(runHistoryDB)})
		if err != nil {
			// History is launcher-side bookkeeping; never block a run on it
			logger.Warn("History store unavailable, continuing without", map[string]interface{}{
				"error": err.Error(),
			})
			historyStore = store.NewMemoryStore()
		}
		shutdownMgr.Register(shutdown.CloseResource(historyStore, "history store"))
	} else {
		historyStore = store.NewMemoryStore()
	}

	launchID := uuid.New().String()
	launchLogger := logger.WithField("launch_id", launchID)
	record := &models.LaunchRecord{
		ID:           launchID,
		RunID:        params.RunID,
		Engine:       engine.Name(),
		Program:      program,
		Args:         trainerArgs,
		RedisAddress: params.RedisAddress,
		Tune:         params.Tune,
		NumProcesses: params.NumProcesses,
		Status:       models.LaunchStatusRunning,
		StartedAt:    time.Now(),
	}
	if err := historyStore.RecordLaunch(record); err != nil {
		launchLogger.Warn("Failed to record launch", map[string]interface{}{"error": err.Error()})
	}

	// Metrics endpoint while the trainer runs
	exporter := prometheus.NewLaunchExporter(launchID, params.RunID)
	if runMetricsPort > 0 {
		router := mux.NewRouter()
		router.Handle("/metrics", exporter).Methods("GET")
		router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
		}).Methods("GET")

		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", runMetricsPort),
			Handler: router,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				launchLogger.Warn("Metrics server stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
		shutdownMgr.Register(shutdown.StopHTTPServer(server, "metrics"))
	}

	launchLogger.Info("Launching trainer", map[string]interface{}{
		"run_id":        params.RunID,
		"program":       program,
		"num_args":      len(trainerArgs),
		"redis_address": params.RedisAddress,
		"tune":          params.Tune,
	})

	runner := launch.NewRunner(launchLogger)
	runner.OnStart = func(pid int) {
		if err := exporter.Observe(pid); err != nil {
			launchLogger.Warn("Failed to attach exporter", map[string]interface{}{"error": err.Error()})
		}
	}

	if err := runner.Run(ctx, program, trainerArgs...); err != nil {
		_ = historyStore.FinishLaunch(launchID, models.LaunchStatusFailed, 1, string(launch.ExitReasonError))
		return err
	}

	exporter.MarkFinished(runner.ExitCode())
	_ = historyStore.FinishLaunch(launchID, launchStatus(runner), runner.ExitCode(), string(runner.Reason()))

	if runReport {
		runner.WriteReport(os.Stderr)
	}

	if code := runner.ExitCode(); code != 0 {
		return &launch.ExitError{Code: code}
	}
	return nil
}

// launchStatus maps the runner's terminal state to a history status
func launchStatus(runner *launch.Runner) models.LaunchStatus {
	switch runner.Reason() {
	case launch.ExitReasonSuccess:
		return models.LaunchStatusCompleted
	case launch.ExitReasonSignal:
		return models.LaunchStatusKilled
	default:
		return models.LaunchStatusFailed
	}
}
