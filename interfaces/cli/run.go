package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/veritaslabs/cogito/application"
	"github.com/veritaslabs/cogito/application/handlers"
	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/audit"
	"github.com/veritaslabs/cogito/infrastructure/config"
	"github.com/veritaslabs/cogito/infrastructure/evaluator"
	"github.com/veritaslabs/cogito/infrastructure/logging"
	"github.com/veritaslabs/cogito/infrastructure/observability"
	"github.com/veritaslabs/cogito/infrastructure/registry"
	"github.com/veritaslabs/cogito/infrastructure/resilience"
	"github.com/veritaslabs/cogito/infrastructure/statemachine"
	"github.com/veritaslabs/cogito/infrastructure/storage/memory"
	redisstore "github.com/veritaslabs/cogito/infrastructure/storage/redis"
	"github.com/veritaslabs/cogito/infrastructure/storage/sqlite"
)

// readyTimeout bounds how long run waits for required services.
const readyTimeout = 5 * time.Second

// runOptions holds options for the run command.
type runOptions struct {
	configPath string
	task       string
	channel    string
	maxRounds  int
	timeout    time.Duration
	denylist   []string
	verbose    bool
	trace      bool
}

// newRunCmd creates the run command.
func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run one task through the deliberation loop",
		Long: `Run a single task through the full deliberation loop: the task is
seeded with an initial thought, each thought is evaluated and resolved into
one action, and the loop continues over follow-up thoughts until the task
completes, fails, or is deferred.

Without a config file the runtime uses in-memory storage, a console
communication channel, and the echo action selector.

Examples:
  # Run a task with the default in-memory profile
  cogito run "summarize the incident channel"

  # Run against a config file with SQLite persistence
  cogito run -c config.yaml "summarize the incident channel"

  # Force deferral of anything mentioning credentials
  cogito run --deny credential --deny password "rotate the keys"

  # Exercise the bounded re-deliberation path
  cogito run "ponder"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.task = args[0]
			return a.runTask(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.channel, "channel", "console", "Channel id for task output")
	cmd.Flags().IntVar(&opts.maxRounds, "max-rounds", 0, "Maximum ponder rounds (overrides config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Execution timeout")
	cmd.Flags().StringSliceVar(&opts.denylist, "deny", nil, "Guardrail denylist substrings")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Emit spans to stdout")

	return cmd
}

// runTask composes the runtime from configuration and drives one task to
// its final state.
func (a *App) runTask(ctx context.Context, opts *runOptions) error {
	cfg, err := a.loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.maxRounds > 0 {
		cfg.Workflow.MaxPonderRounds = opts.maxRounds
	}

	level := cfg.Logging.Level
	if opts.verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: cfg.Logging.Format})
	logging.SetLevel(level)

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	reg := registry.New()
	reg.SetBreakerDefaults(cfg.BreakerDefaults())

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	console := newConsoleService(a.stdout)
	reg.RegisterGlobal(service.TypeCommunication, console, service.PriorityNormal,
		[]string{service.CapSendMessage, service.CapFetchMessages})

	mem, closeMem, err := openMemoryService(cfg)
	if err != nil {
		return err
	}
	defer closeMem()
	reg.RegisterGlobal(service.TypeMemory, mem, service.PriorityNormal,
		[]string{service.CapMemorize, service.CapRecall, service.CapForget})

	lifecycle, err := statemachine.NewLifecycle()
	if err != nil {
		return fmt.Errorf("failed to build thought lifecycle: %w", err)
	}

	deps := &handlers.Deps{
		Registry:  reg,
		Store:     store,
		Audit:     audit.NewTrail(),
		Lifecycle: lifecycle,
		Retry:     resilience.NewStoreRetry(),
		ToolGate: resilience.NewToolGate(resilience.ToolGateConfig{
			MaxConcurrent: cfg.Tools.MaxConcurrent,
			Timeout:       time.Duration(cfg.Tools.TimeoutSeconds * float64(time.Second)),
		}),
		MaxPonderRounds: cfg.Workflow.MaxPonderRounds,
	}

	var dispatcherOpts []application.DispatcherOption
	var instruments *observability.Instruments
	if opts.trace {
		provider, err := observability.New(
			observability.WithServiceName("cogito"),
			observability.WithStdoutTracing(),
			observability.WithMetrics(),
		)
		if err != nil {
			return fmt.Errorf("failed to start tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), readyTimeout)
			defer cancel()
			_ = provider.Shutdown(shutdownCtx)
		}()

		instruments, err = observability.NewInstruments(provider.Meter())
		if err != nil {
			return fmt.Errorf("failed to build instruments: %w", err)
		}
		dispatcherOpts = append(dispatcherOpts,
			application.WithTracer(provider.Tracer()),
			application.WithInstruments(instruments),
		)
	}

	dispatcher, err := application.NewDispatcher(handlers.All(deps), dispatcherOpts...)
	if err != nil {
		return fmt.Errorf("failed to build dispatcher: %w", err)
	}

	processor, err := application.NewThoughtProcessor(application.ProcessorConfig{
		Store:       store,
		Lifecycle:   lifecycle,
		Retry:       deps.Retry,
		Dispatcher:  dispatcher,
		Evaluators:  evaluator.DefaultEvaluators(),
		Selector:    evaluator.NewEchoSelector(),
		Guardrail:   evaluator.NewDenylistGuardrail(opts.denylist...),
		Instruments: instruments,
	})
	if err != nil {
		return fmt.Errorf("failed to build processor: %w", err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if !reg.WaitReady(readyCtx, service.TypeCommunication, service.TypeMemory) {
		return fmt.Errorf("required services never became ready")
	}

	task := thought.NewTask(uuid.NewString(), opts.task)
	task.Context.ChannelID = opts.channel
	task.Context.InitialContent = opts.task

	if opts.verbose {
		_, _ = fmt.Fprintf(a.stdout, "Task %s on channel %s (max %d ponder rounds)\n\n",
			task.ID, opts.channel, cfg.Workflow.MaxPonderRounds)
	}

	final, runErr := application.NewRunner(processor, store).RunTask(ctx, task, opts.task)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), readyTimeout)
	defer cancelShutdown()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("dispatcher shutdown incomplete")
	}

	if runErr != nil {
		return fmt.Errorf("task run failed: %w", runErr)
	}

	_, _ = fmt.Fprintf(a.stdout, "\nTask %s\n", final.ID)
	_, _ = fmt.Fprintf(a.stdout, "  Status: %s\n", final.Status)
	if final.Outcome != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Outcome: %s\n", final.Outcome)
	}
	_, _ = fmt.Fprintf(a.stdout, "  Audit entries: %d\n", deps.Audit.Len())
	return nil
}

// loadConfig loads the config file when given, otherwise the defaults.
func (a *App) loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.NewLoader().LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// openStore builds the persistence backend selected by the config.
func openStore(cfg *config.Config) (thought.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err := sqlite.NewStore(sqlite.DefaultConfig(cfg.Storage.Path))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return memory.NewStore(), func() {}, nil
	}
}

// openMemoryService builds the graph memory provider: redis when an address
// is configured, the in-process service otherwise.
func openMemoryService(cfg *config.Config) (service.MemoryService, func(), error) {
	if cfg.Storage.Redis.Addr == "" {
		return memory.NewMemoryService(), func() {}, nil
	}
	mem, err := redisstore.NewMemoryService(redisstore.DefaultConfig(),
		redisstore.WithAddress(cfg.Storage.Redis.Addr),
		redisstore.WithPassword(cfg.Storage.Redis.Password),
		redisstore.WithDB(cfg.Storage.Redis.DB),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return mem, func() { _ = mem.Close() }, nil
}
