// Command voxscribe is the main entry point for the Voxscribe transcription server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/MrWong99/voxscribe/internal/config"
	"github.com/MrWong99/voxscribe/internal/grammar"
	"github.com/MrWong99/voxscribe/internal/health"
	"github.com/MrWong99/voxscribe/internal/observe"
	"github.com/MrWong99/voxscribe/internal/pipeline"
	"github.com/MrWong99/voxscribe/internal/preprocess"
	"github.com/MrWong99/voxscribe/internal/resilience"
	"github.com/MrWong99/voxscribe/internal/server"
	"github.com/MrWong99/voxscribe/internal/stt"
	"github.com/MrWong99/voxscribe/internal/stt/openai"
	"github.com/MrWong99/voxscribe/internal/stt/whisper"
	"github.com/MrWong99/voxscribe/internal/transcript"
)

const defaultListenAddr = ":8080"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxscribe: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxscribe: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	slog.Info("voxscribe starting",
		"config", *configPath,
		"listen_addr", listenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxscribe"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Transcription engines ─────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinEngines(reg)

	engine, err := buildEngine(cfg, reg)
	if err != nil {
		slog.Error("failed to build transcription engine", "err", err)
		return 1
	}

	// ── Transcript store ──────────────────────────────────────────────────────
	var store transcript.Store
	if cfg.Storage.PostgresDSN != "" {
		pg, err := transcript.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pg.Close()
		store = pg
		slog.Info("transcript store ready", "backend", "postgres")
	} else {
		store = transcript.NewMemStore()
		slog.Info("transcript store ready", "backend", "memory")
	}

	// ── Grammar correction ────────────────────────────────────────────────────
	var corrector pipeline.Corrector
	var grammarClient *grammar.Client
	if cfg.Grammar.URL != "" {
		grammarClient, err = grammar.New(cfg.Grammar.URL)
		if err != nil {
			slog.Error("invalid grammar endpoint", "url", cfg.Grammar.URL, "err", err)
			return 1
		}
		corrector = grammarClient
		slog.Info("grammar correction enabled", "endpoint", cfg.Grammar.URL)
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	buildProcessor := func(pc config.PipelineConfig) pipeline.Processor {
		return newProcessor(pc, engine, cfg.Providers.STT.Name, corrector)
	}

	// atomic.Value requires a consistent concrete type, and the two pipeline
	// strategies are different types; store them behind one wrapper.
	type procBox struct{ p pipeline.Processor }
	var processor atomic.Value
	processor.Store(procBox{buildProcessor(cfg.Pipeline)})

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Any() {
			slog.Info("config changed, but no hot-reloadable fields differ — restart to apply")
			return
		}
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.ModeChanged || d.DenoiseChanged || d.MaxRepetitionsChanged {
			processor.Store(procBox{buildProcessor(new.Pipeline)})
			slog.Info("pipeline rebuilt",
				"mode", new.Pipeline.Mode,
				"denoise", new.Pipeline.DenoiseEnabled(),
				"max_repetitions", new.Pipeline.MaxRepetitions,
			)
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── Readiness checks ──────────────────────────────────────────────────────
	checkers := []health.Checker{
		{Name: "storage", Check: store.Ping},
	}
	if grammarClient != nil {
		// Grammar correction is fail-open, so an unreachable service must not
		// flip readiness. The check reports that a validated endpoint is
		// configured, nothing more.
		checkers = append(checkers, health.Checker{
			Name: "grammar",
			Check: func(context.Context) error {
				if grammarClient.Endpoint() == "" {
					return errors.New("no endpoint configured")
				}
				return nil
			},
		})
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	printStartupSummary(cfg, listenAddr)

	srv := server.New(processorFunc(func(ctx context.Context, blob preprocess.Blob) (pipeline.Result, error) {
		return processor.Load().(procBox).p.Process(ctx, blob)
	}), store, checkers...)

	slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)

	if err := srv.ListenAndServe(ctx, listenAddr); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// processorFunc adapts a function to the pipeline.Processor interface so the
// server always sees the most recently built pipeline.
type processorFunc func(ctx context.Context, blob preprocess.Blob) (pipeline.Result, error)

func (f processorFunc) Process(ctx context.Context, blob preprocess.Blob) (pipeline.Result, error) {
	return f(ctx, blob)
}

// ── Engine wiring ─────────────────────────────────────────────────────────────

// registerBuiltinEngines wires the engine factories that ship with Voxscribe
// into reg. Each factory receives a config.ProviderEntry and constructs the
// engine from the real implementation packages.
func registerBuiltinEngines(reg *config.Registry) {
	reg.RegisterEngine("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		opts := []whisper.Option{whisper.WithOptions(engineOptions(entry))}
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterEngine("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		return whisper.NewNative(modelPath, whisper.WithNativeOptions(engineOptions(entry)))
	})

	reg.RegisterEngine("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		opts := []openai.Option{openai.WithOptions(engineOptions(entry))}
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, openai.WithModel(entry.Model))
		}
		return openai.New(entry.APIKey, opts...)
	})
}

// buildEngine instantiates the primary engine named in cfg and, when fallback
// engines are configured, wraps them all in a circuit-breaking failover group.
func buildEngine(cfg *config.Config, reg *config.Registry) (stt.Provider, error) {
	primary, err := reg.CreateEngine(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create engine %q: %w", cfg.Providers.STT.Name, err)
	}
	slog.Info("engine created", "name", cfg.Providers.STT.Name)

	if len(cfg.Providers.Fallbacks) == 0 {
		return primary, nil
	}

	group := resilience.NewEngineFallback(primary, cfg.Providers.STT.Name, resilience.BreakerConfig{})
	for _, entry := range cfg.Providers.Fallbacks {
		fb, err := reg.CreateEngine(entry)
		if err != nil {
			return nil, fmt.Errorf("create fallback engine %q: %w", entry.Name, err)
		}
		group.AddFallback(entry.Name, fb)
		slog.Info("fallback engine created", "name", entry.Name)
	}
	return group, nil
}

// engineOptions builds stt.Options from a provider entry's options map,
// starting from the defaults.
func engineOptions(entry config.ProviderEntry) stt.Options {
	opts := stt.DefaultOptions
	if lang := optString(entry.Options, "language"); lang != "" {
		opts.Language = lang
	}
	if temp, ok := optFloat(entry.Options, "temperature"); ok {
		opts.Temperature = temp
	}
	return opts
}

// newProcessor builds the pipeline strategy selected by pc.
func newProcessor(pc config.PipelineConfig, engine stt.Provider, engineName string, corrector pipeline.Corrector) pipeline.Processor {
	preOpts := []preprocess.Option{preprocess.WithDenoise(pc.DenoiseEnabled())}
	if pc.TargetSampleRate > 0 {
		preOpts = append(preOpts, preprocess.WithTargetSampleRate(pc.TargetSampleRate))
	}
	if pc.TempDir != "" {
		preOpts = append(preOpts, preprocess.WithTempDir(pc.TempDir))
	}

	pcfg := pipeline.Config{
		Engine:         engine,
		EngineName:     engineName,
		Preprocessor:   preprocess.New(preOpts...),
		Corrector:      corrector,
		MaxRepetitions: pc.MaxRepetitions,
	}
	if pc.Mode == config.ModeBasic {
		return pipeline.NewBasic(pcfg)
	}
	return pipeline.NewEnhanced(pcfg)
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, listenAddr string) {
	mode := cfg.Pipeline.Mode
	if mode == "" {
		mode = config.ModeEnhanced
	}
	storage := "memory"
	if cfg.Storage.PostgresDSN != "" {
		storage = "postgres"
	}
	grammarState := "(disabled)"
	if cfg.Grammar.URL != "" {
		grammarState = "enabled"
	}

	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Voxscribe — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Engine", cfg.Providers.STT.Name)
	printRow("Fallbacks", fmt.Sprintf("%d", len(cfg.Providers.Fallbacks)))
	printRow("Pipeline mode", string(mode))
	printRow("Denoise", fmt.Sprintf("%t", cfg.Pipeline.DenoiseEnabled()))
	printRow("Grammar", grammarState)
	printRow("Storage", storage)
	printRow("Listen addr", listenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from an engine Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optFloat extracts a numeric value from an engine Options map[string]any.
// YAML decodes unquoted numbers as int or float64 depending on their form.
func optFloat(opts map[string]any, key string) (float64, bool) {
	if opts == nil {
		return 0, false
	}
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
