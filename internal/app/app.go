package app

import (
	"fmt"
	"os"

	"evscan/internal/config"
	"evscan/internal/logging"
	"evscan/internal/pattern"
	"evscan/internal/report"
	"evscan/internal/runner"
	"evscan/internal/store"
	"evscan/internal/textconv"

	"github.com/google/uuid"
)

// Options adjust one run of the pipeline.
type Options struct {
	// PatternsPath overrides the configured pattern file.
	PatternsPath string
	// OutputDir overrides the configured report directory.
	OutputDir string
	// Verbose lowers the log threshold to debug.
	Verbose bool
}

// ScanApp is the application layer between the CLI and the runner.
// It constructs all dependencies from config and manages the log file
// lifecycle on Close. Pattern compilation happens here, so malformed
// configuration aborts before any archive is touched.
type ScanApp struct {
	cfg       *config.Config
	engine    *pattern.Engine
	reporter  *report.Reporter
	runner    *runner.Runner
	publisher *store.Publisher
	logger    logging.Logger
	logFile   *os.File
	runID     string
}

// NewScanApp creates a fully wired ScanApp from the given config.
// The caller must call Close when done.
func NewScanApp(cfg *config.Config, opts Options) (*ScanApp, error) {
	runID := uuid.New().String()

	slogger, logFile, err := newLogger(cfg.LogDir, runID, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	patternsPath := cfg.Patterns.Path
	if opts.PatternsPath != "" {
		patternsPath = opts.PatternsPath
	}

	defaultFlags, err := pattern.ParseFlagNames(cfg.Patterns.DefaultFlags)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("parsing default flags: %w", err)
	}

	engine, err := pattern.FromConfig(patternsPath, defaultFlags)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("loading patterns: %w", err)
	}
	logger.Debug("pattern rules loaded", "path", patternsPath, "count", len(engine.Rules()))

	output := cfg.Output
	if opts.OutputDir != "" {
		output.Dir = opts.OutputDir
	}
	reporter := report.NewReporter(output.JSONPath(), output.CSVPath(), logger)

	if cfg.Scan.ScratchDir != "" {
		if err := os.MkdirAll(cfg.Scan.ScratchDir, 0755); err != nil {
			logFile.Close()
			return nil, fmt.Errorf("creating scratch directory: %w", err)
		}
	}

	run := runner.NewRunner(engine, reporter, textconv.NewBuiltinConverter(), cfg.Scan.ScratchDir, cfg.Scan.ContextWindow, logger)

	var publisher *store.Publisher
	st, err := store.NewStoreFromConfig(cfg.Store)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}
	if st != nil {
		publisher, err = store.NewPublisher(st, cfg.Store.RecipientsPath, runID, logger)
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("creating publisher: %w", err)
		}
	}

	return &ScanApp{
		cfg:       cfg,
		engine:    engine,
		reporter:  reporter,
		runner:    run,
		publisher: publisher,
		logger:    logger,
		logFile:   logFile,
		runID:     runID,
	}, nil
}

// Rules returns the compiled pattern rules.
func (a *ScanApp) Rules() []pattern.Rule {
	return a.engine.Rules()
}

// Scan discovers evidence containers under inputDir, processes them with
// failure isolation, writes both report artifacts, and publishes them to
// the configured store. Returns the run summary.
func (a *ScanApp) Scan(inputDir string, onProgress runner.ProgressFunc) (*runner.Summary, error) {
	a.logger.Info("starting scan", "input", inputDir, "run_id", a.runID)

	paths, err := a.runner.FindArchives(inputDir)
	if err != nil {
		return nil, err
	}

	summary, err := a.runner.Run(paths, onProgress)
	if err != nil {
		return nil, err
	}

	if a.publisher != nil {
		if err := a.publisher.Publish([]string{summary.JSONPath, summary.CSVPath}); err != nil {
			return nil, fmt.Errorf("publishing report artifacts: %w", err)
		}
	}

	return summary, nil
}

// Close releases the log file.
func (a *ScanApp) Close() error {
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}
