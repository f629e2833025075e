// Package runner drives the pipeline over a set of discovered evidence
// containers, isolating per-archive failures so one broken container
// never stops the run.
package runner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"evscan/internal/archive"
	"evscan/internal/dbreader"
	"evscan/internal/evidence"
	"evscan/internal/logging"
	"evscan/internal/navigator"
	"evscan/internal/pattern"
	"evscan/internal/report"
	"evscan/internal/textconv"
)

// ArchiveExtension is the recognized evidence container suffix.
const ArchiveExtension = ".ufdr"

// Event is a progress notification for front-ends. Type is one of
// "archive-start", "member-progress", or "archive-complete".
type Event struct {
	Type         string
	Path         string
	TextualTotal int

	// member-progress fields.
	Member string
	Index  int
	Total  int
	Stage  string
	Engine string
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(Event)

// Summary describes a completed run.
type Summary struct {
	Processed int
	Failures  []string
	Matches   int
	JSONPath  string
	CSVPath   string
}

// Runner executes the scan pipeline archive by archive.
type Runner struct {
	engine        *pattern.Engine
	reporter      *report.Reporter
	converter     textconv.Converter
	scratchDir    string
	contextWindow int
	logger        logging.Logger
}

// NewRunner creates a Runner. contextWindow controls match context
// capture; non-positive values use the engine default.
func NewRunner(engine *pattern.Engine, reporter *report.Reporter, converter textconv.Converter, scratchDir string, contextWindow int, logger logging.Logger) *Runner {
	return &Runner{
		engine:        engine,
		reporter:      reporter,
		converter:     converter,
		scratchDir:    scratchDir,
		contextWindow: contextWindow,
		logger:        logger,
	}
}

// FindArchives walks root recursively and returns every evidence
// container path, matching the extension case-insensitively. Unreadable
// subtrees are logged and skipped.
func (r *Runner) FindArchives(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("input path %s does not exist", root)
		}
		return nil, fmt.Errorf("stat input path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Warn("unable to access path during scan", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ArchiveExtension) {
			r.logger.Debug("discovered evidence container", "path", path)
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking input directory: %w", err)
	}

	r.logger.Info("container discovery complete", "root", root, "count", len(paths))
	return paths, nil
}

// Run processes each archive independently, accumulates records in the
// reporter, and writes both report artifacts. Per-archive failures are
// logged and surfaced in the summary's failure list; they never abort
// the run. A report is always produced, possibly with zero records.
func (r *Runner) Run(paths []string, onProgress ProgressFunc) (*Summary, error) {
	var failures []string
	for _, path := range paths {
		if err := r.processArchive(path, onProgress); err != nil {
			r.logger.Error("archive processing failed", "path", path, "error", err)
			failures = append(failures, path)
		}
	}

	if err := r.reporter.Write(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Processed: len(paths),
		Failures:  failures,
		Matches:   r.reporter.Count(),
		JSONPath:  r.reporter.JSONPath(),
		CSVPath:   r.reporter.CSVPath(),
	}
	r.logger.Info("run complete", "processed", summary.Processed, "failed", len(failures), "matches", summary.Matches)
	return summary, nil
}

// processArchive runs the full pipeline for one container. A panic from
// driver or parser code is converted to an ordinary failure so isolation
// holds.
func (r *Runner) processArchive(path string, onProgress ProgressFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while processing %s: %v", path, rec)
		}
	}()

	extractor := archive.NewExtractor(path, r.logger)
	databases := dbreader.NewReader(extractor, r.scratchDir, r.logger)
	nav := navigator.NewNavigator(extractor, databases, r.converter, r.logger)

	plan, err := nav.PlanProcessing()
	if err != nil {
		return err
	}

	notify(onProgress, Event{Type: "archive-start", Path: path, TextualTotal: len(plan.Textual)})

	err = nav.CollectPayloads(plan, func(p navigator.Payload) error {
		r.reporter.AddAll(r.scanPayload(p))
		return nil
	}, func(ev navigator.MemberEvent) {
		notify(onProgress, Event{
			Type:   "member-progress",
			Path:   path,
			Member: ev.Member,
			Index:  ev.Index,
			Total:  ev.Total,
			Stage:  string(ev.Stage),
			Engine: ev.Engine,
		})
	})
	if err != nil {
		return err
	}

	notify(onProgress, Event{Type: "archive-complete", Path: path})
	return nil
}

// scanPayload matches one payload against every rule and builds the
// resulting records. Database rows are scanned field by field in the
// table's column order; text payloads are scanned whole.
func (r *Runner) scanPayload(p navigator.Payload) []evidence.Record {
	var matches []pattern.Match
	if p.Kind == navigator.KindDatabaseRow {
		matches = r.engine.ScanTable([]map[string]string{p.Values}, p.Columns, r.contextWindow)
	} else {
		matches = r.engine.ScanText(p.Text, r.contextWindow)
	}
	if len(matches) == 0 {
		return nil
	}

	records := make([]evidence.Record, 0, len(matches))
	for _, m := range matches {
		records = append(records, evidence.Build(p, m))
	}
	return records
}

func notify(fn ProgressFunc, ev Event) {
	if fn != nil {
		fn(ev)
	}
}
