// Package pipeline orchestrates a full analysis run: preflight, discovery,
// cache consultation, the bounded parallel extraction phase, the sequential
// cache merge, scoring, report writing, and history recording.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"audioqc/internal/analysiscache"
	"audioqc/internal/config"
	"audioqc/internal/deps"
	"audioqc/internal/extproc"
	"audioqc/internal/extract"
	"audioqc/internal/history"
	"audioqc/internal/logging"
	"audioqc/internal/metrics"
	"audioqc/internal/preflight"
	"audioqc/internal/report"
	"audioqc/internal/scanner"
	"audioqc/internal/scoring"
)

// Options tune one run beyond what the config file provides.
type Options struct {
	Root    string
	Profile scoring.Profile
	NoCache bool
}

// Outcome summarizes a completed run.
type Outcome struct {
	RunID        string             `json:"runId,omitempty"`
	Root         string             `json:"root"`
	Profile      scoring.Profile    `json:"profile"`
	StartedAt    time.Time          `json:"startedAt"`
	FinishedAt   time.Time          `json:"finishedAt"`
	Analyses     []scoring.Analysis `json:"analyses"`
	CacheHits    int                `json:"cacheHits"`
	SkippedFiles []string           `json:"skippedFiles,omitempty"`
	ReportPaths  []string           `json:"reportPaths,omitempty"`
}

type job struct {
	path        string
	fingerprint analysiscache.Fingerprint
}

type jobResult struct {
	job    job
	record metrics.FileMetrics
	err    error
}

// Runner executes analysis runs against one configuration.
type Runner struct {
	cfg *config.Config
	log *slog.Logger
}

// NewRunner builds a Runner.
func NewRunner(cfg *config.Config, log *slog.Logger) *Runner {
	if log == nil {
		log = logging.NewNop()
	}
	return &Runner{cfg: cfg, log: log}
}

// Run performs one complete analysis of opts.Root.
func (r *Runner) Run(ctx context.Context, opts Options) (*Outcome, error) {
	started := time.Now()
	log := logging.NewComponentLogger(r.log, "pipeline")

	checks := preflight.RunAll(r.cfg)
	for _, check := range checks {
		if check.Passed {
			log.Debug("preflight ok", logging.String("check", check.Name), logging.String("detail", check.Detail))
			continue
		}
		log.Warn("preflight failed", logging.String("check", check.Name), logging.String("detail", check.Detail))
	}
	if fatal := preflight.FatalFailure(checks); fatal != nil {
		return nil, fmt.Errorf("%w: %s", deps.ErrFFmpegMissing, fatal.Detail)
	}

	ffmpegBin, err := deps.ResolveFFmpeg(r.cfg.Analysis.FFmpegBinary)
	if err != nil {
		return nil, err
	}
	ffprobeBin, err := deps.ResolveFFprobe(r.cfg.Analysis.FFprobeBinary)
	if err != nil {
		// Probe metadata degrades to absent fields; extraction can proceed.
		ffprobeBin = r.cfg.Analysis.FFprobeBinary
		if ffprobeBin == "" {
			ffprobeBin = "ffprobe"
		}
	}

	files, err := scanner.Scan(opts.Root, r.cfg.Analysis.Extensions, log)
	if err != nil {
		return nil, err
	}
	log.Info("scan complete",
		logging.String("root", opts.Root),
		logging.Int("files", len(files)))

	outcome := &Outcome{Root: opts.Root, Profile: opts.Profile, StartedAt: started}
	if len(files) == 0 {
		outcome.FinishedAt = time.Now()
		return outcome, nil
	}

	cacheEnabled := r.cfg.Analysis.CacheEnabled && !opts.NoCache
	cachePath := r.cfg.Paths.CachePath
	var cache *analysiscache.Cache
	if cacheEnabled {
		release, err := analysiscache.AcquireLock(cachePath)
		if err != nil {
			return nil, err
		}
		defer release()
		cache = analysiscache.Load(cachePath, log)
	} else {
		cache = analysiscache.New()
	}

	// Sequential cache consult: hits are final, misses become jobs. The
	// cache is read-only from here until the merge phase.
	var (
		records []metrics.FileMetrics
		jobs    []job
	)
	for _, file := range files {
		fp, err := analysiscache.FingerprintFile(file)
		if err != nil {
			log.Warn("skipping file", logging.String("file", file), logging.Error(err))
			outcome.SkippedFiles = append(outcome.SkippedFiles, file)
			continue
		}
		if cacheEnabled {
			if hit, ok := cache.Lookup(file, fp); ok {
				records = append(records, hit)
				outcome.CacheHits++
				continue
			}
		}
		jobs = append(jobs, job{path: file, fingerprint: fp})
	}
	log.Info("cache consulted",
		logging.Int("hits", outcome.CacheHits),
		logging.Int("to_analyze", len(jobs)))

	processed := r.extractAll(ctx, jobs, ffmpegBin, ffprobeBin, log, outcome)
	for i := range processed {
		records = append(records, processed[i].record)
	}

	// Sequential merge after all parallel work.
	if cacheEnabled {
		for i := range processed {
			cache.Upsert(processed[i].job.path, processed[i].job.fingerprint, processed[i].record)
		}
		if err := cache.Save(cachePath, true); err != nil {
			log.Warn("cache save failed", logging.Error(err))
		}
	}

	scorer := scoring.NewScorer(opts.Profile)
	outcome.Analyses = scorer.AnalyzeAll(records)
	outcome.FinishedAt = time.Now()

	if err := r.writeReports(outcome); err != nil {
		return nil, err
	}
	r.recordHistory(ctx, outcome, log)

	log.Info("run complete",
		logging.Int("files", len(outcome.Analyses)),
		logging.Int("cache_hits", outcome.CacheHits),
		logging.Int("skipped", len(outcome.SkippedFiles)),
		logging.Duration("elapsed", outcome.FinishedAt.Sub(outcome.StartedAt)))
	return outcome, nil
}

// extractAll fans jobs out to a fixed worker pool. Process concurrency is
// bounded globally by the limiter, independent of the pool size.
func (r *Runner) extractAll(ctx context.Context, jobs []job, ffmpegBin, ffprobeBin string, log *slog.Logger, outcome *Outcome) []jobResult {
	if len(jobs) == 0 {
		return nil
	}

	extractor := &extract.Extractor{
		FFmpeg:  ffmpegBin,
		FFprobe: ffprobeBin,
		Timeout: time.Duration(r.cfg.Analysis.TimeoutSeconds) * time.Second,
		Limiter: extproc.NewLimiter(r.cfg.Analysis.MaxProcesses),
		Logger:  logging.NewComponentLogger(r.log, "extract"),
	}

	workers := r.cfg.Analysis.FileWorkers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	bar := newProgressBar(len(jobs))

	jobCh := make(chan job)
	resultCh := make(chan jobResult, len(jobs))
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobCh {
				record, err := extractor.ProcessFile(ctx, j.path)
				if err == nil {
					record.ContentSha256 = metrics.String(j.fingerprint.ContentSha256)
				}
				resultCh <- jobResult{job: j, record: record, err: err}
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}()
	}
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)
	wg.Wait()
	close(resultCh)
	if bar != nil {
		_ = bar.Finish()
	}

	var results []jobResult
	for res := range resultCh {
		if res.err != nil {
			log.Warn("skipping file", logging.String("file", res.job.path), logging.Error(res.err))
			outcome.SkippedFiles = append(outcome.SkippedFiles, res.job.path)
			continue
		}
		results = append(results, res)
	}
	return results
}

// newProgressBar returns a bar only when stderr is an interactive terminal.
func newProgressBar(total int) *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *Runner) writeReports(outcome *Outcome) error {
	dir := r.cfg.Paths.ReportDir
	reports := r.cfg.Reports

	if reports.CSV {
		path := filepath.Join(dir, report.CSVFileName)
		if err := report.WriteCSV(outcome.Analyses, path, true); err != nil {
			return err
		}
		outcome.ReportPaths = append(outcome.ReportPaths, path)
	}
	if reports.JSONL {
		path := filepath.Join(dir, report.JSONLFileName)
		if err := report.WriteJSONL(outcome.Analyses, path, true); err != nil {
			return err
		}
		outcome.ReportPaths = append(outcome.ReportPaths, path)
	}
	if reports.SARIF {
		path := filepath.Join(dir, report.SARIFFileName)
		if err := report.WriteSARIF(outcome.Analyses, path, true); err != nil {
			return err
		}
		outcome.ReportPaths = append(outcome.ReportPaths, path)
	}
	if reports.RawJSON {
		path := filepath.Join(dir, report.RawJSONFileName)
		raw := make([]metrics.FileMetrics, len(outcome.Analyses))
		for i := range outcome.Analyses {
			raw[i] = outcome.Analyses[i].FileMetrics
		}
		if err := report.WriteRawMetrics(raw, path, true); err != nil {
			return err
		}
		outcome.ReportPaths = append(outcome.ReportPaths, path)
	}
	return nil
}

// recordHistory persists the run; history problems never fail a run whose
// reports are already on disk.
func (r *Runner) recordHistory(ctx context.Context, outcome *Outcome, log *slog.Logger) {
	store, err := history.Open(r.cfg.Paths.HistoryPath)
	if err != nil {
		log.Warn("history unavailable", logging.Error(err))
		return
	}
	defer store.Close()

	var sum int
	for _, a := range outcome.Analyses {
		sum += a.QualityScore
	}
	mean := 0.0
	if len(outcome.Analyses) > 0 {
		mean = float64(sum) / float64(len(outcome.Analyses))
	}

	runID, err := store.RecordRun(ctx, history.Run{
		Root:       outcome.Root,
		Profile:    string(outcome.Profile),
		StartedAt:  outcome.StartedAt,
		FinishedAt: outcome.FinishedAt,
		FileCount:  len(outcome.Analyses),
		CacheHits:  outcome.CacheHits,
		MeanScore:  mean,
	}, outcome.Analyses)
	if err != nil {
		log.Warn("history record failed", logging.Error(err))
		return
	}
	outcome.RunID = runID
}
