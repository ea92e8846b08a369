//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline orchestrates the full migration: extract, generate,
// transform, validate, load, report. Stages run synchronously in order;
// each stage's output feeds the next through the filesystem, so a run
// can resume from any stage using the previous run's files.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/load"
	"github.com/jeenops/db-migrator/internal/mapping"
	"github.com/jeenops/db-migrator/internal/sqlgen"
	"github.com/jeenops/db-migrator/internal/transform"
	"github.com/jeenops/db-migrator/internal/validate"
)

// Pipeline steps, in execution order.
const (
	StepExtract   = "extract"
	StepGenerate  = "generate"
	StepTransform = "transform"
	StepValidate  = "validate"
	StepLoad      = "load"
)

var stepOrder = map[string]int{
	StepExtract:   0,
	StepGenerate:  1,
	StepTransform: 2,
	StepValidate:  3,
	StepLoad:      4,
}

// Pipeline holds everything a full migration run needs. Target may be
// nil, in which case the load stage is skipped.
type Pipeline struct {
	Source *pgxpool.Pool
	Target *pgxpool.Pool

	Prefix       string
	ExtractDir   string
	SQLDir       string
	TransformDir string

	Emails  []string
	Filters extract.DocumentFilters

	Mapping   mapping.Config
	Constants map[string]map[string]string

	GenOptions sqlgen.Options

	LoadModes  map[string]string
	SchemaMode string

	Progress     extract.ProgressFunc
	LoadProgress load.ProgressFunc
}

// Options are the caller-level policy knobs for one run.
type Options struct {
	// ResumeFrom skips the stages before the named step, reusing their
	// files from earlier runs. Empty means start from extraction.
	ResumeFrom string

	// DryRun generates and validates but never writes to the target.
	DryRun bool

	// StopOnValidationFail halts before load when validation fails.
	StopOnValidationFail bool

	// StrictLoad stops the load at the first table-level error.
	StrictLoad bool
}

// Result collects every stage's outcome plus the final report. Stages
// that did not run are nil.
type Result struct {
	Extraction     *extract.Result
	Generation     *GenerateResult
	Transformation *transform.Result
	Validation     *validate.Result
	Load           *load.Result
	Report         *validate.Report
	Halted         string
	Duration       time.Duration
}

// shouldRun reports whether a step runs given the resume point.
func shouldRun(step, resumeFrom string) bool {
	if resumeFrom == "" {
		return true
	}
	from, ok := stepOrder[resumeFrom]
	if !ok {
		return true
	}
	return stepOrder[step] >= from
}

// Run executes the pipeline. It always returns a result with a report,
// even when a stage halts the run; earlier stages' files stay intact.
func (p *Pipeline) Run(ctx context.Context, opts Options) *Result {
	start := time.Now()
	res := &Result{}

	defer func() {
		res.Duration = time.Since(start)
		res.Report = validate.BuildReport(res.Extraction, res.Transformation, res.Validation, res.Load, res.Duration)
	}()

	if shouldRun(StepExtract, opts.ResumeFrom) {
		log.Info().Strs("emails", p.Emails).Msg("Starting extraction")
		engine := extract.NewEngine(p.Source, p.Prefix, p.ExtractDir, p.Progress)
		res.Extraction = engine.Run(ctx, p.Emails, p.Filters)
		if len(res.Extraction.Errors) > 0 {
			log.Error().Strs("errors", res.Extraction.Errors).Msg("Extraction failed, halting")
			res.Halted = StepExtract
			return res
		}
	} else {
		log.Info().Msg("Skipping extraction, using existing snapshots")
	}

	if shouldRun(StepGenerate, opts.ResumeFrom) {
		log.Info().Msg("Generating migration SQL")
		res.Generation = Generate(p.ExtractDir, p.SQLDir, p.GenOptions)
		// Generation errors do not halt the run: the transformed CSVs
		// and validation are still meaningful without every script.
		for _, e := range res.Generation.Errors {
			log.Warn().Str("error", e).Msg("SQL generation issue")
		}
	}

	if shouldRun(StepTransform, opts.ResumeFrom) {
		log.Info().Msg("Starting transformation")
		cfg := p.Mapping
		if cfg == nil {
			cfg = mapping.Default()
		}
		engine := transform.NewEngine(cfg, p.ExtractDir, p.TransformDir, p.Constants, p.Progress)
		res.Transformation = engine.Run()
		if len(res.Transformation.Errors) > 0 {
			log.Error().Strs("errors", res.Transformation.Errors).Msg("Transformation failed, halting")
			res.Halted = StepTransform
			return res
		}
	} else {
		log.Info().Msg("Skipping transformation, using existing files")
	}

	if shouldRun(StepValidate, opts.ResumeFrom) {
		log.Info().Msg("Running validation checks")
		res.Validation = validate.New(p.ExtractDir, p.TransformDir).Run()
		log.Info().
			Int("passed", res.Validation.Summary.Passed).
			Int("failed", res.Validation.Summary.Failed).
			Int("warnings", res.Validation.Summary.Warnings).
			Msg("Validation complete")
		if res.Validation.OverallStatus == validate.StatusFail && opts.StopOnValidationFail {
			log.Error().Msg("Stopping due to validation failures")
			res.Halted = StepValidate
			return res
		}
	}

	switch {
	case p.Target == nil:
		log.Info().Msg("Skipping load, target not configured")
	case opts.DryRun:
		log.Info().Msg("Dry run, previewing load SQL only")
		loader := load.New(p.Target, p.TransformDir, p.SchemaMode, p.LoadProgress)
		res.Load = loader.Run(ctx, p.LoadModes, true, opts.StrictLoad)
	case shouldRun(StepLoad, opts.ResumeFrom):
		log.Info().Msg("Starting data load")
		loader := load.New(p.Target, p.TransformDir, p.SchemaMode, p.LoadProgress)
		res.Load = loader.Run(ctx, p.LoadModes, false, opts.StrictLoad)
		if len(res.Load.Errors) > 0 {
			log.Warn().Strs("errors", res.Load.Errors).Msg("Load completed with errors")
		}
	}

	log.Info().Str("duration", fmt.Sprintf("%.1fs", time.Since(start).Seconds())).Msg("Migration run complete")
	return res
}
