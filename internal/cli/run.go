//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jeenops/db-migrator/internal/load"
	"github.com/jeenops/db-migrator/internal/logging"
	"github.com/jeenops/db-migrator/internal/pipeline"
	"github.com/jeenops/db-migrator/internal/validate"
)

var (
	runResumeFrom string
	runDryRun     bool
	runStopOnFail bool
	runStrictLoad bool
	runReportFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full migration pipeline",
	Long: `Run the whole migration in one pass: extract, generate SQL, transform,
validate and load, then write a JSON report. Stages can be skipped with
--resume-from when their outputs already exist from an earlier run.

Example:
  migrator run --email alice@example.com --dry-run
  migrator run --resume-from validate --stop-on-validation-failure`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runResumeFrom, "resume-from", "",
		"resume point: fresh, extract, transform, validate or load")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false,
		"run every stage but never write to the target database")
	runCmd.Flags().BoolVar(&runStopOnFail, "stop-on-validation-failure", false,
		"halt before load when validation fails")
	runCmd.Flags().BoolVar(&runStrictLoad, "strict", false,
		"stop loading at the first table-level error")
	runCmd.Flags().StringVar(&runReportFile, "report", "",
		"report file path (default: <output-dir>/migration_report.json)")

	// The run command accepts the extraction selection flags too.
	runCmd.Flags().StringArrayVar(&extractEmails, "email", nil,
		"user email to migrate (repeatable)")
	runCmd.Flags().StringVar(&extractEmailsFile, "emails-file", "",
		"file with one user email per line")
}

// resumeStep translates the config resume point into a pipeline step.
// Resuming from "transform" re-runs SQL generation as well, since both
// read the same extracted snapshots.
func resumeStep(resumeFrom string) (string, error) {
	switch resumeFrom {
	case "", "fresh", "extract":
		return "", nil
	case "transform":
		return pipeline.StepGenerate, nil
	case "validate":
		return pipeline.StepValidate, nil
	case "load":
		return pipeline.StepLoad, nil
	default:
		return "", fmt.Errorf("invalid resume_from %q", resumeFrom)
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if runResumeFrom != "" {
		cfg.Run.ResumeFrom = runResumeFrom
	}
	if runDryRun {
		cfg.Load.DryRun = true
	}
	if runStopOnFail {
		cfg.Run.StopOnValidationFailure = true
	}
	if runStrictLoad {
		cfg.Load.StrictMode = true
	}
	if len(extractEmails) > 0 {
		cfg.Extract.Emails = extractEmails
	}
	if extractEmailsFile != "" {
		cfg.Extract.EmailsFile = extractEmailsFile
	}

	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	resume, err := resumeStep(cfg.Run.ResumeFrom)
	if err != nil {
		return err
	}

	emails, err := cfg.UserEmails()
	if err != nil {
		return err
	}
	filters, err := documentFilters()
	if err != nil {
		return err
	}
	m, err := mappingConfig()
	if err != nil {
		return err
	}

	// Handle shutdown signals
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig := <-sigChan
		logging.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
	}()

	var source *pgxpool.Pool
	if resume == "" {
		source, err = connectSource(ctx)
		if err != nil {
			return err
		}
		defer source.Close()
	}

	var target *pgxpool.Pool
	if cfg.Target != "" && !cfg.Load.DryRun {
		target, err = connectTarget(ctx)
		if err != nil {
			return err
		}
		defer target.Close()
	}

	modes := map[string]string{}
	for _, table := range load.Order {
		modes[table] = cfg.Load.Mode
	}

	p := &pipeline.Pipeline{
		Source:       source,
		Target:       target,
		Prefix:       cfg.Prefix,
		ExtractDir:   extractDir(),
		SQLDir:       sqlDir(),
		TransformDir: transformDir(),
		Emails:       emails,
		Filters:      filters,
		Mapping:      m,
		Constants:    transformConstants(),
		GenOptions:   genOptions(),
		LoadModes:    modes,
		SchemaMode:   cfg.Generate.SchemaMode,
		Progress:     stageProgress(),
		LoadProgress: loadProgress(),
	}

	result := p.Run(ctx, pipeline.Options{
		ResumeFrom:           resume,
		DryRun:               cfg.Load.DryRun,
		StopOnValidationFail: cfg.Run.StopOnValidationFailure,
		StrictLoad:           cfg.Load.StrictMode,
	})

	reportPath := runReportFile
	if reportPath == "" {
		reportPath = filepath.Join(cfg.OutputDir, "migration_report.json")
	}
	if result.Report != nil {
		if err := validate.WriteReport(result.Report, reportPath); err != nil {
			logging.Error().Err(err).Str("path", reportPath).Msg("Failed to write report")
		} else {
			cmd.Printf("\nReport written to %s\n", reportPath)
		}
	}

	printRunSummary(cmd, result)

	if result.Halted != "" {
		return fmt.Errorf("migration halted at %s stage", result.Halted)
	}
	if result.Report != nil && result.Report.OverallStatus == validate.ReportFailed {
		return fmt.Errorf("migration failed")
	}
	return nil
}

func printRunSummary(cmd *cobra.Command, result *pipeline.Result) {
	cmd.Printf("\nMigration finished in %s\n", result.Duration.Round(time.Second))
	if result.Extraction != nil {
		cmd.Printf("  extracted:   %d entities\n", len(result.Extraction.Files))
	}
	if result.Generation != nil {
		cmd.Printf("  generated:   %d SQL scripts\n", len(result.Generation.Files))
	}
	if result.Transformation != nil {
		cmd.Printf("  transformed: %d files\n", len(result.Transformation.Files))
	}
	if result.Validation != nil {
		cmd.Printf("  validation:  %s (%d/%d passed)\n", result.Validation.OverallStatus,
			result.Validation.Summary.Passed, result.Validation.Summary.Total)
	}
	if result.Load != nil {
		cmd.Printf("  loaded:      %d rows (%d failed)\n",
			result.Load.Summary.TotalLoaded, result.Load.Summary.TotalFailed)
	}
	if result.Report != nil {
		cmd.Printf("  status:      %s\n", result.Report.OverallStatus)
	}
}
