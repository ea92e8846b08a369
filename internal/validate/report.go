//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package validate

import (
	"encoding/json"
	"os"
	"time"

	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/load"
	"github.com/jeenops/db-migrator/internal/transform"
)

// Overall report statuses.
const (
	ReportSuccess = "success"
	ReportPartial = "partial"
	ReportFailed  = "failed"
)

// StageReport summarizes one pipeline stage for the final report.
type StageReport struct {
	Timestamp string         `json:"timestamp,omitempty"`
	Tables    map[string]int `json:"tables,omitempty"`
	Errors    []string       `json:"errors,omitempty"`
}

// LoadTableReport is one table's load outcome in the final report.
type LoadTableReport struct {
	Loaded int    `json:"loaded"`
	Failed int    `json:"failed"`
	Status string `json:"status"`
}

// LoadReport summarizes the load stage for the final report.
type LoadReport struct {
	Timestamp string                     `json:"timestamp,omitempty"`
	DryRun    bool                       `json:"dry_run"`
	Tables    map[string]LoadTableReport `json:"tables,omitempty"`
	Summary   load.Summary               `json:"summary"`
	Errors    []string                   `json:"errors,omitempty"`
}

// Report is the cross-stage migration report. It is always produced,
// even on partial failure, and states which stages ran with what counts
// and errors.
type Report struct {
	GeneratedAt     string       `json:"generated_at"`
	DurationSeconds float64      `json:"duration_seconds,omitempty"`
	Extraction      *StageReport `json:"extraction,omitempty"`
	Transformation  *StageReport `json:"transformation,omitempty"`
	Validation      *Result      `json:"validation,omitempty"`
	Load            *LoadReport  `json:"load,omitempty"`
	OverallStatus   string       `json:"overall_status"`
}

// BuildReport aggregates stage results into one migration report. Any nil
// stage is reported as not run.
func BuildReport(extraction *extract.Result, transformation *transform.Result, validation *Result, loadResult *load.Result, duration time.Duration) *Report {
	report := &Report{
		GeneratedAt:   time.Now().Format("2006-01-02T15:04:05.999999"),
		Validation:    validation,
		OverallStatus: ReportSuccess,
	}
	if duration > 0 {
		report.DurationSeconds = duration.Seconds()
	}

	if extraction != nil {
		report.Extraction = &StageReport{
			Timestamp: extraction.Timestamp,
			Tables:    extraction.Summary,
			Errors:    extraction.Errors,
		}
	}
	if transformation != nil {
		report.Transformation = &StageReport{
			Timestamp: transformation.Timestamp,
			Tables:    transformation.Summary,
			Errors:    transformation.Errors,
		}
	}
	if loadResult != nil {
		lr := &LoadReport{
			Timestamp: loadResult.Timestamp,
			DryRun:    loadResult.DryRun,
			Tables:    map[string]LoadTableReport{},
			Summary:   loadResult.Summary,
			Errors:    loadResult.Errors,
		}
		for name, t := range loadResult.Tables {
			lr.Tables[name] = LoadTableReport{
				Loaded: t.RowsLoaded,
				Failed: t.RowsFailed,
				Status: t.Status,
			}
		}
		report.Load = lr
	}

	switch {
	case extraction != nil && len(extraction.Errors) > 0:
		report.OverallStatus = ReportFailed
	case transformation != nil && len(transformation.Errors) > 0:
		report.OverallStatus = ReportFailed
	case validation != nil && validation.OverallStatus == StatusFail:
		report.OverallStatus = ReportFailed
	case loadResult != nil && len(loadResult.Errors) > 0:
		report.OverallStatus = ReportPartial
	}

	return report
}

// WriteReport saves the report as indented JSON.
func WriteReport(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
