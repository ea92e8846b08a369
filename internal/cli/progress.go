//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/load"
)

// stageProgress returns a ProgressFunc that renders stage progress as a
// terminal progress bar. The bar is created lazily on the first call so
// the total reported by the engine is honored.
func stageProgress() extract.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(stage string, current, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetWidth(30),
				progressbar.OptionShowCount(),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}
		bar.Describe(stage)
		_ = bar.Set(current)
	}
}

// loadProgress adapts the loader's per-table progress callbacks to the
// same terminal bar.
func loadProgress() load.ProgressFunc {
	bar := stageProgress()
	return func(table string, current, total int, status string) {
		bar(fmt.Sprintf("%s (%s)", table, status), current, total)
	}
}
