package convert

import (
	"time"
)

// Report summarizes what a conversion run did (or, under dry-run, what it
// would have done).
type Report struct {
	Root              string    `yaml:"root"`
	DryRun            bool      `yaml:"dry_run"`
	Renamed           int       `yaml:"renamed"`
	IndexFilesRemoved int       `yaml:"index_files_removed"`
	IndexFilesAbsent  int       `yaml:"index_files_absent"`
	DirsRemoved       int       `yaml:"dirs_removed"`
	DirsSkipped       int       `yaml:"dirs_skipped"`
	StartTime         time.Time `yaml:"started"`
	EndTime           time.Time `yaml:"finished"`
}

func NewReport(root string, dryRun bool) *Report {
	return &Report{
		Root:      root,
		DryRun:    dryRun,
		StartTime: time.Now(),
	}
}

func (r *Report) Complete() {
	r.EndTime = time.Now()
}

func (r *Report) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
