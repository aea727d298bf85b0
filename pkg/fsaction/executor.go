// Package fsaction performs the filesystem mutations a conversion plan
// describes. It is the only part of the program that writes to disk, and
// under dry-run it writes nothing at all.
package fsaction

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/mattsolo1/kmail2maildir/pkg/convert"
)

// Options configures an Executor.
type Options struct {
	DryRun bool
	Quiet  bool
	Out    io.Writer
	Logger logrus.FieldLogger
}

// Executor applies plan actions one at a time against the injected
// filesystem. There is no rollback: when an action fails, everything
// executed before it stays in place.
type Executor struct {
	fs   afero.Fs
	opts Options
}

func New(fs afero.Fs, opts Options) *Executor {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Executor{fs: fs, opts: opts}
}

// Check validates a plan against the current filesystem state without
// mutating anything: no rename destination may already exist. Run before a
// real conversion so a doomed run aborts before the first rename instead
// of stopping halfway through.
func (e *Executor) Check(plan *convert.Plan) error {
	for _, a := range plan.Actions {
		if a.Kind != convert.ActionRename {
			continue
		}
		ok, err := afero.Exists(e.fs, a.Path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", a.Path, err)
		}
		if ok {
			return fmt.Errorf("destination %s already exists", a.Path)
		}
	}
	return nil
}

// Run applies the whole plan in order and returns the report. The report
// is returned even on failure so the caller can see how far the run got.
func (e *Executor) Run(plan *convert.Plan) (*convert.Report, error) {
	report := convert.NewReport(plan.Root, e.opts.DryRun)
	for _, a := range plan.Actions {
		if err := e.Apply(a, report); err != nil {
			report.Complete()
			return report, err
		}
	}
	report.Complete()
	return report, nil
}

// Apply executes (or, under dry-run, describes) a single action.
func (e *Executor) Apply(a convert.Action, report *convert.Report) error {
	switch a.Kind {
	case convert.ActionRename:
		return e.rename(a.Source, a.Path, report)
	case convert.ActionDeleteIndexFile:
		return e.deleteIndexFile(a.Path, report)
	case convert.ActionRemoveDirIfEmpty:
		return e.removeDirIfEmpty(a.Path, report)
	default:
		return fmt.Errorf("unknown action kind %d", a.Kind)
	}
}

// rename refuses an existing destination even under dry-run, so a dry run
// reports the same conflicts a real run would hit.
func (e *Executor) rename(src, dst string, report *convert.Report) error {
	ok, err := afero.Exists(e.fs, dst)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dst, err)
	}
	if ok {
		return fmt.Errorf("destination %s already exists", dst)
	}
	return e.run(fmt.Sprintf("rename %s -> %s", src, dst), func() error {
		if err := e.fs.Rename(src, dst); err != nil {
			return fmt.Errorf("rename %s -> %s: %w", src, dst, err)
		}
		report.Renamed++
		return nil
	}, func() { report.Renamed++ })
}

// deleteIndexFile treats an already-absent file as satisfied: the point of
// the action is that the file be gone.
func (e *Executor) deleteIndexFile(path string, report *convert.Report) error {
	return e.run(fmt.Sprintf("remove %s", path), func() error {
		err := e.fs.Remove(path)
		if os.IsNotExist(err) {
			e.opts.Logger.Warnf("index file %s already absent", path)
			report.IndexFilesAbsent++
			return nil
		}
		if err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		report.IndexFilesRemoved++
		return nil
	}, func() { report.IndexFilesRemoved++ })
}

// removeDirIfEmpty skips directories that still hold anything, for example
// containers whose index files were kept.
func (e *Executor) removeDirIfEmpty(path string, report *convert.Report) error {
	return e.run(fmt.Sprintf("remove folder %s", path), func() error {
		entries, err := afero.ReadDir(e.fs, path)
		if os.IsNotExist(err) {
			e.opts.Logger.Warnf("folder %s already absent", path)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read folder %s: %w", path, err)
		}
		if len(entries) > 0 {
			e.opts.Logger.Debugf("keeping non-empty folder %s", path)
			report.DirsSkipped++
			return nil
		}
		if err := e.fs.Remove(path); err != nil {
			return fmt.Errorf("remove folder %s: %w", path, err)
		}
		report.DirsRemoved++
		return nil
	}, func() { report.DirsRemoved++ })
}

// run prints the action and either performs it or, under dry-run, stops
// after announcing what would happen.
func (e *Executor) run(msg string, fn func() error, dry func()) error {
	if e.opts.DryRun {
		e.say("would " + msg)
		dry()
		return nil
	}
	e.say(msg)
	return fn()
}

func (e *Executor) say(msg string) {
	if e.opts.Quiet {
		return
	}
	fmt.Fprintln(e.opts.Out, msg)
}
