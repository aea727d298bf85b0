package fsaction

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/kmail2maildir/pkg/convert"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func mkMaildir(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	for _, sub := range []string{"cur", "new", "tmp"} {
		require.NoError(t, fs.MkdirAll(filepath.Join(path, sub), 0o755))
	}
}

// snapshot collects every path in the filesystem so before/after states can
// be compared.
func snapshot(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	var paths []string
	err := afero.Walk(fs, "/", func(path string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(paths)
	return paths
}

func TestRunRename(t *testing.T) {
	fs := afero.NewMemMapFs()
	mkMaildir(t, fs, "/mail/Work")

	var out bytes.Buffer
	executor := New(fs, Options{Out: &out, Logger: testLogger()})

	plan := &convert.Plan{Root: "/mail", Actions: []convert.Action{
		{Kind: convert.ActionRename, Source: "/mail/Work", Path: "/mail/.Work"},
	}}
	report, err := executor.Run(plan)
	require.NoError(t, err)

	ok, err := afero.DirExists(fs, "/mail/.Work/cur")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = afero.DirExists(fs, "/mail/Work")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, report.Renamed)
	assert.Contains(t, out.String(), "rename /mail/Work -> /mail/.Work")
}

func TestDryRunDoesNotMutate(t *testing.T) {
	fs := afero.NewMemMapFs()
	mkMaildir(t, fs, "/mail/Work")
	require.NoError(t, afero.WriteFile(fs, "/mail/Work/.kmail-index", []byte("x"), 0o644))

	before := snapshot(t, fs)

	var out bytes.Buffer
	executor := New(fs, Options{DryRun: true, Out: &out, Logger: testLogger()})
	plan := &convert.Plan{Root: "/mail", Actions: []convert.Action{
		{Kind: convert.ActionRename, Source: "/mail/Work", Path: "/mail/.Work"},
		{Kind: convert.ActionDeleteIndexFile, Path: "/mail/.Work/.kmail-index"},
		{Kind: convert.ActionRemoveDirIfEmpty, Path: "/mail/.Work.directory"},
	}}
	report, err := executor.Run(plan)
	require.NoError(t, err)

	assert.Equal(t, before, snapshot(t, fs))
	assert.True(t, report.DryRun)
	assert.Contains(t, out.String(), "would rename /mail/Work -> /mail/.Work")
	assert.Contains(t, out.String(), "would remove /mail/.Work/.kmail-index")
}

func TestRenameRefusesExistingDestination(t *testing.T) {
	for _, dryRun := range []bool{false, true} {
		fs := afero.NewMemMapFs()
		mkMaildir(t, fs, "/mail/Work")
		mkMaildir(t, fs, "/mail/.Work")

		executor := New(fs, Options{DryRun: dryRun, Out: &bytes.Buffer{}, Logger: testLogger()})
		err := executor.Apply(convert.Action{
			Kind: convert.ActionRename, Source: "/mail/Work", Path: "/mail/.Work",
		}, convert.NewReport("/mail", dryRun))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	}
}

func TestDeleteIndexFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	mkMaildir(t, fs, "/mail/.Work")
	require.NoError(t, afero.WriteFile(fs, "/mail/.Work/.kmail-index", []byte("x"), 0o644))

	executor := New(fs, Options{Out: &bytes.Buffer{}, Logger: testLogger()})
	report := convert.NewReport("/mail", false)
	err := executor.Apply(convert.Action{Kind: convert.ActionDeleteIndexFile, Path: "/mail/.Work/.kmail-index"}, report)
	require.NoError(t, err)

	ok, err := afero.Exists(fs, "/mail/.Work/.kmail-index")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, report.IndexFilesRemoved)
}

func TestDeleteIndexFileAlreadyAbsent(t *testing.T) {
	fs := afero.NewMemMapFs()
	mkMaildir(t, fs, "/mail/.Work")

	executor := New(fs, Options{Out: &bytes.Buffer{}, Logger: testLogger()})
	report := convert.NewReport("/mail", false)
	err := executor.Apply(convert.Action{Kind: convert.ActionDeleteIndexFile, Path: "/mail/.Work/.kmail-index"}, report)
	require.NoError(t, err)
	assert.Equal(t, 1, report.IndexFilesAbsent)
	assert.Equal(t, 0, report.IndexFilesRemoved)
}

func TestRemoveDirIfEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/mail/.Work.directory", 0o755))

	executor := New(fs, Options{Out: &bytes.Buffer{}, Logger: testLogger()})
	report := convert.NewReport("/mail", false)
	err := executor.Apply(convert.Action{Kind: convert.ActionRemoveDirIfEmpty, Path: "/mail/.Work.directory"}, report)
	require.NoError(t, err)

	ok, err := afero.DirExists(fs, "/mail/.Work.directory")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, report.DirsRemoved)
}

func TestRemoveDirIfEmptyKeepsNonEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mail/.Work.directory/.Projects.index", []byte("x"), 0o644))

	executor := New(fs, Options{Out: &bytes.Buffer{}, Logger: testLogger()})
	report := convert.NewReport("/mail", false)
	err := executor.Apply(convert.Action{Kind: convert.ActionRemoveDirIfEmpty, Path: "/mail/.Work.directory"}, report)
	require.NoError(t, err)

	ok, err := afero.DirExists(fs, "/mail/.Work.directory")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, report.DirsSkipped)
	assert.Equal(t, 0, report.DirsRemoved)
}

func TestCheckRejectsExistingDestination(t *testing.T) {
	fs := afero.NewMemMapFs()
	mkMaildir(t, fs, "/mail/Work")
	mkMaildir(t, fs, "/mail/.Work")

	executor := New(fs, Options{Out: &bytes.Buffer{}, Logger: testLogger()})
	plan := &convert.Plan{Root: "/mail", Actions: []convert.Action{
		{Kind: convert.ActionRename, Source: "/mail/Work", Path: "/mail/.Work"},
	}}
	err := executor.Check(plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/mail/.Work")
	assert.Contains(t, err.Error(), "already exists")

	// the check itself must not have moved anything
	ok, err := afero.DirExists(fs, "/mail/Work")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	mkMaildir(t, fs, "/mail/Work")
	mkMaildir(t, fs, "/mail/Other")
	mkMaildir(t, fs, "/mail/.Other")

	executor := New(fs, Options{Out: &bytes.Buffer{}, Logger: testLogger()})
	plan := &convert.Plan{Root: "/mail", Actions: []convert.Action{
		{Kind: convert.ActionRename, Source: "/mail/Work", Path: "/mail/.Work"},
		{Kind: convert.ActionRename, Source: "/mail/Other", Path: "/mail/.Other"},
	}}
	report, err := executor.Run(plan)
	require.Error(t, err)

	// the first rename stays applied, there is no rollback
	ok, derr := afero.DirExists(fs, "/mail/.Work")
	require.NoError(t, derr)
	assert.True(t, ok)
	assert.Equal(t, 1, report.Renamed)
}
