package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Options is the immutable configuration for one conversion run.
type Options struct {
	Root               string
	HierarchySeparator string
	RemoveIndexFiles   bool
	MergeInbox         bool
	IndexFilePatterns  []string
}

// Mapper walks a KMail-style mailbox tree and computes the ordered action
// plan that converts it to Maildir++. It only reads the filesystem.
type Mapper struct {
	fs  afero.Fs
	log logrus.FieldLogger
}

func NewMapper(fs afero.Fs, log logrus.FieldLogger) *Mapper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Mapper{fs: fs, log: log}
}

// BuildPlan scans the tree under opts.Root and returns the complete plan.
// Folders are emitted depth-first, parent before children, so a subfolder's
// target name is always derived after its parent's. A name collision or an
// IO error during the walk fails the whole plan.
func (m *Mapper) BuildPlan(opts Options) (*Plan, error) {
	if opts.HierarchySeparator == "" {
		opts.HierarchySeparator = DefaultHierarchySeparator
	}
	if len(opts.IndexFilePatterns) == 0 {
		opts.IndexFilePatterns = DefaultIndexFilePatterns
	}

	info, err := m.fs.Stat(opts.Root)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", opts.Root, ErrRootNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", opts.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", opts.Root)
	}

	root, err := m.scanRoot(opts)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Root: opts.Root}
	targets := make(map[string]string)
	identity := func(p string) string { return p }
	if err := m.emit(plan, root, opts, targets, identity); err != nil {
		return nil, err
	}
	if opts.MergeInbox {
		m.emitInboxMerge(plan, root, opts)
	}
	return plan, nil
}

// emit appends the actions for one folder and its subtree: the folder's own
// rename, its index file deletions, the children, and finally the cleanup
// of the container directories its children moved out of.
//
// Parents are renamed before their children, and a parent's rename moves
// everything nested inside it. The rebase function translates a scan-time
// path into where that path will actually be once all earlier renames have
// run. Subfolders kept in a sibling container are unaffected and pass
// through unchanged.
func (m *Mapper) emit(plan *Plan, f *Folder, opts Options, targets map[string]string, rebase func(string) string) error {
	home := rebase(f.Path)
	if !f.IsRoot() {
		name := f.TargetName(opts.HierarchySeparator)
		if prev, ok := targets[name]; ok {
			return &CollisionError{Target: name, First: prev, Second: f.Path}
		}
		targets[name] = f.Path

		src := home
		home = f.TargetPath(opts.Root, opts.HierarchySeparator)
		plan.add(Action{Kind: ActionRename, Source: src, Path: home})
		plan.Folders++
	}

	if opts.RemoveIndexFiles {
		// Index files inside the folder move along with it; the deletion
		// targets the post-rename location. Sibling index files stay put.
		for _, idx := range f.IndexFiles {
			plan.add(Action{Kind: ActionDeleteIndexFile, Path: filepath.Join(home, filepath.Base(idx))})
		}
		for _, idx := range f.SiblingIndexFiles {
			plan.add(Action{Kind: ActionDeleteIndexFile, Path: rebase(idx)})
		}
	}

	childRebase := func(p string) string {
		if p == f.Path {
			return home
		}
		if strings.HasPrefix(p, f.Path+string(filepath.Separator)) {
			return filepath.Join(home, p[len(f.Path)+1:])
		}
		return rebase(p)
	}

	for _, child := range f.Children {
		if err := m.emit(plan, child, opts, targets, childRebase); err != nil {
			return err
		}
	}

	for _, c := range f.Containers {
		plan.add(Action{Kind: ActionRemoveDirIfEmpty, Path: childRebase(c)})
	}
	return nil
}

// emitInboxMerge plans the final inbox flattening. KMail keeps the inbox as
// yet another folder, but in Maildir++ the mailbox root is the inbox, so
// the converted inbox's cur/new/tmp are moved up and the emptied directory
// removed.
func (m *Mapper) emitInboxMerge(plan *Plan, root *Folder, opts Options) {
	var inbox *Folder
	for _, child := range root.Children {
		if len(child.Segments) == 1 && child.Name() == inboxName {
			inbox = child
			break
		}
	}
	if inbox == nil {
		m.log.Warnf("no %s folder under %s, skipping inbox merge", inboxName, opts.Root)
		return
	}

	converted := inbox.TargetPath(opts.Root, opts.HierarchySeparator)
	for _, sub := range maildirSpecialDirs {
		plan.add(Action{
			Kind:   ActionRename,
			Source: filepath.Join(converted, sub),
			Path:   filepath.Join(opts.Root, sub),
		})
	}
	plan.add(Action{Kind: ActionRemoveDirIfEmpty, Path: converted})
}

func (m *Mapper) scanRoot(opts Options) (*Folder, error) {
	root := &Folder{Path: opts.Root}
	var err error
	if root.IndexFiles, err = m.indexFiles(opts.Root, opts.IndexFilePatterns); err != nil {
		return nil, err
	}
	if root.Children, root.Containers, err = m.scanLevel(opts.Root, nil, opts); err != nil {
		return nil, err
	}
	return root, nil
}

// scanLevel finds the mail folders one directory holds. A folder is any
// non-hidden directory with all of cur/new/tmp. Its subfolders may be
// nested directly inside it or kept in KMail's sibling ".<name>.directory"
// container; both are claimed as children. Containers whose folder no
// longer exists are walked too, so orphaned subtrees still convert.
func (m *Mapper) scanLevel(dir string, segments []string, opts Options) ([]*Folder, []string, error) {
	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read folder %s: %w", dir, err)
	}

	var folders []*Folder
	var containers []string
	claimed := make(map[string]bool)

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), hiddenPrefix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ok, err := m.isMaildir(path)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			m.log.Debugf("skipping %s: not a maildir", path)
			continue
		}

		f := &Folder{Path: path, Segments: appendSegment(segments, entry.Name())}
		if f.IndexFiles, err = m.indexFiles(path, opts.IndexFilePatterns); err != nil {
			return nil, nil, err
		}
		if f.SiblingIndexFiles, err = m.siblingIndexFiles(dir, entry.Name()); err != nil {
			return nil, nil, err
		}

		kids, kidContainers, err := m.scanLevel(path, f.Segments, opts)
		if err != nil {
			return nil, nil, err
		}

		container := filepath.Join(dir, containerName(entry.Name()))
		if ok, err := afero.DirExists(m.fs, container); err != nil {
			return nil, nil, fmt.Errorf("stat %s: %w", container, err)
		} else if ok {
			claimed[containerName(entry.Name())] = true
			ckids, ccontainers, err := m.scanLevel(container, f.Segments, opts)
			if err != nil {
				return nil, nil, err
			}
			kids = append(kids, ckids...)
			kidContainers = append(kidContainers, ccontainers...)
			kidContainers = append(kidContainers, container)
		}

		f.Children = kids
		f.Containers = kidContainers
		folders = append(folders, f)
	}

	for _, entry := range entries {
		if !entry.IsDir() || claimed[entry.Name()] {
			continue
		}
		base, ok := containerBase(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		kids, kidContainers, err := m.scanLevel(path, appendSegment(segments, base), opts)
		if err != nil {
			return nil, nil, err
		}
		folders = append(folders, kids...)
		containers = append(containers, kidContainers...)
		containers = append(containers, path)
	}

	return folders, containers, nil
}

func (m *Mapper) isMaildir(dir string) (bool, error) {
	for _, sub := range maildirSpecialDirs {
		ok, err := afero.DirExists(m.fs, filepath.Join(dir, sub))
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", filepath.Join(dir, sub), err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// indexFiles returns the files inside dir matching the configured index
// file patterns.
func (m *Mapper) indexFiles(dir string, patterns []string) ([]string, error) {
	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, pattern := range patterns {
			ok, err := filepath.Match(pattern, entry.Name())
			if err != nil {
				return nil, fmt.Errorf("index file pattern %q: %w", pattern, err)
			}
			if ok {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	return files, nil
}

// siblingIndexFiles returns KMail's ".<name>.index*" files stored next to
// the folder rather than inside it.
func (m *Mapper) siblingIndexFiles(dir, folder string) ([]string, error) {
	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}
	prefix := hiddenPrefix + folder + ".index"
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

func appendSegment(segments []string, name string) []string {
	out := make([]string, 0, len(segments)+1)
	out = append(out, segments...)
	return append(out, name)
}
