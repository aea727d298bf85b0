package convert

import (
	"path/filepath"
	"strings"
)

const (
	// DefaultHierarchySeparator is the Maildir++ separator used by dovecot.
	// Courier's documentation is vague on this; dovecot's "." is the common
	// choice, so it is the default here.
	DefaultHierarchySeparator = "."

	hiddenPrefix    = "."
	containerPrefix = "."
	containerSuffix = ".directory"
	inboxName       = "inbox"
)

// DefaultIndexFilePatterns match KMail cache files kept inside a mail
// folder directory. Sibling ".<name>.index*" files are always recognized
// and need no pattern.
var DefaultIndexFilePatterns = []string{".kmail-index*"}

// maildirSpecialDirs are the subdirectories every maildir must have.
var maildirSpecialDirs = []string{"cur", "new", "tmp"}

// Folder is one mail folder of the source tree. Segments holds its
// logical path relative to the mailbox root, with KMail's container
// decoration (".<name>.directory") already stripped. The root itself is
// a Folder with no segments.
type Folder struct {
	Path              string
	Segments          []string
	IndexFiles        []string // index files inside the folder directory
	SiblingIndexFiles []string // ".<name>.index*" files next to the folder
	Containers        []string // container dirs emptied by converting this subtree
	Children          []*Folder
}

// IsRoot reports whether f is the mailbox root. The root is never renamed.
func (f *Folder) IsRoot() bool {
	return len(f.Segments) == 0
}

// Name returns the folder's own name, or "" for the root.
func (f *Folder) Name() string {
	if f.IsRoot() {
		return ""
	}
	return f.Segments[len(f.Segments)-1]
}

// TargetName computes the Maildir++ directory name for the folder: the
// separator joining all segments, with a leading separator ("Work/Projects"
// becomes ".Work.Projects").
func (f *Folder) TargetName(sep string) string {
	return sep + strings.Join(f.Segments, sep)
}

// TargetPath is the full destination path, a direct sibling of the other
// converted folders under root.
func (f *Folder) TargetPath(root, sep string) string {
	return filepath.Join(root, f.TargetName(sep))
}

// containerName returns the KMail container directory name holding the
// subfolders of a folder ("Work" -> ".Work.directory").
func containerName(folder string) string {
	return containerPrefix + folder + containerSuffix
}

// containerBase extracts the folder name a container directory belongs to.
// It returns false for names that are not container names.
func containerBase(name string) (string, bool) {
	if !strings.HasPrefix(name, containerPrefix) || !strings.HasSuffix(name, containerSuffix) {
		return "", false
	}
	base := name[len(containerPrefix) : len(name)-len(containerSuffix)]
	if base == "" {
		return "", false
	}
	return base, true
}
