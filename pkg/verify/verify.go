// Package verify checks a converted mailbox for structural sanity: the
// root and every converted folder must be a readable maildir. It runs
// against the real filesystem after a conversion and never modifies
// anything.
package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-maildir"
	"github.com/sirupsen/logrus"
)

var specialDirs = []string{"cur", "new", "tmp"}

// Result summarizes a post-conversion structure check.
type Result struct {
	Folders  int      `yaml:"folders"`
	Messages int      `yaml:"messages"`
	Problems []string `yaml:"problems,omitempty"`
}

// OK reports whether every checked folder was a valid maildir.
func (r *Result) OK() bool {
	return len(r.Problems) == 0
}

// Mailbox checks the mailbox root and every directory whose name starts
// with the hierarchy separator, which is where converted folders end up.
func Mailbox(root, sep string, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if sep == "" {
		sep = "."
	}

	res := &Result{}
	checkFolder(root, res, log)

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read mailbox root %s: %w", root, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), sep) {
			continue
		}
		checkFolder(filepath.Join(root, entry.Name()), res, log)
	}
	return res, nil
}

func checkFolder(path string, res *Result, log logrus.FieldLogger) {
	res.Folders++

	for _, sub := range specialDirs {
		info, err := os.Stat(filepath.Join(path, sub))
		if err != nil || !info.IsDir() {
			res.Problems = append(res.Problems, fmt.Sprintf("%s: missing %s directory", path, sub))
			return
		}
	}

	// Messages() only lists cur; count new separately so unread mail is
	// included without moving it the way Unseen() would.
	dir := maildir.Dir(path)
	msgs, err := dir.Messages()
	if err != nil {
		res.Problems = append(res.Problems, fmt.Sprintf("%s: %v", path, err))
		return
	}
	res.Messages += len(msgs)

	newEntries, err := os.ReadDir(filepath.Join(path, "new"))
	if err != nil {
		res.Problems = append(res.Problems, fmt.Sprintf("%s: %v", path, err))
		return
	}
	for _, entry := range newEntries {
		if !entry.IsDir() {
			res.Messages++
		}
	}

	log.Debugf("verified %s", path)
}
