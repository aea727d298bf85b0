//go:build integration
// +build integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mattsolo1/kmail2maildir/cmd"
)

// TestIntegration converts a realistic KMail tree end to end, including
// message files, and checks the resulting Maildir++ layout.
func TestIntegration(t *testing.T) {
	// Skip if not running integration tests
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=1 to run.")
	}

	root := t.TempDir()

	folders := []string{
		"inbox",
		"Work",
		".Work.directory/Projects",
		".Work.directory/.Projects.directory/2024",
		"Archive",
	}
	for _, folder := range folders {
		for _, sub := range []string{"cur", "new", "tmp"} {
			if err := os.MkdirAll(filepath.Join(root, folder, sub), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
		}
	}

	msg := filepath.Join(root, "Work", "cur", "1695000000.M1P1.host:2,S")
	if err := os.WriteFile(msg, []byte("Subject: hi\r\n\r\nhello"), 0o644); err != nil {
		t.Fatalf("write message: %v", err)
	}
	idx := filepath.Join(root, ".Work.directory", ".Projects.index")
	if err := os.WriteFile(idx, []byte("idx"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	t.Run("DryRun", func(t *testing.T) {
		c := cmd.NewRootCmd()
		c.SetArgs([]string{"--dry-run", "--remove-index-files", root})
		if err := c.Execute(); err != nil {
			t.Fatalf("dry run failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "Work")); err != nil {
			t.Fatalf("dry run moved folders: %v", err)
		}
	})

	t.Run("Convert", func(t *testing.T) {
		c := cmd.NewRootCmd()
		c.SetArgs([]string{"--remove-index-files", "--verify", root})
		if err := c.Execute(); err != nil {
			t.Fatalf("conversion failed: %v", err)
		}

		for _, want := range []string{
			"cur", "new", "tmp",
			".Work", ".Work.Projects", ".Work.Projects.2024", ".Archive",
		} {
			if _, err := os.Stat(filepath.Join(root, want)); err != nil {
				t.Errorf("expected %s to exist: %v", want, err)
			}
		}

		moved := filepath.Join(root, ".Work", "cur", "1695000000.M1P1.host:2,S")
		if _, err := os.Stat(moved); err != nil {
			t.Errorf("message did not move with its folder: %v", err)
		}
		if _, err := os.Stat(idx); !os.IsNotExist(err) {
			t.Errorf("index file survived conversion")
		}
	})
}
