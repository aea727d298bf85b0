package convert

import (
	"errors"
	"fmt"
)

// ErrRootNotFound is returned when the mailbox root passed on the command
// line does not exist.
var ErrRootNotFound = errors.New("mailbox root not found")

// CollisionError is returned when two distinct source folders map to the
// same Maildir++ name under the chosen separator. It is detected while the
// plan is built, before anything touches the filesystem.
type CollisionError struct {
	Target string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("folders %s and %s both map to %s", e.First, e.Second, e.Target)
}
