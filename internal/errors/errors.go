// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrRepoNotFound is returned when the GitHub API reports a repository as
// missing (deleted or renamed upstream). It is terminal: callers must not retry.
type ErrRepoNotFound struct {
	FullName string
}

func (e *ErrRepoNotFound) Error() string {
	return fmt.Sprintf("repository not found on GitHub: %s", e.FullName)
}

// IsNotFound reports whether err wraps an ErrRepoNotFound.
func IsNotFound(err error) bool {
	var nf *ErrRepoNotFound
	return errors.As(err, &nf)
}

// ErrInvalidRepoFormat is returned when a repository identifier is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}
