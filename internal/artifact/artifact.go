// Package artifact holds what the generated-artifact modules share: the
// project ownership check and the mapping from errors to HTTP replies.
package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/idem-lexis/lexis-api/internal/projects/domain"
)

var (
	// ErrNotFound is returned when a project has no artifact of the requested kind yet.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalid marks a request the caller must fix.
	ErrInvalid = errors.New("invalid request")
	// ErrUnprocessable marks a well-formed request the server cannot act on.
	ErrUnprocessable = errors.New("unprocessable request")
	// ErrUpstream marks a failure of an external service such as GitHub or AWS.
	ErrUpstream = errors.New("upstream service failed")
)

// Projects resolves a project owned by the caller.
type Projects interface {
	Get(ctx context.Context, userID, projectID string) (*domain.Project, error)
}

// NotFound wraps ErrNotFound with the artifact kind.
func NotFound(kind string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, kind)
}

// Invalid wraps ErrInvalid with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
