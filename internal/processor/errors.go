package processor

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Per-file error classes. They never abort a batch: the scheduler records
// them against the file and moves on.
var (
	ErrDecode      = errors.New("decode error")
	ErrIO          = errors.New("io error")
	ErrConvergence = errors.New("convergence error")
)

// ConvergenceError reports a file that was still over the size limit after
// the last pass that was run. Path is the file as that pass left it, or the
// untouched source when Passes is zero.
type ConvergenceError struct {
	Path   string
	Passes int
	Size   int64
	Limit  int64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s: still %s after %d passes (limit %s)",
		e.Path, humanize.IBytes(uint64(e.Size)), e.Passes, humanize.IBytes(uint64(e.Limit)))
}

// Unwrap makes errors.Is(err, ErrConvergence) hold.
func (e *ConvergenceError) Unwrap() error {
	return ErrConvergence
}
