// pkg/maple/errors.go
package maple

import "errors"

// Error kinds returned by tree operations. These mirror the walker's
// internal error slot (see Walker.err) but are always what callers see.
var (
	ErrInvalidArgument = errors.New("maple: invalid argument")
	ErrAlreadyExists   = errors.New("maple: range already populated")
	ErrOutOfMemory     = errors.New("maple: out of memory")
	ErrBusy            = errors.New("maple: no fit")
	ErrNotFound        = errors.New("maple: not found")
	ErrClosed          = errors.New("maple: tree destroyed")
)

// errTreeCorrupt marks an ascent that reached a state the design notes call
// a violated invariant (the source's unspecified printk/FIXME path). No
// code path returns or panics with it at present, and no test refers to
// it.
var errTreeCorrupt = errors.New("maple: invariant violated during ascent")
