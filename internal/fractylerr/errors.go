// Package fractylerr defines the error kinds surfaced at the CLI boundary.
//
// The teacher repo panics on storage faults it considers unreachable and
// returns bare errors everywhere else. Fractyl's CLI boundary must print a
// one-line, category-tagged message and exit non-zero without a stack trace
// (spec §7), so callers need to classify an error with errors.Is/errors.As
// rather than pattern-match a panic message. Internal invariant violations
// that only fractyl's own code could trigger (a corrupt index it just wrote
// itself, for instance) still panic, in the teacher's style.
package fractylerr

import (
	"errors"
	"fmt"
)

// Kind tags one of the error categories from spec §7.
type Kind string

const (
	KindNotARepo    Kind = "NotARepo"
	KindBusy        Kind = "Busy"
	KindCorrupt     Kind = "Corrupt"
	KindNotFound    Kind = "NotFound"
	KindAmbiguous   Kind = "Ambiguous"
	KindIO          Kind = "IO"
	KindBadArgument Kind = "BadArgument"
)

// Error is a classified, user-presentable error.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, fractylerr.New(fractylerr.KindBusy, "")) match any
// *Error of the same Kind, whatever its message; see IsKind below for the
// common case.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotARepo builds a KindNotARepo error for the given starting directory.
func NotARepo(dir string) *Error {
	return New(KindNotARepo, fmt.Sprintf("not a fractyl repository (searched upward from %s)", dir))
}

// Busy builds a KindBusy error naming the holder's PID.
func Busy(pid int) *Error {
	return &Error{Kind: KindBusy, Message: fmt.Sprintf("repository lock held by pid %d", pid)}
}

// HolderPID extracts the holder PID recorded by Busy, if any.
func HolderPID(err error) (int, bool) {
	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != KindBusy {
		return 0, false
	}
	var pid int
	_, scanErr := fmt.Sscanf(fe.Message, "repository lock held by pid %d", &pid)
	return pid, scanErr == nil
}

// IsKind reports whether err (or anything it wraps) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == kind
}

// ExitCode maps an error to the process exit status the CLI boundary
// reports (spec §6: exit 0 on success, non-zero on failure). Kind-specific
// codes let scripts distinguish "locked, retry later" from "bad input"
// without scraping stderr text; an unclassified error (should not happen
// outside this package's own boundary) gets a generic failure code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var fe *Error
	if !errors.As(err, &fe) {
		return 1
	}
	switch fe.Kind {
	case KindNotARepo:
		return 2
	case KindBusy:
		return 3
	case KindNotFound:
		return 4
	case KindAmbiguous:
		return 5
	case KindCorrupt:
		return 6
	case KindBadArgument:
		return 7
	default:
		return 1
	}
}
