package interact

import (
	"errors"
	"fmt"
	"time"

	"github.com/v0xg/teetime/internal/locator"
)

// Kind tags why a resolve or action failed, so callers pick soft or hard
// handling per case.
type Kind int

const (
	// KindNotFound: the surface reported the element structurally absent,
	// e.g. detached between lookup and use.
	KindNotFound Kind = iota + 1
	// KindTimeout: the wanted condition never held within the deadline.
	KindTimeout
	// KindNotInteractable: the element exists but the surface refused the action.
	KindNotInteractable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindTimeout:
		return "timeout"
	case KindNotInteractable:
		return "not interactable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every Poller operation that gives up on a locator.
type Error struct {
	Kind     Kind
	Op       string
	Locator  locator.Locator
	Deadline time.Duration
	URL      string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Kind, e.Locator)
	if e.Kind == KindTimeout {
		msg += fmt.Sprintf(" within %s", e.Deadline)
	}
	if e.URL != "" {
		msg += " (url " + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func kindOf(err error) (Kind, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return 0, false
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTimeout
}

// IsNotFound reports whether err is a structural absence.
func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

// IsAbsent reports whether err means the element cannot be used at all:
// structurally absent or refusing interaction. Timeouts are not absence.
func IsAbsent(err error) bool {
	k, ok := kindOf(err)
	return ok && (k == KindNotFound || k == KindNotInteractable)
}
