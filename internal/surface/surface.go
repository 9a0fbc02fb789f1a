// Package surface is the contract between the booking core and whatever
// drives the real browser. Every method is a single, non-waiting round trip:
// retrying and deadlines belong to the caller.
package surface

import (
	"context"
	"errors"

	"github.com/v0xg/teetime/internal/locator"
)

// Element is an engine-specific handle to a matched node. Handles may go
// stale when the page re-renders; callers re-find rather than cache them.
type Element any

var (
	// ErrDetached is returned when an element no longer exists in the
	// document (removed or replaced between find and use).
	ErrDetached = errors.New("element detached from document")

	// ErrNotInteractable is returned when the engine refuses an action on an
	// element it can see (disabled, covered, zero-size at action time).
	ErrNotInteractable = errors.New("element not interactable")
)

// Surface drives one browser page.
type Surface interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Find returns the first element matching loc, or nil when nothing
	// matches right now.
	Find(ctx context.Context, loc locator.Locator) (Element, error)

	// Visible reports whether el is rendered with a non-empty box.
	Visible(ctx context.Context, el Element) (bool, error)

	// Clickable reports whether el is visible, enabled and would receive a
	// pointer event at its center.
	Clickable(ctx context.Context, el Element) (bool, error)

	Hover(ctx context.Context, el Element) error
	Click(ctx context.Context, el Element) error

	// TypeText replaces the content of an input element with text.
	TypeText(ctx context.Context, el Element, text string) error

	ReadText(ctx context.Context, el Element) (string, error)
	CurrentURL(ctx context.Context) (string, error)

	// Screenshot returns the visible viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close shuts the browser down.
	Close() error
}
