// Package interact resolves locators against a surface.Surface under a
// per-call deadline. Each call either succeeds or fails deterministically:
// the only retrying in the whole tool happens inside these poll loops.
package interact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/v0xg/teetime/internal/locator"
	"github.com/v0xg/teetime/internal/surface"
)

// DefaultInterval is the fixed delay between two checks of the page.
const DefaultInterval = 100 * time.Millisecond

// Poller runs bounded poll loops against one surface.
type Poller struct {
	s        surface.Surface
	log      *zap.Logger
	interval time.Duration
	// failLevel is the level used to report a failed resolve.
	failLevel zapcore.Level
}

// New returns a Poller checking s every interval (DefaultInterval if <= 0).
func New(s surface.Surface, log *zap.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{s: s, log: log, interval: interval, failLevel: zapcore.ErrorLevel}
}

// Quiet returns a Poller on the same surface that reports failures at debug
// level. Use it for probes whose failure is an expected outcome.
func (p *Poller) Quiet() *Poller {
	q := *p
	q.failLevel = zapcore.DebugLevel
	return &q
}

type condition func(ctx context.Context, el surface.Element) (bool, error)

// Resolve polls until an element matching loc is visible.
func (p *Poller) Resolve(ctx context.Context, loc locator.Locator, deadline time.Duration) (surface.Element, error) {
	return p.wait(ctx, "resolve", loc, time.Now(), deadline, p.s.Visible)
}

// MoveTo resolves loc and moves the pointer over it, for hover-revealed UI.
func (p *Poller) MoveTo(ctx context.Context, loc locator.Locator, deadline time.Duration) (surface.Element, error) {
	el, err := p.Resolve(ctx, loc, deadline)
	if err != nil {
		return nil, err
	}
	if err := p.s.Hover(ctx, el); err != nil {
		return nil, p.fail(ctx, "hover", loc, deadline, err)
	}
	return el, nil
}

// Click moves to loc, waits for it to become clickable and clicks it. The
// deadline covers both waits: visible first, then clickable, since
// hover-revealed controls can show before they accept input.
func (p *Poller) Click(ctx context.Context, loc locator.Locator, deadline time.Duration) (surface.Element, error) {
	start := time.Now()
	if _, err := p.MoveTo(ctx, loc, deadline); err != nil {
		return nil, err
	}
	el, err := p.wait(ctx, "click", loc, start, deadline, p.s.Clickable)
	if err != nil {
		return nil, err
	}
	if err := p.s.Click(ctx, el); err != nil {
		return nil, p.fail(ctx, "click", loc, deadline, err)
	}
	p.log.Debug("clicked", zap.Stringer("xpath", loc))
	return el, nil
}

// Fill clicks the input at loc and replaces its content with text. The text
// is never logged.
func (p *Poller) Fill(ctx context.Context, loc locator.Locator, text string, deadline time.Duration) error {
	el, err := p.Click(ctx, loc, deadline)
	if err != nil {
		return err
	}
	if err := p.s.TypeText(ctx, el, text); err != nil {
		return p.fail(ctx, "type", loc, deadline, err)
	}
	return nil
}

// TextOf returns the text of the element at loc. A structurally absent
// element yields ok=false with no error; a timeout is still an error.
func (p *Poller) TextOf(ctx context.Context, loc locator.Locator, deadline time.Duration) (text string, ok bool, err error) {
	el, err := p.Resolve(ctx, loc, deadline)
	if IsAbsent(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	text, err = p.s.ReadText(ctx, el)
	if err != nil {
		err = p.fail(ctx, "read", loc, deadline, err)
		if IsAbsent(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return text, true, nil
}

// Exists is a presence probe: it reports whether loc becomes visible within
// deadline. Timeout and absence both read as false.
func (p *Poller) Exists(ctx context.Context, loc locator.Locator, deadline time.Duration) (bool, error) {
	_, err := p.Quiet().Resolve(ctx, loc, deadline)
	switch {
	case err == nil:
		return true, nil
	case IsTimeout(err), IsAbsent(err):
		return false, nil
	default:
		return false, err
	}
}

// wait re-finds loc every interval until cond holds or deadline, counted
// from start, elapses. The page is always checked at least once.
func (p *Poller) wait(ctx context.Context, op string, loc locator.Locator, start time.Time, deadline time.Duration, cond condition) (surface.Element, error) {
	for {
		el, err := p.s.Find(ctx, loc)
		if err != nil {
			return nil, p.fail(ctx, op, loc, deadline, err)
		}
		if el != nil {
			ok, err := cond(ctx, el)
			if err != nil {
				return nil, p.fail(ctx, op, loc, deadline, err)
			}
			if ok {
				p.log.Debug("resolved", zap.String("op", op), zap.Stringer("xpath", loc))
				return el, nil
			}
		}

		remaining := deadline - time.Since(start)
		if remaining <= 0 {
			return nil, p.report(ctx, &Error{Kind: KindTimeout, Op: op, Locator: loc, Deadline: deadline})
		}

		t := time.NewTimer(min(p.interval, remaining))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// fail classifies a surface error. Context errors and unknown engine errors
// are returned wrapped but untagged.
func (p *Poller) fail(ctx context.Context, op string, loc locator.Locator, deadline time.Duration, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, surface.ErrDetached):
		return p.report(ctx, &Error{Kind: KindNotFound, Op: op, Locator: loc, Deadline: deadline, Err: err})
	case errors.Is(err, surface.ErrNotInteractable):
		return p.report(ctx, &Error{Kind: KindNotInteractable, Op: op, Locator: loc, Deadline: deadline, Err: err})
	default:
		return fmt.Errorf("%s %s: %w", op, loc, err)
	}
}

func (p *Poller) report(ctx context.Context, e *Error) *Error {
	if url, err := p.s.CurrentURL(ctx); err == nil {
		e.URL = url
	}
	if ce := p.log.Check(p.failLevel, "unable to locate element"); ce != nil {
		ce.Write(
			zap.String("op", e.Op),
			zap.Stringer("kind", e.Kind),
			zap.String("url", e.URL),
			zap.Stringer("xpath", e.Locator),
			zap.Duration("timeout", e.Deadline),
		)
	}
	return e
}
