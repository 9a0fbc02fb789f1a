package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/teetime/internal/locator"
	"github.com/v0xg/teetime/internal/surface"
)

// actionTimeout caps a single engine call so a hung renderer cannot stall
// a step past its own deadline by much.
const actionTimeout = 5 * time.Second

// RodSurface drives one rod page.
type RodSurface struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

var _ surface.Surface = (*RodSurface)(nil)

// LaunchRod starts Chrome through rod's launcher and opens a blank page.
func LaunchRod(ctx context.Context, opts Options) (*RodSurface, error) {
	path := opts.Bin
	if path == "" {
		path, _ = launcher.LookPath()
	}
	l := launcher.New().Context(ctx).Bin(path).Headless(opts.Headless)
	for _, f := range launchFlags {
		l = l.Set(flags.Flag(f))
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	return &RodSurface{launcher: l, browser: b, page: page}, nil
}

func (r *RodSurface) Navigate(ctx context.Context, url string) error {
	page := r.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// Find evaluates the XPath once; rod's ElementsX does not retry.
func (r *RodSurface) Find(ctx context.Context, loc locator.Locator) (surface.Element, error) {
	els, err := r.page.Context(ctx).ElementsX(loc.String())
	if err != nil {
		return nil, classifyRod(err)
	}
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (r *RodSurface) Visible(ctx context.Context, e surface.Element) (visible bool, err error) {
	err = r.with(ctx, e, func(el *rod.Element) error {
		visible, err = el.Visible()
		return err
	})
	return visible, err
}

func (r *RodSurface) Clickable(ctx context.Context, e surface.Element) (clickable bool, err error) {
	err = r.with(ctx, e, func(el *rod.Element) error {
		disabled, err := el.Disabled()
		if err != nil || disabled {
			return err
		}
		_, err = el.Interactable()
		if notInteractableYet(err) {
			return nil
		}
		clickable = err == nil
		return err
	})
	return clickable, err
}

func (r *RodSurface) Hover(ctx context.Context, e surface.Element) error {
	return r.with(ctx, e, func(el *rod.Element) error {
		_, err := r.pointTo(el)
		return err
	})
}

func (r *RodSurface) Click(ctx context.Context, e surface.Element) error {
	return r.with(ctx, e, func(el *rod.Element) error {
		if _, err := r.pointTo(el); err != nil {
			return err
		}
		return r.page.Mouse.Click(proto.InputMouseButtonLeft, 1)
	})
}

// pointTo scrolls el into view and moves the mouse to its center.
func (r *RodSurface) pointTo(el *rod.Element) (*proto.Point, error) {
	if err := el.ScrollIntoView(); err != nil {
		return nil, err
	}
	pt, err := el.Interactable()
	if err != nil {
		return nil, err
	}
	return pt, r.page.Mouse.MoveTo(*pt)
}

func (r *RodSurface) TypeText(ctx context.Context, e surface.Element, text string) error {
	return r.with(ctx, e, func(el *rod.Element) error {
		if err := el.Focus(); err != nil {
			return err
		}
		if err := el.SelectAllText(); err != nil {
			return err
		}
		return el.Input(text)
	})
}

func (r *RodSurface) ReadText(ctx context.Context, e surface.Element) (text string, err error) {
	err = r.with(ctx, e, func(el *rod.Element) error {
		text, err = el.Text()
		return err
	})
	return text, err
}

func (r *RodSurface) CurrentURL(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (r *RodSurface) Screenshot(ctx context.Context) ([]byte, error) {
	return r.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Close closes the page and browser, then removes the launcher's profile.
func (r *RodSurface) Close() error {
	var errs []error
	if r.page != nil {
		errs = append(errs, r.page.Close())
	}
	if r.browser != nil {
		errs = append(errs, r.browser.Close())
	}
	if r.launcher != nil {
		r.launcher.Cleanup()
	}
	return errors.Join(errs...)
}

func (r *RodSurface) with(ctx context.Context, e surface.Element, fn func(el *rod.Element) error) error {
	el, ok := e.(*rod.Element)
	if !ok {
		return fmt.Errorf("rod: foreign element %T", e)
	}
	el = el.Context(ctx).Timeout(actionTimeout)
	defer el.CancelTimeout()
	return classifyRod(fn(el))
}

// notInteractableYet reports the transient states Interactable can report
// while a hover-revealed control is still settling.
func notInteractableYet(err error) bool {
	var (
		covered   *rod.CoveredError
		invisible *rod.InvisibleShapeError
		noPointer *rod.NoPointerEventsError
		notInter  *rod.NotInteractableError
	)
	return errors.As(err, &covered) || errors.As(err, &invisible) ||
		errors.As(err, &noPointer) || errors.As(err, &notInter)
}

func classifyRod(err error) error {
	if err == nil {
		return nil
	}
	var (
		objNotFound *rod.ObjectNotFoundError
		elNotFound  *rod.ElementNotFoundError
		cdpErr      *cdp.Error
	)
	switch {
	case errors.As(err, &objNotFound), errors.As(err, &elNotFound):
		return tag(surface.ErrDetached, err)
	case errors.As(err, &cdpErr) && detachedMessage(cdpErr.Message):
		return tag(surface.ErrDetached, err)
	case notInteractableYet(err):
		return tag(surface.ErrNotInteractable, err)
	}
	return err
}

func detachedMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "no node with given id") ||
		strings.Contains(msg, "node is detached") ||
		strings.Contains(msg, "could not find node")
}
