package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/v0xg/teetime/internal/locator"
	"github.com/v0xg/teetime/internal/surface"
)

const (
	visibleJS = `function() {
		const r = this.getBoundingClientRect();
		const s = window.getComputedStyle(this);
		return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
	}`

	clickableJS = `function() {
		const r = this.getBoundingClientRect();
		const s = window.getComputedStyle(this);
		if (!(r.width > 0 && r.height > 0) || s.visibility === 'hidden' || s.display === 'none') return false;
		if (this.disabled || s.pointerEvents === 'none') return false;
		const hit = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
		return hit === null || hit === this || this.contains(hit) || hit.contains(this);
	}`

	centerJS = `function() {
		this.scrollIntoView({block: 'center', inline: 'center'});
		const r = this.getBoundingClientRect();
		return {x: r.left + r.width / 2, y: r.top + r.height / 2, w: r.width, h: r.height};
	}`

	clearJS = `function() {
		this.focus();
		if ('value' in this) {
			this.value = '';
			this.dispatchEvent(new Event('input', {bubbles: true}));
		}
	}`

	textJS = `function() { return this.innerText || this.textContent || ''; }`
)

// CDPSurface drives one chromedp tab.
type CDPSurface struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ surface.Surface = (*CDPSurface)(nil)

// LaunchChromedp starts Chrome through chromedp's exec allocator.
func LaunchChromedp(ctx context.Context, opts Options) (*CDPSurface, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	for _, f := range launchFlags {
		allocOpts = append(allocOpts, chromedp.Flag(f, true))
	}
	if opts.Bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.Bin))
	}

	// The browser outlives caller cancellation; Close tears it down.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	bctx, cancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(bctx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	return &CDPSurface{ctx: bctx, cancel: cancel, cancelAlloc: cancelAlloc}, nil
}

// run executes actions on the tab, bounded by actionTimeout and by ctx.
func (c *CDPSurface) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(c.ctx, actionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return classifyCDP(chromedp.Run(tctx, actions...))
}

func (c *CDPSurface) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *CDPSurface) Find(ctx context.Context, loc locator.Locator) (surface.Element, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(loc.String(), &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

func (c *CDPSurface) Visible(ctx context.Context, e surface.Element) (bool, error) {
	var ok bool
	err := c.call(ctx, e, visibleJS, &ok)
	return ok, err
}

func (c *CDPSurface) Clickable(ctx context.Context, e surface.Element) (bool, error) {
	var ok bool
	err := c.call(ctx, e, clickableJS, &ok)
	return ok, err
}

type box struct {
	X, Y, W, H float64
}

func (c *CDPSurface) center(ctx context.Context, e surface.Element) (box, error) {
	var b box
	if err := c.call(ctx, e, centerJS, &b); err != nil {
		return b, err
	}
	if b.W == 0 || b.H == 0 {
		return b, surface.ErrNotInteractable
	}
	return b, nil
}

func (c *CDPSurface) Hover(ctx context.Context, e surface.Element) error {
	b, err := c.center(ctx, e)
	if err != nil {
		return err
	}
	return c.run(ctx, chromedp.MouseEvent(input.MouseMoved, b.X, b.Y))
}

func (c *CDPSurface) Click(ctx context.Context, e surface.Element) error {
	b, err := c.center(ctx, e)
	if err != nil {
		return err
	}
	return c.run(ctx,
		chromedp.MouseEvent(input.MouseMoved, b.X, b.Y),
		chromedp.MouseClickXY(b.X, b.Y),
	)
}

func (c *CDPSurface) TypeText(ctx context.Context, e surface.Element, text string) error {
	if err := c.call(ctx, e, clearJS, nil); err != nil {
		return err
	}
	return c.run(ctx, chromedp.KeyEvent(text))
}

func (c *CDPSurface) ReadText(ctx context.Context, e surface.Element) (string, error) {
	var text string
	err := c.call(ctx, e, textJS, &text)
	return text, err
}

func (c *CDPSurface) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := c.run(ctx, chromedp.Location(&url))
	return url, err
}

func (c *CDPSurface) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := c.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

// Close asks Chrome to exit, then releases the allocator.
func (c *CDPSurface) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.cancelAlloc()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// call runs fn with this bound to the node and decodes the JSON result into
// out (skipped when out is nil).
func (c *CDPSurface) call(ctx context.Context, e surface.Element, fn string, out any) error {
	n, ok := e.(*cdp.Node)
	if !ok {
		return fmt.Errorf("chromedp: foreign element %T", e)
	}
	var raw []byte
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(n.BackendNodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer runtime.ReleaseObject(obj.ObjectID).Do(ctx)

		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("evaluate: %s", exc.Text)
		}
		raw = []byte(res.Value)
		return nil
	}))
	if err != nil || out == nil || len(raw) == 0 {
		return err
	}
	return json.Unmarshal(raw, out)
}

func classifyCDP(err error) error {
	if err == nil {
		return nil
	}
	var cdpErr *cdproto.Error
	if errors.As(err, &cdpErr) && detachedMessage(cdpErr.Message) {
		return tag(surface.ErrDetached, err)
	}
	return err
}
