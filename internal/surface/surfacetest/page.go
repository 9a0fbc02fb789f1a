// Package surfacetest provides a scripted, in-memory surface.Surface for
// exercising the booking core without a browser.
package surfacetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/v0xg/teetime/internal/locator"
	"github.com/v0xg/teetime/internal/surface"
)

// Element is a fake node. The zero value is present, visible and clickable.
type Element struct {
	Text  string
	Value string

	// AppearAfter makes the first N Find calls miss the element.
	AppearAfter int
	// ClickableAfter makes the first N Clickable checks report false.
	ClickableAfter int

	Hidden      bool
	Disabled    bool
	Detached    bool
	RefuseClick bool

	// OnClick runs after a successful click, outside the page lock, so it
	// may reshape the page.
	OnClick func(p *Page)

	loc         string
	finds       int
	clickChecks int
}

// Call is one recorded action.
type Call struct {
	Op      string
	Locator string
	Text    string
}

// Page implements surface.Surface over a map of locator expressions.
type Page struct {
	mu       sync.Mutex
	url      string
	elements map[string]*Element
	calls    []Call
	closed   int
	shot     []byte
}

var _ surface.Surface = (*Page)(nil)

func New() *Page {
	return &Page{
		url:      "about:blank",
		elements: make(map[string]*Element),
	}
}

// Set installs el under the exact expression of loc and returns it.
func (p *Page) Set(loc locator.Locator, el *Element) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	el.loc = loc.String()
	p.elements[el.loc] = el
	return el
}

// Remove deletes the element registered under loc.
func (p *Page) Remove(loc locator.Locator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, loc.String())
}

// SetScreenshot sets the bytes returned by Screenshot.
func (p *Page) SetScreenshot(png []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shot = png
}

// Calls returns a copy of the action journal.
func (p *Page) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Count returns how many times op was applied to loc.
func (p *Page) Count(op string, loc locator.Locator) int {
	n := 0
	for _, c := range p.Calls() {
		if c.Op == op && c.Locator == loc.String() {
			n++
		}
	}
	return n
}

// Closed returns how many times Close was called.
func (p *Page) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) record(op, loc, text string) {
	p.calls = append(p.calls, Call{Op: op, Locator: loc, Text: text})
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.record("navigate", "", url)
	return nil
}

func (p *Page) Find(ctx context.Context, loc locator.Locator) (surface.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[loc.String()]
	if !ok {
		return nil, nil
	}
	el.finds++
	if el.finds <= el.AppearAfter {
		return nil, nil
	}
	return el, nil
}

func (p *Page) element(e surface.Element) (*Element, error) {
	el, ok := e.(*Element)
	if !ok {
		return nil, fmt.Errorf("surfacetest: foreign element %T", e)
	}
	if el.Detached {
		return nil, surface.ErrDetached
	}
	return el, nil
}

func (p *Page) Visible(ctx context.Context, e surface.Element) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.element(e)
	if err != nil {
		return false, err
	}
	return !el.Hidden, nil
}

func (p *Page) Clickable(ctx context.Context, e surface.Element) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.element(e)
	if err != nil {
		return false, err
	}
	if el.Hidden || el.Disabled {
		return false, nil
	}
	el.clickChecks++
	return el.clickChecks > el.ClickableAfter, nil
}

func (p *Page) Hover(ctx context.Context, e surface.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.element(e)
	if err != nil {
		return err
	}
	p.record("hover", el.loc, "")
	return nil
}

func (p *Page) Click(ctx context.Context, e surface.Element) error {
	p.mu.Lock()
	el, err := p.element(e)
	if err == nil && el.RefuseClick {
		err = surface.ErrNotInteractable
	}
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.record("click", el.loc, "")
	hook := el.OnClick
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

func (p *Page) TypeText(ctx context.Context, e surface.Element, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.element(e)
	if err != nil {
		return err
	}
	el.Value = text
	p.record("type", el.loc, text)
	return nil
}

func (p *Page) ReadText(ctx context.Context, e surface.Element) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.element(e)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shot == nil {
		return nil, fmt.Errorf("surfacetest: no screenshot configured")
	}
	return p.shot, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}
