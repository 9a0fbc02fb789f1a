// Package browser launches a real Chrome/Chromium and exposes it as a
// surface.Surface. Two engines are available: rod (default) and chromedp.
package browser

import (
	"context"
	"fmt"

	"github.com/v0xg/teetime/internal/surface"
)

// Engine names accepted by Launch.
const (
	EngineRod      = "rod"
	EngineChromedp = "chromedp"
)

// Options configures the launched browser.
type Options struct {
	Engine   string
	Bin      string // browser binary; empty means auto-detect
	Headless bool
	Width    int
	Height   int
}

func (o *Options) defaults() {
	if o.Width == 0 {
		o.Width = 1920
	}
	if o.Height == 0 {
		o.Height = 1080
	}
}

// launchFlags are the Chrome switches every engine passes.
var launchFlags = []string{
	"no-sandbox",
	"disable-extensions",
	"disable-gpu",
	"disable-dev-shm-usage",
}

// Launch starts a browser with the chosen engine.
func Launch(ctx context.Context, opts Options) (surface.Surface, error) {
	opts.defaults()
	switch opts.Engine {
	case "", EngineRod:
		s, err := LaunchRod(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case EngineChromedp:
		s, err := LaunchChromedp(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown engine: %s (supported: %s, %s)", opts.Engine, EngineRod, EngineChromedp)
	}
}

// tagged attaches a surface sentinel to an engine error while keeping the
// engine error reachable through errors.As.
type tagged struct {
	kind error
	err  error
}

func (t *tagged) Error() string   { return t.kind.Error() + ": " + t.err.Error() }
func (t *tagged) Unwrap() []error { return []error{t.kind, t.err} }

func tag(kind, err error) error {
	return &tagged{kind: kind, err: err}
}
