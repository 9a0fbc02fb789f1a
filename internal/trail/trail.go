// Package trail keeps a screenshot per workflow step and writes them out
// as an animated GIF, so a failed run can be replayed after the fact.
package trail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

// Shooter takes a PNG screenshot of the current page.
type Shooter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Options configures GIF output.
type Options struct {
	// FPS is the playback rate; each step is shown for 1/FPS seconds.
	FPS      int
	MaxWidth uint
}

// Recorder collects one frame per captured step.
type Recorder struct {
	shot Shooter
	log  *zap.Logger

	mu     sync.Mutex
	frames []image.Image
	steps  []string
}

func New(shot Shooter, log *zap.Logger) *Recorder {
	return &Recorder{shot: shot, log: log}
}

// Capture screenshots the page for step. Failures are logged and skipped;
// a missing frame never fails the run.
func (r *Recorder) Capture(ctx context.Context, step string) {
	data, err := r.shot.Screenshot(ctx)
	if err != nil {
		r.log.Debug("screenshot failed", zap.String("step", step), zap.Error(err))
		return
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		r.log.Debug("screenshot is not a png", zap.String("step", step), zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, img)
	r.steps = append(r.steps, step)
}

// Steps returns the captured step names in order.
func (r *Recorder) Steps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

// Write encodes the captured frames to path and returns the file size.
// With no frames nothing is written.
func (r *Recorder) Write(path string, opts Options) (int64, error) {
	r.mu.Lock()
	frames := append([]image.Image(nil), r.frames...)
	r.mu.Unlock()

	if len(frames) == 0 {
		return 0, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := gif.EncodeAll(f, encode(frames, opts)); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func encode(frames []image.Image, opts Options) *gif.GIF {
	fps := opts.FPS
	if fps <= 0 {
		fps = 1
	}
	// Delay is in 100ths of a second.
	delay := 100 / fps

	width := opts.MaxWidth
	if width == 0 {
		width = 800
	}
	b := frames[0].Bounds()
	height := uint(float64(width) * float64(b.Dy()) / float64(b.Dx()))
	if height == 0 {
		height = 1
	}

	g := &gif.GIF{
		Image: make([]*image.Paletted, len(frames)),
		Delay: make([]int, len(frames)),
	}
	pal := palette(frames[0])
	for i, frame := range frames {
		resized := resize.Resize(width, height, frame, resize.Lanczos3)
		p := image.NewPaletted(resized.Bounds(), pal)
		draw.FloydSteinberg.Draw(p, resized.Bounds(), resized, image.Point{})
		g.Image[i] = p
		g.Delay[i] = delay
	}
	return g
}

// palette picks the 255 most frequent colors of img (sampling every 4th
// pixel) behind a transparent entry, padded with grays to 256.
func palette(img image.Image) color.Palette {
	const step = 4
	b := img.Bounds()
	counts := make(map[color.RGBA]int)
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, a := img.At(x, y).RGBA()
			counts[color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: uint8(a >> 8)}]++
		}
	}

	colors := make([]color.RGBA, 0, len(counts))
	for c := range counts {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		return rgbaKey(colors[i]) < rgbaKey(colors[j])
	})

	pal := make(color.Palette, 0, 256)
	pal = append(pal, color.RGBA{})
	for _, c := range colors {
		if len(pal) == 256 {
			break
		}
		pal = append(pal, c)
	}
	for len(pal) < 256 {
		gray := uint8(len(pal))
		pal = append(pal, color.RGBA{R: gray, G: gray, B: gray, A: 255})
	}
	return pal
}

func rgbaKey(c color.RGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}
