package booking

import (
	"context"
	"fmt"
	"sync"

	"github.com/v0xg/teetime/internal/config"
	"github.com/v0xg/teetime/internal/surface"
)

// Session owns the credentials and the live browser for one run.
type Session struct {
	Credentials config.Credentials
	Surface     surface.Surface

	closeOnce sync.Once
	closeErr  error
}

// Close releases the browser. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.Surface.Close()
	})
	return s.closeErr
}

// Opener launches a browser surface.
type Opener func(ctx context.Context) (surface.Surface, error)

// WithSession opens a surface, hands the session to fn and closes the
// surface exactly once when fn returns, fails or panics.
func WithSession(ctx context.Context, creds config.Credentials, open Opener, fn func(ctx context.Context, s *Session) error) (err error) {
	sf, err := open(ctx)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	s := &Session{Credentials: creds, Surface: sf}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close browser: %w", cerr)
		}
	}()
	return fn(ctx, s)
}
