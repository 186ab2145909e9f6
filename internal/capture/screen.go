package capture

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/kbinani/screenshot"
)

// ScreenProvider captures one physical display.
type ScreenProvider struct {
	Display int
}

func (p ScreenProvider) Open() (Source, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, fmt.Errorf("%w: no active displays", ErrCaptureUnavailable)
	}
	if p.Display < 0 || p.Display >= n {
		return nil, fmt.Errorf("%w: display %d out of range (%d active)", ErrCaptureUnavailable, p.Display, n)
	}
	return &screenSource{display: p.Display, bounds: screenshot.GetDisplayBounds(p.Display)}, nil
}

type screenSource struct {
	display int
	bounds  image.Rectangle
	stopped atomic.Bool
}

// Active is false once stopped or when the display disappears, e.g. a
// monitor is unplugged or the session is locked by the OS.
func (s *screenSource) Active() bool {
	if s.stopped.Load() {
		return false
	}
	return screenshot.NumActiveDisplays() > s.display
}

func (s *screenSource) Grab() (image.Image, error) {
	if !s.Active() {
		return nil, ErrCaptureUnavailable
	}
	img, err := screenshot.CaptureRect(s.bounds)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", s.display, err)
	}
	return img, nil
}

func (s *screenSource) Stop() {
	s.stopped.Store(true)
}
