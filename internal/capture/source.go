package capture

import (
	"errors"
	"image"
)

var (
	// ErrCaptureUnavailable means no capture source is held or the held
	// source stopped producing frames. Callers re-acquire.
	ErrCaptureUnavailable = errors.New("capture source unavailable")
)

// Source is a live stream of screen frames.
type Source interface {
	// Active reports whether the source can still produce frames. It
	// turns false when the operator revokes the share.
	Active() bool
	Grab() (image.Image, error)
	Stop()
}

// Provider opens a new Source, prompting the operator where the
// platform requires it.
type Provider interface {
	Open() (Source, error)
}

type ProviderFunc func() (Source, error)

func (f ProviderFunc) Open() (Source, error) { return f() }
