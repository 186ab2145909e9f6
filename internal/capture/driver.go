// Package capture owns the capture source and the OCR engine of the
// monitored machine and turns screen frames into classified capture
// results.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"workforce-monitor/internal/classifier"
	"workforce-monitor/internal/models"
)

// Result is one classified frame, ready for upload.
type Result struct {
	ImageData     []byte
	ThumbnailData []byte
	OCRText       *string
	DetectedApps  []classifier.App
	ActivityLevel models.ActivityLevel
	Timestamp     time.Time
}

type Driver struct {
	provider Provider
	ocr      *OCR
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	source Source
	// closed when the current source is released
	stopped chan struct{}
}

type Option func(*Driver)

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

func NewDriver(provider Provider, ocr *OCR, opts ...Option) *Driver {
	d := &Driver{
		provider: provider,
		ocr:      ocr,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if ocr != nil {
		ocr.Acquire()
	}
	return d
}

// AcquireCapture opens a capture source. Holding an active source is
// success without prompting again.
func (d *Driver) AcquireCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.source != nil && d.source.Active() {
		return nil
	}
	d.forgetLocked()

	src, err := d.provider.Open()
	if err != nil {
		if errors.Is(err, ErrCaptureUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	d.source = src
	d.stopped = make(chan struct{})
	d.logger.Info("capture source acquired")
	return nil
}

// ReleaseCapture stops and forgets the source. In-flight captures fail
// with ErrCaptureUnavailable.
func (d *Driver) ReleaseCapture() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.source != nil {
		d.logger.Info("capture source released")
	}
	d.forgetLocked()
}

// Held reports whether an active source is currently held.
func (d *Driver) Held() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source != nil && d.source.Active()
}

// Close releases the capture source and the driver's OCR reference.
func (d *Driver) Close() error {
	d.ReleaseCapture()
	if d.ocr == nil {
		return nil
	}
	return d.ocr.Release()
}

func (d *Driver) forgetLocked() {
	if d.source == nil {
		return
	}
	d.source.Stop()
	close(d.stopped)
	d.source = nil
	d.stopped = nil
}

// forget drops src if it is still the held source.
func (d *Driver) forget(src Source) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.source == src {
		d.logger.Warn("capture source revoked")
		d.forgetLocked()
	}
}

// CaptureOnce grabs, encodes and classifies one frame. OCR failures
// degrade the result's metadata and never fail the capture.
func (d *Driver) CaptureOnce(ctx context.Context) (*Result, error) {
	d.mu.Lock()
	src, stopped := d.source, d.stopped
	d.mu.Unlock()
	if src == nil {
		return nil, ErrCaptureUnavailable
	}
	if !src.Active() {
		d.forget(src)
		return nil, ErrCaptureUnavailable
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopped:
			cancel()
		case <-ctx.Done():
		}
	}()

	frame, err := src.Grab()
	if !src.Active() {
		d.forget(src)
		return nil, ErrCaptureUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("grab frame: %w", err)
	}
	if r, ok := frame.(Releaser); ok {
		defer r.Release()
	}
	timestamp := d.now()

	full, err := EncodeFull(frame)
	if err != nil {
		return nil, err
	}
	thumb, err := EncodeThumbnail(frame)
	if err != nil {
		return nil, err
	}

	text := d.recognize(ctx, frame)
	if isClosed(stopped) {
		return nil, ErrCaptureUnavailable
	}

	return &Result{
		ImageData:     full,
		ThumbnailData: thumb,
		OCRText:       text,
		DetectedApps:  classifier.DetectApplications(text),
		ActivityLevel: classifier.DetectActivityLevel(text),
		Timestamp:     timestamp,
	}, nil
}

func (d *Driver) recognize(ctx context.Context, frame image.Image) *string {
	if d.ocr == nil {
		return nil
	}
	input, err := encodeOCRInput(frame)
	if err != nil {
		d.logger.Warn("ocr degraded", "error", err)
		return nil
	}
	text, err := d.ocr.Recognize(ctx, input)
	if err != nil {
		d.logger.Warn("ocr degraded", "error", err)
		return nil
	}
	return &text
}

// Releaser is implemented by frames backed by pooled buffers.
type Releaser interface {
	Release()
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
