package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrOCRUnavailable = errors.New("ocr engine unavailable")
	// ErrOCRBusy is returned instead of queueing when a recognition is
	// already running.
	ErrOCRBusy = errors.New("ocr engine busy")
)

// Recognizer turns an encoded image into text. Implementations need not
// be safe for concurrent use; OCR serializes access.
type Recognizer interface {
	Recognize(image []byte) (string, error)
	Close() error
}

type RecognizerFactory func() (Recognizer, error)

// OCR is the single long-lived recognition engine. The engine is built
// on first use, shared by every holder, and closed when the last holder
// releases it or on Terminate. At most one recognition runs at a time.
type OCR struct {
	factory RecognizerFactory

	mu     sync.Mutex
	engine Recognizer
	refs   int

	// held for the duration of one recognition
	busy sync.Mutex
}

func NewOCR(factory RecognizerFactory) *OCR {
	return &OCR{factory: factory}
}

func (o *OCR) Acquire() {
	o.mu.Lock()
	o.refs++
	o.mu.Unlock()
}

// Release drops one reference and terminates the engine when none remain.
func (o *OCR) Release() error {
	o.mu.Lock()
	if o.refs > 0 {
		o.refs--
	}
	last := o.refs == 0
	o.mu.Unlock()
	if !last {
		return nil
	}
	if err := o.Terminate(); err != nil {
		return fmt.Errorf("terminate ocr engine: %w", err)
	}
	return nil
}

// Terminate waits for any running recognition and closes the engine.
// The next Recognize builds a fresh one.
func (o *OCR) Terminate() error {
	o.busy.Lock()
	defer o.busy.Unlock()

	o.mu.Lock()
	engine := o.engine
	o.engine = nil
	o.mu.Unlock()

	if engine == nil {
		return nil
	}
	return engine.Close()
}

// Initialized reports whether an engine is currently built.
func (o *OCR) Initialized() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.engine != nil
}

// get builds the engine at most once; concurrent callers wait on mu
// rather than starting a second initialization.
func (o *OCR) get() (Recognizer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.engine != nil {
		return o.engine, nil
	}
	if o.factory == nil {
		return nil, ErrOCRUnavailable
	}
	engine, err := o.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
	}
	o.engine = engine
	return engine, nil
}

type ocrResult struct {
	text string
	err  error
}

// Recognize runs one recognition. If another is in flight it returns
// ErrOCRBusy immediately. If ctx ends first the call returns ctx.Err()
// while the engine finishes the job in the background and stays busy
// until it does.
func (o *OCR) Recognize(ctx context.Context, image []byte) (string, error) {
	if !o.busy.TryLock() {
		return "", ErrOCRBusy
	}
	engine, err := o.get()
	if err != nil {
		o.busy.Unlock()
		return "", err
	}

	done := make(chan ocrResult, 1)
	go func() {
		defer o.busy.Unlock()
		text, err := engine.Recognize(image)
		done <- ocrResult{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
