package capture

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

type tesseract struct {
	client *gosseract.Client
}

// TesseractFactory builds Recognizers backed by the local tesseract
// install. An empty language list uses tesseract's default.
func TesseractFactory(languages ...string) RecognizerFactory {
	return func() (Recognizer, error) {
		client := gosseract.NewClient()
		if len(languages) > 0 {
			if err := client.SetLanguage(languages...); err != nil {
				client.Close()
				return nil, fmt.Errorf("set tesseract languages %v: %w", languages, err)
			}
		}
		return &tesseract{client: client}, nil
	}
}

func (t *tesseract) Recognize(image []byte) (string, error) {
	if err := t.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image into tesseract: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognize: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (t *tesseract) Close() error {
	return t.client.Close()
}
