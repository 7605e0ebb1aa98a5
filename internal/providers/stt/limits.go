package stt

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedAudio means the provider cannot decode this container or codec.
	ErrUnsupportedAudio = errors.New("unsupported audio format")
	// ErrAudioTooLarge means the audio exceeds what one request may carry.
	ErrAudioTooLarge = errors.New("audio too large")
)

// Checker is implemented by providers with hard request limits. uri is the
// archived copy the provider will read instead of inline bytes, or "".
type Checker interface {
	Check(mimeType string, size int64, uri string) error
}

// URIReader is implemented by providers that can fetch archived audio themselves.
type URIReader interface {
	ReadsURI(uri string) bool
}

func tooLarge(provider string, size, limit int64) error {
	return fmt.Errorf("%w: %s accepts at most %d MB per request, got %.1f MB",
		ErrAudioTooLarge, provider, limit>>20, float64(size)/(1<<20))
}
