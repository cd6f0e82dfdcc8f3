// Package core defines the domain interfaces and error taxonomy for the
// tts-gateway.
package core

import (
	"context"
	"errors"
)

// Static errors classifying every request failure the gateway can produce.
var (
	// ErrTextEmpty indicates that the request text was missing or empty
	// after normalization. Rejected before any cache or synthesis work.
	ErrTextEmpty = errors.New("text cannot be empty")

	// ErrSynthesisFailed indicates that the synthesis backend could not
	// produce audio: network failure, backend rejection, or a malformed
	// chunk stream.
	ErrSynthesisFailed = errors.New("speech synthesis failed")

	// ErrStoreFailed indicates a cache store I/O failure on read or write.
	ErrStoreFailed = errors.New("audio store operation failed")

	// ErrNotFound indicates that no cache entry exists for the given key.
	ErrNotFound = errors.New("audio not found in store")
)

// SynthesisParams is the complete, order-sensitive input that determines
// audio output. Two requests with identical tuples address the same cache
// entry; a difference in any field is a distinct entry.
type SynthesisParams struct {
	Text  string
	Voice string
	Rate  string
	Pitch string
}

// SpeechSynthesizer converts a synthesis parameter tuple into a single
// contiguous audio byte buffer by calling the external synthesis backend.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, params SynthesisParams) ([]byte, error)
}

// AudioStore is a persistent key->blob store for generated audio. Entries
// are write-once and immutable; there is no update or delete.
type AudioStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}
