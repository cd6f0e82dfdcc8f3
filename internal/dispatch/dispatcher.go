// Package dispatch orchestrates a TTS request: persona resolution, cache key
// derivation, cache lookup, and synthesis on miss.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"golang.org/x/sync/singleflight"

	"github.com/book-expert/tts-gateway/internal/cachekey"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/text"
)

// Log formats.
const (
	logFmtCacheHit       = "Cache hit: key=%s voice=%s"
	logFmtCacheMiss      = "Cache miss: key=%s voice=%s rate=%s pitch=%s"
	logFmtSynthesisDone  = "Synthesized %d bytes for key=%s in %s"
	logFmtStoreWriteFail = "Failed to store synthesized audio for key=%s: %v"
)

// Resolver supplies the (voice, rate, pitch) triple for a persona.
type Resolver interface {
	Resolve(personaID string) (voice, rate, pitch string)
}

// Dispatcher runs the per-request state machine: resolve, derive key, look
// up, and on miss synthesize exactly once per key before storing and
// returning the result. Concurrent misses for the same key are collapsed so
// late arrivals await the first caller's synthesis instead of repeating it.
type Dispatcher struct {
	resolver    Resolver
	store       core.AudioStore
	synthesizer core.SpeechSynthesizer
	log         *logger.Logger
	group       singleflight.Group
}

// New creates a Dispatcher over the given collaborators.
func New(
	resolver Resolver,
	store core.AudioStore,
	synthesizer core.SpeechSynthesizer,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		resolver:    resolver,
		store:       store,
		synthesizer: synthesizer,
		log:         log,
		group:       singleflight.Group{},
	}
}

// Speak converts text to audio bytes for the given persona, serving from the
// cache when possible. It returns core.ErrTextEmpty for empty or
// whitespace-only text, core.ErrSynthesisFailed when the backend fails, and
// core.ErrStoreFailed on cache I/O errors.
func (d *Dispatcher) Speak(ctx context.Context, rawText, personaID string) ([]byte, error) {
	normalized := text.Normalize(rawText)
	if normalized == "" {
		return nil, core.ErrTextEmpty
	}

	voice, rate, pitch := d.resolver.Resolve(personaID)

	params := core.SynthesisParams{
		Text:  normalized,
		Voice: voice,
		Rate:  rate,
		Pitch: pitch,
	}

	key := cachekey.Derive(params)

	result, err, _ := d.group.Do(key, func() (any, error) {
		return d.fetchOrSynthesize(ctx, key, params)
	})
	if err != nil {
		return nil, err
	}

	audioData, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected in-flight result type", core.ErrStoreFailed)
	}

	return audioData, nil
}

// fetchOrSynthesize is the single-flight body: at most one invocation runs
// per key at a time.
func (d *Dispatcher) fetchOrSynthesize(
	ctx context.Context,
	key string,
	params core.SynthesisParams,
) ([]byte, error) {
	found, err := d.store.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: existence check: %w", core.ErrStoreFailed, err)
	}

	if found {
		audioData, readErr := d.store.Read(ctx, key)
		if readErr != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrStoreFailed, readErr)
		}

		d.log.Info(logFmtCacheHit, key, params.Voice)

		return audioData, nil
	}

	d.log.Info(logFmtCacheMiss, key, params.Voice, params.Rate, params.Pitch)

	started := time.Now()

	audioData, err := d.synthesizer.Synthesize(ctx, params)
	if err != nil {
		// Nothing is written on synthesis failure.
		return nil, err
	}

	d.log.Info(logFmtSynthesisDone, len(audioData), key, time.Since(started))

	err = d.store.Write(ctx, key, audioData)
	if err != nil {
		d.log.Error(logFmtStoreWriteFail, key, err)

		return nil, fmt.Errorf("%w: %w", core.ErrStoreFailed, err)
	}

	// Return the freshly synthesized bytes rather than re-reading the
	// store, which may be eventually consistent.
	return audioData, nil
}
