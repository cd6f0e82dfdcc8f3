// Package dispatch_test tests the request dispatcher.
package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/dispatch"
	"github.com/book-expert/tts-gateway/internal/persona"
)

var (
	errMockExists = errors.New("mock exists error")
	errMockRead   = errors.New("mock read error")
	errMockWrite  = errors.New("mock write error")
)

// mockStore is an in-memory AudioStore with switchable failure modes.
type mockStore struct {
	mu               sync.Mutex
	entries          map[string][]byte
	existsShouldFail bool
	readShouldFail   bool
	writeShouldFail  bool
	writeCount       int
}

func newMockStore() *mockStore {
	return &mockStore{
		mu:               sync.Mutex{},
		entries:          make(map[string][]byte),
		existsShouldFail: false,
		readShouldFail:   false,
		writeShouldFail:  false,
		writeCount:       0,
	}
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	if m.existsShouldFail {
		return false, errMockExists
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, found := m.entries[key]

	return found, nil
}

func (m *mockStore) Read(_ context.Context, key string) ([]byte, error) {
	if m.readShouldFail {
		return nil, errMockRead
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, found := m.entries[key]
	if !found {
		return nil, core.ErrNotFound
	}

	return data, nil
}

func (m *mockStore) Write(_ context.Context, key string, data []byte) error {
	if m.writeShouldFail {
		return errMockWrite
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = data
	m.writeCount++

	return nil
}

// mockSynthesizer counts invocations and can fail or stall.
type mockSynthesizer struct {
	synthesizeCount atomic.Int64
	shouldFail      bool
	delay           time.Duration
	lastParams      core.SynthesisParams
	mu              sync.Mutex
}

func (m *mockSynthesizer) Synthesize(_ context.Context, params core.SynthesisParams) ([]byte, error) {
	m.synthesizeCount.Add(1)

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if m.shouldFail {
		return nil, core.ErrSynthesisFailed
	}

	m.mu.Lock()
	m.lastParams = params
	m.mu.Unlock()

	return []byte("synthesized:" + params.Voice + ":" + params.Text), nil
}

func (m *mockSynthesizer) params() core.SynthesisParams {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastParams
}

func newTestDispatcher(t *testing.T, store *mockStore, synthesizer *mockSynthesizer) *dispatch.Dispatcher {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "dispatch-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = testLogger.Close()
	})

	return dispatch.New(persona.New("female"), store, synthesizer, testLogger)
}

func TestSpeak_MissSynthesizesAndStores(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	synthesizer := &mockSynthesizer{}
	dispatcher := newTestDispatcher(t, store, synthesizer)

	audioData, err := dispatcher.Speak(context.Background(), "Hello", "female")
	require.NoError(t, err)

	assert.NotEmpty(t, audioData)
	assert.Equal(t, int64(1), synthesizer.synthesizeCount.Load())
	assert.Equal(t, 1, store.writeCount)

	params := synthesizer.params()
	assert.Equal(t, "Hello", params.Text)
	assert.Equal(t, "en-US-JennyNeural", params.Voice)
	assert.Equal(t, "-5%", params.Rate)
	assert.Equal(t, "+0Hz", params.Pitch)
}

func TestSpeak_HitSkipsSynthesis(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	synthesizer := &mockSynthesizer{}
	dispatcher := newTestDispatcher(t, store, synthesizer)

	ctx := context.Background()

	first, err := dispatcher.Speak(ctx, "Hello", "female")
	require.NoError(t, err)

	second, err := dispatcher.Speak(ctx, "Hello", "female")
	require.NoError(t, err)

	assert.Equal(t, first, second, "cache hit must return byte-identical audio")
	assert.Equal(t, int64(1), synthesizer.synthesizeCount.Load(), "second request must not synthesize")
}

func TestSpeak_DistinctPersonasUseDistinctEntries(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	synthesizer := &mockSynthesizer{}
	dispatcher := newTestDispatcher(t, store, synthesizer)

	ctx := context.Background()

	_, err := dispatcher.Speak(ctx, "Same text", "lecturer")
	require.NoError(t, err)

	_, err = dispatcher.Speak(ctx, "Same text", "professor")
	require.NoError(t, err)

	assert.Equal(t, int64(2), synthesizer.synthesizeCount.Load())
	assert.Equal(t, 2, store.writeCount)
}

func TestSpeak_PersonaAliasSharingVoiceHitsCache(t *testing.T) {
	t.Parallel()

	// Caching is keyed on synthesis parameters, not persona, so an
	// unknown persona aliasing the default voice reuses its entry.
	store := newMockStore()
	synthesizer := &mockSynthesizer{}
	dispatcher := newTestDispatcher(t, store, synthesizer)

	ctx := context.Background()

	_, err := dispatcher.Speak(ctx, "Shared line", "female")
	require.NoError(t, err)

	_, err = dispatcher.Speak(ctx, "Shared line", "renamed-female-persona")
	require.NoError(t, err)

	assert.Equal(t, int64(1), synthesizer.synthesizeCount.Load())
}

func TestSpeak_EmptyTextRejected(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	synthesizer := &mockSynthesizer{}
	dispatcher := newTestDispatcher(t, store, synthesizer)

	for _, input := range []string{"", "   ", "\t\r\n"} {
		_, err := dispatcher.Speak(context.Background(), input, "female")
		require.ErrorIs(t, err, core.ErrTextEmpty, "input %q", input)
	}

	assert.Equal(t, int64(0), synthesizer.synthesizeCount.Load())
	assert.Equal(t, 0, store.writeCount)
}

func TestSpeak_EquivalentWhitespaceSharesEntry(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	synthesizer := &mockSynthesizer{}
	dispatcher := newTestDispatcher(t, store, synthesizer)

	ctx := context.Background()

	_, err := dispatcher.Speak(ctx, "Hello   world", "female")
	require.NoError(t, err)

	_, err = dispatcher.Speak(ctx, "Hello world ", "female")
	require.NoError(t, err)

	assert.Equal(t, int64(1), synthesizer.synthesizeCount.Load())
}

func TestSpeak_SynthesisFailureWritesNothing(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	synthesizer := &mockSynthesizer{shouldFail: true}
	dispatcher := newTestDispatcher(t, store, synthesizer)

	_, err := dispatcher.Speak(context.Background(), "Hello", "female")
	require.ErrorIs(t, err, core.ErrSynthesisFailed)
	assert.Equal(t, 0, store.writeCount)
	assert.Empty(t, store.entries)
}

func TestSpeak_StoreFailuresClassified(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	existsStore := newMockStore()
	existsStore.existsShouldFail = true

	dispatcher := newTestDispatcher(t, existsStore, &mockSynthesizer{})

	_, err := dispatcher.Speak(ctx, "Hello", "female")
	require.ErrorIs(t, err, core.ErrStoreFailed)

	writeStore := newMockStore()
	writeStore.writeShouldFail = true

	dispatcher = newTestDispatcher(t, writeStore, &mockSynthesizer{})

	_, err = dispatcher.Speak(ctx, "Hello", "female")
	require.ErrorIs(t, err, core.ErrStoreFailed)
}

func TestSpeak_ConcurrentMissesSynthesizeOnce(t *testing.T) {
	t.Parallel()

	const concurrentRequests = 8

	store := newMockStore()
	synthesizer := &mockSynthesizer{delay: 50 * time.Millisecond}
	dispatcher := newTestDispatcher(t, store, synthesizer)

	var waitGroup sync.WaitGroup

	results := make([][]byte, concurrentRequests)
	errs := make([]error, concurrentRequests)

	for requestIndex := range concurrentRequests {
		waitGroup.Add(1)

		go func(index int) {
			defer waitGroup.Done()

			results[index], errs[index] = dispatcher.Speak(context.Background(), "Hello", "female")
		}(requestIndex)
	}

	waitGroup.Wait()

	for requestIndex := range concurrentRequests {
		require.NoError(t, errs[requestIndex])
		assert.Equal(t, results[0], results[requestIndex], "all callers must receive identical audio")
	}

	assert.Equal(t, int64(1), synthesizer.synthesizeCount.Load(), "concurrent misses must collapse to one synthesis")
	assert.Equal(t, 1, store.writeCount)
}
