// Package synth provides the HTTP client for the remote speech-synthesis
// backend.
//
// The backend streams its response as newline-delimited JSON chunks, each
// tagged with a type. Only chunks tagged as audio carry speech data; timing
// and other metadata chunks are discarded. The client consumes the entire
// stream and returns one contiguous audio buffer.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/tts-gateway/internal/core"
)

// API endpoints and paths.
const (
	apiSynthesize = "/v1/synthesize"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"
)

// ChunkTypeAudio tags the chunks whose payload contributes to the returned
// audio buffer.
const ChunkTypeAudio = "audio"

// Request is the JSON payload sent to the synthesis backend.
type Request struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
	Rate  string `json:"rate"`
	Pitch string `json:"pitch"`
}

// Chunk is one element of the backend's response stream. Data is base64 in
// the wire form and decoded by encoding/json.
type Chunk struct {
	Type string `json:"type"`
	Data []byte `json:"data,omitempty"`
}

// errorResponse is the backend's structured rejection body.
type errorResponse struct {
	Detail string `json:"detail"`
}

// Client talks to the synthesis backend. All failure modes, transport
// errors, backend rejections, and malformed streams, surface as
// core.ErrSynthesisFailed. The client performs no retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a synthesis client for the backend at baseURL. The
// timeout bounds every request, including consumption of the full chunk
// stream.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize sends the parameter tuple to the backend, consumes the chunk
// stream, and returns the concatenated audio bytes.
func (c *Client) Synthesize(ctx context.Context, params core.SynthesisParams) ([]byte, error) {
	if params.Text == "" {
		return nil, core.ErrTextEmpty
	}

	resp, err := c.postSynthesize(ctx, params)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, c.rejectionError(resp)
	}

	audioData, err := collectAudio(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("%w: backend returned no audio chunks", core.ErrSynthesisFailed)
	}

	return audioData, nil
}

// HealthCheck verifies that the synthesis backend is reachable and reports
// healthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for backend at %s: %w", c.baseURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

func (c *Client) postSynthesize(ctx context.Context, params core.SynthesisParams) (*http.Response, error) {
	requestBody, err := json.Marshal(Request{
		Text:  params.Text,
		Voice: params.Voice,
		Rate:  params.Rate,
		Pitch: params.Pitch,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %w", core.ErrSynthesisFailed, err)
	}

	url := c.baseURL + apiSynthesize

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", core.ErrSynthesisFailed, err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeNDJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: failed to reach backend at %s: %w",
			core.ErrSynthesisFailed, c.baseURL, err,
		)
	}

	return resp, nil
}

// collectAudio decodes the NDJSON stream and concatenates the payloads of
// audio-tagged chunks, discarding every other chunk kind.
func collectAudio(stream io.Reader) ([]byte, error) {
	var audioData []byte

	decoder := json.NewDecoder(stream)

	for {
		var chunk Chunk

		err := decoder.Decode(&chunk)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: malformed chunk stream: %w", core.ErrSynthesisFailed, err)
		}

		if chunk.Type != ChunkTypeAudio {
			continue
		}

		audioData = append(audioData, chunk.Data...)
	}

	return audioData, nil
}

// rejectionError decodes a structured backend rejection, falling back to the
// raw body so diagnostics are never lost.
func (c *Client) rejectionError(resp *http.Response) error {
	var rejection errorResponse

	body, readErr := io.ReadAll(resp.Body)
	if readErr == nil && json.Unmarshal(body, &rejection) == nil && rejection.Detail != "" {
		return fmt.Errorf(
			"%w: backend rejected request (%s): %s",
			core.ErrSynthesisFailed, resp.Status, rejection.Detail,
		)
	}

	return fmt.Errorf(
		"%w: backend returned non-OK status %s, body: %s",
		core.ErrSynthesisFailed, resp.Status, string(body),
	)
}
