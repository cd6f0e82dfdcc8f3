// Package client provides an HTTP client for the tts-gateway, used by the
// CLI and suitable for embedding in other services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// API endpoints and paths.
const (
	apiTTS    = "/tts"
	apiVoices = "/voices"
	apiHealth = "/health"
)

// HTTP headers.
const (
	headerContentType    = "Content-Type"
	headerAccept         = "Accept"
	contentTypeJSON      = "application/json"
	contentTypeAudioMPEG = "audio/mpeg"
)

// Static errors.
var (
	// ErrTextEmpty indicates that no text was supplied.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrEmptyAudio indicates that the gateway returned an empty body.
	ErrEmptyAudio = errors.New("received empty audio data")
)

// speakRequest is the POST /tts payload.
type speakRequest struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

// errorBody is the gateway's JSON error payload.
type errorBody struct {
	Error string `json:"error"`
}

// Client is an HTTP client for a running tts-gateway instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a gateway client. The baseURL should include protocol and port
// (for example "http://localhost:3001"). The timeout applies to every
// request.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Speak requests synthesis of text with the given speaker persona and
// returns the audio bytes.
func (c *Client) Speak(ctx context.Context, text, speaker string) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	requestBody, err := json.Marshal(speakRequest{
		Text:    text,
		Speaker: speaker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + apiTTS

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		endpoint,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeAudioMPEG)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to gateway at %s: %w", c.baseURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// SpeakURL returns the GET /tts URL for the given parameters, handy for
// handing to browsers or audio players.
func (c *Client) SpeakURL(text, speaker string) string {
	query := url.Values{}
	query.Set("text", text)
	query.Set("speaker", speaker)

	return c.baseURL + apiTTS + "?" + query.Encode()
}

// Voices fetches the persona->voice mapping table.
func (c *Client) Voices(ctx context.Context) (map[string]string, error) {
	endpoint := c.baseURL + apiVoices

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch voices from gateway at %s: %w", c.baseURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var voices map[string]string

	err = json.NewDecoder(resp.Body).Decode(&voices)
	if err != nil {
		return nil, fmt.Errorf("failed to decode voices response: %w", err)
	}

	return voices, nil
}

// HealthCheck verifies that the gateway is running and reports healthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := c.baseURL + apiHealth

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check failed for gateway at %s: %w", c.baseURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes the gateway's structured JSON error, falling
// back to the raw body so diagnostics are preserved.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("gateway returned status %s", resp.Status)
	}

	var payload errorBody
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("gateway error (%s): %s", resp.Status, payload.Error)
	}

	return fmt.Errorf("gateway returned non-OK status: %s, body: %s", resp.Status, string(body))
}
