// Package gateway exposes the HTTP surface of the tts-gateway: the /tts
// synthesis endpoints, the voice catalog, and health reporting.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/tts-gateway/internal/core"
)

// Routes.
const (
	routeTTS    = "/tts"
	routeVoices = "/voices"
	routeHealth = "/health"
)

// Query and JSON field names.
const (
	paramText    = "text"
	paramSpeaker = "speaker"
)

// Response headers and content types.
const (
	headerContentType     = "Content-Type"
	headerContentLength   = "Content-Length"
	contentTypeAudioMPEG  = "audio/mpeg"
	contentTypeJSON       = "application/json"
	corsAllowOrigin       = "Access-Control-Allow-Origin"
	corsAllowMethods      = "Access-Control-Allow-Methods"
	corsAllowHeaders      = "Access-Control-Allow-Headers"
	corsAllowOriginValue  = "*"
	corsAllowMethodsValue = "GET, POST, OPTIONS"
	corsAllowHeadersValue = "Content-Type"
)

// Error and log messages.
const (
	msgMissingText      = "Missing 'text' parameter"
	msgInvalidJSONBody  = "Invalid JSON body"
	msgEndpointNotFound = "Endpoint not found"
	msgMethodNotAllowed = "Method not allowed"
	msgInternalFailure  = "Speech generation failed"

	logFmtRequest       = "Request %s: %s %s speaker=%q text_len=%d"
	logFmtRequestFailed = "Request %s failed: %v"
	logFmtServed        = "Request %s served: %d audio bytes"
)

// ttsRequest is the POST /tts body.
type ttsRequest struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// errorBody is the JSON error payload for failed requests.
type errorBody struct {
	Error string `json:"error"`
}

// Speaker supplies the dispatcher operation the gateway serves.
type Speaker interface {
	Speak(ctx context.Context, text, personaID string) ([]byte, error)
}

// VoiceCatalog exposes the static persona->voice table for /voices.
type VoiceCatalog interface {
	Voices() map[string]string
}

// Server handles the gateway's HTTP endpoints. Every response, including
// errors, carries permissive CORS headers.
type Server struct {
	speaker     Speaker
	catalog     VoiceCatalog
	log         *logger.Logger
	serviceName string
}

// New creates a gateway Server.
func New(speaker Speaker, catalog VoiceCatalog, serviceName string, log *logger.Logger) *Server {
	return &Server{
		speaker:     speaker,
		catalog:     catalog,
		log:         log,
		serviceName: serviceName,
	}
}

// Handler returns the root HTTP handler for the gateway.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(routeTTS, s.handleTTS)
	mux.HandleFunc(routeVoices, s.handleVoices)
	mux.HandleFunc(routeHealth, s.handleHealth)
	mux.HandleFunc("/", s.handleNotFound)

	return s.withCORS(mux)
}

// withCORS sets permissive CORS headers on every response and short-circuits
// OPTIONS preflight requests with an empty 200.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set(corsAllowOrigin, corsAllowOriginValue)
		writer.Header().Set(corsAllowMethods, corsAllowMethodsValue)
		writer.Header().Set(corsAllowHeaders, corsAllowHeadersValue)

		if request.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusOK)

			return
		}

		next.ServeHTTP(writer, request)
	})
}

func (s *Server) handleTTS(writer http.ResponseWriter, request *http.Request) {
	var textValue, speaker string

	switch request.Method {
	case http.MethodGet:
		query := request.URL.Query()
		textValue = query.Get(paramText)
		speaker = query.Get(paramSpeaker)
	case http.MethodPost:
		var body ttsRequest

		err := json.NewDecoder(request.Body).Decode(&body)
		if err != nil {
			s.writeError(writer, http.StatusBadRequest, msgInvalidJSONBody)

			return
		}

		textValue = body.Text
		speaker = body.Speaker
	default:
		s.writeError(writer, http.StatusMethodNotAllowed, msgMethodNotAllowed)

		return
	}

	requestID := uuid.NewString()
	s.log.Info(logFmtRequest, requestID, request.Method, request.URL.Path, speaker, len(textValue))

	audioData, err := s.speaker.Speak(request.Context(), textValue, speaker)
	if err != nil {
		s.log.Error(logFmtRequestFailed, requestID, err)
		s.writeSpeakError(writer, err)

		return
	}

	writer.Header().Set(headerContentType, contentTypeAudioMPEG)
	writer.Header().Set(headerContentLength, strconv.Itoa(len(audioData)))
	writer.WriteHeader(http.StatusOK)

	_, writeErr := writer.Write(audioData)
	if writeErr != nil {
		s.log.Warn("Request %s: failed to write response body: %v", requestID, writeErr)

		return
	}

	s.log.Info(logFmtServed, requestID, len(audioData))
}

func (s *Server) handleVoices(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		s.writeError(writer, http.StatusMethodNotAllowed, msgMethodNotAllowed)

		return
	}

	s.writeJSON(writer, http.StatusOK, s.catalog.Voices())
}

func (s *Server) handleHealth(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		s.writeError(writer, http.StatusMethodNotAllowed, msgMethodNotAllowed)

		return
	}

	s.writeJSON(writer, http.StatusOK, healthResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

func (s *Server) handleNotFound(writer http.ResponseWriter, _ *http.Request) {
	s.writeError(writer, http.StatusNotFound, msgEndpointNotFound)
}

// writeSpeakError maps the dispatcher error taxonomy onto HTTP statuses:
// invalid input is the caller's fault, everything else is internal.
func (s *Server) writeSpeakError(writer http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrTextEmpty) {
		s.writeError(writer, http.StatusBadRequest, msgMissingText)

		return
	}

	s.writeError(writer, http.StatusInternalServerError, fmt.Sprintf("%s: %v", msgInternalFailure, err))
}

func (s *Server) writeError(writer http.ResponseWriter, status int, message string) {
	s.writeJSON(writer, status, errorBody{Error: message})
}

func (s *Server) writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set(headerContentType, contentTypeJSON)
	writer.WriteHeader(status)

	err := json.NewEncoder(writer).Encode(payload)
	if err != nil {
		s.log.Warn("Failed to encode JSON response: %v", err)
	}
}
