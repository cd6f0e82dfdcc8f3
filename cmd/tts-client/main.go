// main package for the tts-client, a command-line client for the
// tts-gateway.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/tts-gateway/internal/client"
)

// Flag names.
const (
	flagURL     = "url"
	flagText    = "text"
	flagSpeaker = "speaker"
	flagOutput  = "output"
	flagChunks  = "chunks"
	flagWorkers = "workers"
	flagHealth  = "health"
	flagVoices  = "voices"
)

// Flag descriptions.
const (
	flagURLDesc     = "Base URL of the tts-gateway"
	flagTextDesc    = "Text to convert to speech"
	flagSpeakerDesc = "Speaker persona (see --voices)"
	flagOutputDesc  = "Output file path (.mp3) or directory for --chunks"
	flagChunksDesc  = "JSON file containing an array of text chunks to process"
	flagWorkersDesc = "Number of parallel workers for --chunks"
	flagHealthDesc  = "Check gateway health and exit"
	flagVoicesDesc  = "List available speaker personas and exit"
)

// Defaults.
const (
	defaultGatewayURL  = "http://localhost:3001"
	defaultSpeaker     = "female"
	defaultOutputFile  = "output.mp3"
	defaultWorkerCount = 4
	requestTimeout     = 120 * time.Second
	logFileName        = "tts-client.log"
	outputFileFormat   = "chunk_%04d.mp3"
	dirPermissions     = 0o750
)

// Error messages.
const (
	errEitherTextOrChunks = "Either --text or --chunks must be provided"
	errCannotSpecifyBoth  = "Cannot specify both --text and --chunks"
)

// ErrNoChunksFound indicates an empty chunks file.
var ErrNoChunksFound = errors.New("no chunks found")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	url     string
	text    string
	speaker string
	output  string
	chunks  string
	workers int
	health  bool
	voices  bool
}

func parseFlags() *appFlags {
	flags := &appFlags{
		url:     "",
		text:    "",
		speaker: "",
		output:  "",
		chunks:  "",
		workers: 0,
		health:  false,
		voices:  false,
	}

	flag.StringVar(&flags.url, flagURL, defaultGatewayURL, flagURLDesc)
	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.speaker, flagSpeaker, defaultSpeaker, flagSpeakerDesc)
	flag.StringVar(&flags.output, flagOutput, defaultOutputFile, flagOutputDesc)
	flag.StringVar(&flags.chunks, flagChunks, "", flagChunksDesc)
	flag.IntVar(&flags.workers, flagWorkers, defaultWorkerCount, flagWorkersDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.BoolVar(&flags.voices, flagVoices, false, flagVoicesDesc)
	flag.Parse()

	return flags
}

func main() {
	flags := parseFlags()

	gatewayClient := client.New(flags.url, requestTimeout)
	ctx := context.Background()

	if flags.health {
		err := gatewayClient.HealthCheck(ctx)
		if err != nil {
			log.Fatalf("Gateway is not healthy: %v", err)
		}

		fmt.Println("Gateway is healthy")

		return
	}

	if flags.voices {
		listVoices(ctx, gatewayClient)

		return
	}

	appLog, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	defer func() {
		_ = appLog.Close()
	}()

	switch {
	case flags.text != "" && flags.chunks != "":
		log.Fatal(errCannotSpecifyBoth)
	case flags.text != "":
		processSingleText(ctx, gatewayClient, appLog, flags)
	case flags.chunks != "":
		processChunks(ctx, gatewayClient, appLog, flags)
	default:
		log.Fatal(errEitherTextOrChunks)
	}
}

func listVoices(ctx context.Context, gatewayClient *client.Client) {
	voices, err := gatewayClient.Voices(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch voices: %v", err)
	}

	for personaID, voice := range voices {
		fmt.Printf("%-18s %s\n", personaID, voice)
	}
}

func processSingleText(
	ctx context.Context,
	gatewayClient *client.Client,
	appLog *logger.Logger,
	flags *appFlags,
) {
	appLog.Info("Processing single text to: %s", flags.output)

	audioData, err := gatewayClient.Speak(ctx, flags.text, flags.speaker)
	if err != nil {
		log.Fatalf("Failed to generate speech: %v", err)
	}

	err = writeAudioFile(flags.output, audioData)
	if err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}

	appLog.Info("Generated %d bytes: %s", len(audioData), flags.output)
	fmt.Printf("Generated: %s\n", flags.output)
}

// processChunks reads a JSON array of text chunks and synthesizes them in
// parallel with a bounded worker pool. Failed chunks are reported but do not
// stop the remaining work.
func processChunks(
	ctx context.Context,
	gatewayClient *client.Client,
	appLog *logger.Logger,
	flags *appFlags,
) {
	chunks, err := readChunksFile(flags.chunks)
	if err != nil {
		log.Fatalf("Failed to read chunks: %v", err)
	}

	err = os.MkdirAll(flags.output, dirPermissions)
	if err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	var (
		waitGroup sync.WaitGroup
		mutex     sync.Mutex
		lastError error
	)

	workerPool := make(chan struct{}, flags.workers)

	for chunkIndex, chunk := range chunks {
		waitGroup.Add(1)

		go func(index int, chunkText string) {
			defer waitGroup.Done()

			workerPool <- struct{}{}

			defer func() { <-workerPool }()

			outputPath := filepath.Join(flags.output, fmt.Sprintf(outputFileFormat, index+1))

			audioData, speakErr := gatewayClient.Speak(ctx, chunkText, flags.speaker)
			if speakErr == nil {
				speakErr = writeAudioFile(outputPath, audioData)
			}

			if speakErr != nil {
				mutex.Lock()

				lastError = fmt.Errorf("chunk %d failed: %w", index+1, speakErr)

				mutex.Unlock()
				appLog.Error("Failed to process chunk %d: %v", index+1, speakErr)

				return
			}

			appLog.Info("Processed chunk %d/%d", index+1, len(chunks))
		}(chunkIndex, chunk)
	}

	waitGroup.Wait()
	close(workerPool)

	if lastError != nil {
		log.Fatalf("Failed to process chunks: %v", lastError)
	}

	appLog.Info("Successfully processed all chunks")
	fmt.Printf("Generated audio files in: %s\n", flags.output)
}

// readChunksFile reads and parses a JSON file containing an array of text
// chunks.
func readChunksFile(chunksPath string) ([]string, error) {
	data, err := os.ReadFile(chunksPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var chunks []string

	err = json.Unmarshal(data, &chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chunks JSON: %w", err)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoChunksFound, chunksPath)
	}

	return chunks, nil
}

func writeAudioFile(outputPath string, audioData []byte) error {
	err := os.WriteFile(outputPath, audioData, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	return nil
}
