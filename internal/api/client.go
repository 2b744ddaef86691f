// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP clients for the chat and classification
// backends.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ecosort/bunri-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	// ErrTypeTransport covers requests that could not be sent or responses
	// that could not be read.
	ErrTypeTransport ErrorType = iota
	// ErrTypeServer covers non-success statuses with backend-supplied detail.
	ErrTypeServer
	// ErrTypeDecode covers malformed JSON from the classification backend.
	ErrTypeDecode
)

// ClientError represents an error from a backend exchange.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// IsServerFault reports whether err carries backend-supplied failure detail.
func IsServerFault(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Type == ErrTypeServer
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL of the backend (default: http://127.0.0.1:8000).
	BaseURL string

	// ChatPath is the streaming chat endpoint (default: /api/chat).
	ChatPath string

	// PredictPath is the classification endpoint (default: /api/predict).
	PredictPath string

	// Timeout for the classification request (default: 60s). The chat
	// stream is bounded by its context instead.
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:     "http://127.0.0.1:8000",
		ChatPath:    "/api/chat",
		PredictPath: "/api/predict",
		Timeout:     60 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the recycling-assistant backend: streaming chat answers
// and image classification. Safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.ChatPath == "" {
		config.ChatPath = "/api/chat"
	}
	if config.PredictPath == "" {
		config.PredictPath = "/api/predict"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// chatRequest is the wire format of a chat exchange.
type chatRequest struct {
	Message      string  `json:"message"`
	ImageContext *string `json:"image_context"`
}

// ChunkCallback is called for each text chunk received during streaming, in
// arrival order. Chunk boundaries carry no meaning; only the concatenation
// does.
type ChunkCallback = func(chunk string)

// Stream sends a chat question and delivers the answer incrementally.
//
// The response body is an unframed text stream: each read is handed to
// onChunk as-is. A non-success status returns a ServerFault carrying the
// response text verbatim, before any chunk is delivered. The read loop
// checks ctx between reads, so cancelling the context stops a stream
// mid-answer.
func (c *Client) Stream(ctx context.Context, message, imageContext string, onChunk ChunkCallback) error {
	reqBody := chatRequest{Message: message}
	if imageContext != "" {
		reqBody.ImageContext = &imageContext
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeTransport, Message: "failed to marshal request", Cause: err}
	}

	// No client timeout for streaming; the context bounds it instead.
	streamClient := &http.Client{}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+c.config.ChatPath, bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeTransport, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &ClientError{Type: ErrTypeTransport, Message: "chat request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return &ClientError{
			Type:    ErrTypeServer,
			Message: "server error: " + resp.Status + " - " + strings.TrimSpace(string(detail)),
		}
	}

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			onChunk(string(buf[:n]))
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return &ClientError{Type: ErrTypeTransport, Message: "stream read failed", Cause: err}
		}
	}
}

// =============================================================================
// IMAGE CLASSIFICATION
// =============================================================================

// predictResponse is the wire format of a classification result. Absence of
// the error field signals success.
type predictResponse struct {
	MainClass     string  `json:"main_class"`
	Confidence    float64 `json:"confidence"`
	RecyclingInfo string  `json:"recycling_info"`
	Error         string  `json:"error"`
}

// Classify uploads the image at path and returns its classification.
// All failure modes come back as a *ClientError; the caller folds them into
// a visible analysis-failure message rather than aborting the submission.
func (c *Client) Classify(ctx context.Context, path string) (*model.Classification, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "failed to open image", Cause: err}
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := createImagePart(writer, filepath.Base(path))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "failed to build upload", Cause: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "failed to read image", Cause: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "failed to finish upload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+c.config.PredictPath, &body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "predict request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, &ClientError{
			Type:    ErrTypeServer,
			Message: "server error: " + resp.Status + " - " + strings.TrimSpace(string(detail)),
		}
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeDecode, Message: "failed to decode classification", Cause: err}
	}
	if result.Error != "" {
		return nil, &ClientError{Type: ErrTypeServer, Message: result.Error}
	}

	return &model.Classification{
		MainClass:     result.MainClass,
		Confidence:    result.Confidence,
		RecyclingInfo: result.RecyclingInfo,
	}, nil
}

// createImagePart adds the image form field with its MIME type. The backend
// rejects uploads whose content type is not image/*.
func createImagePart(w *multipart.Writer, filename string) (io.Writer, error) {
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}
