package geminilive

import (
	"net/http"
	"time"
)

const (
	// DefaultWebSocketURL is the Live API endpoint.
	DefaultWebSocketURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// ModelNativeAudio is a native-audio dialog model.
	ModelNativeAudio = "gemini-2.5-flash-native-audio-preview-09-2025"

	// ModalityAudio requests synthesized speech responses.
	ModalityAudio = "AUDIO"
	// ModalityText requests text responses.
	ModalityText = "TEXT"
)

// Client creates Live API sessions.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	apiKey           string
	wsURL            string
	handshakeTimeout time.Duration
	header           http.Header
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient returns a client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		panic("geminilive: API key is required")
	}
	cfg := &clientConfig{
		apiKey:           apiKey,
		wsURL:            DefaultWebSocketURL,
		handshakeTimeout: 30 * time.Second,
		header:           http.Header{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{config: cfg}
}

// WithWebSocketURL overrides the endpoint.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithHandshakeTimeout bounds the websocket opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.handshakeTimeout = d
	}
}

// WithHeader adds a header to the opening handshake.
func WithHeader(key, value string) Option {
	return func(c *clientConfig) {
		c.header.Add(key, value)
	}
}
