package appstore

import (
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Default endpoint bases; overridable for tests.
const (
	defaultSearchBase = "https://itunes.apple.com/WebObjects/MZStore.woa/wa/search"
	defaultLookupBase = "https://itunes.apple.com/lookup"
)

// Config controls client behavior.
type Config struct {
	Storefront string
	Language   string
	ResultCap  int
	ChunkSize  int
	UserAgent  string
	Timeout    time.Duration

	// Attribute optionally narrows term searches to one metadata field.
	// Must be empty or pass ValidateAttribute.
	Attribute SearchAttribute

	// SearchBase and LookupBase override the live endpoints (tests).
	SearchBase string
	LookupBase string
}

// Client talks to both upstream endpoints with a shared pooled transport.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = 200
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	if cfg.SearchBase == "" {
		cfg.SearchBase = defaultSearchBase
	}
	if cfg.LookupBase == "" {
		cfg.LookupBase = defaultLookupBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newHTTPTransport(),
		},
		logger: logger,
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
