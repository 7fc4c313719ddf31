package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/denisAlshanov/ytgrab/internal/config"
	"github.com/denisAlshanov/ytgrab/internal/metrics"
	"github.com/denisAlshanov/ytgrab/internal/models"
	"github.com/denisAlshanov/ytgrab/internal/utils"
)

var (
	// ErrServiceNotReady is returned by every call made before the
	// extractor finished initializing.
	ErrServiceNotReady = errors.New("youtube client is not ready")

	ErrInvalidFormatHandle = errors.New("format was not produced by this client")
)

// ExtractionError wraps failures reported by the extractor.
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Client is the metadata adapter. It is created not ready, initializes its
// extractor in the background via Start, and is safe for concurrent use.
type Client struct {
	cfg     *config.YouTubeConfig
	factory ExtractorFactory
	metrics *metrics.Metrics

	mu           sync.RWMutex
	newExtractor NewExtractorFunc
	initErr      error
	done         chan struct{}
	startOnce    sync.Once
}

// videoSource ties a fetched video to the extractor that fetched it. The
// stream must be opened by the same extractor, since it holds the player
// config used to decipher stream URLs.
type videoSource struct {
	video     *youtube.Video
	extractor Extractor
}

// NewClient creates a client that is not ready until Start completes.
// A nil factory uses the kkdai/youtube extractor.
func NewClient(cfg *config.YouTubeConfig, factory ExtractorFactory, m *metrics.Metrics) *Client {
	if factory == nil {
		factory = NewExtractorFactory(cfg)
	}
	return &Client{
		cfg:     cfg,
		factory: factory,
		metrics: m,
		done:    make(chan struct{}),
	}
}

// NewExtractorFactory returns a factory for kkdai/youtube clients. All of
// them share one HTTP client. A youtube.Client is not safe for concurrent
// use, so each request gets its own.
// Streaming uses the request context for cancellation, so the HTTP client
// has no overall timeout.
func NewExtractorFactory(cfg *config.YouTubeConfig) ExtractorFactory {
	return newExtractorFactory(cfg, &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: cfg.HTTPTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   16,
	})
}

func newExtractorFactory(cfg *config.YouTubeConfig, transport http.RoundTripper) ExtractorFactory {
	return func(ctx context.Context) (NewExtractorFunc, error) {
		httpClient := &http.Client{Transport: transport}
		return func() Extractor {
			return &youtube.Client{
				HTTPClient: httpClient,
				ChunkSize:  cfg.ChunkSize,
			}
		}, nil
	}
}

// Start initializes the extractor in the background. Calling it more than
// once has no effect.
func (c *Client) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		go c.initialize(ctx)
	})
}

func (c *Client) initialize(ctx context.Context) {
	defer close(c.done)

	if c.cfg.InitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.InitTimeout)
		defer cancel()
	}

	newExtractor, err := c.factory(ctx)
	if err == nil && newExtractor == nil {
		err = errors.New("extractor factory returned nil")
	}

	c.mu.Lock()
	c.newExtractor = newExtractor
	c.initErr = err
	c.mu.Unlock()

	if err != nil {
		utils.LogError(ctx, "Failed to initialize YouTube client", err)
		return
	}
	utils.LogInfo(ctx, "YouTube client initialized")
}

func (c *Client) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.newExtractor != nil && c.initErr == nil
}

// WaitReady blocks until initialization finishes or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.initErr != nil {
		return fmt.Errorf("%w: %v", ErrServiceNotReady, c.initErr)
	}
	return nil
}

func (c *Client) extractor() (Extractor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.newExtractor == nil || c.initErr != nil {
		return nil, ErrServiceNotReady
	}
	return c.newExtractor(), nil
}

// FetchInfo retrieves metadata for videoID and normalizes it. There is a
// single attempt; failures are returned as *ExtractionError.
func (c *Client) FetchInfo(ctx context.Context, videoID string) (*models.VideoInfo, error) {
	extractor, err := c.extractor()
	if err != nil {
		return nil, err
	}

	if c.cfg.HTTPTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.HTTPTimeout)
		defer cancel()
	}

	start := time.Now()
	video, err := extractor.GetVideoContext(ctx, videoID)
	c.metrics.ObserveExtraction(time.Since(start), err)
	if err != nil {
		return nil, &ExtractionError{Op: "get video info", Err: err}
	}
	if video == nil {
		return nil, &ExtractionError{Op: "get video info", Err: errors.New("extractor returned no video")}
	}

	utils.LogDebug(ctx, "Fetched video info", utils.Fields{
		"video_id": videoID,
		"formats":  len(video.Formats),
	})

	info := normalizeVideo(video)
	info.Source = &videoSource{video: video, extractor: extractor}
	return info, nil
}

// OpenStream opens the upstream byte stream for format, using the extractor
// that fetched info. The stream is bound to ctx: cancelling it aborts the
// upstream transfer.
func (c *Client) OpenStream(ctx context.Context, info *models.VideoInfo, format models.FormatDescriptor) (io.ReadCloser, int64, error) {
	if !c.Ready() {
		return nil, 0, ErrServiceNotReady
	}

	src, ok := info.Source.(*videoSource)
	if !ok || src == nil || src.video == nil || src.extractor == nil {
		return nil, 0, ErrInvalidFormatHandle
	}
	raw, ok := format.Handle.(*youtube.Format)
	if !ok || raw == nil {
		return nil, 0, ErrInvalidFormatHandle
	}

	stream, size, err := src.extractor.GetStreamContext(ctx, src.video, raw)
	if err != nil {
		return nil, 0, &ExtractionError{Op: "open stream", Err: err}
	}
	return stream, size, nil
}
