package youtube

import (
	"context"
	"io"

	"github.com/kkdai/youtube/v2"

	"github.com/denisAlshanov/ytgrab/internal/models"
)

// Extractor is the capability that turns a video identifier into metadata
// and byte streams. *youtube.Client satisfies it. An Extractor is not safe
// for concurrent use; each request gets its own.
type Extractor interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// NewExtractorFunc returns a fresh Extractor for one request. It must be
// cheap and safe to call concurrently.
type NewExtractorFunc func() Extractor

// ExtractorFactory does the one-time setup shared by all extractors. It may
// be slow, so the client runs it in the background.
type ExtractorFactory func(ctx context.Context) (NewExtractorFunc, error)

// YouTubeClient is what the API handlers depend on.
type YouTubeClient interface {
	// Ready reports whether the extractor finished initializing.
	Ready() bool

	// FetchInfo retrieves and normalizes video metadata
	FetchInfo(ctx context.Context, videoID string) (*models.VideoInfo, error)

	// OpenStream opens the byte stream for a format returned by FetchInfo.
	// Caller must close the reader.
	OpenStream(ctx context.Context, info *models.VideoInfo, format models.FormatDescriptor) (io.ReadCloser, int64, error)
}

var (
	_ Extractor     = (*youtube.Client)(nil)
	_ YouTubeClient = (*Client)(nil)
)
