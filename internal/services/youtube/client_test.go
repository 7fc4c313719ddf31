package youtube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisAlshanov/ytgrab/internal/config"
	"github.com/denisAlshanov/ytgrab/internal/models"
)

type fakeExtractor struct {
	video     *youtube.Video
	videoErr  error
	stream    string
	streamErr error

	gotVideoID string
	gotFormat  *youtube.Format
}

func (f *fakeExtractor) GetVideoContext(ctx context.Context, id string) (*youtube.Video, error) {
	f.gotVideoID = id
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return f.video, nil
}

func (f *fakeExtractor) GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	f.gotFormat = format
	if f.streamErr != nil {
		return nil, 0, f.streamErr
	}
	return io.NopCloser(strings.NewReader(f.stream)), int64(len(f.stream)), nil
}

func testVideo() *youtube.Video {
	return &youtube.Video{
		ID:       "abc12345678",
		Title:    "My/Video: Test?",
		Author:   "Some Channel",
		Views:    1234,
		Duration: 212 * time.Second,
		Thumbnails: youtube.Thumbnails{
			{URL: "", Width: 1, Height: 1},
			{URL: "https://i.ytimg.com/vi/abc12345678/default.jpg", Width: 120, Height: 90},
		},
		Formats: youtube.FormatList{
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, QualityLabel: "360p", Quality: "medium", AudioChannels: 2, Width: 640, Height: 360, Bitrate: 500000},
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Quality: "tiny", AudioChannels: 2, Bitrate: 128000, ApproxDurationMs: "212000"},
			{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, QualityLabel: "720p", Quality: "hd720", AudioChannels: 2, Width: 1280, Height: 720, Bitrate: 1500000},
			{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, QualityLabel: "1080p", Quality: "hd1080", Width: 1920, Height: 1080, Bitrate: 4000000},
			{ItagNo: 999, MimeType: "text/plain"},
		},
	}
}

// staticFactory hands the same extractor to every request.
func staticFactory(extractor Extractor) ExtractorFactory {
	return func(ctx context.Context) (NewExtractorFunc, error) {
		return func() Extractor { return extractor }, nil
	}
}

func newReadyClient(t *testing.T, extractor Extractor) *Client {
	t.Helper()
	cfg := &config.YouTubeConfig{HTTPTimeout: 5 * time.Second, InitTimeout: 5 * time.Second}
	client := NewClient(cfg, staticFactory(extractor), nil)
	client.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.WaitReady(ctx))
	return client
}

func TestClientNotReadyFailsFast(t *testing.T) {
	release := make(chan struct{})
	extractor := &fakeExtractor{video: testVideo()}

	cfg := &config.YouTubeConfig{HTTPTimeout: time.Second}
	client := NewClient(cfg, func(ctx context.Context) (NewExtractorFunc, error) {
		<-release
		return func() Extractor { return extractor }, nil
	}, nil)

	_, err := client.FetchInfo(context.Background(), "abc12345678")
	assert.ErrorIs(t, err, ErrServiceNotReady)

	client.Start(context.Background())
	assert.False(t, client.Ready())

	done := make(chan error, 1)
	go func() {
		_, err := client.FetchInfo(context.Background(), "abc12345678")
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrServiceNotReady)
	case <-time.After(2 * time.Second):
		t.Fatal("FetchInfo blocked while the client was initializing")
	}

	close(release)
	require.NoError(t, client.WaitReady(context.Background()))
	assert.True(t, client.Ready())

	_, err = client.FetchInfo(context.Background(), "abc12345678")
	assert.NoError(t, err)
}

func TestClientInitFailure(t *testing.T) {
	cfg := &config.YouTubeConfig{}
	client := NewClient(cfg, func(ctx context.Context) (NewExtractorFunc, error) {
		return nil, errors.New("no network")
	}, nil)
	client.Start(context.Background())

	err := client.WaitReady(context.Background())
	assert.ErrorIs(t, err, ErrServiceNotReady)
	assert.False(t, client.Ready())

	_, err = client.FetchInfo(context.Background(), "abc12345678")
	assert.ErrorIs(t, err, ErrServiceNotReady)
}

func TestWaitReadyHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	client := NewClient(&config.YouTubeConfig{}, func(ctx context.Context) (NewExtractorFunc, error) {
		<-release
		return func() Extractor { return &fakeExtractor{} }, nil
	}, nil)
	client.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, client.WaitReady(ctx), context.DeadlineExceeded)
}

func TestFetchInfoNormalizes(t *testing.T) {
	extractor := &fakeExtractor{video: testVideo()}
	client := newReadyClient(t, extractor)

	info, err := client.FetchInfo(context.Background(), "abc12345678")
	require.NoError(t, err)

	assert.Equal(t, "abc12345678", extractor.gotVideoID)
	assert.Equal(t, "abc12345678", info.ID)
	assert.Equal(t, "My/Video: Test?", info.Title)
	assert.Equal(t, "Some Channel", info.Author)
	assert.Equal(t, 1234, info.Views)
	assert.Equal(t, 212, info.Duration)
	assert.Equal(t, "https://i.ytimg.com/vi/abc12345678/default.jpg", info.Thumbnail)

	require.Len(t, info.Formats, 4, "format without audio or video must be dropped")
	byItag := make(map[int]models.FormatDescriptor)
	for _, f := range info.Formats {
		assert.True(t, f.HasAudio || f.HasVideo)
		assert.NotNil(t, f.Handle)
		byItag[f.Itag] = f
	}

	assert.Equal(t, models.FormatDescriptor{
		Itag: 22, Quality: "720p", Container: "mp4", MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`,
		HasAudio: true, HasVideo: true, Bitrate: 1500000, Handle: byItag[22].Handle,
	}, byItag[22])
	assert.Equal(t, "audio", byItag[140].Quality)
	assert.True(t, byItag[140].HasAudio)
	assert.False(t, byItag[140].HasVideo)
	assert.False(t, byItag[137].HasAudio)
	assert.True(t, byItag[137].HasVideo)

	var muxed []int
	for _, f := range info.Formats {
		if f.Muxed() {
			muxed = append(muxed, f.Itag)
		}
	}
	assert.Equal(t, []int{22, 18}, muxed, "muxed formats should be ranked best first")
}

func TestFetchInfoDurationFallsBackToFormats(t *testing.T) {
	video := testVideo()
	video.Duration = 0
	client := newReadyClient(t, &fakeExtractor{video: video})

	info, err := client.FetchInfo(context.Background(), "abc12345678")
	require.NoError(t, err)
	assert.Equal(t, 212, info.Duration)
}

func TestFetchInfoExtractionFailure(t *testing.T) {
	cause := youtube.ErrVideoPrivate
	client := newReadyClient(t, &fakeExtractor{videoErr: cause})

	_, err := client.FetchInfo(context.Background(), "abc12345678")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "get video info", extractionErr.Op)
}

func TestOpenStream(t *testing.T) {
	extractor := &fakeExtractor{video: testVideo(), stream: "media bytes"}
	client := newReadyClient(t, extractor)

	info, err := client.FetchInfo(context.Background(), "abc12345678")
	require.NoError(t, err)

	var audio models.FormatDescriptor
	for _, f := range info.Formats {
		if f.Itag == 140 {
			audio = f
		}
	}

	stream, size, err := client.OpenStream(context.Background(), info, audio)
	require.NoError(t, err)
	defer stream.Close()

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "media bytes", string(data))
	assert.Equal(t, int64(11), size)
	require.NotNil(t, extractor.gotFormat)
	assert.Equal(t, 140, extractor.gotFormat.ItagNo)
}

func TestOpenStreamRejectsForeignHandles(t *testing.T) {
	client := newReadyClient(t, &fakeExtractor{video: testVideo()})

	info := &models.VideoInfo{ID: "abc12345678", Source: testVideo()}
	_, _, err := client.OpenStream(context.Background(), info, models.FormatDescriptor{Itag: 18, Handle: "18"})
	assert.ErrorIs(t, err, ErrInvalidFormatHandle)

	_, _, err = client.OpenStream(context.Background(), &models.VideoInfo{}, models.FormatDescriptor{})
	assert.ErrorIs(t, err, ErrInvalidFormatHandle)
}

func TestOpenStreamFailure(t *testing.T) {
	cause := errors.New("403 from upstream")
	client := newReadyClient(t, &fakeExtractor{video: testVideo(), streamErr: cause})

	info, err := client.FetchInfo(context.Background(), "abc12345678")
	require.NoError(t, err)

	_, _, err = client.OpenStream(context.Background(), info, info.Formats[0])
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.ErrorIs(t, err, cause)
}

func TestEachRequestGetsItsOwnExtractor(t *testing.T) {
	var created []*fakeExtractor
	factory := func(ctx context.Context) (NewExtractorFunc, error) {
		return func() Extractor {
			e := &fakeExtractor{video: testVideo(), stream: "bytes"}
			created = append(created, e)
			return e
		}, nil
	}
	client := NewClient(&config.YouTubeConfig{}, factory, nil)
	client.Start(context.Background())
	require.NoError(t, client.WaitReady(context.Background()))

	first, err := client.FetchInfo(context.Background(), "abc12345678")
	require.NoError(t, err)
	second, err := client.FetchInfo(context.Background(), "abc12345678")
	require.NoError(t, err)
	require.Len(t, created, 2)

	stream, _, err := client.OpenStream(context.Background(), first, first.Formats[0])
	require.NoError(t, err)
	stream.Close()

	assert.NotNil(t, created[0].gotFormat, "stream must be opened by the extractor that fetched the info")
	assert.Nil(t, created[1].gotFormat)
	assert.Len(t, created, 2, "opening a stream must not build another extractor")
	assert.NotSame(t, first.Source, second.Source)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestConcurrentFetchWithYouTubeClients(t *testing.T) {
	var calls atomic.Int64
	upstream := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		if req.Body != nil {
			req.Body.Close()
		}
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Status:     "500 Internal Server Error",
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("")),
			Request:    req,
		}, nil
	})

	cfg := &config.YouTubeConfig{HTTPTimeout: 5 * time.Second}
	factory := newExtractorFactory(cfg, upstream)

	newExtractor, err := factory(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, newExtractor(), newExtractor())

	client := NewClient(cfg, factory, nil)
	client.Start(context.Background())
	require.NoError(t, client.WaitReady(context.Background()))

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.FetchInfo(context.Background(), "abc12345678")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		var extractionErr *ExtractionError
		assert.ErrorAs(t, err, &extractionErr)
	}
	assert.Positive(t, calls.Load())
}
