package streamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/denisAlshanov/ytgrab/internal/metrics"
	"github.com/denisAlshanov/ytgrab/internal/models"
	"github.com/denisAlshanov/ytgrab/internal/utils"
)

const DefaultBufferSize = 32 * 1024

// ErrStreamNotStarted means the upstream failed before any byte reached the
// client. Nothing was committed, so the caller can still send an error.
var ErrStreamNotStarted = errors.New("stream failed before first byte")

// StreamInterruptedError means the transfer broke after the response was
// committed. The client sees a truncated body; there is nothing to send.
type StreamInterruptedError struct {
	Written int64
	Err     error
}

func (e *StreamInterruptedError) Error() string {
	return fmt.Sprintf("stream interrupted after %d bytes: %v", e.Written, e.Err)
}

func (e *StreamInterruptedError) Unwrap() error {
	return e.Err
}

// Attachment describes the download as the client will save it.
type Attachment struct {
	Title string
	// Fallback names the file when the sanitized title is empty.
	Fallback string
	Kind     models.MediaKind
	// Size is the upstream content length; zero or less means unknown.
	Size int64
}

func (a Attachment) ContentType() string {
	if a.Kind == models.MediaKindAudio {
		return "audio/mpeg"
	}
	return "video/mp4"
}

func (a Attachment) Extension() string {
	if a.Kind == models.MediaKindAudio {
		return "mp3"
	}
	return "mp4"
}

func (a Attachment) Filename() string {
	name := SanitizeFilename(a.Title)
	if name == "" {
		name = SanitizeFilename(a.Fallback)
	}
	if name == "" {
		name = string(a.Kind)
	}
	return name + "." + a.Extension()
}

var (
	disallowedChars = regexp.MustCompile(`[^\w\s]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// SanitizeFilename drops every character outside word characters and
// whitespace, then folds whitespace to single spaces. The result is safe
// inside a quoted Content-Disposition filename.
func SanitizeFilename(title string) string {
	name := disallowedChars.ReplaceAllString(title, "")
	name = whitespaceRun.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

type Streamer struct {
	bufferSize int
	buffers    sync.Pool
	metrics    *metrics.Metrics
}

func New(bufferSize int, m *metrics.Metrics) *Streamer {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	s := &Streamer{
		bufferSize: bufferSize,
		metrics:    m,
	}
	s.buffers.New = func() any {
		buf := make([]byte, s.bufferSize)
		return &buf
	}
	return s
}

// Stream relays src to w. Headers are staged first and committed together
// with the first body byte. Each chunk is written before the next is read,
// so a slow client slows the upstream read. Cancelling ctx stops the relay
// between chunks. Closing src is the caller's job.
func (s *Streamer) Stream(ctx context.Context, w http.ResponseWriter, src io.Reader, att Attachment) (int64, error) {
	finish := s.metrics.StreamStarted(string(att.Kind))

	header := w.Header()
	header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, att.Filename()))
	header.Set("Content-Type", att.ContentType())
	if att.Size > 0 {
		header.Set("Content-Length", strconv.FormatInt(att.Size, 10))
	}
	header.Set("X-Content-Type-Options", "nosniff")

	bufp := s.buffers.Get().(*[]byte)
	defer s.buffers.Put(bufp)
	buf := *bufp

	flusher, _ := w.(http.Flusher)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, w, att, written, err, finish)
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			m, writeErr := w.Write(buf[:n])
			written += int64(m)
			s.metrics.AddStreamedBytes(string(att.Kind), int64(m))
			if writeErr == nil && m < n {
				writeErr = io.ErrShortWrite
			}
			if writeErr != nil {
				return s.fail(ctx, w, att, written, writeErr, finish)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return s.fail(ctx, w, att, written, readErr, finish)
		}
	}

	if written == 0 {
		// An empty body is still a complete response.
		w.WriteHeader(http.StatusOK)
	}
	if att.Size > 0 && written != att.Size {
		utils.LogWarn(ctx, "Stream length differs from reported size", utils.Fields{
			"expected_bytes": att.Size,
			"bytes_written":  written,
		})
	}

	finish(metrics.OutcomeCompleted)
	utils.LogInfo(ctx, "Stream completed", utils.Fields{
		"file_name":     att.Filename(),
		"bytes_written": written,
		"size":          humanize.Bytes(uint64(written)),
	})
	return written, nil
}

func (s *Streamer) fail(ctx context.Context, w http.ResponseWriter, att Attachment, written int64, err error, finish func(string)) (int64, error) {
	if written == 0 {
		// Nothing committed yet: drop the staged attachment headers so an
		// error body can be written instead.
		header := w.Header()
		header.Del("Content-Disposition")
		header.Del("Content-Length")
		header.Del("Content-Type")
		header.Del("X-Content-Type-Options")
		finish(metrics.OutcomeFailed)
		return 0, fmt.Errorf("%w: %w", ErrStreamNotStarted, err)
	}

	finish(metrics.OutcomeAborted)
	utils.LogError(ctx, "Stream interrupted", err, utils.Fields{
		"file_name":     att.Filename(),
		"bytes_written": written,
		"size":          humanize.Bytes(uint64(written)),
	})
	return written, &StreamInterruptedError{Written: written, Err: err}
}
