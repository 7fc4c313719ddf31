package models

import "fmt"

// MediaKind is what a download request asks for.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

// VideoInfo is a normalized metadata snapshot for one video. It is fetched
// per request and never shared across requests.
type VideoInfo struct {
	ID        string
	Title     string
	Thumbnail string
	Duration  int
	Author    string
	Views     int
	Formats   []FormatDescriptor

	// Source is private to the metadata adapter. It lets streams be opened
	// without a second metadata round trip.
	Source any
}

// FormatDescriptor describes one stream the extractor can deliver.
// At least one of HasAudio and HasVideo is true.
type FormatDescriptor struct {
	Itag          int
	Quality       string
	Container     string
	MimeType      string
	HasAudio      bool
	HasVideo      bool
	Bitrate       int
	ContentLength int64

	// Handle is an extractor-specific token used to request the stream.
	Handle any
}

func (f FormatDescriptor) Muxed() bool {
	return f.HasAudio && f.HasVideo
}

func (f FormatDescriptor) String() string {
	return fmt.Sprintf("itag=%d quality=%s container=%s audio=%t video=%t", f.Itag, f.Quality, f.Container, f.HasAudio, f.HasVideo)
}

// DownloadRequest is built from query parameters and discarded once the
// response has been written.
type DownloadRequest struct {
	VideoID string
	Kind    MediaKind
	Quality string
}

type MessageResponse struct {
	Message string `json:"message"`
}

type FormatResponse struct {
	Quality   string `json:"quality"`
	Container string `json:"container"`
	HasAudio  bool   `json:"hasAudio"`
	HasVideo  bool   `json:"hasVideo"`
	Itag      int    `json:"itag"`
}

type VideoInfoResponse struct {
	Title     string           `json:"title"`
	Thumbnail string           `json:"thumbnail"`
	Duration  int              `json:"duration"`
	Author    string           `json:"author"`
	Views     int              `json:"views"`
	Formats   []FormatResponse `json:"formats"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewVideoInfoResponse lists only muxed formats, which are the ones the
// video download endpoint can deliver by quality label.
func NewVideoInfoResponse(info *VideoInfo) VideoInfoResponse {
	formats := make([]FormatResponse, 0, len(info.Formats))
	for _, f := range info.Formats {
		if !f.Muxed() {
			continue
		}
		formats = append(formats, FormatResponse{
			Quality:   f.Quality,
			Container: f.Container,
			HasAudio:  f.HasAudio,
			HasVideo:  f.HasVideo,
			Itag:      f.Itag,
		})
	}

	return VideoInfoResponse{
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		Duration:  info.Duration,
		Author:    info.Author,
		Views:     info.Views,
		Formats:   formats,
	}
}
