package youtube

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/denisAlshanov/ytgrab/internal/models"
)

func normalizeVideo(video *youtube.Video) *models.VideoInfo {
	info := &models.VideoInfo{
		ID:      video.ID,
		Title:   video.Title,
		Author:  video.Author,
		Views:   toCount(video.Views),
		Formats: normalizeFormats(video.Formats),
	}

	for _, thumb := range video.Thumbnails {
		if thumb.URL != "" {
			info.Thumbnail = thumb.URL
			break
		}
	}

	info.Duration = toCount(int64(video.Duration / time.Second))
	if info.Duration == 0 {
		// Some responses omit lengthSeconds; the formats still carry it.
		for _, f := range video.Formats {
			if ms := toCount(f.ApproxDurationMs); ms/1000 > info.Duration {
				info.Duration = ms / 1000
			}
		}
	}

	return info
}

// normalizeFormats keeps the extractor's best-first ranking. Formats with
// neither audio nor video are dropped.
func normalizeFormats(list youtube.FormatList) []models.FormatDescriptor {
	sorted := make(youtube.FormatList, len(list))
	copy(sorted, list)
	sorted.Sort()

	formats := make([]models.FormatDescriptor, 0, len(sorted))
	for i := range sorted {
		raw := &sorted[i]
		hasVideo := strings.HasPrefix(raw.MimeType, "video/")
		hasAudio := raw.AudioChannels > 0 || strings.HasPrefix(raw.MimeType, "audio/") || mimeHasAudioCodec(raw.MimeType)
		if !hasAudio && !hasVideo {
			continue
		}

		formats = append(formats, models.FormatDescriptor{
			Itag:          raw.ItagNo,
			Quality:       qualityLabel(raw, hasVideo),
			Container:     containerFromMime(raw.MimeType),
			MimeType:      raw.MimeType,
			HasAudio:      hasAudio,
			HasVideo:      hasVideo,
			Bitrate:       toCount(raw.Bitrate),
			ContentLength: int64(toCount(raw.ContentLength)),
			Handle:        raw,
		})
	}
	return formats
}

func qualityLabel(f *youtube.Format, hasVideo bool) string {
	if f.QualityLabel != "" {
		return f.QualityLabel
	}
	if !hasVideo {
		return "audio"
	}
	return f.Quality
}

// containerFromMime turns `video/mp4; codecs="avc1"` into "mp4".
func containerFromMime(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(base), "/")
	if !ok || sub == "" {
		return "mp4"
	}
	return sub
}

func mimeHasAudioCodec(mime string) bool {
	_, params, ok := strings.Cut(mime, ";")
	if !ok {
		return false
	}
	params = strings.ToLower(params)
	for _, codec := range []string{"mp4a", "opus", "vorbis", "ac-3", "ec-3"} {
		if strings.Contains(params, codec) {
			return true
		}
	}
	return false
}

// toCount coerces the numeric shapes extractors use (native numbers,
// decimal strings such as "1,234,567", json.Number) to a non-negative int.
// Anything unparseable becomes 0.
func toCount(v any) int {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		return toCount(n.String())
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt {
		return math.MaxInt
	}
	return int(f)
}
