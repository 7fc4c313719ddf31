// Package formats picks the concrete stream to download for a request.
//
// Candidates are taken in the order the metadata adapter produced them,
// which is best first. Selection never re-ranks and never falls back to a
// different media kind.
package formats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/denisAlshanov/ytgrab/internal/models"
)

var ErrNoSuitableFormat = errors.New("no suitable format")

// Quality keywords. QualityBest is canonical; the others are aliases kept
// for clients that send the extractor's own keywords.
const (
	QualityBest         = "best"
	QualityHighest      = "highest"
	QualityHighestAudio = "highestaudio"
	QualityHighestVideo = "highestvideo"
	QualityLowest       = "lowest"
)

// Select returns one format for kind matching quality. An empty quality
// means best.
func Select(formats []models.FormatDescriptor, kind models.MediaKind, quality string) (models.FormatDescriptor, error) {
	candidates, err := Candidates(formats, kind)
	if err != nil {
		return models.FormatDescriptor{}, err
	}

	switch q := strings.ToLower(strings.TrimSpace(quality)); q {
	case "", QualityBest, QualityHighest, QualityHighestAudio, QualityHighestVideo:
		return candidates[0], nil
	case QualityLowest:
		return candidates[len(candidates)-1], nil
	default:
		for _, f := range candidates {
			if strings.EqualFold(f.Quality, q) {
				return f, nil
			}
		}
		if itag, err := strconv.Atoi(q); err == nil {
			for _, f := range candidates {
				if f.Itag == itag {
					return f, nil
				}
			}
		}
		return models.FormatDescriptor{}, fmt.Errorf("%w: no %s format with quality %q", ErrNoSuitableFormat, kind, quality)
	}
}

// Candidates filters formats to those deliverable for kind, preserving
// order. Video requires muxed formats. Audio prefers audio-only formats
// and otherwise accepts any format carrying audio.
func Candidates(formats []models.FormatDescriptor, kind models.MediaKind) ([]models.FormatDescriptor, error) {
	var out []models.FormatDescriptor

	switch kind {
	case models.MediaKindVideo:
		out = filter(formats, func(f models.FormatDescriptor) bool {
			return f.HasAudio && f.HasVideo
		})
	case models.MediaKindAudio:
		out = filter(formats, func(f models.FormatDescriptor) bool {
			return f.HasAudio && !f.HasVideo
		})
		if len(out) == 0 {
			out = filter(formats, func(f models.FormatDescriptor) bool {
				return f.HasAudio
			})
		}
	default:
		return nil, fmt.Errorf("%w: unknown media kind %q", ErrNoSuitableFormat, kind)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no %s formats available", ErrNoSuitableFormat, kind)
	}
	return out, nil
}

func filter(formats []models.FormatDescriptor, keep func(models.FormatDescriptor) bool) []models.FormatDescriptor {
	var out []models.FormatDescriptor
	for _, f := range formats {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
