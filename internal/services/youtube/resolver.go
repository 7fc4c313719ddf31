package youtube

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrVideoIDNotFound means the input has no recognizable video identifier.
var ErrVideoIDNotFound = errors.New("no video identifier found in input")

const videoIDLength = 11

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// matcher returns the captured identifier and whether it matched.
type matcher func(input string) (string, bool)

// matchers are tried in order; the first match wins.
var matchers = []matcher{
	matchWatchURL,
	matchPathURL(isShortLinkHost, "/"),
	matchPathURL(isYouTubeHost, "/embed/"),
	matchPathURL(isYouTubeHost, "/v/"),
	matchPathURL(isYouTubeHost, "/shorts/"),
	matchBareID,
}

var youtubeHostPattern = regexp.MustCompile(`^(?:[a-z0-9-]+\.)*youtube\.com$`)

func isYouTubeHost(host string) bool {
	return youtubeHostPattern.MatchString(strings.ToLower(host))
}

func isShortLinkHost(host string) bool {
	host = strings.ToLower(host)
	return host == "youtu.be" || host == "www.youtu.be"
}

// parseURL accepts inputs with or without a scheme.
func parseURL(input string) (*url.URL, bool) {
	raw := input
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}

// matchWatchURL handles youtube.com/watch with v= anywhere in the query.
func matchWatchURL(input string) (string, bool) {
	u, ok := parseURL(input)
	if !ok || !isYouTubeHost(u.Hostname()) || u.Path != "/watch" {
		return "", false
	}
	return validID(u.Query().Get("v"))
}

// matchPathURL captures the first path segment after prefix on a host
// accepted by allowHost.
func matchPathURL(allowHost func(string) bool, prefix string) matcher {
	return func(input string) (string, bool) {
		u, ok := parseURL(input)
		if !ok || !allowHost(u.Hostname()) {
			return "", false
		}
		rest, ok := strings.CutPrefix(u.Path, prefix)
		if !ok {
			return "", false
		}
		id, _, _ := strings.Cut(rest, "/")
		return validID(id)
	}
}

func matchBareID(input string) (string, bool) {
	return validID(input)
}

func validID(candidate string) (string, bool) {
	if len(candidate) != videoIDLength || !videoIDPattern.MatchString(candidate) {
		return "", false
	}
	return candidate, true
}

// Resolve extracts the canonical video identifier from a watch URL, a
// short link, an embed URL or a bare identifier. No network access occurs.
func Resolve(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	for _, match := range matchers {
		if id, ok := match(input); ok {
			return id, true
		}
	}
	return "", false
}

// ResolveVideoID is Resolve with an error for the no-match case.
func ResolveVideoID(input string) (string, error) {
	id, ok := Resolve(input)
	if !ok {
		return "", ErrVideoIDNotFound
	}
	return id, nil
}
