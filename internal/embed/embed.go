// Package embed turns a completed line holding a social post or video link
// into an embed, and removes the link text once the embed is confirmed to
// have rendered.
package embed

import (
	"regexp"
	"strings"
)

// Kind is the embed key written into the document.
type Kind string

const (
	KindPost  Kind = "twitter"
	KindVideo Kind = "video"
)

var (
	postPattern  = regexp.MustCompile(`^(?:https?://)?(?:www\.)?twitter\.com/.+?/status/(\d+)$`)
	videoPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?((?:vimeo\.com|youtu\.be|youtube\.com)/\S+)$`)
	videoParams  = regexp.MustCompile(`&.*$`)
)

// Match is an embeddable link found on a line. ID is set for posts, URL for
// videos (already normalised to the player address).
type Match struct {
	Kind Kind
	ID   string
	URL  string
}

// Value is the embed payload stored in the document.
func (m Match) Value() string {
	if m.Kind == KindPost {
		return m.ID
	}
	return m.URL
}

// Detect reports whether line is exactly one embeddable link.
func Detect(line string) (Match, bool) {
	if sub := postPattern.FindStringSubmatch(line); sub != nil {
		return Match{Kind: KindPost, ID: sub[1]}, true
	}
	if sub := videoPattern.FindStringSubmatch(line); sub != nil {
		return Match{Kind: KindVideo, URL: NormalizeVideoURL(sub[1])}, true
	}
	return Match{}, false
}

// NormalizeVideoURL converts a watch link (scheme and www. already removed)
// into the provider's embeddable player URL.
func NormalizeVideoURL(path string) string {
	url := "https://" + path
	switch {
	case strings.Contains(url, "watch?v="):
		url = strings.Replace(url, "watch?v=", "embed/", 1)
		url = videoParams.ReplaceAllString(url, "")
	case strings.HasPrefix(path, "youtu.be/"):
		url = "https://youtube.com/embed/" + strings.TrimPrefix(path, "youtu.be/")
	default:
		url = strings.Replace(url, "vimeo.com", "player.vimeo.com/video", 1)
	}
	return url
}
